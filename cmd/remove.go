package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// RemoveCommand represents the remove command.
type RemoveCommand struct{}

// NewRemoveCommand creates a new RemoveCommand.
func NewRemoveCommand() *RemoveCommand {
	return &RemoveCommand{}
}

// getApp retrieves the App from the command context.
func (c *RemoveCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for removing managed services.
func (c *RemoveCommand) GetCobraCommand() *cobra.Command {
	removeCmd := &cobra.Command{
		Use:   "remove [pattern]",
		Short: "Uninstall managed services matching the pattern",
		Long: `Uninstall managed services matching the pattern: units are disabled, their
runtime state is cleaned, the unit files are deleted, and containers the
services drove are removed.

The pattern matches anywhere in the unit name. Without a pattern every
managed service is removed.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			app := c.getApp(cmd)
			return app.Validator.SystemRequirements(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := c.getApp(cmd)
			return c.Run(cmd.Context(), app, matchArg(args))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return removeCmd
}

// Run executes the remove command.
func (c *RemoveCommand) Run(ctx context.Context, app *App, match string) error {
	return app.Manager.Remove(ctx, match)
}
