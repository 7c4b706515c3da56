package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// EnableCommand represents the enable command.
type EnableCommand struct{}

// NewEnableCommand creates a new EnableCommand.
func NewEnableCommand() *EnableCommand {
	return &EnableCommand{}
}

// getApp retrieves the App from the command context.
func (c *EnableCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for enabling managed units.
func (c *EnableCommand) GetCobraCommand() *cobra.Command {
	enableCmd := &cobra.Command{
		Use:   "enable [pattern]",
		Short: "Enable managed units matching the pattern",
		Long: `Enable managed units matching the pattern so they come up with the manager.

The pattern matches anywhere in the unit name. Without a pattern every
managed unit is enabled.`,
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
	return enableCmd
}

// Run executes the enable command.
func (c *EnableCommand) Run(ctx context.Context, app *App, match string) error {
	return app.Manager.Enable(ctx, match)
}
