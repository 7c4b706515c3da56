package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// DisableCommand represents the disable command.
type DisableCommand struct{}

// NewDisableCommand creates a new DisableCommand.
func NewDisableCommand() *DisableCommand {
	return &DisableCommand{}
}

// getApp retrieves the App from the command context.
func (c *DisableCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for disabling managed units.
func (c *DisableCommand) GetCobraCommand() *cobra.Command {
	disableCmd := &cobra.Command{
		Use:   "disable [pattern]",
		Short: "Disable managed units matching the pattern",
		Long: `Disable managed units matching the pattern. The unit files stay installed;
only their install links are removed.

The pattern matches anywhere in the unit name. Without a pattern every
managed unit is disabled.`,
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
	return disableCmd
}

// Run executes the disable command.
func (c *DisableCommand) Run(ctx context.Context, app *App, match string) error {
	return app.Manager.Disable(ctx, match)
}
