package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// RestartCommand represents the restart command.
type RestartCommand struct{}

// NewRestartCommand creates a new RestartCommand.
func NewRestartCommand() *RestartCommand {
	return &RestartCommand{}
}

// getApp retrieves the App from the command context.
func (c *RestartCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for restarting managed services.
func (c *RestartCommand) GetCobraCommand() *cobra.Command {
	restartCmd := &cobra.Command{
		Use:   "restart [pattern]",
		Short: "Restart managed services matching the pattern",
		Long: `Restart managed services matching the pattern.

The pattern matches anywhere in the unit name. Without a pattern every
managed service is restarted.`,
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
	return restartCmd
}

// Run executes the restart command.
func (c *RestartCommand) Run(ctx context.Context, app *App, match string) error {
	return app.Manager.Restart(ctx, match)
}
