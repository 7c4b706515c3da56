package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// StopCommand represents the stop command.
type StopCommand struct{}

// NewStopCommand creates a new StopCommand.
func NewStopCommand() *StopCommand {
	return &StopCommand{}
}

// getApp retrieves the App from the command context.
func (c *StopCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for stopping managed services.
func (c *StopCommand) GetCobraCommand() *cobra.Command {
	stopCmd := &cobra.Command{
		Use:   "stop [pattern]",
		Short: "Stop managed services matching the pattern",
		Long: `Stop managed services matching the pattern.

The pattern matches anywhere in the unit name. Without a pattern every
managed service is stopped.`,
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
	return stopCmd
}

// Run executes the stop command.
func (c *StopCommand) Run(ctx context.Context, app *App, match string) error {
	return app.Manager.Stop(ctx, match)
}
