package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// StartCommand represents the start command.
type StartCommand struct{}

// NewStartCommand creates a new StartCommand.
func NewStartCommand() *StartCommand {
	return &StartCommand{}
}

// getApp retrieves the App from the command context.
func (c *StartCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for starting managed services.
func (c *StartCommand) GetCobraCommand() *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start [pattern]",
		Short: "Start managed services matching the pattern",
		Long: `Start managed services matching the pattern.

The pattern matches anywhere in the unit name, and scheduled services have
their timers started alongside. Without a pattern every managed service is
started.`,
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
	return startCmd
}

// Run executes the start command.
func (c *StartCommand) Run(ctx context.Context, app *App, match string) error {
	return app.Manager.Start(ctx, match)
}

// matchArg extracts the optional pattern argument; no argument means every
// managed unit.
func matchArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
