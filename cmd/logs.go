package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskflows/taskflows/internal/naming"
)

// LogsOptions holds logs command options.
type LogsOptions struct {
	Lines int
}

// LogsCommand represents the logs command.
type LogsCommand struct{}

// NewLogsCommand creates a new LogsCommand.
func NewLogsCommand() *LogsCommand {
	return &LogsCommand{}
}

// getApp retrieves the App from the command context.
func (c *LogsCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for reading service logs.
func (c *LogsCommand) GetCobraCommand() *cobra.Command {
	var opts LogsOptions

	logsCmd := &cobra.Command{
		Use:   "logs <service>",
		Short: "Print recent journal entries for a managed service",
		Long: `Print recent journal entries for a managed service.

The argument may be a bare service name or a full unit name with a
.service or .timer suffix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := c.getApp(cmd)
			return c.Run(cmd.Context(), app, args[0], opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	logsCmd.Flags().IntVarP(&opts.Lines, "lines", "n", 100, "Number of journal lines to print")

	return logsCmd
}

// Run executes the logs command.
func (c *LogsCommand) Run(ctx context.Context, app *App, name string, opts LogsOptions) error {
	unit := logsUnit(name)

	args := make([]string, 0, 7)
	if app.Client.UserMode() {
		args = append(args, "--user")
	}
	args = append(args, "-u", unit, "-n", strconv.Itoa(opts.Lines), "--no-pager")

	output, err := app.Runner.CombinedOutput(ctx, "journalctl", args...)
	if err != nil {
		return fmt.Errorf("journalctl %s: %w: %s", unit, err, strings.TrimSpace(string(output)))
	}
	fmt.Print(string(output))
	return nil
}

// logsUnit resolves user input to a managed unit name, defaulting to the
// service unit when no suffix is given.
func logsUnit(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	ext := filepath.Ext(name)
	if ext != ".service" && ext != ".timer" {
		return naming.ServiceUnit(name)
	}
	stem := strings.TrimSuffix(name, ext)
	if !strings.HasPrefix(stem, naming.StopPrefix+naming.Prefix) {
		stem = naming.Base(stem)
	}
	return stem + ext
}
