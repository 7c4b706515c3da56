package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/taskflows/taskflows/internal/repository"
)

// HistoryOptions holds history command options.
type HistoryOptions struct {
	Limit  int
	Output string
}

// historyRow is the structured form of one recorded operation.
type historyRow struct {
	ID        int64     `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Service   string    `json:"service" yaml:"service"`
	Operation string    `json:"operation" yaml:"operation"`
	Detail    string    `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// HistoryCommand represents the history command.
type HistoryCommand struct{}

// NewHistoryCommand creates a new HistoryCommand.
func NewHistoryCommand() *HistoryCommand {
	return &HistoryCommand{}
}

// getApp retrieves the App from the command context.
func (c *HistoryCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for listing recorded operations.
func (c *HistoryCommand) GetCobraCommand() *cobra.Command {
	var opts HistoryOptions

	historyCmd := &cobra.Command{
		Use:   "history [service]",
		Short: "List recorded lifecycle operations, newest first",
		Long: `List recorded lifecycle operations, newest first.

With a service argument only that service's operations are listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := c.getApp(cmd)
			return c.Run(cmd.Context(), app, matchArg(args), opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	historyCmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "Maximum number of operations to list")
	historyCmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text, json, yaml)")

	return historyCmd
}

// Run executes the history command.
func (c *HistoryCommand) Run(_ context.Context, app *App, service string, opts HistoryOptions) error {
	var (
		ops []repository.Operation
		err error
	)
	if service == "" {
		ops, err = app.History.Recent(opts.Limit)
	} else {
		ops, err = app.History.ForService(service, opts.Limit)
	}
	if err != nil {
		return fmt.Errorf("reading operation history: %w", err)
	}

	rows := make([]historyRow, 0, len(ops))
	for _, op := range ops {
		row := historyRow{
			ID:        op.ID,
			CreatedAt: op.CreatedAt,
			Service:   op.Service,
			Operation: op.Operation,
		}
		if op.Detail.Valid {
			row.Detail = op.Detail.String
		}
		rows = append(rows, row)
	}

	if opts.Output != "text" {
		return PrintOutput(opts.Output, rows)
	}

	if len(rows) == 0 {
		fmt.Println(color.YellowString("No operations recorded."))
		return nil
	}

	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	tbl := table.New("ID", "Time", "Service", "Operation", "Detail")
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	for _, row := range rows {
		tbl.AddRow(row.ID, row.CreatedAt.Local().Format("2006-01-02 15:04:05"), row.Service, row.Operation, row.Detail)
	}
	tbl.Print()
	return nil
}
