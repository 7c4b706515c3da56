package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

// StatusOptions holds status command options.
type StatusOptions struct {
	Output string
}

// calendarRow is the structured form of one calendar trigger.
type calendarRow struct {
	Base       string     `json:"base" yaml:"base"`
	Expression string     `json:"expression" yaml:"expression"`
	NextElapse *time.Time `json:"next_elapse,omitempty" yaml:"next_elapse,omitempty"`
}

// monotonicRow is the structured form of one monotonic trigger.
type monotonicRow struct {
	Base       string `json:"base" yaml:"base"`
	Offset     string `json:"offset" yaml:"offset"`
	NextElapse string `json:"next_elapse,omitempty" yaml:"next_elapse,omitempty"`
}

// statusReport is the structured form of a timer's schedule state.
type statusReport struct {
	Timer        string         `json:"timer" yaml:"timer"`
	Enabled      bool           `json:"enabled" yaml:"enabled"`
	ActiveEnter  *time.Time     `json:"active_enter,omitempty" yaml:"active_enter,omitempty"`
	InactiveExit *time.Time     `json:"inactive_exit,omitempty" yaml:"inactive_exit,omitempty"`
	StateChange  *time.Time     `json:"state_change,omitempty" yaml:"state_change,omitempty"`
	LastTrigger  *time.Time     `json:"last_trigger,omitempty" yaml:"last_trigger,omitempty"`
	NextElapse   *time.Time     `json:"next_elapse,omitempty" yaml:"next_elapse,omitempty"`
	Calendar     []calendarRow  `json:"calendar,omitempty" yaml:"calendar,omitempty"`
	Monotonic    []monotonicRow `json:"monotonic,omitempty" yaml:"monotonic,omitempty"`
}

// StatusCommand represents the status command.
type StatusCommand struct{}

// NewStatusCommand creates a new StatusCommand.
func NewStatusCommand() *StatusCommand {
	return &StatusCommand{}
}

// getApp retrieves the App from the command context.
func (c *StatusCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for inspecting a timer's schedule.
func (c *StatusCommand) GetCobraCommand() *cobra.Command {
	var opts StatusOptions

	statusCmd := &cobra.Command{
		Use:   "status <timer>",
		Short: "Show run history and upcoming activations of a scheduled service",
		Long: `Show run history and upcoming activations of a scheduled service.

The argument may be a bare service name; it is resolved to the managed
timer unit.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			app := c.getApp(cmd)
			return app.Validator.SystemRequirements(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := c.getApp(cmd)
			return c.Run(cmd.Context(), app, args[0], opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	statusCmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text, json, yaml)")

	return statusCmd
}

// Run executes the status command.
func (c *StatusCommand) Run(ctx context.Context, app *App, name string, opts StatusOptions) error {
	info, err := app.Client.ScheduleInfo(ctx, name)
	if err != nil {
		return err
	}

	report := statusReport{
		Timer:        info.Timer,
		Enabled:      app.Client.IsEnabled(ctx, info.Timer),
		ActiveEnter:  info.ActiveEnter,
		InactiveExit: info.InactiveExit,
		StateChange:  info.StateChange,
		LastTrigger:  info.LastTrigger,
		NextElapse:   info.NextElapse,
	}
	for _, cal := range info.Calendar {
		report.Calendar = append(report.Calendar, calendarRow{
			Base:       cal.Base,
			Expression: cal.Expression,
			NextElapse: cal.NextElapse,
		})
	}
	for _, mono := range info.Monotonic {
		row := monotonicRow{Base: mono.Base, Offset: mono.Offset.String()}
		if mono.NextElapse > 0 {
			row.NextElapse = mono.NextElapse.String()
		}
		report.Monotonic = append(report.Monotonic, row)
	}

	if opts.Output != "text" {
		return PrintOutput(opts.Output, report)
	}

	printStatusReport(report)
	return nil
}

func printStatusReport(report statusReport) {
	label := color.New(color.Bold).SprintfFunc()
	enabled := color.RedString("disabled")
	if report.Enabled {
		enabled = color.GreenString("enabled")
	}

	fmt.Printf("%s %s\n", label("%-13s", "Timer:"), color.YellowString(report.Timer))
	fmt.Printf("%s %s\n", label("%-13s", "Enabled:"), enabled)
	fmt.Printf("%s %s\n", label("%-13s", "Active since:"), formatTimestamp(report.ActiveEnter))
	fmt.Printf("%s %s\n", label("%-13s", "Last trigger:"), formatTimestamp(report.LastTrigger))
	fmt.Printf("%s %s\n", label("%-13s", "Next elapse:"), formatTimestamp(report.NextElapse))

	if len(report.Calendar) > 0 {
		fmt.Println()
		headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
		tbl := table.New("Calendar Base", "Expression", "Next Elapse")
		tbl.WithHeaderFormatter(headerFmt)
		for _, row := range report.Calendar {
			tbl.AddRow(row.Base, row.Expression, formatTimestamp(row.NextElapse))
		}
		tbl.Print()
	}
	if len(report.Monotonic) > 0 {
		fmt.Println()
		headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
		tbl := table.New("Monotonic Base", "Offset", "Next Elapse")
		tbl.WithHeaderFormatter(headerFmt)
		for _, row := range report.Monotonic {
			next := row.NextElapse
			if next == "" {
				next = "-"
			}
			tbl.AddRow(row.Base, row.Offset, next)
		}
		tbl.Print()
	}
}

// formatTimestamp renders an optional event time, "-" when the event
// never happened.
func formatTimestamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05 MST")
}
