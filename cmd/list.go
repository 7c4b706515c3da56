/*
Copyright © 2025 The taskflows Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/taskflows/taskflows/internal/systemd"
)

// ListOptions holds list command options.
type ListOptions struct {
	Type   string
	States []string
	Output string
}

// unitFileRow is the structured form of one installed unit file.
type unitFileRow struct {
	Unit  string `json:"unit" yaml:"unit"`
	Type  string `json:"type" yaml:"type"`
	State string `json:"state" yaml:"state"`
	Path  string `json:"path" yaml:"path"`
}

// ListCommand represents the list command.
type ListCommand struct{}

// NewListCommand creates a new ListCommand.
func NewListCommand() *ListCommand {
	return &ListCommand{}
}

// getApp retrieves the App from the command context.
func (c *ListCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for listing managed units.
func (c *ListCommand) GetCobraCommand() *cobra.Command {
	var opts ListOptions

	listCmd := &cobra.Command{
		Use:   "list [pattern]",
		Short: "List installed managed units and their enablement state",
		Long: `List installed managed units and their enablement state.

The pattern matches anywhere in the unit name. Without a pattern every
managed unit is listed.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			app := c.getApp(cmd)
			if err := app.Validator.SystemRequirements(cmd.Context()); err != nil {
				return err
			}
			return validateUnitType(opts.Type)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := c.getApp(cmd)
			return c.Run(cmd.Context(), app, matchArg(args), opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	listCmd.Flags().StringVarP(&opts.Type, "type", "t", "", "Restrict to one unit type (service or timer)")
	listCmd.Flags().StringSliceVarP(&opts.States, "states", "s", nil, "Restrict to unit files in the given states (e.g. enabled, disabled)")
	listCmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text, json, yaml)")

	return listCmd
}

// Run executes the list command.
func (c *ListCommand) Run(ctx context.Context, app *App, match string, opts ListOptions) error {
	states, err := app.Client.UnitFileStates(ctx, systemd.Query{
		Match:  match,
		Type:   opts.Type,
		States: opts.States,
	})
	if err != nil {
		return err
	}

	rows := make([]unitFileRow, 0, len(states))
	for path, state := range states {
		name := filepath.Base(path)
		rows = append(rows, unitFileRow{
			Unit:  name,
			Type:  strings.TrimPrefix(filepath.Ext(name), "."),
			State: state,
			Path:  path,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Unit < rows[j].Unit })

	if opts.Output != "text" {
		return PrintOutput(opts.Output, rows)
	}

	if len(rows) == 0 {
		fmt.Println(color.YellowString("No managed units found."))
		return nil
	}

	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	tbl := table.New("Unit", "Type", "State", "Path")
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	for _, row := range rows {
		tbl.AddRow(row.Unit, row.Type, row.State, row.Path)
	}
	tbl.Print()
	return nil
}

// validateUnitType rejects unit types taskflows does not manage.
func validateUnitType(unitType string) error {
	switch unitType {
	case "", systemd.UnitTypeService, systemd.UnitTypeTimer:
		return nil
	default:
		return fmt.Errorf("unsupported unit type %q (service or timer)", unitType)
	}
}
