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

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/ini.v1"

	"github.com/taskflows/taskflows/internal/systemd"
)

// ShowOptions holds show command options.
type ShowOptions struct {
	Output string
}

// unitFileContent is the structured form of one installed unit file's
// contents.
type unitFileContent struct {
	Unit    string `json:"unit" yaml:"unit"`
	State   string `json:"state" yaml:"state"`
	Path    string `json:"path" yaml:"path"`
	Content string `json:"content" yaml:"content"`
}

// ShowCommand represents the show command.
type ShowCommand struct{}

// NewShowCommand creates a new ShowCommand.
func NewShowCommand() *ShowCommand {
	return &ShowCommand{}
}

// getApp retrieves the App from the command context.
func (c *ShowCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for printing unit file contents.
func (c *ShowCommand) GetCobraCommand() *cobra.Command {
	var opts ShowOptions

	showCmd := &cobra.Command{
		Use:   "show [pattern]",
		Short: "Print the unit files behind managed services",
		Long: `Print the unit files behind managed services.

The pattern matches anywhere in the unit name. Without a pattern every
managed unit file is printed.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			app := c.getApp(cmd)
			return app.Validator.SystemRequirements(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := c.getApp(cmd)
			return c.Run(cmd.Context(), app, matchArg(args), opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	showCmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text, json, yaml)")

	return showCmd
}

// Run executes the show command.
func (c *ShowCommand) Run(ctx context.Context, app *App, match string, opts ShowOptions) error {
	states, err := app.Client.UnitFileStates(ctx, systemd.Query{Match: match})
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(states))
	for path := range states {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	files := make([]unitFileContent, 0, len(paths))
	for _, path := range paths {
		content, err := app.Files.ReadUnitFile(path)
		if err != nil {
			app.Logger.Warn("Skipping unreadable unit file", "path", path, "error", err)
			continue
		}
		files = append(files, unitFileContent{
			Unit:    filepath.Base(path),
			State:   states[path],
			Path:    path,
			Content: string(content),
		})
	}

	if opts.Output != "text" {
		return PrintOutput(opts.Output, files)
	}

	if len(files) == 0 {
		fmt.Println(color.YellowString("No managed units found."))
		return nil
	}

	header := color.New(color.FgCyan, color.Bold).SprintfFunc()
	for i, file := range files {
		if i > 0 {
			fmt.Println()
		}
		fmt.Println(header("# %s (%s)", file.Path, file.State))
		printUnitSections([]byte(file.Content))
	}
	return nil
}

// printUnitSections echoes unit file text section by section, keeping
// repeated directives. Unparseable content is printed raw.
func printUnitSections(content []byte) {
	iniFile, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, content)
	if err != nil {
		fmt.Print(string(content))
		return
	}

	sectionFmt := color.New(color.FgGreen).SprintfFunc()
	keyFmt := color.New(color.FgYellow).SprintfFunc()
	for _, section := range iniFile.Sections() {
		if section.Name() == ini.DefaultSection && len(section.Keys()) == 0 {
			continue
		}
		fmt.Println(sectionFmt("[%s]", section.Name()))
		for _, key := range section.Keys() {
			for _, value := range key.ValueWithShadows() {
				fmt.Printf("%s=%s\n", keyFmt("%s", key.Name()), value)
			}
		}
	}
}
