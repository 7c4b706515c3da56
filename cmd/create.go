// Package cmd provides the command line interface for taskflows
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

	"github.com/spf13/cobra"

	"github.com/taskflows/taskflows/internal/compose"
	"github.com/taskflows/taskflows/internal/manifest"
	"github.com/taskflows/taskflows/internal/service"
)

// CreateOptions holds create command options.
type CreateOptions struct {
	Files   []string
	Compose string
	Start   bool
}

// CreateDeps holds create dependencies.
type CreateDeps struct {
	CommonDeps
}

// CreateCommand represents the create command.
type CreateCommand struct{}

// NewCreateCommand creates a new CreateCommand.
func NewCreateCommand() *CreateCommand {
	return &CreateCommand{}
}

// getApp retrieves the App from the command context.
func (c *CreateCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for creating services.
func (c *CreateCommand) GetCobraCommand() *cobra.Command {
	var opts CreateOptions

	createCmd := &cobra.Command{
		Use:   "create [name...]",
		Short: "Compile services into units and install them",
		Long: `Compile services into systemd units and install them.

Services are read from YAML manifests (-f, a file or a directory of files)
or imported from a Docker Compose project (--compose). Without -f the
configured manifest directory is loaded. Naming services as arguments
restricts the operation to those services; the rest of the manifest is
left untouched.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			app := c.getApp(cmd)
			return app.Validator.SystemRequirements(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := c.getApp(cmd)
			deps := c.buildDeps(app)
			return c.Run(cmd.Context(), app, args, opts, deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	createCmd.Flags().StringArrayVarP(&opts.Files, "file", "f", nil, "Manifest file or directory to load (repeatable)")
	createCmd.Flags().StringVar(&opts.Compose, "compose", "", "Docker Compose file or project directory to import")
	createCmd.Flags().BoolVar(&opts.Start, "start", false, "Start each service once it is installed")

	return createCmd
}

// buildDeps creates production dependencies for the create command.
func (c *CreateCommand) buildDeps(app *App) CreateDeps {
	return CreateDeps{
		CommonDeps: NewRootDeps(app),
	}
}

// Run executes the create command with injected dependencies.
func (c *CreateCommand) Run(ctx context.Context, app *App, args []string, opts CreateOptions, deps CreateDeps) error {
	services, err := c.collectServices(ctx, app, opts, deps)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		services, err = selectServices(services, args)
		if err != nil {
			return err
		}
	}
	if len(services) == 0 {
		return fmt.Errorf("no services defined; provide a manifest with -f or a compose project with --compose")
	}

	if err := app.Manager.Create(ctx, services, opts.Start); err != nil {
		return err
	}

	fmt.Printf("Created %d service(s)\n", len(services))
	return nil
}

// collectServices loads every requested source: manifest paths first, then
// the compose project. Without explicit sources the configured manifest
// directory is used.
func (c *CreateCommand) collectServices(ctx context.Context, app *App, opts CreateOptions, deps CreateDeps) ([]*service.Service, error) {
	paths := opts.Files
	if len(paths) == 0 && opts.Compose == "" {
		paths = []string{app.Config.ManifestDir}
	}

	var services []*service.Service
	for _, path := range paths {
		info, err := deps.FileSystem.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("manifest path %s: %w", path, err)
		}
		var loaded []*service.Service
		if info.IsDir() {
			loaded, err = manifest.LoadDir(path)
		} else {
			loaded, err = manifest.LoadFile(path)
		}
		if err != nil {
			return nil, err
		}
		services = append(services, loaded...)
	}

	if opts.Compose != "" {
		project, err := compose.Load(ctx, opts.Compose, nil)
		if err != nil {
			return nil, err
		}
		converted, err := compose.Services(project, app.Config.ContainerEngine)
		if err != nil {
			return nil, err
		}
		services = append(services, converted...)
	}

	seen := make(map[string]struct{}, len(services))
	for _, svc := range services {
		if _, ok := seen[svc.Name]; ok {
			return nil, fmt.Errorf("service %s defined more than once across the loaded sources", svc.Name)
		}
		seen[svc.Name] = struct{}{}
	}
	return services, nil
}

// selectServices picks the named services out of the loaded set, keeping
// the caller's order.
func selectServices(services []*service.Service, names []string) ([]*service.Service, error) {
	byName := make(map[string]*service.Service, len(services))
	for _, svc := range services {
		byName[svc.Name] = svc
	}

	out := make([]*service.Service, 0, len(names))
	for _, name := range names {
		svc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("service %s is not defined in the loaded sources", name)
		}
		out = append(out, svc)
	}
	return out, nil
}
