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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/git"
	"github.com/taskflows/taskflows/internal/manifest"
)

// SyncOptions holds sync command options.
type SyncOptions struct {
	Repo   string
	Start  bool
	DryRun bool
}

// SyncCommand represents the sync command.
type SyncCommand struct{}

// NewSyncCommand creates a new SyncCommand.
func NewSyncCommand() *SyncCommand {
	return &SyncCommand{}
}

// getApp retrieves the App from the command context.
func (c *SyncCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for repository synchronization.
func (c *SyncCommand) GetCobraCommand() *cobra.Command {
	var opts SyncOptions

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize service manifests from configured git repositories",
		Long: `Synchronize service manifests from configured git repositories.

Each repository is cloned or pulled, optionally checked out at a pinned
reference, and every service manifest in its manifest directory is compiled
and installed.

Repositories are defined in the taskflows config file:

---
repositories:
  - name: batch-jobs
    url: https://github.com/example/batch-jobs.git
    reference: main
    manifestDir: manifests`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			app := c.getApp(cmd)
			return app.Validator.SystemRequirements(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := c.getApp(cmd)
			return c.Run(cmd.Context(), app, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	syncCmd.Flags().StringVarP(&opts.Repo, "repo", "r", "", "Synchronize a single, named, repository")
	syncCmd.Flags().BoolVar(&opts.Start, "start", false, "Start services after installing their units")
	syncCmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "d", false, "Report what would be synchronized without making changes")

	return syncCmd
}

// Run executes the sync command. Repository failures are logged and do not
// stop the remaining repositories from synchronizing.
func (c *SyncCommand) Run(ctx context.Context, app *App, opts SyncOptions) error {
	if len(app.Config.Repositories) == 0 {
		app.Logger.Info("No repositories configured")
		return nil
	}

	var errs []error
	matched := false
	for _, repoCfg := range app.Config.Repositories {
		if opts.Repo != "" && repoCfg.Name != opts.Repo {
			app.Logger.Debug("Skipping repository", "repository", repoCfg.Name)
			continue
		}
		matched = true

		if opts.DryRun {
			app.Logger.Info("Dry-run: would synchronize repository", "repository", repoCfg.Name, "url", repoCfg.URL)
			continue
		}
		if err := c.syncRepository(ctx, app, repoCfg, opts.Start); err != nil {
			app.Logger.Error("Failed to synchronize repository", "repository", repoCfg.Name, "error", err)
			errs = append(errs, fmt.Errorf("repository %s: %w", repoCfg.Name, err))
		}
	}
	if opts.Repo != "" && !matched {
		return fmt.Errorf("repository %q is not configured", opts.Repo)
	}
	return errors.Join(errs...)
}

// syncRepository clones or updates one repository and applies every service
// manifest found in its manifest directory.
func (c *SyncCommand) syncRepository(ctx context.Context, app *App, repoCfg config.Repository, start bool) error {
	repo := git.NewRepository(repoCfg, app.Config.RepositoryDir, app.Logger)
	if err := repo.Sync(ctx); err != nil {
		return err
	}

	services, err := manifest.LoadDir(repo.ManifestPath())
	if err != nil {
		return err
	}
	if len(services) == 0 {
		app.Logger.Info("Repository has no service manifests", "repository", repoCfg.Name, "dir", repo.ManifestPath())
		return nil
	}

	app.Logger.Info("Applying repository manifests", "repository", repoCfg.Name, "services", len(services))
	return app.Manager.Create(ctx, services, start)
}
