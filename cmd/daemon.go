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
	"os"
	"path/filepath"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/taskflows/taskflows/internal/manifest"
	"github.com/taskflows/taskflows/internal/shutdown"
)

// manifestDebounce is how long the daemon waits after the last manifest
// change before re-applying the manifest directory. Editors and git
// checkouts touch files in bursts.
const manifestDebounce = 500 * time.Millisecond

// DaemonOptions holds daemon command options.
type DaemonOptions struct {
	SyncInterval time.Duration
	SyncCron     string
	Repo         string
	Start        bool
}

// DaemonDeps provides the daemon's injectable dependencies.
type DaemonDeps struct {
	CommonDeps
	Notify          NotifyFunc
	WatchdogEnabled func(unsetEnvironment bool) (time.Duration, error)
}

// NewDaemonDeps creates production daemon dependencies.
func NewDaemonDeps(app *App) DaemonDeps {
	return DaemonDeps{
		CommonDeps:      NewRootDeps(app),
		Notify:          daemon.SdNotify,
		WatchdogEnabled: daemon.SdWatchdogEnabled,
	}
}

// DaemonCommand represents the daemon command.
type DaemonCommand struct{}

// NewDaemonCommand creates a new DaemonCommand.
func NewDaemonCommand() *DaemonCommand {
	return &DaemonCommand{}
}

// getApp retrieves the App from the command context.
func (c *DaemonCommand) getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// GetCobraCommand returns the cobra command for daemon operations.
func (c *DaemonCommand) GetCobraCommand() *cobra.Command {
	var opts DaemonOptions

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run taskflows as a daemon with periodic synchronization",
		Long: `Run taskflows as a daemon with periodic synchronization.

The daemon performs an initial synchronization of configured repositories
and the local manifest directory, then keeps running: repositories re-sync
on an interval or cron schedule, and manifest files are re-applied when
they change on disk.

The daemon integrates with systemd, sending readiness and watchdog
notifications when running under systemd supervision.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			app := c.getApp(cmd)
			return app.Validator.All(cmd.Context(), app.Config)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := c.getApp(cmd)
			return c.Run(cmd.Context(), app, NewDaemonDeps(app), opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	daemonCmd.Flags().DurationVarP(&opts.SyncInterval, "sync-interval", "i", 0, "Interval between repository synchronizations (defaults to the configured syncInterval)")
	daemonCmd.Flags().StringVar(&opts.SyncCron, "sync-cron", "", "Cron expression scheduling repository synchronization (overrides the interval)")
	daemonCmd.Flags().StringVarP(&opts.Repo, "repo", "r", "", "Synchronize a single, named, repository")
	daemonCmd.Flags().BoolVar(&opts.Start, "start", true, "Start services when their manifests are applied")

	return daemonCmd
}

// Run executes the daemon until a shutdown signal arrives.
func (c *DaemonCommand) Run(_ context.Context, app *App, deps DaemonDeps, opts DaemonOptions) error {
	if opts.SyncCron != "" {
		if _, err := cron.ParseStandard(opts.SyncCron); err != nil {
			return fmt.Errorf("invalid --sync-cron expression %q: %w", opts.SyncCron, err)
		}
	}
	if opts.SyncInterval > 0 {
		app.Config.SyncInterval = opts.SyncInterval
	}
	if err := deps.FileSystem.MkdirAll(app.Config.ManifestDir, 0750); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	coord := shutdown.NewCoordinator(app.Logger, shutdown.WithClock(deps.Clock))
	coord.Notify()
	coord.Register("database", app.Close)
	runCtx := coord.Context()

	syncCmd := NewSyncCommand()
	syncOpts := SyncOptions{Repo: opts.Repo, Start: opts.Start}

	app.Logger.Info("Performing initial sync")
	c.performSync(runCtx, app, syncCmd, syncOpts)
	c.applyManifestDir(runCtx, app, opts.Start)

	if err := c.watchManifests(runCtx, app, coord, opts.Start); err != nil {
		app.Logger.Warn("Manifest watching disabled", "error", err)
	}
	c.scheduleSync(runCtx, app, deps, coord, syncCmd, syncOpts, opts.SyncCron)
	c.notifyReady(app, deps)
	c.startWatchdog(runCtx, app, deps)

	code := coord.AwaitTermination()
	app.Logger.Info("Daemon stopped", "code", code)
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// performSync runs one repository synchronization pass. Failures are logged;
// the daemon keeps running.
func (c *DaemonCommand) performSync(ctx context.Context, app *App, syncCmd *SyncCommand, opts SyncOptions) {
	if err := syncCmd.Run(ctx, app, opts); err != nil {
		app.Logger.Error("Repository sync failed", "error", err)
	}
}

// applyManifestDir compiles and installs every manifest in the local
// manifest directory.
func (c *DaemonCommand) applyManifestDir(ctx context.Context, app *App, start bool) {
	services, err := manifest.LoadDir(app.Config.ManifestDir)
	if err != nil {
		app.Logger.Error("Failed to load manifests", "dir", app.Config.ManifestDir, "error", err)
		return
	}
	if len(services) == 0 {
		return
	}
	app.Logger.Info("Applying manifests", "dir", app.Config.ManifestDir, "services", len(services))
	if err := app.Manager.Create(ctx, services, start); err != nil {
		app.Logger.Error("Failed to apply manifests", "error", err)
	}
}

// watchManifests re-applies the manifest directory when a manifest changes,
// debounced so a burst of writes triggers a single pass.
func (c *DaemonCommand) watchManifests(ctx context.Context, app *App, coord *shutdown.Coordinator, start bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating manifest watcher: %w", err)
	}
	if err := watcher.Add(app.Config.ManifestDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %q: %w", app.Config.ManifestDir, err)
	}
	coord.Register("manifest-watcher", watcher.Close)
	app.Logger.Info("Watching manifest directory", "dir", app.Config.ManifestDir)

	go func() {
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					coord.Trigger(1)
					return
				}
				if !isManifestPath(event.Name) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					app.Logger.Debug("Manifest changed", "path", event.Name, "op", event.Op.String())
					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(manifestDebounce, func() {
						c.applyManifestDir(ctx, app, start)
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					coord.Trigger(1)
					return
				}
				app.Logger.Warn("Manifest watcher error", "error", err)
			}
		}
	}()
	return nil
}

// scheduleSync arranges periodic repository synchronization, either on a
// cron expression or on the configured interval.
func (c *DaemonCommand) scheduleSync(ctx context.Context, app *App, deps DaemonDeps, coord *shutdown.Coordinator, syncCmd *SyncCommand, syncOpts SyncOptions, cronExpr string) {
	if cronExpr != "" {
		runner := cron.New()
		if _, err := runner.AddFunc(cronExpr, func() {
			app.Logger.Debug("Starting scheduled sync", "cron", cronExpr)
			c.performSync(ctx, app, syncCmd, syncOpts)
		}); err != nil {
			app.Logger.Error("Failed to schedule sync", "cron", cronExpr, "error", err)
			return
		}
		runner.Start()
		coord.Register("sync-cron", func() error {
			<-runner.Stop().Done()
			return nil
		})
		app.Logger.Info("Scheduled repository sync", "cron", cronExpr)
		return
	}

	ticker := deps.Clock.Ticker(app.Config.SyncInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.Logger.Debug("Starting scheduled sync")
				c.performSync(ctx, app, syncCmd, syncOpts)
			}
		}
	}()
	app.Logger.Info("Scheduled repository sync", "interval", app.Config.SyncInterval)
}

// notifyReady tells the service manager the daemon is up. Outside systemd
// supervision the notification is silently not sent.
func (c *DaemonCommand) notifyReady(app *App, deps DaemonDeps) {
	if sent, err := deps.Notify(false, daemon.SdNotifyReady); err != nil {
		app.Logger.Warn("Failed to notify service manager of readiness", "error", err)
	} else if sent {
		app.Logger.Info("Notified service manager that daemon is ready")
	}
}

// startWatchdog sends watchdog keepalives at half the configured watchdog
// window so one missed beat does not kill the daemon.
func (c *DaemonCommand) startWatchdog(ctx context.Context, app *App, deps DaemonDeps) {
	interval, err := deps.WatchdogEnabled(false)
	if err != nil {
		app.Logger.Warn("Watchdog detection failed", "error", err)
		return
	}
	if interval == 0 {
		return
	}

	heartbeat := interval / 2
	ticker := deps.Clock.Ticker(heartbeat)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := deps.Notify(false, daemon.SdNotifyWatchdog); err != nil {
					app.Logger.Debug("Failed to send watchdog notification", "error", err)
				}
			}
		}
	}()
	app.Logger.Info("Watchdog heartbeat started", "interval", heartbeat)
}

// isManifestPath reports whether a changed path looks like a service
// manifest.
func isManifestPath(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
