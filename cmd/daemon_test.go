package cmd

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/service"
	"github.com/taskflows/taskflows/internal/shutdown"
	"github.com/taskflows/taskflows/internal/testutil"
)

func newDaemonDeps(t *testing.T) DaemonDeps {
	return DaemonDeps{
		CommonDeps: CommonDeps{
			Clock:      clock.NewMock(),
			FileSystem: &FileSystemOps{},
			Logger:     testutil.NewTestLogger(t),
		},
		Notify:          func(_ bool, _ string) (bool, error) { return true, nil },
		WatchdogEnabled: func(_ bool) (time.Duration, error) { return 0, nil },
	}
}

func TestDaemonCommand_ValidationFailure(t *testing.T) {
	app := NewAppBuilder(t).
		WithValidator(&MockValidator{
			AllFunc: func(_ context.Context, _ *config.Settings) error {
				return errors.New("systemctl not found")
			},
		}).
		Build(t)

	cmd := NewDaemonCommand().GetCobraCommand()
	SetupCommandContext(cmd, app)

	err := cmd.PreRunE(cmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "systemctl not found")
}

func TestDaemonCommand_InvalidSyncCron(t *testing.T) {
	app := NewAppBuilder(t).Build(t)

	err := NewDaemonCommand().Run(context.Background(), app, newDaemonDeps(t), DaemonOptions{
		SyncCron: "not a cron expression",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --sync-cron expression")
}

func TestDaemonCommand_ManifestDirCreationFailure(t *testing.T) {
	deps := newDaemonDeps(t)
	deps.FileSystem = &FileSystemOps{
		MkdirAllFunc: func(_ string, _ fs.FileMode) error {
			return errors.New("permission denied")
		},
	}

	app := NewAppBuilder(t).Build(t)
	err := NewDaemonCommand().Run(context.Background(), app, deps, DaemonOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestDaemonCommand_ApplyManifestDir(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "export.yaml", exportManifest)

	var mu sync.Mutex
	var gotNames []string
	var gotStart bool
	provider := testutil.NewMockConfig(t, testutil.WithManifestDir(dir))
	app := NewAppBuilder(t).
		WithConfigProvider(provider).
		WithLifecycle(&MockLifecycle{
			CreateFunc: func(_ context.Context, services []*service.Service, start bool) error {
				mu.Lock()
				defer mu.Unlock()
				gotNames = serviceNames(services)
				gotStart = start
				return nil
			},
		}).
		Build(t)

	NewDaemonCommand().applyManifestDir(context.Background(), app, true)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"export"}, gotNames)
	assert.True(t, gotStart)
}

func TestDaemonCommand_ApplyManifestDir_EmptyDirIsNoop(t *testing.T) {
	dir := t.TempDir()

	called := false
	provider := testutil.NewMockConfig(t, testutil.WithManifestDir(dir))
	app := NewAppBuilder(t).
		WithConfigProvider(provider).
		WithLifecycle(&MockLifecycle{
			CreateFunc: func(_ context.Context, _ []*service.Service, _ bool) error {
				called = true
				return nil
			},
		}).
		Build(t)

	NewDaemonCommand().applyManifestDir(context.Background(), app, true)
	assert.False(t, called)
}

func TestDaemonCommand_WatchManifests_AppliesChanges(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	applied := 0
	provider := testutil.NewMockConfig(t, testutil.WithManifestDir(dir))
	app := NewAppBuilder(t).
		WithConfigProvider(provider).
		WithLifecycle(&MockLifecycle{
			CreateFunc: func(_ context.Context, _ []*service.Service, _ bool) error {
				mu.Lock()
				defer mu.Unlock()
				applied++
				return nil
			},
		}).
		Build(t)

	coord := shutdown.NewCoordinator(app.Logger)
	defer coord.Trigger(0)

	cmd := NewDaemonCommand()
	require.NoError(t, cmd.watchManifests(coord.Context(), app, coord, true))

	writeManifest(t, dir, "export.yaml", exportManifest)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return applied >= 1
	}, 3*time.Second, 50*time.Millisecond, "manifest change should trigger an apply")
}

func TestDaemonCommand_WatchManifests_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	applied := 0
	provider := testutil.NewMockConfig(t, testutil.WithManifestDir(dir))
	app := NewAppBuilder(t).
		WithConfigProvider(provider).
		WithLifecycle(&MockLifecycle{
			CreateFunc: func(_ context.Context, _ []*service.Service, _ bool) error {
				mu.Lock()
				defer mu.Unlock()
				applied++
				return nil
			},
		}).
		Build(t)

	coord := shutdown.NewCoordinator(app.Logger)
	defer coord.Trigger(0)

	cmd := NewDaemonCommand()
	require.NoError(t, cmd.watchManifests(coord.Context(), app, coord, true))

	writeManifest(t, dir, "notes.txt", "not a manifest")

	time.Sleep(2 * manifestDebounce)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, applied)
}

func TestDaemonCommand_ScheduleSync_CronStopsOnShutdown(t *testing.T) {
	app := NewAppBuilder(t).Build(t)
	deps := newDaemonDeps(t)

	coord := shutdown.NewCoordinator(app.Logger)
	cmd := NewDaemonCommand()
	cmd.scheduleSync(coord.Context(), app, deps, coord, NewSyncCommand(), SyncOptions{}, "@every 1h")

	coord.Trigger(0)
	assert.Equal(t, shutdown.Stopped, coord.State())
}

func TestDaemonCommand_NotifyReady(t *testing.T) {
	var states []string
	deps := newDaemonDeps(t)
	deps.Notify = func(_ bool, state string) (bool, error) {
		states = append(states, state)
		return true, nil
	}

	app := NewAppBuilder(t).Build(t)
	NewDaemonCommand().notifyReady(app, deps)

	assert.Contains(t, states, daemon.SdNotifyReady)
}

func TestDaemonCommand_NotifyReady_ErrorIsNotFatal(t *testing.T) {
	deps := newDaemonDeps(t)
	deps.Notify = func(_ bool, _ string) (bool, error) {
		return false, errors.New("notification socket not available")
	}

	app := NewAppBuilder(t).Build(t)
	NewDaemonCommand().notifyReady(app, deps)
}

func TestDaemonCommand_StartWatchdog_SendsHeartbeats(t *testing.T) {
	mockClock := clock.NewMock()

	var mu sync.Mutex
	var states []string
	deps := newDaemonDeps(t)
	deps.Clock = mockClock
	deps.Notify = func(_ bool, state string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
		return true, nil
	}
	deps.WatchdogEnabled = func(_ bool) (time.Duration, error) { return time.Minute, nil }

	app := NewAppBuilder(t).Build(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewDaemonCommand().startWatchdog(ctx, app, deps)

	// Heartbeats tick at half the watchdog window.
	assert.Eventually(t, func() bool {
		mockClock.Add(30 * time.Second)
		mu.Lock()
		defer mu.Unlock()
		for _, state := range states {
			if state == daemon.SdNotifyWatchdog {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestDaemonCommand_StartWatchdog_DisabledWithoutWatchdog(t *testing.T) {
	deps := newDaemonDeps(t)
	notified := false
	deps.Notify = func(_ bool, _ string) (bool, error) {
		notified = true
		return true, nil
	}
	deps.WatchdogEnabled = func(_ bool) (time.Duration, error) { return 0, nil }

	app := NewAppBuilder(t).Build(t)
	NewDaemonCommand().startWatchdog(context.Background(), app, deps)
	assert.False(t, notified)
}

func TestIsManifestPath(t *testing.T) {
	assert.True(t, isManifestPath("/etc/taskflows/manifests/export.yaml"))
	assert.True(t, isManifestPath("export.yml"))
	assert.False(t, isManifestPath("export.yaml.swp"))
	assert.False(t, isManifestPath("notes.txt"))
}

func TestDaemonCommand_Help(t *testing.T) {
	cmd := NewDaemonCommand().GetCobraCommand()
	output, err := ExecuteCommandWithCapture(t, cmd, []string{"--help"})

	require.NoError(t, err)
	assert.Contains(t, output, "Run taskflows as a daemon")
	assert.Contains(t, output, "--sync-interval")
	assert.Contains(t, output, "--sync-cron")
	assert.Contains(t, output, "--repo")
	assert.Contains(t, output, "--start")
}

func TestDaemonCommand_Flags(t *testing.T) {
	cmd := NewDaemonCommand().GetCobraCommand()

	syncIntervalFlag := cmd.Flags().Lookup("sync-interval")
	require.NotNil(t, syncIntervalFlag)
	assert.Equal(t, "0s", syncIntervalFlag.DefValue)

	startFlag := cmd.Flags().Lookup("start")
	require.NotNil(t, startFlag)
	assert.Equal(t, "true", startFlag.DefValue)

	cronFlag := cmd.Flags().Lookup("sync-cron")
	require.NotNil(t, cronFlag)
	assert.Equal(t, "", cronFlag.DefValue)
}
