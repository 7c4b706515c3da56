package systemd

import (
	"context"
	"fmt"
	"testing"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflows/taskflows/internal/testutil"
	"github.com/taskflows/taskflows/internal/testutil/fakerunner"
)

func newTestClient(t *testing.T, conn Connection, userMode bool) (*Client, *fakerunner.Runner) {
	t.Helper()
	runner := fakerunner.New()
	factory := &MockConnectionFactory{Connection: conn}
	return NewClient(factory, runner, testutil.NewTestLogger(t), userMode), runner
}

func TestQueryPattern(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{
			name:  "empty query matches every managed unit",
			query: Query{},
			want:  "*taskflow-*",
		},
		{
			name:  "bare match gets a wildcard suffix",
			query: Query{Match: "export"},
			want:  "*taskflow-*export*",
		},
		{
			name:  "typed match gets the type suffix",
			query: Query{Match: "export", Type: UnitTypeService},
			want:  "*taskflow-*export.service",
		},
		{
			name:  "existing suffix is not doubled",
			query: Query{Match: "export.service", Type: UnitTypeService},
			want:  "*taskflow-*export.service",
		},
		{
			name:  "prefixed match is not wrapped",
			query: Query{Match: "taskflow-export", Type: UnitTypeTimer},
			want:  "taskflow-export.timer",
		},
		{
			name:  "prefixed bare match keeps the wildcard suffix",
			query: Query{Match: "taskflow-export"},
			want:  "taskflow-export*",
		},
		{
			name:  "wildcard runs collapse",
			query: Query{Match: "export*"},
			want:  "*taskflow-*export*",
		},
		{
			name:  "full unit name stays exact",
			query: Query{Match: "taskflow-export.timer", Type: UnitTypeTimer},
			want:  "taskflow-export.timer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Pattern())
		})
	}
}

func TestClientUnitFiles(t *testing.T) {
	var gotPatterns []string
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _ []string, patterns []string) ([]dbus.UnitFile, error) {
			gotPatterns = patterns
			return []dbus.UnitFile{
				{Path: "/home/user/.config/systemd/user/taskflow-export.service", Type: "enabled"},
				{Path: "/home/user/.config/systemd/user/taskflow-export.timer", Type: "enabled"},
			}, nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	paths, err := client.UnitFiles(context.Background(), Query{Match: "export"})
	require.NoError(t, err)
	assert.Equal(t, []string{"*taskflow-*export*"}, gotPatterns)
	assert.Equal(t, []string{
		"/home/user/.config/systemd/user/taskflow-export.service",
		"/home/user/.config/systemd/user/taskflow-export.timer",
	}, paths)
}

func TestClientUnitFilesEmptyResult(t *testing.T) {
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return nil, nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	paths, err := client.UnitFiles(context.Background(), Query{Match: "missing"})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestClientUnitFilesListfailure(t *testing.T) {
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return nil, fmt.Errorf("bus timeout")
		},
	}
	client, _ := newTestClient(t, conn, true)

	_, err := client.UnitFiles(context.Background(), Query{Match: "export"})
	require.Error(t, err)
	assert.True(t, IsError(err))
	assert.Contains(t, err.Error(), "bus timeout")
}

func TestClientUnitFileStates(t *testing.T) {
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return []dbus.UnitFile{
				{Path: "/etc/systemd/system/taskflow-backup.service", Type: "enabled"},
				{Path: "/etc/systemd/system/taskflow-backup.timer", Type: "disabled"},
			}, nil
		},
	}
	client, _ := newTestClient(t, conn, false)

	states, err := client.UnitFileStates(context.Background(), Query{Match: "backup"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"/etc/systemd/system/taskflow-backup.service": "enabled",
		"/etc/systemd/system/taskflow-backup.timer":   "disabled",
	}, states)
}

func TestClientUnits(t *testing.T) {
	conn := &MockConnection{
		ListUnitsByPatternsFunc: func(_ context.Context, states, patterns []string) ([]dbus.UnitStatus, error) {
			assert.Equal(t, []string{"active"}, states)
			assert.Equal(t, []string{"*taskflow-*export.service"}, patterns)
			return []dbus.UnitStatus{
				{
					Name:        "taskflow-export.service",
					Description: "nightly export",
					LoadState:   "loaded",
					ActiveState: "active",
					SubState:    "running",
					Path:        "/org/freedesktop/systemd1/unit/taskflow_2dexport_2eservice",
					JobId:       7,
					JobType:     "start",
					JobPath:     "/org/freedesktop/systemd1/job/7",
				},
			}, nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	units, err := client.Units(context.Background(), Query{
		Match:  "export",
		Type:   UnitTypeService,
		States: []string{"active"},
	})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, UnitInfo{
		Name:        "taskflow-export.service",
		Description: "nightly export",
		LoadState:   "loaded",
		ActiveState: "active",
		SubState:    "running",
		Path:        "/org/freedesktop/systemd1/unit/taskflow_2dexport_2eservice",
		JobID:       7,
		JobType:     "start",
		JobPath:     "/org/freedesktop/systemd1/job/7",
	}, units[0])
}

func TestClientEnable(t *testing.T) {
	var enabledFiles []string
	var gotRuntime, gotForce bool
	reloaded := false
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return []dbus.UnitFile{
				{Path: "/home/user/.config/systemd/user/taskflow-export.service"},
				{Path: "/home/user/.config/systemd/user/taskflow-export.timer"},
			}, nil
		},
		EnableUnitFilesFunc: func(_ context.Context, files []string, runtime, force bool) (bool, []dbus.EnableUnitFileChange, error) {
			enabledFiles = files
			gotRuntime = runtime
			gotForce = force
			return true, nil, nil
		},
		ReloadFunc: func(context.Context) error {
			reloaded = true
			return nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	require.NoError(t, client.Enable(context.Background(), Query{Match: "export"}))
	assert.Len(t, enabledFiles, 2)
	assert.False(t, gotRuntime, "enablement must survive reboots")
	assert.True(t, gotForce)
	assert.True(t, reloaded)
}

func TestClientEnableNoMatches(t *testing.T) {
	enableCalled := false
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return nil, nil
		},
		EnableUnitFilesFunc: func(_ context.Context, _ []string, _, _ bool) (bool, []dbus.EnableUnitFileChange, error) {
			enableCalled = true
			return false, nil, nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	require.NoError(t, client.Enable(context.Background(), Query{Match: "missing"}))
	assert.False(t, enableCalled)
}

func TestClientEnableFiles(t *testing.T) {
	listCalled := false
	var enabledFiles []string
	reloaded := false
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			listCalled = true
			return nil, nil
		},
		EnableUnitFilesFunc: func(_ context.Context, files []string, runtime, force bool) (bool, []dbus.EnableUnitFileChange, error) {
			enabledFiles = files
			assert.False(t, runtime)
			assert.True(t, force)
			return true, nil, nil
		},
		ReloadFunc: func(context.Context) error {
			reloaded = true
			return nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	paths := []string{"/home/user/.config/systemd/user/taskflow-export.service"}
	require.NoError(t, client.EnableFiles(context.Background(), paths))
	assert.Equal(t, paths, enabledFiles)
	assert.True(t, reloaded)
	assert.False(t, listCalled, "exact paths need no discovery")
}

func TestClientEnableFilesEmpty(t *testing.T) {
	client, _ := newTestClient(t, &MockConnection{}, true)
	require.NoError(t, client.EnableFiles(context.Background(), nil))
}

func TestClientDisable(t *testing.T) {
	var disabledFiles []string
	var gotRuntime bool
	reloaded := false
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return []dbus.UnitFile{
				{Path: "/home/user/.config/systemd/user/taskflow-export.service"},
			}, nil
		},
		DisableUnitFilesFunc: func(_ context.Context, files []string, runtime bool) ([]dbus.DisableUnitFileChange, error) {
			disabledFiles = files
			gotRuntime = runtime
			return nil, nil
		},
		ReloadFunc: func(context.Context) error {
			reloaded = true
			return nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	require.NoError(t, client.Disable(context.Background(), Query{Match: "export"}))
	assert.Equal(t, []string{"/home/user/.config/systemd/user/taskflow-export.service"}, disabledFiles)
	assert.False(t, gotRuntime)
	assert.True(t, reloaded)
}

func TestClientStart(t *testing.T) {
	var gotPatterns []string
	var started []string
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _ []string, patterns []string) ([]dbus.UnitFile, error) {
			gotPatterns = patterns
			return []dbus.UnitFile{
				{Path: "/home/user/.config/systemd/user/taskflow-export.service"},
				{Path: "/home/user/.config/systemd/user/taskflow-export.timer"},
			}, nil
		},
		StartUnitFunc: func(_ context.Context, unit, mode string) (chan string, error) {
			assert.Equal(t, "replace", mode)
			started = append(started, unit)
			ch := make(chan string, 1)
			ch <- "done"
			return ch, nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	// Start drops any type filter so timers get armed along with services.
	require.NoError(t, client.Start(context.Background(), Query{Match: "export", Type: UnitTypeTimer}))
	assert.Equal(t, []string{"*taskflow-*export*"}, gotPatterns)
	assert.Equal(t, []string{"taskflow-export.service", "taskflow-export.timer"}, started)
}

func TestClientStartContinuesAfterFailure(t *testing.T) {
	var attempted []string
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return []dbus.UnitFile{
				{Path: "/home/user/.config/systemd/user/taskflow-a.service"},
				{Path: "/home/user/.config/systemd/user/taskflow-b.service"},
			}, nil
		},
		StartUnitFunc: func(_ context.Context, unit, _ string) (chan string, error) {
			attempted = append(attempted, unit)
			ch := make(chan string, 1)
			if unit == "taskflow-a.service" {
				ch <- "failed"
			} else {
				ch <- "done"
			}
			return ch, nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	err := client.Start(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `job finished with result "failed"`)
	assert.Equal(t, []string{"taskflow-a.service", "taskflow-b.service"}, attempted)
}

func TestClientStartUnits(t *testing.T) {
	listCalled := false
	var started []string
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			listCalled = true
			return nil, nil
		},
		StartUnitFunc: func(_ context.Context, unit, mode string) (chan string, error) {
			assert.Equal(t, "replace", mode)
			started = append(started, unit)
			ch := make(chan string, 1)
			ch <- "done"
			return ch, nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	names := []string{"taskflow-export.timer", "taskflow-export.service"}
	require.NoError(t, client.StartUnits(context.Background(), names))
	assert.Equal(t, names, started)
	assert.False(t, listCalled, "exact names need no discovery")
}

func TestClientStartUnitsEmpty(t *testing.T) {
	client, _ := newTestClient(t, &MockConnection{}, true)
	require.NoError(t, client.StartUnits(context.Background(), nil))
}

func TestClientStop(t *testing.T) {
	var gotPatterns []string
	var stopped, cleared []string
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _ []string, patterns []string) ([]dbus.UnitFile, error) {
			gotPatterns = patterns
			return []dbus.UnitFile{
				{Path: "/home/user/.config/systemd/user/taskflow-export.service"},
			}, nil
		},
		StopUnitFunc: func(_ context.Context, unit, _ string) (chan string, error) {
			stopped = append(stopped, unit)
			ch := make(chan string, 1)
			ch <- "done"
			return ch, nil
		},
		ResetFailedUnitFunc: func(_ context.Context, unit string) error {
			cleared = append(cleared, unit)
			return nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	require.NoError(t, client.Stop(context.Background(), Query{Match: "export"}))
	assert.Equal(t, []string{"*taskflow-*export.service"}, gotPatterns)
	assert.Equal(t, []string{"taskflow-export.service"}, stopped)
	assert.Equal(t, stopped, cleared)
}

func TestClientRestart(t *testing.T) {
	var gotPatterns []string
	var restarted []string
	conn := &MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _ []string, patterns []string) ([]dbus.UnitFile, error) {
			gotPatterns = patterns
			return []dbus.UnitFile{
				{Path: "/home/user/.config/systemd/user/taskflow-export.service"},
			}, nil
		},
		RestartUnitFunc: func(_ context.Context, unit, _ string) (chan string, error) {
			restarted = append(restarted, unit)
			ch := make(chan string, 1)
			ch <- "done"
			return ch, nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	require.NoError(t, client.Restart(context.Background(), Query{Match: "export"}))
	assert.Equal(t, []string{"*taskflow-*export.service"}, gotPatterns)
	assert.Equal(t, []string{"taskflow-export.service"}, restarted)
}

func TestClientIsEnabled(t *testing.T) {
	t.Run("enabled unit", func(t *testing.T) {
		conn := &MockConnection{
			ListUnitFilesByPatternsFunc: func(_ context.Context, _ []string, patterns []string) ([]dbus.UnitFile, error) {
				assert.Equal(t, []string{"taskflow-export.service"}, patterns)
				return []dbus.UnitFile{
					{Path: "/home/user/.config/systemd/user/taskflow-export.service", Type: "enabled"},
				}, nil
			},
		}
		client, _ := newTestClient(t, conn, true)
		assert.True(t, client.IsEnabled(context.Background(), "taskflow-export.service"))
	})

	t.Run("disabled unit", func(t *testing.T) {
		conn := &MockConnection{
			ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
				return []dbus.UnitFile{
					{Path: "/home/user/.config/systemd/user/taskflow-export.service", Type: "disabled"},
				}, nil
			},
		}
		client, _ := newTestClient(t, conn, true)
		assert.False(t, client.IsEnabled(context.Background(), "taskflow-export.service"))
	})

	t.Run("probe failure counts as not enabled", func(t *testing.T) {
		conn := &MockConnection{
			ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
				return nil, fmt.Errorf("bus unavailable")
			},
		}
		client, _ := newTestClient(t, conn, true)
		assert.False(t, client.IsEnabled(context.Background(), "taskflow-export.service"))
	})
}

func TestClientClean(t *testing.T) {
	t.Run("user mode", func(t *testing.T) {
		client, runner := newTestClient(t, &MockConnection{}, true)

		require.NoError(t, client.Clean(context.Background(), "taskflow-export.service"))
		calls := runner.GetCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "systemctl", calls[0].Name)
		assert.Equal(t, []string{"--user", "clean", "taskflow-export.service"}, calls[0].Args)
	})

	t.Run("system mode", func(t *testing.T) {
		client, runner := newTestClient(t, &MockConnection{}, false)

		require.NoError(t, client.Clean(context.Background(), "taskflow-export.service"))
		calls := runner.GetCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"clean", "taskflow-export.service"}, calls[0].Args)
	})

	t.Run("command failure", func(t *testing.T) {
		client, runner := newTestClient(t, &MockConnection{}, true)
		runner.SetError("systemctl", []string{"--user", "clean", "taskflow-export.service"}, fmt.Errorf("exit status 1"))

		err := client.Clean(context.Background(), "taskflow-export.service")
		require.Error(t, err)
		assert.True(t, IsError(err))
	})
}

func TestClientConnectionFailure(t *testing.T) {
	factory := &MockConnectionFactory{
		NewConnectionFunc: func(_ context.Context, userMode bool) (Connection, error) {
			return nil, NewConnectionError(userMode, fmt.Errorf("no bus"))
		},
	}
	client := NewClient(factory, fakerunner.New(), testutil.NewTestLogger(t), true)

	err := client.Start(context.Background(), Query{Match: "export"})
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
}
