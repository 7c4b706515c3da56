package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflows/taskflows/internal/systemd"
)

const exportUnitText = `[Unit]
Description=Nightly export
After=network.target
After=taskflow-db.service

[Service]
Type=oneshot
ExecStart=/usr/bin/export --all
`

func TestShowCommand_Run_Text(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskflow-export.service")
	require.NoError(t, os.WriteFile(path, []byte(exportUnitText), 0600))

	conn := &systemd.MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return []dbus.UnitFile{{Path: path, Type: "enabled"}}, nil
		},
	}
	app := NewAppBuilder(t).WithConnection(conn).Build(t)

	output := captureStdout(t, func() error {
		return NewShowCommand().Run(context.Background(), app, "export", ShowOptions{Output: "text"})
	})

	assert.Contains(t, output, path)
	assert.Contains(t, output, "(enabled)")
	assert.Contains(t, output, "[Unit]")
	assert.Contains(t, output, "[Service]")
	assert.Contains(t, output, "ExecStart=/usr/bin/export --all")

	// Repeated directives survive the section echo.
	assert.Contains(t, output, "network.target")
	assert.Contains(t, output, "taskflow-db.service")
}

func TestShowCommand_Run_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskflow-export.service")
	require.NoError(t, os.WriteFile(path, []byte(exportUnitText), 0600))

	conn := &systemd.MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return []dbus.UnitFile{{Path: path, Type: "enabled"}}, nil
		},
	}
	app := NewAppBuilder(t).WithConnection(conn).Build(t)

	output := captureStdout(t, func() error {
		return NewShowCommand().Run(context.Background(), app, "", ShowOptions{Output: "json"})
	})

	var files []unitFileContent
	require.NoError(t, json.Unmarshal([]byte(output), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "taskflow-export.service", files[0].Unit)
	assert.Equal(t, "enabled", files[0].State)
	assert.Equal(t, path, files[0].Path)
	assert.Equal(t, exportUnitText, files[0].Content)
}

func TestShowCommand_Run_SkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskflow-export.service")
	require.NoError(t, os.WriteFile(path, []byte(exportUnitText), 0600))
	missing := filepath.Join(dir, "taskflow-gone.service")

	conn := &systemd.MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return []dbus.UnitFile{
				{Path: path, Type: "enabled"},
				{Path: missing, Type: "disabled"},
			}, nil
		},
	}
	app := NewAppBuilder(t).WithConnection(conn).Build(t)

	output := captureStdout(t, func() error {
		return NewShowCommand().Run(context.Background(), app, "", ShowOptions{Output: "json"})
	})

	var files []unitFileContent
	require.NoError(t, json.Unmarshal([]byte(output), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "taskflow-export.service", files[0].Unit)
}

func TestShowCommand_Run_Empty(t *testing.T) {
	conn := &systemd.MockConnection{
		ListUnitFilesByPatternsFunc: func(_ context.Context, _, _ []string) ([]dbus.UnitFile, error) {
			return nil, nil
		},
	}
	app := NewAppBuilder(t).WithConnection(conn).Build(t)

	output := captureStdout(t, func() error {
		return NewShowCommand().Run(context.Background(), app, "nothing", ShowOptions{Output: "text"})
	})

	assert.Contains(t, output, "No managed units found.")
}

func TestPrintUnitSections_UnparseableContentPrintedRaw(t *testing.T) {
	raw := "not an ini file\n=== broken ===\n[unclosed\n"
	output := captureStdout(t, func() error {
		printUnitSections([]byte(raw))
		return nil
	})

	assert.Contains(t, output, "not an ini file")
}
