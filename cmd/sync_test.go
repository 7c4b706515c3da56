package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/service"
)

func TestSyncCommand_Run_NoRepositories(t *testing.T) {
	app := NewAppBuilder(t).Build(t)

	err := NewSyncCommand().Run(context.Background(), app, SyncOptions{})
	assert.NoError(t, err)
}

func TestSyncCommand_Run_UnknownRepo(t *testing.T) {
	app := NewAppBuilder(t).Build(t)
	app.Config.Repositories = []config.Repository{
		{Name: "batch-jobs", URL: "https://example.com/batch-jobs.git"},
	}

	err := NewSyncCommand().Run(context.Background(), app, SyncOptions{Repo: "other"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `repository "other" is not configured`)
}

func TestSyncCommand_Run_DryRun(t *testing.T) {
	created := false
	app := NewAppBuilder(t).
		WithLifecycle(&MockLifecycle{
			CreateFunc: func(_ context.Context, _ []*service.Service, _ bool) error {
				created = true
				return nil
			},
		}).
		Build(t)
	app.Config.Repositories = []config.Repository{
		{Name: "batch-jobs", URL: "https://example.com/batch-jobs.git"},
	}

	err := NewSyncCommand().Run(context.Background(), app, SyncOptions{DryRun: true})
	assert.NoError(t, err)
	assert.False(t, created, "dry-run must not install services")
}

func TestSyncCommand_Run_RepoFilterSkipsOthers(t *testing.T) {
	app := NewAppBuilder(t).Build(t)
	app.Config.Repositories = []config.Repository{
		{Name: "batch-jobs", URL: "https://example.com/batch-jobs.git"},
		{Name: "reports", URL: "https://example.com/reports.git"},
	}

	// Dry-run keeps the filter logic observable without touching git.
	err := NewSyncCommand().Run(context.Background(), app, SyncOptions{Repo: "reports", DryRun: true})
	assert.NoError(t, err)
}

func TestSyncCommand_Help(t *testing.T) {
	cmd := NewSyncCommand().GetCobraCommand()
	output, err := ExecuteCommandWithCapture(t, cmd, []string{"--help"})

	require.NoError(t, err)
	assert.Contains(t, output, "Synchronize service manifests")
	assert.Contains(t, output, "--repo")
	assert.Contains(t, output, "--dry-run")
	assert.Contains(t, output, "--start")
	assert.Contains(t, output, "repositories:")
}
