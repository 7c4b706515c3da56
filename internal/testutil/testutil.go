// Package testutil provides shared helpers that cut down boilerplate in tests.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/log"
)

// NewTestLogger returns a debug-level logger routed through t.Logf so log
// lines show up alongside the test that produced them.
func NewTestLogger(t testing.TB) log.Logger {
	handler := &testHandler{t: t, opts: &slog.HandlerOptions{Level: slog.LevelDebug}}
	return log.FromSlog(slog.New(handler))
}

// ConfigOption adjusts a single field of the settings built by NewMockConfig.
type ConfigOption func(*config.Settings)

// WithUnitDir overrides the unit file directory.
func WithUnitDir(dir string) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.UnitDir = dir
	}
}

// WithManifestDir overrides the manifest directory.
func WithManifestDir(dir string) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.ManifestDir = dir
	}
}

// WithRepositoryDir overrides the repository checkout directory.
func WithRepositoryDir(dir string) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.RepositoryDir = dir
	}
}

// WithDBPath overrides the state database path.
func WithDBPath(path string) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.DBPath = path
	}
}

// WithUserMode toggles user-level systemd mode.
func WithUserMode(userMode bool) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.UserMode = userMode
	}
}

// WithVerbose toggles verbose logging.
func WithVerbose(verbose bool) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.Verbose = verbose
	}
}

// WithContainerEngine overrides the container engine binary.
func WithContainerEngine(engine string) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.ContainerEngine = engine
	}
}

// NewMockConfig builds a config provider whose paths all live in a fresh
// temp directory, removed via t.Cleanup. Options tweak individual fields.
func NewMockConfig(t testing.TB, opts ...ConfigOption) config.Provider {
	tmpDir, err := os.MkdirTemp("", "taskflows-test-*")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.RemoveAll(tmpDir)
	})

	cfg := &config.Settings{
		UnitDir:         tmpDir,
		ManifestDir:     tmpDir,
		RepositoryDir:   tmpDir,
		DBPath:          filepath.Join(tmpDir, "taskflows.db"),
		SyncInterval:    config.DefaultSyncInterval,
		UserMode:        true,
		Verbose:         true,
		ContainerEngine: config.DefaultContainerEngine,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	provider := config.NewDefaultConfigProvider()
	provider.SetConfig(cfg)
	return provider
}

// testHandler funnels slog records into testing.TB output.
type testHandler struct {
	t    testing.TB
	opts *slog.HandlerOptions
}

func (h *testHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testHandler) Handle(_ context.Context, record slog.Record) error {
	h.t.Logf("[%s] %s", record.Level.String(), record.Message)
	return nil
}

func (h *testHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return &testHandler{t: h.t, opts: h.opts}
}

func (h *testHandler) WithGroup(_ string) slog.Handler {
	return &testHandler{t: h.t, opts: h.opts}
}
