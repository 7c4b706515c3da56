package cmd

import (
	"context"
	"testing"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/execx"
	"github.com/taskflows/taskflows/internal/fs"
	"github.com/taskflows/taskflows/internal/log"
	"github.com/taskflows/taskflows/internal/repository"
	"github.com/taskflows/taskflows/internal/service"
	"github.com/taskflows/taskflows/internal/systemd"
	"github.com/taskflows/taskflows/internal/testutil"
	"github.com/taskflows/taskflows/internal/testutil/fakerunner"
)

// MockValidator implements SystemValidator for testing.
type MockValidator struct {
	SystemRequirementsFunc func(ctx context.Context) error
	AllFunc                func(ctx context.Context, cfg *config.Settings) error
}

func (m *MockValidator) SystemRequirements(ctx context.Context) error {
	if m.SystemRequirementsFunc != nil {
		return m.SystemRequirementsFunc(ctx)
	}
	return nil
}

func (m *MockValidator) All(ctx context.Context, cfg *config.Settings) error {
	if m.AllFunc != nil {
		return m.AllFunc(ctx, cfg)
	}
	return nil
}

// MockLifecycle implements Lifecycle for testing.
type MockLifecycle struct {
	CreateFunc  func(ctx context.Context, services []*service.Service, start bool) error
	StartFunc   func(ctx context.Context, name string) error
	StopFunc    func(ctx context.Context, name string) error
	RestartFunc func(ctx context.Context, name string) error
	EnableFunc  func(ctx context.Context, name string) error
	DisableFunc func(ctx context.Context, name string) error
	RemoveFunc  func(ctx context.Context, name string) error
}

func (m *MockLifecycle) Create(ctx context.Context, services []*service.Service, start bool) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, services, start)
	}
	return nil
}

func (m *MockLifecycle) Start(ctx context.Context, name string) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, name)
	}
	return nil
}

func (m *MockLifecycle) Stop(ctx context.Context, name string) error {
	if m.StopFunc != nil {
		return m.StopFunc(ctx, name)
	}
	return nil
}

func (m *MockLifecycle) Restart(ctx context.Context, name string) error {
	if m.RestartFunc != nil {
		return m.RestartFunc(ctx, name)
	}
	return nil
}

func (m *MockLifecycle) Enable(ctx context.Context, name string) error {
	if m.EnableFunc != nil {
		return m.EnableFunc(ctx, name)
	}
	return nil
}

func (m *MockLifecycle) Disable(ctx context.Context, name string) error {
	if m.DisableFunc != nil {
		return m.DisableFunc(ctx, name)
	}
	return nil
}

func (m *MockLifecycle) Remove(ctx context.Context, name string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, name)
	}
	return nil
}

// MockHistory implements repository.History for testing.
type MockHistory struct {
	RecordFunc     func(service, operation, detail string) (int64, error)
	RecentFunc     func(limit int) ([]repository.Operation, error)
	ForServiceFunc func(service string, limit int) ([]repository.Operation, error)
}

func (m *MockHistory) Record(service, operation, detail string) (int64, error) {
	if m.RecordFunc != nil {
		return m.RecordFunc(service, operation, detail)
	}
	return 0, nil
}

func (m *MockHistory) Recent(limit int) ([]repository.Operation, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(limit)
	}
	return nil, nil
}

func (m *MockHistory) ForService(service string, limit int) ([]repository.Operation, error) {
	if m.ForServiceFunc != nil {
		return m.ForServiceFunc(service, limit)
	}
	return nil, nil
}

// AppBuilder provides a fluent interface for building test Apps.
type AppBuilder struct {
	logger         log.Logger
	configProvider config.Provider
	validator      SystemValidator
	manager        Lifecycle
	history        repository.History
	connection     systemd.Connection
	runner         execx.Runner
}

// NewAppBuilder creates a new AppBuilder with sensible defaults: every
// collaborator is a permissive mock and all paths live in a temp directory.
func NewAppBuilder(t *testing.T) *AppBuilder {
	return &AppBuilder{
		logger:         testutil.NewTestLogger(t),
		configProvider: testutil.NewMockConfig(t),
		validator:      &MockValidator{},
		manager:        &MockLifecycle{},
		history:        &MockHistory{},
		connection:     &systemd.MockConnection{},
		runner:         fakerunner.New(),
	}
}

func (b *AppBuilder) WithValidator(v SystemValidator) *AppBuilder {
	b.validator = v
	return b
}

func (b *AppBuilder) WithLifecycle(l Lifecycle) *AppBuilder {
	b.manager = l
	return b
}

func (b *AppBuilder) WithHistory(h repository.History) *AppBuilder {
	b.history = h
	return b
}

func (b *AppBuilder) WithConnection(conn systemd.Connection) *AppBuilder {
	b.connection = conn
	return b
}

func (b *AppBuilder) WithRunner(r execx.Runner) *AppBuilder {
	b.runner = r
	return b
}

func (b *AppBuilder) WithConfigProvider(p config.Provider) *AppBuilder {
	b.configProvider = p
	return b
}

func (b *AppBuilder) Build(_ *testing.T) *App {
	cfg := b.configProvider.GetConfig()
	client := systemd.NewClient(
		&systemd.MockConnectionFactory{Connection: b.connection},
		b.runner,
		b.logger,
		cfg.UserMode,
	)
	return &App{
		Logger:         b.logger,
		Config:         cfg,
		ConfigProvider: b.configProvider,
		Runner:         b.runner,
		Files:          fs.NewService(b.configProvider, b.logger),
		Client:         client,
		History:        b.history,
		Manager:        b.manager,
		Validator:      b.validator,
	}
}
