package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// MockConnection is a Connection whose behavior is supplied per test via
// the Func fields. Unset methods report "mock not implemented".
type MockConnection struct {
	ListUnitsByPatternsFunc     func(ctx context.Context, states, patterns []string) ([]dbus.UnitStatus, error)
	ListUnitFilesByPatternsFunc func(ctx context.Context, states, patterns []string) ([]dbus.UnitFile, error)
	EnableUnitFilesFunc         func(ctx context.Context, files []string, runtime, force bool) (bool, []dbus.EnableUnitFileChange, error)
	DisableUnitFilesFunc        func(ctx context.Context, files []string, runtime bool) ([]dbus.DisableUnitFileChange, error)
	StartUnitFunc               func(ctx context.Context, unitName, mode string) (chan string, error)
	StopUnitFunc                func(ctx context.Context, unitName, mode string) (chan string, error)
	RestartUnitFunc             func(ctx context.Context, unitName, mode string) (chan string, error)
	ResetFailedUnitFunc         func(ctx context.Context, unitName string) error
	ReloadFunc                  func(ctx context.Context) error
	GetUnitPropertiesFunc       func(ctx context.Context, unitName string) (map[string]interface{}, error)
	GetUnitTypePropertiesFunc   func(ctx context.Context, unitName, unitType string) (map[string]interface{}, error)
	CloseFunc                   func() error
}

// ListUnitsByPatterns delegates to ListUnitsByPatternsFunc.
func (m *MockConnection) ListUnitsByPatterns(ctx context.Context, states, patterns []string) ([]dbus.UnitStatus, error) {
	if m.ListUnitsByPatternsFunc != nil {
		return m.ListUnitsByPatternsFunc(ctx, states, patterns)
	}
	return nil, fmt.Errorf("mock not implemented")
}

// ListUnitFilesByPatterns delegates to ListUnitFilesByPatternsFunc.
func (m *MockConnection) ListUnitFilesByPatterns(ctx context.Context, states, patterns []string) ([]dbus.UnitFile, error) {
	if m.ListUnitFilesByPatternsFunc != nil {
		return m.ListUnitFilesByPatternsFunc(ctx, states, patterns)
	}
	return nil, fmt.Errorf("mock not implemented")
}

// EnableUnitFiles delegates to EnableUnitFilesFunc.
func (m *MockConnection) EnableUnitFiles(ctx context.Context, files []string, runtime, force bool) (bool, []dbus.EnableUnitFileChange, error) {
	if m.EnableUnitFilesFunc != nil {
		return m.EnableUnitFilesFunc(ctx, files, runtime, force)
	}
	return false, nil, fmt.Errorf("mock not implemented")
}

// DisableUnitFiles delegates to DisableUnitFilesFunc.
func (m *MockConnection) DisableUnitFiles(ctx context.Context, files []string, runtime bool) ([]dbus.DisableUnitFileChange, error) {
	if m.DisableUnitFilesFunc != nil {
		return m.DisableUnitFilesFunc(ctx, files, runtime)
	}
	return nil, fmt.Errorf("mock not implemented")
}

// StartUnit delegates to StartUnitFunc.
func (m *MockConnection) StartUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	if m.StartUnitFunc != nil {
		return m.StartUnitFunc(ctx, unitName, mode)
	}
	return nil, fmt.Errorf("mock not implemented")
}

// StopUnit delegates to StopUnitFunc.
func (m *MockConnection) StopUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	if m.StopUnitFunc != nil {
		return m.StopUnitFunc(ctx, unitName, mode)
	}
	return nil, fmt.Errorf("mock not implemented")
}

// RestartUnit delegates to RestartUnitFunc.
func (m *MockConnection) RestartUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	if m.RestartUnitFunc != nil {
		return m.RestartUnitFunc(ctx, unitName, mode)
	}
	return nil, fmt.Errorf("mock not implemented")
}

// ResetFailedUnit delegates to ResetFailedUnitFunc.
func (m *MockConnection) ResetFailedUnit(ctx context.Context, unitName string) error {
	if m.ResetFailedUnitFunc != nil {
		return m.ResetFailedUnitFunc(ctx, unitName)
	}
	return fmt.Errorf("mock not implemented")
}

// Reload delegates to ReloadFunc.
func (m *MockConnection) Reload(ctx context.Context) error {
	if m.ReloadFunc != nil {
		return m.ReloadFunc(ctx)
	}
	return fmt.Errorf("mock not implemented")
}

// GetUnitProperties delegates to GetUnitPropertiesFunc.
func (m *MockConnection) GetUnitProperties(ctx context.Context, unitName string) (map[string]interface{}, error) {
	if m.GetUnitPropertiesFunc != nil {
		return m.GetUnitPropertiesFunc(ctx, unitName)
	}
	return nil, fmt.Errorf("mock not implemented")
}

// GetUnitTypeProperties delegates to GetUnitTypePropertiesFunc.
func (m *MockConnection) GetUnitTypeProperties(ctx context.Context, unitName, unitType string) (map[string]interface{}, error) {
	if m.GetUnitTypePropertiesFunc != nil {
		return m.GetUnitTypePropertiesFunc(ctx, unitName, unitType)
	}
	return nil, fmt.Errorf("mock not implemented")
}

// Close delegates to CloseFunc and otherwise succeeds.
func (m *MockConnection) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// MockConnectionFactory hands out a canned Connection for tests.
type MockConnectionFactory struct {
	NewConnectionFunc func(ctx context.Context, userMode bool) (Connection, error)
	Connection        Connection
}

// NewConnection returns the configured connection or delegates to
// NewConnectionFunc when set.
func (m *MockConnectionFactory) NewConnection(ctx context.Context, userMode bool) (Connection, error) {
	if m.NewConnectionFunc != nil {
		return m.NewConnectionFunc(ctx, userMode)
	}
	if m.Connection != nil {
		return m.Connection, nil
	}
	return nil, fmt.Errorf("mock not configured")
}
