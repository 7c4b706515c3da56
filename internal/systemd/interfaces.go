// Package systemd provides the control-plane client for managed units.
package systemd

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Connection wraps the systemd manager D-Bus API for testability.
type Connection interface {
	// ListUnitsByPatterns returns the loaded units matching the glob patterns.
	ListUnitsByPatterns(ctx context.Context, states, patterns []string) ([]dbus.UnitStatus, error)

	// ListUnitFilesByPatterns returns the installed unit files matching the glob patterns.
	ListUnitFilesByPatterns(ctx context.Context, states, patterns []string) ([]dbus.UnitFile, error)

	// EnableUnitFiles enables the given unit files.
	EnableUnitFiles(ctx context.Context, files []string, runtime, force bool) (bool, []dbus.EnableUnitFileChange, error)

	// DisableUnitFiles disables the given unit files.
	DisableUnitFiles(ctx context.Context, files []string, runtime bool) ([]dbus.DisableUnitFileChange, error)

	// StartUnit queues a start job; the channel receives the job result.
	StartUnit(ctx context.Context, unitName, mode string) (chan string, error)

	// StopUnit queues a stop job; the channel receives the job result.
	StopUnit(ctx context.Context, unitName, mode string) (chan string, error)

	// RestartUnit queues a restart job; the channel receives the job result.
	RestartUnit(ctx context.Context, unitName, mode string) (chan string, error)

	// ResetFailedUnit clears the failed state of a unit.
	ResetFailedUnit(ctx context.Context, unitName string) error

	// Reload asks the service manager to reload its unit files.
	Reload(ctx context.Context) error

	// GetUnitProperties returns the generic Unit properties of a unit.
	GetUnitProperties(ctx context.Context, unitName string) (map[string]interface{}, error)

	// GetUnitTypeProperties returns the properties of a unit's type-specific interface.
	GetUnitTypeProperties(ctx context.Context, unitName, unitType string) (map[string]interface{}, error)

	// Close releases the connection.
	Close() error
}

// ConnectionFactory opens Connection instances on demand so commands can
// defer dialing until they actually talk to systemd.
type ConnectionFactory interface {
	// NewConnection dials the user or system bus.
	NewConnection(ctx context.Context, userMode bool) (Connection, error)
}
