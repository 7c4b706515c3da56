package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/taskflows/taskflows/internal/log"
)

// DBusConnection adapts a go-systemd dbus.Conn to the Connection interface,
// wrapping each call with contextual errors.
type DBusConnection struct {
	conn *dbus.Conn
}

// NewDBusConnection wraps an established D-Bus connection.
func NewDBusConnection(conn *dbus.Conn) *DBusConnection {
	return &DBusConnection{conn: conn}
}

// ListUnitsByPatterns returns the loaded units matching the glob patterns.
func (d *DBusConnection) ListUnitsByPatterns(ctx context.Context, states, patterns []string) ([]dbus.UnitStatus, error) {
	units, err := d.conn.ListUnitsByPatternsContext(ctx, states, patterns)
	if err != nil {
		return nil, fmt.Errorf("error listing units for %v: %w", patterns, err)
	}
	return units, nil
}

// ListUnitFilesByPatterns returns the installed unit files matching the glob patterns.
func (d *DBusConnection) ListUnitFilesByPatterns(ctx context.Context, states, patterns []string) ([]dbus.UnitFile, error) {
	files, err := d.conn.ListUnitFilesByPatternsContext(ctx, states, patterns)
	if err != nil {
		return nil, fmt.Errorf("error listing unit files for %v: %w", patterns, err)
	}
	return files, nil
}

// EnableUnitFiles enables the given unit files.
func (d *DBusConnection) EnableUnitFiles(ctx context.Context, files []string, runtime, force bool) (bool, []dbus.EnableUnitFileChange, error) {
	install, changes, err := d.conn.EnableUnitFilesContext(ctx, files, runtime, force)
	if err != nil {
		return false, nil, fmt.Errorf("error enabling unit files %v: %w", files, err)
	}
	return install, changes, nil
}

// DisableUnitFiles disables the given unit files.
func (d *DBusConnection) DisableUnitFiles(ctx context.Context, files []string, runtime bool) ([]dbus.DisableUnitFileChange, error) {
	changes, err := d.conn.DisableUnitFilesContext(ctx, files, runtime)
	if err != nil {
		return nil, fmt.Errorf("error disabling unit files %v: %w", files, err)
	}
	return changes, nil
}

// StartUnit queues a start job for the unit. The returned channel receives
// the job result string once systemd finishes the job.
func (d *DBusConnection) StartUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	ch := make(chan string)
	if _, err := d.conn.StartUnitContext(ctx, unitName, mode, ch); err != nil {
		return nil, fmt.Errorf("error starting unit %s: %w", unitName, err)
	}
	return ch, nil
}

// StopUnit queues a stop job for the unit.
func (d *DBusConnection) StopUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	ch := make(chan string)
	if _, err := d.conn.StopUnitContext(ctx, unitName, mode, ch); err != nil {
		return nil, fmt.Errorf("error stopping unit %s: %w", unitName, err)
	}
	return ch, nil
}

// RestartUnit queues a restart job for the unit.
func (d *DBusConnection) RestartUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	ch := make(chan string)
	if _, err := d.conn.RestartUnitContext(ctx, unitName, mode, ch); err != nil {
		return nil, fmt.Errorf("error restarting unit %s: %w", unitName, err)
	}
	return ch, nil
}

// ResetFailedUnit clears the failed state of a unit.
func (d *DBusConnection) ResetFailedUnit(ctx context.Context, unitName string) error {
	if err := d.conn.ResetFailedUnitContext(ctx, unitName); err != nil {
		return fmt.Errorf("error resetting failed unit %s: %w", unitName, err)
	}
	return nil
}

// Reload asks the service manager to reload its unit files, the D-Bus
// equivalent of daemon-reload.
func (d *DBusConnection) Reload(ctx context.Context) error {
	if err := d.conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("error reloading systemd: %w", err)
	}
	return nil
}

// GetUnitProperties returns the org.freedesktop.systemd1.Unit properties of
// the named unit.
func (d *DBusConnection) GetUnitProperties(ctx context.Context, unitName string) (map[string]interface{}, error) {
	props, err := d.conn.GetUnitPropertiesContext(ctx, unitName)
	if err != nil {
		return nil, fmt.Errorf("error getting unit properties for %s: %w", unitName, err)
	}
	return props, nil
}

// GetUnitTypeProperties gets the properties of a unit's type-specific interface.
func (d *DBusConnection) GetUnitTypeProperties(ctx context.Context, unitName, unitType string) (map[string]interface{}, error) {
	props, err := d.conn.GetUnitTypePropertiesContext(ctx, unitName, unitType)
	if err != nil {
		return nil, fmt.Errorf("error getting %s properties for %s: %w", unitType, unitName, err)
	}
	return props, nil
}

// Close releases the underlying D-Bus connection.
func (d *DBusConnection) Close() error {
	d.conn.Close()
	return nil
}

// DefaultConnectionFactory opens real D-Bus connections to the user or
// system service manager.
type DefaultConnectionFactory struct {
	logger log.Logger
}

// NewConnectionFactory returns a factory that logs through the given logger.
func NewConnectionFactory(logger log.Logger) *DefaultConnectionFactory {
	return &DefaultConnectionFactory{
		logger: logger,
	}
}

// NewConnection dials the session bus when userMode is true and the system
// bus otherwise.
func (f *DefaultConnectionFactory) NewConnection(ctx context.Context, userMode bool) (Connection, error) {
	var conn *dbus.Conn
	var err error

	if userMode {
		f.logger.Debug("Connecting to user service manager")
		conn, err = dbus.NewUserConnectionContext(ctx)
	} else {
		f.logger.Debug("Connecting to system service manager")
		conn, err = dbus.NewSystemConnectionContext(ctx)
	}

	if err != nil {
		return nil, NewConnectionError(userMode, err)
	}

	return NewDBusConnection(conn), nil
}
