// Package naming derives unit names and file stems for taskflows-managed
// units. Every unit taskflows writes carries the same fixed prefix so that
// discovery patterns can be scoped to units this tool owns.
package naming

import (
	"strings"

	systemdunit "github.com/coreos/go-systemd/v22/unit"
)

const (
	// Prefix marks every unit taskflows owns.
	Prefix = "taskflow-"
	// StopPrefix marks the companion unit that stops a scheduled service.
	StopPrefix = "stop-"
)

// Base returns the unit base name for a service name: the fixed prefix plus
// the name with spaces replaced by underscores. Base is idempotent, so an
// already-prefixed name passes through unchanged.
func Base(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	if strings.HasPrefix(name, Prefix) {
		return name
	}
	return Prefix + name
}

// StopBase returns the base name of the paired stop unit.
func StopBase(name string) string {
	return StopPrefix + Base(name)
}

// ServiceUnit returns the service unit name for a service name.
func ServiceUnit(name string) string {
	return Base(name) + ".service"
}

// TimerUnit returns the timer unit name for a service name.
func TimerUnit(name string) string {
	return Base(name) + ".timer"
}

// StopServiceUnit returns the paired stop service unit name.
func StopServiceUnit(name string) string {
	return StopBase(name) + ".service"
}

// StopTimerUnit returns the paired stop timer unit name.
func StopTimerUnit(name string) string {
	return StopBase(name) + ".timer"
}

// NormalizeTimer canonicalizes user input into a managed timer unit name,
// appending the .timer suffix and the taskflow prefix when absent. Stop
// timer names keep their stop prefix.
func NormalizeTimer(name string) string {
	name = strings.TrimSuffix(strings.ReplaceAll(name, " ", "_"), ".timer")
	if !strings.HasPrefix(name, StopPrefix+Prefix) {
		name = Base(name)
	}
	return name + ".timer"
}

// EscapePath escapes a filesystem path into a valid unit name fragment
// using the manager's own path escaping rules.
func EscapePath(path string) string {
	return systemdunit.UnitNamePathEscape(path)
}
