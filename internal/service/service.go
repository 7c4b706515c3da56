// Package service defines the declarative model for a managed service: the
// command it runs, its schedules, constraints, and relationships to other
// units. The model is pure data; compiling it to unit files and driving the
// service manager happen elsewhere.
package service

import (
	"errors"
	"fmt"

	"github.com/taskflows/taskflows/internal/constraint"
	"github.com/taskflows/taskflows/internal/schedule"
)

// DefaultKillSignal is sent to stop a service when no other signal is
// configured.
const DefaultKillSignal = "SIGTERM"

// RestartPolicy selects when the manager restarts an exited service. The
// empty policy leaves restarting off.
type RestartPolicy string

// Restart policies understood by the service manager.
const (
	RestartAlways     RestartPolicy = "always"
	RestartOnSuccess  RestartPolicy = "on-success"
	RestartOnFailure  RestartPolicy = "on-failure"
	RestartOnAbnormal RestartPolicy = "on-abnormal"
	RestartOnAbort    RestartPolicy = "on-abort"
	RestartOnWatchdog RestartPolicy = "on-watchdog"
)

// Service describes a command to run under the service manager, on an
// optional schedule. Names must be unique within an installation; compiling
// a service whose unit files already exist replaces them.
type Service struct {
	// Name is the logical service name. Spaces are replaced with
	// underscores when unit names are derived from it.
	Name string

	// StartCommand is the command the service unit executes.
	StartCommand string
	// StopCommand, when set, is executed to stop the service.
	StopCommand string
	// NonBlocking marks StartCommand as a launcher that exits once a
	// background process (such as a container) is running. The unit then
	// stays active after the command returns.
	NonBlocking bool
	// KillSignal overrides DefaultKillSignal.
	KillSignal string

	// Description is the human-readable unit description.
	Description string
	// RestartPolicy selects when the manager restarts the service.
	RestartPolicy RestartPolicy
	// TimeoutSec caps the service's runtime in seconds. Zero means no cap.
	TimeoutSec int
	// EnvFile points at an environment file loaded before the command runs.
	EnvFile string
	// Env holds environment variables set for the command.
	Env map[string]string
	// WorkingDirectory is the directory the command runs in.
	WorkingDirectory string

	// StartSchedules trigger the service through a timer unit.
	StartSchedules []schedule.Schedule
	// StopSchedules trigger a companion unit that stops the service.
	StopSchedules []schedule.Schedule

	// HardwareConstraints gate startup on machine capabilities.
	HardwareConstraints []constraint.Constraint
	// SystemLoadConstraints gate startup on system pressure.
	SystemLoadConstraints []constraint.Constraint

	// Relationship directives. Each list renders as one space-joined
	// directive value in the unit file.
	StartBefore       UnitRefs
	StartAfter        UnitRefs
	Wants             UnitRefs
	Upholds           UnitRefs
	Requires          UnitRefs
	Requisite         UnitRefs
	BindsTo           UnitRefs
	OnFailure         UnitRefs
	OnSuccess         UnitRefs
	PartOf            UnitRefs
	PropagateStopTo   UnitRefs
	PropagateStopFrom UnitRefs
	Conflicts         UnitRefs

	// Container is the name of the container this service drives, when the
	// service was built with NewContainerService.
	Container string
}

// New returns a service that runs startCommand under the given name. The
// command is treated as blocking and killed with DefaultKillSignal; adjust
// the fields before compiling to change that.
func New(name, startCommand string) *Service {
	return &Service{
		Name:         name,
		StartCommand: startCommand,
		KillSignal:   DefaultKillSignal,
	}
}

// NewContainerService returns a service that starts and stops an existing
// container through the given engine CLI ("docker" or "podman"). Either
// name may be empty: a missing service name defaults to the container name
// and a missing container name defaults to the service name.
func NewContainerService(engine, name, containerName string) (*Service, error) {
	if engine == "" {
		return nil, errors.New("container service requires an engine")
	}
	if name == "" && containerName == "" {
		return nil, errors.New("container service requires a service name or a container name")
	}
	if name == "" {
		name = containerName
	}
	if containerName == "" {
		containerName = name
	}

	s := New(name, fmt.Sprintf("%s start %s", engine, containerName))
	s.StopCommand = fmt.Sprintf("%s stop %s", engine, containerName)
	s.NonBlocking = true
	s.Container = containerName
	return s, nil
}
