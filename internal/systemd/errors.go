package systemd

import (
	"errors"
	"fmt"
)

// Error is a failed control-plane operation: which verb, against which unit
// or pattern, and the manager's underlying failure.
type Error struct {
	Operation string
	Unit      string
	Cause     error
}

// NewError creates an Error.
func NewError(operation, unit string, cause error) *Error {
	return &Error{Operation: operation, Unit: unit, Cause: cause}
}

func (e *Error) Error() string {
	return fmt.Sprintf("systemd %s failed for %s: %v", e.Operation, e.Unit, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ConnectionError means the user or system bus could not be reached at all.
type ConnectionError struct {
	UserMode bool
	Cause    error
}

// NewConnectionError creates a ConnectionError for the given bus.
func NewConnectionError(userMode bool, cause error) *ConnectionError {
	return &ConnectionError{UserMode: userMode, Cause: cause}
}

func (e *ConnectionError) Error() string {
	mode := "system"
	if e.UserMode {
		mode = "user"
	}
	return fmt.Sprintf("failed to connect to systemd %s bus: %v", mode, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// UnitNotFoundError means the manager has no unit under the requested name.
type UnitNotFoundError struct {
	Unit string
}

// NewUnitNotFoundError creates an UnitNotFoundError.
func NewUnitNotFoundError(unit string) *UnitNotFoundError {
	return &UnitNotFoundError{Unit: unit}
}

func (e *UnitNotFoundError) Error() string {
	return fmt.Sprintf("unit not found: %s", e.Unit)
}

// IsError reports whether err is (or wraps) a control-plane Error.
func IsError(err error) bool {
	var target *Error
	return errors.As(err, &target)
}

// IsConnectionError reports whether err is (or wraps) a ConnectionError.
func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

// IsUnitNotFoundError reports whether err is (or wraps) an UnitNotFoundError.
func IsUnitNotFoundError(err error) bool {
	var target *UnitNotFoundError
	return errors.As(err, &target)
}
