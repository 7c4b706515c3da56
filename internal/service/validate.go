package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/taskflows/taskflows/internal/naming"
)

var (
	// Service names become unit file names, so they are restricted to
	// characters safe for both; spaces are allowed and map to underscores.
	serviceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 _.-]*$`)

	// Container names follow the engines' naming rules.
	containerNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

	killSignalRegex = regexp.MustCompile(`^(SIG[A-Z0-9+-]+|[0-9]+)$`)

	envKeyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidationError reports one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field of a service.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Validate checks the service definition and reports every problem found,
// not just the first.
func (s *Service) Validate() error {
	var errs ValidationErrors

	if s.Name == "" {
		errs = append(errs, ValidationError{Field: "Name", Message: "service name is required"})
	} else if !serviceNameRegex.MatchString(s.Name) {
		errs = append(errs, ValidationError{
			Field:   "Name",
			Message: fmt.Sprintf("invalid service name %q: must start with an alphanumeric and contain only alphanumerics, spaces, hyphens, underscores, or dots", s.Name),
		})
	}

	if s.StartCommand == "" {
		errs = append(errs, ValidationError{Field: "StartCommand", Message: "start command is required"})
	}

	if s.KillSignal != "" && !killSignalRegex.MatchString(s.KillSignal) {
		errs = append(errs, ValidationError{
			Field:   "KillSignal",
			Message: fmt.Sprintf("invalid kill signal %q: must be a SIG* name or a signal number", s.KillSignal),
		})
	}

	if s.RestartPolicy != "" {
		validPolicies := map[RestartPolicy]bool{
			RestartAlways:     true,
			RestartOnSuccess:  true,
			RestartOnFailure:  true,
			RestartOnAbnormal: true,
			RestartOnAbort:    true,
			RestartOnWatchdog: true,
		}
		if !validPolicies[s.RestartPolicy] {
			errs = append(errs, ValidationError{
				Field:   "RestartPolicy",
				Message: fmt.Sprintf("invalid restart policy %q: must be one of always, on-success, on-failure, on-abnormal, on-abort, on-watchdog", s.RestartPolicy),
			})
		}
	}

	if s.TimeoutSec < 0 {
		errs = append(errs, ValidationError{Field: "TimeoutSec", Message: "timeout must be non-negative"})
	}

	for key := range s.Env {
		if !envKeyRegex.MatchString(key) {
			errs = append(errs, ValidationError{
				Field:   "Env",
				Message: fmt.Sprintf("invalid environment variable name %q", key),
			})
		}
	}

	if s.Container != "" && !containerNameRegex.MatchString(s.Container) {
		errs = append(errs, ValidationError{
			Field:   "Container",
			Message: fmt.Sprintf("invalid container name %q", s.Container),
		})
	}

	errs = append(errs, s.validateRelations()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateRelations checks every relationship list for empty references and
// self-references.
func (s *Service) validateRelations() ValidationErrors {
	var errs ValidationErrors

	self := naming.ServiceUnit(s.Name)
	relations := []struct {
		field string
		refs  UnitRefs
	}{
		{"StartBefore", s.StartBefore},
		{"StartAfter", s.StartAfter},
		{"Wants", s.Wants},
		{"Upholds", s.Upholds},
		{"Requires", s.Requires},
		{"Requisite", s.Requisite},
		{"BindsTo", s.BindsTo},
		{"OnFailure", s.OnFailure},
		{"OnSuccess", s.OnSuccess},
		{"PartOf", s.PartOf},
		{"PropagateStopTo", s.PropagateStopTo},
		{"PropagateStopFrom", s.PropagateStopFrom},
		{"Conflicts", s.Conflicts},
	}
	for _, rel := range relations {
		for _, ref := range rel.refs {
			if ref.UnitName() == "" {
				errs = append(errs, ValidationError{Field: rel.field, Message: "empty unit reference"})
				continue
			}
			if s.Name != "" && ref.UnitName() == self {
				errs = append(errs, ValidationError{
					Field:   rel.field,
					Message: fmt.Sprintf("service cannot reference itself: %q", ref.UnitName()),
				})
			}
		}
	}
	return errs
}
