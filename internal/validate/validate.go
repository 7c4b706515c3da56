// Package validate checks that the host satisfies the runtime requirements
// for managing services.
package validate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/execx"
	"github.com/taskflows/taskflows/internal/log"
)

// Validator provides system requirements validation with dependency injection.
type Validator struct {
	logger   log.Logger
	runner   execx.Runner
	osGetter func() string // For testing, defaults to runtime.GOOS
}

// NewValidator creates a new Validator with the provided logger and command runner.
func NewValidator(logger log.Logger, runner execx.Runner) *Validator {
	return &Validator{
		logger:   logger,
		runner:   runner,
		osGetter: func() string { return runtime.GOOS },
	}
}

// WithOSGetter sets a custom OS getter for testing.
func (v *Validator) WithOSGetter(osGetter func() string) *Validator {
	v.osGetter = osGetter
	return v
}

// SystemRequirements checks that a service manager is present: Linux, with
// systemctl on PATH and answering --version.
func (v *Validator) SystemRequirements(ctx context.Context) error {
	if goos := v.osGetter(); goos != "linux" {
		return fmt.Errorf("unsupported platform: %s (taskflows requires Linux with systemd)", goos)
	}

	v.logger.Debug("Validating systemd availability")

	if _, err := v.runner.LookPath("systemctl"); err != nil {
		return fmt.Errorf("systemctl not found: %w", err)
	}

	version, err := v.runner.CombinedOutput(ctx, "systemctl", "--version")
	if err != nil {
		return fmt.Errorf("systemd not responding: %w", err)
	}
	if !strings.Contains(string(version), "systemd") {
		return errors.New("systemd not properly installed")
	}

	return nil
}

// UnitDir checks that the unit directory exists, creating it if needed, and
// that it is writable.
func (v *Validator) UnitDir(dir string) error {
	v.logger.Debug("Validating unit directory", "dir", dir)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("unit directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".taskflows-probe-*")
	if err != nil {
		return fmt.Errorf("unit directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	return nil
}

// Engine checks that the configured container engine CLI is installed. An
// empty engine passes; driving containers is optional.
func (v *Validator) Engine(ctx context.Context, engine string) error {
	if engine == "" {
		return nil
	}

	v.logger.Debug("Validating container engine availability", "engine", engine)

	if _, err := v.runner.CombinedOutput(ctx, engine, "--version"); err != nil {
		return fmt.Errorf("container engine %s not found: %w", engine, err)
	}

	return nil
}

// All runs every requirement check against the configuration and collects
// the failures.
func (v *Validator) All(ctx context.Context, cfg *config.Settings) error {
	var errs []error
	if err := v.SystemRequirements(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := v.UnitDir(cfg.UnitDir); err != nil {
		errs = append(errs, err)
	}
	if err := v.Engine(ctx, cfg.ContainerEngine); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
