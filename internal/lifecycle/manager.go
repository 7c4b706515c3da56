// Package lifecycle orchestrates the full life of managed services:
// compiling unit files, installing and enabling them, driving the manager
// verbs, and tearing everything down again on removal.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/taskflows/taskflows/internal/container"
	"github.com/taskflows/taskflows/internal/dependency"
	"github.com/taskflows/taskflows/internal/fs"
	"github.com/taskflows/taskflows/internal/log"
	"github.com/taskflows/taskflows/internal/naming"
	"github.com/taskflows/taskflows/internal/repository"
	"github.com/taskflows/taskflows/internal/service"
	"github.com/taskflows/taskflows/internal/systemd"
	"github.com/taskflows/taskflows/internal/unit"
)

// Manager coordinates the compiler, the unit directory, the service
// manager client and the container engine. Verbs identify units by the
// same substring match the client understands; an empty name addresses
// every managed unit.
type Manager struct {
	compiler *unit.Compiler
	files    *fs.Service
	client   *systemd.Client
	engine   container.Engine
	history  repository.History
	units    repository.UnitStore
	logger   log.Logger
}

// NewManager creates a lifecycle manager from its collaborators.
func NewManager(compiler *unit.Compiler, files *fs.Service, client *systemd.Client, engine container.Engine, history repository.History, units repository.UnitStore, logger log.Logger) *Manager {
	return &Manager{
		compiler: compiler,
		files:    files,
		client:   client,
		engine:   engine,
		history:  history,
		units:    units,
		logger:   logger,
	}
}

// Create compiles, installs and enables the given services in dependency
// order. With start set, each service is also started once installed. A
// failing service does not abort the batch; per-service errors are
// collected and returned joined.
func (m *Manager) Create(ctx context.Context, services []*service.Service, start bool) error {
	ordered, err := dependency.OrderServices(services)
	if err != nil {
		return err
	}

	var errs []error
	for _, svc := range ordered {
		if err := m.createService(ctx, svc, start); err != nil {
			m.logger.Error("Failed to create service", "service", svc.Name, "error", err)
			errs = append(errs, fmt.Errorf("creating %s: %w", svc.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) createService(ctx context.Context, svc *service.Service, start bool) error {
	files, err := m.compiler.Compile(svc)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(files))
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path, err := m.files.WriteUnitFile(f.Name, f.Content)
		if err != nil {
			return err
		}
		m.trackUnitFile(f)
		names = append(names, f.Name)
		paths = append(paths, path)
	}

	if err := m.client.EnableFiles(ctx, paths); err != nil {
		return err
	}
	if start {
		if err := m.client.StartUnits(ctx, startableUnits(svc, names)); err != nil {
			return err
		}
	}

	m.record(svc.Name, "create", strings.Join(names, " "))
	return nil
}

// startableUnits picks which freshly installed units to start: the primary
// service unit and every timer. The companion stop unit only runs when its
// timer fires; starting it here would stop the service we just started.
func startableUnits(svc *service.Service, names []string) []string {
	primary := naming.ServiceUnit(svc.Name)
	var out []string
	for _, name := range names {
		if name == primary || strings.HasSuffix(name, ".timer") {
			out = append(out, name)
		}
	}
	return out
}

// Start starts the units matching name across all unit types, so starting
// a scheduled service also arms its timers.
func (m *Manager) Start(ctx context.Context, name string) error {
	err := m.client.Start(ctx, systemd.Query{Match: name})
	m.record(target(name), "start", errDetail(err))
	return err
}

// Stop stops the service units matching name.
func (m *Manager) Stop(ctx context.Context, name string) error {
	err := m.client.Stop(ctx, systemd.Query{Match: name})
	m.record(target(name), "stop", errDetail(err))
	return err
}

// Restart restarts the service units matching name.
func (m *Manager) Restart(ctx context.Context, name string) error {
	err := m.client.Restart(ctx, systemd.Query{Match: name})
	m.record(target(name), "restart", errDetail(err))
	return err
}

// Enable enables the unit files matching name.
func (m *Manager) Enable(ctx context.Context, name string) error {
	err := m.client.Enable(ctx, systemd.Query{Match: name})
	m.record(target(name), "enable", errDetail(err))
	return err
}

// Disable disables the unit files matching name.
func (m *Manager) Disable(ctx context.Context, name string) error {
	err := m.client.Disable(ctx, systemd.Query{Match: name})
	m.record(target(name), "disable", errDetail(err))
	return err
}

// Remove uninstalls everything matching name: units are disabled, their
// runtime state is cleaned, the unit files are deleted, and containers the
// services drove are removed. Every step is attempted for every unit even
// when earlier steps fail; the collected errors are returned joined.
func (m *Manager) Remove(ctx context.Context, name string) error {
	var errs []error

	if err := m.client.Disable(ctx, systemd.Query{Match: name}); err != nil {
		errs = append(errs, err)
	}

	// Containers are discovered from the unit files before those files are
	// deleted, and each one is removed exactly once even when several units
	// reference it.
	var containers []string
	seen := make(map[string]struct{})

	servicePaths, err := m.client.UnitFiles(ctx, systemd.Query{Match: name, Type: systemd.UnitTypeService})
	if err != nil {
		errs = append(errs, err)
	}
	for _, path := range servicePaths {
		if err := m.client.Clean(ctx, filepath.Base(path)); err != nil {
			errs = append(errs, err)
		}
		content, err := m.files.ReadUnitFile(path)
		if err != nil {
			errs = append(errs, err)
		} else {
			for _, cn := range unit.ContainerNames(content) {
				if _, ok := seen[cn]; !ok {
					seen[cn] = struct{}{}
					containers = append(containers, cn)
				}
			}
		}
		if err := m.removeUnitFile(path); err != nil {
			errs = append(errs, err)
		}
	}

	timerPaths, err := m.client.UnitFiles(ctx, systemd.Query{Match: name, Type: systemd.UnitTypeTimer})
	if err != nil {
		errs = append(errs, err)
	}
	for _, path := range timerPaths {
		if err := m.removeUnitFile(path); err != nil {
			errs = append(errs, err)
		}
	}

	for _, cn := range containers {
		m.logger.Info("Removing container", "container", cn, "engine", m.engine.Name())
		if err := m.engine.Remove(ctx, cn); err != nil {
			errs = append(errs, fmt.Errorf("removing container %s: %w", cn, err))
		}
	}

	err = errors.Join(errs...)
	m.record(target(name), "remove", fmt.Sprintf("units=%d containers=%d", len(servicePaths)+len(timerPaths), len(containers)))
	return err
}

// trackUnitFile upserts the written file into the unit inventory. The
// inventory is advisory, so failures are logged rather than returned.
func (m *Manager) trackUnitFile(f unit.File) {
	stem, unitType := splitUnitName(f.Name)
	_, err := m.units.Upsert(&repository.Unit{
		Name:     stem,
		Type:     unitType,
		SHA1Hash: fs.ContentHash(f.Content),
		UserMode: m.client.UserMode(),
	})
	if err != nil {
		m.logger.Warn("Failed to track unit file", "unit", f.Name, "error", err)
	}
}

// removeUnitFile deletes the file from disk and drops it from the unit
// inventory.
func (m *Manager) removeUnitFile(path string) error {
	if err := m.files.RemoveUnitFile(path); err != nil {
		return err
	}
	stem, unitType := splitUnitName(filepath.Base(path))
	if err := m.units.Delete(stem, unitType); err != nil {
		m.logger.Warn("Failed to untrack unit file", "unit", filepath.Base(path), "error", err)
	}
	return nil
}

// record appends one row to the operations history. History is advisory;
// failures are logged and never fail the operation they describe.
func (m *Manager) record(service, operation, detail string) {
	if _, err := m.history.Record(service, operation, detail); err != nil {
		m.logger.Warn("Failed to record operation", "operation", operation, "service", service, "error", err)
	}
}

// splitUnitName splits a unit file name like "taskflow-db.service" into
// its file stem and unit type.
func splitUnitName(unitName string) (stem, unitType string) {
	ext := filepath.Ext(unitName)
	return strings.TrimSuffix(unitName, ext), strings.TrimPrefix(ext, ".")
}

// target names the history row's subject: the requested match, or "*" when
// the operation addressed every managed unit.
func target(name string) string {
	if name == "" {
		return "*"
	}
	return name
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
