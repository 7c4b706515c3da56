package systemd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/taskflows/taskflows/internal/execx"
	"github.com/taskflows/taskflows/internal/log"
	"github.com/taskflows/taskflows/internal/naming"
)

// Unit types taskflows manages.
const (
	UnitTypeService = "service"
	UnitTypeTimer   = "timer"
)

const (
	jobModeReplace = "replace"
	jobResultDone  = "done"

	stateEnabled = "enabled"
)

var wildcardRun = regexp.MustCompile(`\*+`)

// Query selects managed units by substring match and unit type.
type Query struct {
	// Match is matched as a substring of the unit name. Empty selects
	// every managed unit.
	Match string
	// Type restricts the query to one unit type. Empty selects all types.
	Type string
	// States restricts list results to units in the given states.
	States []string
}

// Pattern expands the query into a glob for the manager's pattern APIs.
// The glob is always scoped to the managed prefix so foreign units never
// match, and a typeless query matches any unit type suffix.
func (q Query) Pattern() string {
	pattern := q.Match
	if q.Type != "" {
		if suffix := "." + q.Type; !strings.HasSuffix(pattern, suffix) {
			pattern += suffix
		}
	} else {
		pattern += "*"
	}
	if !strings.Contains(pattern, naming.Prefix) {
		pattern = "*" + naming.Prefix + "*" + pattern
	}
	return wildcardRun.ReplaceAllString(pattern, "*")
}

// UnitInfo describes one loaded unit as reported by the manager.
type UnitInfo struct {
	Name        string
	Description string
	LoadState   string
	ActiveState string
	SubState    string
	Followed    string
	Path        string
	JobID       uint32
	JobType     string
	JobPath     string
}

// Client drives the service manager for taskflows-managed units. It holds
// no connection of its own; every operation opens one through the factory
// and closes it when done.
type Client struct {
	factory  ConnectionFactory
	runner   execx.Runner
	logger   log.Logger
	userMode bool
}

// NewClient creates a client for the user or system service manager.
func NewClient(factory ConnectionFactory, runner execx.Runner, logger log.Logger, userMode bool) *Client {
	return &Client{
		factory:  factory,
		runner:   runner,
		logger:   logger,
		userMode: userMode,
	}
}

// UserMode reports whether the client targets the per-user manager.
func (c *Client) UserMode() bool {
	return c.userMode
}

func (c *Client) withConnection(ctx context.Context, fn func(Connection) error) error {
	conn, err := c.factory.NewConnection(ctx, c.userMode)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}

// unitFilePaths resolves the query to installed unit file paths. An empty
// result is not an error; it is logged and the caller gets an empty slice.
func (c *Client) unitFilePaths(ctx context.Context, conn Connection, q Query) ([]string, error) {
	pattern := q.Pattern()
	files, err := conn.ListUnitFilesByPatterns(ctx, q.States, []string{pattern})
	if err != nil {
		return nil, NewError("list-unit-files", pattern, err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	if len(paths) == 0 {
		c.logger.Error("No unit files found", "pattern", pattern)
	}
	return paths, nil
}

// UnitFiles returns the unit file paths installed for the query.
func (c *Client) UnitFiles(ctx context.Context, q Query) ([]string, error) {
	var paths []string
	err := c.withConnection(ctx, func(conn Connection) error {
		var err error
		paths, err = c.unitFilePaths(ctx, conn, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// UnitFileStates returns the enablement state of each unit file matching
// the query, keyed by file path.
func (c *Client) UnitFileStates(ctx context.Context, q Query) (map[string]string, error) {
	states := make(map[string]string)
	err := c.withConnection(ctx, func(conn Connection) error {
		pattern := q.Pattern()
		files, err := conn.ListUnitFilesByPatterns(ctx, q.States, []string{pattern})
		if err != nil {
			return NewError("list-unit-files", pattern, err)
		}
		for _, f := range files {
			states[f.Path] = f.Type
		}
		if len(states) == 0 {
			c.logger.Error("No unit files found", "pattern", pattern)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

// Units returns the loaded units matching the query.
func (c *Client) Units(ctx context.Context, q Query) ([]UnitInfo, error) {
	var units []UnitInfo
	err := c.withConnection(ctx, func(conn Connection) error {
		pattern := q.Pattern()
		statuses, err := conn.ListUnitsByPatterns(ctx, q.States, []string{pattern})
		if err != nil {
			return NewError("list-units", pattern, err)
		}
		for _, st := range statuses {
			units = append(units, UnitInfo{
				Name:        st.Name,
				Description: st.Description,
				LoadState:   st.LoadState,
				ActiveState: st.ActiveState,
				SubState:    st.SubState,
				Followed:    st.Followed,
				Path:        string(st.Path),
				JobID:       st.JobId,
				JobType:     st.JobType,
				JobPath:     string(st.JobPath),
			})
		}
		if len(units) == 0 {
			c.logger.Error("No units found", "pattern", pattern)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

// Enable persistently enables the unit files matching the query and
// reloads the manager so new or changed units take effect.
func (c *Client) Enable(ctx context.Context, q Query) error {
	return c.withConnection(ctx, func(conn Connection) error {
		paths, err := c.unitFilePaths(ctx, conn, q)
		if err != nil || len(paths) == 0 {
			return err
		}
		return c.enablePaths(ctx, conn, paths)
	})
}

// EnableFiles persistently enables exactly the given unit file paths,
// without pattern discovery. Callers that just wrote the files use this
// so enablement cannot pick up unrelated units.
func (c *Client) EnableFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return c.withConnection(ctx, func(conn Connection) error {
		return c.enablePaths(ctx, conn, paths)
	})
}

func (c *Client) enablePaths(ctx context.Context, conn Connection, paths []string) error {
	c.logger.Info("Enabling unit files", "files", paths)
	if _, _, err := conn.EnableUnitFiles(ctx, paths, false, true); err != nil {
		return NewError("enable", unitNames(paths), err)
	}
	if err := conn.Reload(ctx); err != nil {
		return NewError("daemon-reload", unitNames(paths), err)
	}
	return nil
}

// unitNames reduces unit file paths to a space-joined list of unit names
// for error messages.
func unitNames(paths []string) string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return strings.Join(names, " ")
}

// Disable disables the unit files matching the query and reloads the
// manager.
func (c *Client) Disable(ctx context.Context, q Query) error {
	return c.withConnection(ctx, func(conn Connection) error {
		paths, err := c.unitFilePaths(ctx, conn, q)
		if err != nil || len(paths) == 0 {
			return err
		}
		c.logger.Info("Disabling unit files", "files", paths)
		if _, err := conn.DisableUnitFiles(ctx, paths, false); err != nil {
			return NewError("disable", q.Pattern(), err)
		}
		if err := conn.Reload(ctx); err != nil {
			return NewError("daemon-reload", q.Pattern(), err)
		}
		return nil
	})
}

// eachUnit resolves the query and applies fn to every matched unit name.
// Failures do not short-circuit the sweep; they are joined and returned
// once every unit has been attempted.
func (c *Client) eachUnit(ctx context.Context, q Query, fn func(conn Connection, unit string) error) error {
	return c.withConnection(ctx, func(conn Connection) error {
		paths, err := c.unitFilePaths(ctx, conn, q)
		if err != nil {
			return err
		}
		var errs []error
		for _, path := range paths {
			if err := fn(conn, filepath.Base(path)); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// runJob queues a job for the unit and waits for the manager to report
// its result.
func (c *Client) runJob(ctx context.Context, operation, unit string, queue func(ctx context.Context, unitName, mode string) (chan string, error)) error {
	ch, err := queue(ctx, unit, jobModeReplace)
	if err != nil {
		return NewError(operation, unit, err)
	}
	select {
	case result := <-ch:
		if result != jobResultDone {
			return NewError(operation, unit, fmt.Errorf("job finished with result %q", result))
		}
	case <-ctx.Done():
		return NewError(operation, unit, ctx.Err())
	}
	return nil
}

// Start starts every unit matching the query. The match is applied to
// all unit types, so starting a scheduled service also arms its timers.
func (c *Client) Start(ctx context.Context, q Query) error {
	q.Type = ""
	return c.eachUnit(ctx, q, func(conn Connection, unit string) error {
		c.logger.Info("Starting unit", "unit", unit)
		return c.runJob(ctx, "start", unit, conn.StartUnit)
	})
}

// StartUnits starts exactly the named units, waiting for each queued job.
// Failures do not short-circuit; every unit is attempted.
func (c *Client) StartUnits(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return c.withConnection(ctx, func(conn Connection) error {
		var errs []error
		for _, name := range names {
			c.logger.Info("Starting unit", "unit", name)
			if err := c.runJob(ctx, "start", name, conn.StartUnit); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Stop stops the service units matching the query and clears any failed
// state left behind by previous runs.
func (c *Client) Stop(ctx context.Context, q Query) error {
	q.Type = UnitTypeService
	return c.eachUnit(ctx, q, func(conn Connection, unit string) error {
		c.logger.Info("Stopping unit", "unit", unit)
		if err := c.runJob(ctx, "stop", unit, conn.StopUnit); err != nil {
			return err
		}
		if err := conn.ResetFailedUnit(ctx, unit); err != nil {
			return NewError("reset-failed", unit, err)
		}
		return nil
	})
}

// Restart restarts the service units matching the query.
func (c *Client) Restart(ctx context.Context, q Query) error {
	q.Type = UnitTypeService
	return c.eachUnit(ctx, q, func(conn Connection, unit string) error {
		c.logger.Info("Restarting unit", "unit", unit)
		return c.runJob(ctx, "restart", unit, conn.RestartUnit)
	})
}

// IsEnabled reports whether the named unit is enabled. Probe failures
// count as not enabled.
func (c *Client) IsEnabled(ctx context.Context, unitName string) bool {
	enabled := false
	err := c.withConnection(ctx, func(conn Connection) error {
		files, err := conn.ListUnitFilesByPatterns(ctx, nil, []string{unitName})
		if err != nil {
			return err
		}
		for _, f := range files {
			if f.Path == unitName || strings.HasSuffix(f.Path, "/"+unitName) {
				enabled = f.Type == stateEnabled
				break
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("Enablement probe failed", "unit", unitName, "error", err)
		return false
	}
	return enabled
}

// Clean removes the runtime and cache directories the manager keeps for
// a unit. The bus API has no method for this, so it shells out to
// systemctl.
func (c *Client) Clean(ctx context.Context, unitName string) error {
	args := []string{"clean", unitName}
	if c.userMode {
		args = append([]string{"--user"}, args...)
	}
	c.logger.Debug("Cleaning unit", "unit", unitName)
	out, err := c.runner.CombinedOutput(ctx, "systemctl", args...)
	if err != nil {
		return NewError("clean", unitName, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out))))
	}
	return nil
}
