package container

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskflows/taskflows/internal/execx"
	"github.com/taskflows/taskflows/internal/log"
)

// Docker removes containers through the docker CLI.
type Docker struct {
	runner execx.Runner
	logger log.Logger
}

// NewDocker creates a docker engine using the given command runner.
func NewDocker(runner execx.Runner, logger log.Logger) *Docker {
	return &Docker{runner: runner, logger: logger}
}

// Name returns the engine's command name.
func (d *Docker) Name() string {
	return EngineDocker
}

// Remove force-removes the named container. A container that does not
// exist is treated as already removed.
func (d *Docker) Remove(ctx context.Context, name string) error {
	d.logger.Debug("Removing container", "engine", EngineDocker, "container", name)
	out, err := d.runner.CombinedOutput(ctx, EngineDocker, "rm", "--force", name)
	if err != nil {
		if strings.Contains(string(out), "No such container") {
			return nil
		}
		return fmt.Errorf("removing container %s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
