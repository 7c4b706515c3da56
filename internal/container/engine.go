// Package container removes the containers managed services leave behind.
package container

import (
	"context"
	"fmt"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/execx"
	"github.com/taskflows/taskflows/internal/log"
)

// Supported container engines.
const (
	EngineDocker = "docker"
	EnginePodman = "podman"
)

// Engine removes containers created by managed services.
type Engine interface {
	// Remove force-removes the named container. Removing a container
	// that does not exist is not an error.
	Remove(ctx context.Context, name string) error

	// Name returns the engine's command name.
	Name() string
}

// NewEngine returns the engine for the configured container runtime.
func NewEngine(cfg *config.Settings, runner execx.Runner, logger log.Logger) (Engine, error) {
	switch cfg.ContainerEngine {
	case EngineDocker:
		return NewDocker(runner, logger), nil
	case EnginePodman:
		return NewPodman(cfg.PodmanURI, logger), nil
	default:
		return nil, fmt.Errorf("unknown container engine %q", cfg.ContainerEngine)
	}
}
