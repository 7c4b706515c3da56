package container

import (
	"context"
	"fmt"
	"os"

	"github.com/containers/podman/v5/pkg/bindings"
	"github.com/containers/podman/v5/pkg/bindings/containers"

	"github.com/taskflows/taskflows/internal/log"
)

// Podman removes containers through the Podman API socket.
type Podman struct {
	uri    string
	logger log.Logger
}

// NewPodman creates a podman engine. An empty uri selects the default
// socket for the current user.
func NewPodman(uri string, logger log.Logger) *Podman {
	if uri == "" {
		uri = defaultPodmanSocket()
	}
	return &Podman{uri: uri, logger: logger}
}

// Name returns the engine's command name.
func (p *Podman) Name() string {
	return EnginePodman
}

// URI returns the API socket the engine connects to.
func (p *Podman) URI() string {
	return p.uri
}

// Remove force-removes the named container. A container that does not
// exist is treated as already removed.
func (p *Podman) Remove(ctx context.Context, name string) error {
	p.logger.Debug("Removing container", "engine", EnginePodman, "container", name)
	conn, err := bindings.NewConnection(ctx, p.uri)
	if err != nil {
		return fmt.Errorf("connecting to podman API at %s: %w", p.uri, err)
	}
	opts := new(containers.RemoveOptions).WithForce(true).WithIgnore(true)
	if _, err := containers.Remove(conn, name, opts); err != nil {
		return fmt.Errorf("removing container %s: %w", name, err)
	}
	return nil
}

func defaultPodmanSocket() string {
	if os.Geteuid() == 0 {
		return "unix:///run/podman/podman.sock"
	}
	return fmt.Sprintf("unix:///run/user/%d/podman/podman.sock", os.Geteuid())
}
