package cmd

import (
	"context"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/service"
)

// Lifecycle drives managed services through creation, the manager verbs and
// removal. The production implementation is lifecycle.Manager; verbs match
// units by name substring and an empty name addresses every managed unit.
type Lifecycle interface {
	Create(ctx context.Context, services []*service.Service, start bool) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
}

// SystemValidator provides system validation capabilities for commands.
type SystemValidator interface {
	SystemRequirements(ctx context.Context) error
	All(ctx context.Context, cfg *config.Settings) error
}
