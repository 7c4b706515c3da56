package compose

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/types"

	"github.com/taskflows/taskflows/internal/naming"
	"github.com/taskflows/taskflows/internal/service"
)

// Prefix creates a project-scoped resource name.
func Prefix(projectName, resourceName string) string {
	return fmt.Sprintf("%s-%s", projectName, resourceName)
}

// Services converts a loaded project into container services, sorted by
// compose service name. Each compose service becomes one managed service
// named <project>-<service> whose unit starts and stops the service's
// container through the engine CLI. The containers themselves must already
// exist; importing a project manages their lifecycle, it does not build them.
func Services(project *types.Project, engine string) ([]*service.Service, error) {
	if project == nil {
		return nil, errors.New("project is not defined")
	}

	names := make([]string, 0, len(project.Services))
	for name := range project.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	services := make([]*service.Service, 0, len(names))
	for _, name := range names {
		svc, err := convertService(project, name, project.Services[name], engine)
		if err != nil {
			return nil, fmt.Errorf("compose service %s: %w", name, err)
		}
		services = append(services, svc)
	}
	return services, nil
}

func convertService(project *types.Project, name string, cfg types.ServiceConfig, engine string) (*service.Service, error) {
	containerName := cfg.ContainerName
	if containerName == "" {
		containerName = Prefix(project.Name, name)
	}

	svc, err := service.NewContainerService(engine, Prefix(project.Name, name), containerName)
	if err != nil {
		return nil, err
	}

	svc.Description = fmt.Sprintf("Container %s from compose project %s", name, project.Name)
	svc.RestartPolicy = convertRestartPolicy(cfg.Restart)
	if cfg.StopSignal != "" {
		svc.KillSignal = cfg.StopSignal
	}
	svc.StartAfter = convertDependsOn(project.Name, cfg.DependsOn)

	if err := svc.Validate(); err != nil {
		return nil, err
	}
	return svc, nil
}

// convertRestartPolicy maps compose restart modes onto restart policies.
// unless-stopped has no service-manager equivalent and is treated as always;
// anything else, including compose's default "no", leaves restarting off.
func convertRestartPolicy(restart string) service.RestartPolicy {
	switch {
	case restart == "always" || restart == "unless-stopped":
		return service.RestartAlways
	case strings.HasPrefix(restart, "on-failure"):
		return service.RestartOnFailure
	default:
		return ""
	}
}

// convertDependsOn turns depends_on entries into start-ordering references
// to the derived sibling services, sorted for deterministic unit files.
func convertDependsOn(projectName string, deps types.DependsOnConfig) service.UnitRefs {
	if len(deps) == 0 {
		return nil
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	refs := make(service.UnitRefs, len(names))
	for i, name := range names {
		refs[i] = service.Ref(naming.ServiceUnit(Prefix(projectName, name)))
	}
	return refs
}
