// Package dependency orders service batches so that every service is
// created and started after the services it depends on.
package dependency

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/taskflows/taskflows/internal/naming"
	"github.com/taskflows/taskflows/internal/service"
)

// Graph is a directed acyclic graph of service names. Edge direction is
// dependency -> dependent, so a topological walk yields dependencies first.
type Graph struct {
	g graph.Graph[string, string]
}

// New creates an empty dependency graph. Cycles are rejected at edge
// insertion time.
func New() *Graph {
	return &Graph{g: graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())}
}

// AddService ensures a service exists in the graph.
func (d *Graph) AddService(name string) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	err := d.g.AddVertex(name)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	return nil
}

// AddDependency records that dependent must come after dependency.
func (d *Graph) AddDependency(dependent, dependency string) error {
	if dependent == "" || dependency == "" {
		return fmt.Errorf("dependent and dependency must be non-empty")
	}
	if dependent == dependency {
		return fmt.Errorf("self-dependency is not allowed: %s", dependent)
	}

	err := d.g.AddEdge(dependency, dependent)
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return fmt.Errorf("dependency cycle between %s and %s: %w", dependency, dependent, err)
	default:
		return err
	}
}

// Order returns the services in dependency order. Ties break
// lexicographically so the order is stable across runs.
func (d *Graph) Order() ([]string, error) {
	order, err := graph.StableTopologicalSort(d.g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("resolving dependency order: %w", err)
	}
	return order, nil
}

// FromServices builds the ordering graph for one batch of services.
// Only relations that resolve to another service in the same batch become
// edges; relations on foreign units are left for the manager to resolve
// at runtime. Wants and the stop/failure propagation relations carry no
// start ordering, matching the manager's own semantics.
func FromServices(services []*service.Service) (*Graph, error) {
	byUnit := make(map[string]string, len(services))
	for _, svc := range services {
		byUnit[naming.ServiceUnit(svc.Name)] = svc.Name
	}

	d := New()
	for _, svc := range services {
		if err := d.AddService(svc.Name); err != nil {
			return nil, err
		}
	}

	for _, svc := range services {
		ordering := make([]service.UnitRef, 0,
			len(svc.StartAfter)+len(svc.Requires)+len(svc.Requisite)+len(svc.BindsTo))
		ordering = append(ordering, svc.StartAfter...)
		ordering = append(ordering, svc.Requires...)
		ordering = append(ordering, svc.Requisite...)
		ordering = append(ordering, svc.BindsTo...)
		for _, ref := range ordering {
			dep, ok := byUnit[ref.UnitName()]
			if !ok || dep == svc.Name {
				continue
			}
			if err := d.AddDependency(svc.Name, dep); err != nil {
				return nil, err
			}
		}

		// StartBefore points the other way: this service is the dependency.
		for _, ref := range svc.StartBefore {
			dependent, ok := byUnit[ref.UnitName()]
			if !ok || dependent == svc.Name {
				continue
			}
			if err := d.AddDependency(dependent, svc.Name); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// OrderServices returns the batch sorted in dependency order.
func OrderServices(services []*service.Service) ([]*service.Service, error) {
	d, err := FromServices(services)
	if err != nil {
		return nil, err
	}
	order, err := d.Order()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*service.Service, len(services))
	for _, svc := range services {
		byName[svc.Name] = svc
	}
	sorted := make([]*service.Service, 0, len(services))
	for _, name := range order {
		if svc, ok := byName[name]; ok {
			sorted = append(sorted, svc)
		}
	}
	return sorted, nil
}
