package service

import (
	"strings"

	"github.com/taskflows/taskflows/internal/naming"
)

// UnitRef names another unit inside a dependency directive. Build one with
// Ref for a literal unit name, or RefService to point at another taskflows
// service; the target's unit name is resolved when the ref is built, not
// when it is rendered.
type UnitRef struct {
	name string
}

// Ref returns a reference to a literal unit name. The name is used verbatim,
// so references to non-taskflows units like "docker.service" must carry
// their own suffix.
func Ref(name string) UnitRef {
	return UnitRef{name: name}
}

// RefService returns a reference to another taskflows service's unit.
func RefService(s *Service) UnitRef {
	return UnitRef{name: naming.ServiceUnit(s.Name)}
}

// UnitName returns the referenced unit name.
func (r UnitRef) UnitName() string {
	return r.name
}

// UnitRefs is an ordered list of unit references.
type UnitRefs []UnitRef

// Refs builds a UnitRefs from literal unit names, preserving order.
func Refs(names ...string) UnitRefs {
	out := make(UnitRefs, len(names))
	for i, name := range names {
		out[i] = Ref(name)
	}
	return out
}

// Join renders the list as a space-separated directive value, preserving
// input order.
func (rs UnitRefs) Join() string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.UnitName()
	}
	return strings.Join(names, " ")
}
