package unit

import (
	"maps"
	"slices"
)

// Set collects "Key=Value" directive strings for one unit file section,
// deduplicating repeats. The service manager attaches no meaning to
// directive order, so Sorted picks one deterministic order for rendering.
type Set map[string]struct{}

// NewSet returns a set holding the given directives.
func NewSet(directives ...string) Set {
	s := make(Set, len(directives))
	s.Add(directives...)
	return s
}

// Add inserts directives into the set.
func (s Set) Add(directives ...string) {
	for _, d := range directives {
		s[d] = struct{}{}
	}
}

// Sorted returns the directives in lexicographic order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}
