// Package constraint defines hardware and system-load conditions a service
// can require before the manager will start it. Each constraint renders to
// [Unit] condition directives.
package constraint

import "fmt"

// Constraint is implemented by every condition variant.
type Constraint interface {
	// Directives returns the unit directives for this condition as
	// "Key=Value" strings.
	Directives() []string
}

// Compare is a comparison operator accepted by the manager's numeric
// condition checks.
type Compare string

// Comparison operators.
const (
	CompareLess         Compare = "<"
	CompareLessEqual    Compare = "<="
	CompareEqual        Compare = "="
	CompareNotEqual     Compare = "!="
	CompareGreaterEqual Compare = ">="
	CompareGreater      Compare = ">"
)

func (c Compare) orDefault() Compare {
	if c == "" {
		return CompareGreaterEqual
	}
	return c
}

// CPUs requires the machine's usable CPU count to satisfy a comparison.
// The zero Compare means ">=".
type CPUs struct {
	Count   int
	Compare Compare
}

// Directives implements Constraint.
func (c CPUs) Directives() []string {
	return []string{fmt.Sprintf("ConditionCPUs=%s%d", c.Compare.orDefault(), c.Count)}
}

// Memory requires the installed memory in bytes to satisfy a comparison.
// The zero Compare means ">=".
type Memory struct {
	Bytes   uint64
	Compare Compare
}

// Directives implements Constraint.
func (m Memory) Directives() []string {
	return []string{fmt.Sprintf("ConditionMemory=%s%d", m.Compare.orDefault(), m.Bytes)}
}

// CPUPressure requires overall CPU pressure to stay at or below MaxPercent,
// measured over TimespanSec seconds when set or the manager's default window
// otherwise.
type CPUPressure struct {
	MaxPercent  int
	TimespanSec int
}

// Directives implements Constraint.
func (p CPUPressure) Directives() []string {
	return []string{"ConditionCPUPressure=" + pressureValue(p.MaxPercent, p.TimespanSec)}
}

// MemoryPressure requires overall memory pressure to stay at or below
// MaxPercent, measured over TimespanSec seconds when set.
type MemoryPressure struct {
	MaxPercent  int
	TimespanSec int
}

// Directives implements Constraint.
func (p MemoryPressure) Directives() []string {
	return []string{"ConditionMemoryPressure=" + pressureValue(p.MaxPercent, p.TimespanSec)}
}

// IOPressure requires overall IO pressure to stay at or below MaxPercent,
// measured over TimespanSec seconds when set.
type IOPressure struct {
	MaxPercent  int
	TimespanSec int
}

// Directives implements Constraint.
func (p IOPressure) Directives() []string {
	return []string{"ConditionIOPressure=" + pressureValue(p.MaxPercent, p.TimespanSec)}
}

func pressureValue(maxPercent, timespanSec int) string {
	if timespanSec > 0 {
		return fmt.Sprintf("%d%%/%dsec", maxPercent, timespanSec)
	}
	return fmt.Sprintf("%d%%", maxPercent)
}
