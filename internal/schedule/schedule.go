// Package schedule defines the timer triggers that can be attached to a
// service. Each schedule renders to a set of [Timer] and rate-limit
// directives; the unit compiler merges and orders them.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Schedule is implemented by every trigger variant.
type Schedule interface {
	// Directives returns the unit directives for this trigger as
	// "Key=Value" strings. Order is not significant; the caller
	// deduplicates and sorts before rendering.
	Directives() []string
}

// RestartRate caps how often the service manager may restart the scheduled
// unit: at most Restarts starts within Seconds seconds.
type RestartRate struct {
	Restarts int
	Seconds  int
}

// DefaultRestartRate is permissive enough that the manager's start limiter
// never interferes with an aggressive periodic schedule.
var DefaultRestartRate = RestartRate{Restarts: 1000, Seconds: 1}

func (r RestartRate) directives() []string {
	if r == (RestartRate{}) {
		r = DefaultRestartRate
	}
	return []string{
		fmt.Sprintf("StartLimitIntervalSec=%d", r.Seconds),
		fmt.Sprintf("StartLimitBurst=%d", r.Restarts),
	}
}

// Calendar triggers on a calendar event expression.
//
// Format: DayOfWeek Year-Month-Day Hour:Minute:Second TimeZone, where every
// component is optional. Day of week is one of Sun,Mon,Tue,Wed,Thu,Fri,Sat.
// Example: "Sun 17:00 America/New_York".
type Calendar struct {
	// Expression is the calendar event expression.
	Expression string
	// Persistent makes a trigger missed while the machine was off fire
	// as soon as the manager next starts up.
	Persistent bool
	// RestartRate overrides DefaultRestartRate when non-zero.
	RestartRate RestartRate
}

// NewCalendar returns a persistent calendar schedule for the expression.
func NewCalendar(expression string) *Calendar {
	return &Calendar{Expression: expression, Persistent: true}
}

// CalendarFromTime returns a persistent calendar schedule for one absolute
// point in time, truncated to whole seconds.
func CalendarFromTime(t time.Time) *Calendar {
	return NewCalendar(strings.TrimSpace(t.Format("Mon 06-01-02 15:04:05 MST")))
}

// Directives implements Schedule.
func (c *Calendar) Directives() []string {
	out := c.RestartRate.directives()
	out = append(out, "OnCalendar="+c.Expression)
	if c.Persistent {
		out = append(out, "Persistent=true")
	}
	return out
}

// StartOn selects what event arms a periodic schedule.
type StartOn string

// Periodic schedules start relative to one of these events.
const (
	// StartOnBoot starts the unit shortly after the machine boots.
	StartOnBoot StartOn = "boot"
	// StartOnLogin starts the unit shortly after the service manager
	// starts, which for a user manager is at login.
	StartOnLogin StartOn = "login"
	// StartOnCommand never starts the unit automatically; it recurs only
	// once started explicitly.
	StartOnCommand StartOn = "command"
)

// RelativeTo selects which endpoint of the previous run a period is
// measured from.
type RelativeTo string

// Period reference points for StartOnCommand schedules.
const (
	RelativeToStart  RelativeTo = "start"
	RelativeToFinish RelativeTo = "finish"
)

// Periodic triggers at a fixed interval. Construct with NewPeriodic.
type Periodic struct {
	StartOn StartOn
	// Period is the interval in seconds between runs. Ignored for boot
	// and login schedules, which fire once per boot or login.
	Period int
	// RelativeTo measures the period from when the unit last started or
	// last finished. Only meaningful with StartOnCommand.
	RelativeTo RelativeTo
	// RestartRate overrides DefaultRestartRate when non-zero.
	RestartRate RestartRate
}

// NewPeriodic validates the trigger combination and returns the schedule.
// Boot and login schedules ignore period and relativeTo; command schedules
// require a positive period and a relativeTo, since without them the unit
// would never recur.
func NewPeriodic(startOn StartOn, period int, relativeTo RelativeTo) (*Periodic, error) {
	switch startOn {
	case StartOnBoot, StartOnLogin:
	case StartOnCommand:
		if relativeTo != RelativeToStart && relativeTo != RelativeToFinish {
			return nil, fmt.Errorf("periodic schedule with start on %q requires relative to %q or %q, got %q",
				startOn, RelativeToStart, RelativeToFinish, relativeTo)
		}
		if period <= 0 {
			return nil, fmt.Errorf("periodic schedule with start on %q requires a positive period, got %d",
				startOn, period)
		}
	default:
		return nil, fmt.Errorf("unknown start on value %q", startOn)
	}
	return &Periodic{StartOn: startOn, Period: period, RelativeTo: relativeTo}, nil
}

// Directives implements Schedule.
func (p *Periodic) Directives() []string {
	out := p.RestartRate.directives()
	out = append(out, "AccuracySec=1ms")
	switch {
	case p.StartOn == StartOnBoot:
		// start 1 second after boot.
		out = append(out, "OnBootSec=1")
	case p.StartOn == StartOnLogin:
		// start 1 second after the service manager is started.
		out = append(out, "OnStartupSec=1")
	case p.RelativeTo == RelativeToStart:
		out = append(out, fmt.Sprintf("OnUnitActiveSec=%ds", p.Period))
	case p.RelativeTo == RelativeToFinish:
		out = append(out, fmt.Sprintf("OnUnitInactiveSec=%ds", p.Period))
	}
	return out
}
