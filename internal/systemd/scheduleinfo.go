package systemd

import (
	"context"
	"time"

	"github.com/taskflows/taskflows/internal/naming"
)

// TimerBase describes one monotonic trigger configured on a timer unit.
type TimerBase struct {
	Base       string
	Offset     time.Duration
	NextElapse time.Duration
}

// CalendarTrigger describes one calendar expression configured on a
// timer unit.
type CalendarTrigger struct {
	Base       string
	Expression string
	NextElapse *time.Time
}

// ScheduleInfo reports the run history and upcoming activations of a
// scheduled service's timer unit. Nil timestamps mean the event never
// happened.
type ScheduleInfo struct {
	Timer        string
	ActiveEnter  *time.Time
	InactiveExit *time.Time
	StateChange  *time.Time
	NextElapse   *time.Time
	LastTrigger  *time.Time
	Monotonic    []TimerBase
	Calendar     []CalendarTrigger
}

// ScheduleInfo reads the timing properties of the timer behind name. The
// name may be a bare service name; it is normalized to the managed timer
// unit first.
func (c *Client) ScheduleInfo(ctx context.Context, name string) (*ScheduleInfo, error) {
	timer := naming.NormalizeTimer(name)
	info := &ScheduleInfo{Timer: timer}
	err := c.withConnection(ctx, func(conn Connection) error {
		unitProps, err := conn.GetUnitProperties(ctx, timer)
		if err != nil {
			return NewError("schedule-info", timer, err)
		}
		if state, _ := unitProps["LoadState"].(string); state == "not-found" {
			return NewUnitNotFoundError(timer)
		}
		info.ActiveEnter = usecTimestamp(unitProps, "ActiveEnterTimestamp")
		info.InactiveExit = usecTimestamp(unitProps, "InactiveExitTimestamp")
		info.StateChange = usecTimestamp(unitProps, "StateChangeTimestamp")

		timerProps, err := conn.GetUnitTypeProperties(ctx, timer, "Timer")
		if err != nil {
			return NewError("schedule-info", timer, err)
		}
		info.NextElapse = usecTimestamp(timerProps, "NextElapseUSecRealtime")
		info.LastTrigger = usecTimestamp(timerProps, "LastTriggerUSec")
		info.Monotonic = monotonicTimers(timerProps["TimersMonotonic"])
		info.Calendar = calendarTimers(timerProps["TimersCalendar"])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// usecTimestamp reads a manager timestamp property. The manager reports
// timestamps as microseconds since the epoch with 0 meaning never.
func usecTimestamp(props map[string]interface{}, key string) *time.Time {
	usec, ok := props[key].(uint64)
	if !ok || usec == 0 {
		return nil
	}
	t := time.UnixMicro(int64(usec))
	return &t
}

func monotonicTimers(value interface{}) []TimerBase {
	rows, ok := value.([][]interface{})
	if !ok {
		return nil
	}
	timers := make([]TimerBase, 0, len(rows))
	for _, row := range rows {
		if len(row) != 3 {
			continue
		}
		base, _ := row[0].(string)
		offset, _ := row[1].(uint64)
		next, _ := row[2].(uint64)
		timers = append(timers, TimerBase{
			Base:       base,
			Offset:     time.Duration(offset) * time.Microsecond,
			NextElapse: time.Duration(next) * time.Microsecond,
		})
	}
	return timers
}

func calendarTimers(value interface{}) []CalendarTrigger {
	rows, ok := value.([][]interface{})
	if !ok {
		return nil
	}
	triggers := make([]CalendarTrigger, 0, len(rows))
	for _, row := range rows {
		if len(row) != 3 {
			continue
		}
		base, _ := row[0].(string)
		expression, _ := row[1].(string)
		trigger := CalendarTrigger{Base: base, Expression: expression}
		if next, _ := row[2].(uint64); next > 0 {
			t := time.UnixMicro(int64(next))
			trigger.NextElapse = &t
		}
		triggers = append(triggers, trigger)
	}
	return triggers
}
