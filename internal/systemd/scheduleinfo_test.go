package systemd

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientScheduleInfo(t *testing.T) {
	var unitRequested, typeRequested string
	conn := &MockConnection{
		GetUnitPropertiesFunc: func(_ context.Context, unit string) (map[string]interface{}, error) {
			unitRequested = unit
			return map[string]interface{}{
				"LoadState":             "loaded",
				"ActiveEnterTimestamp":  uint64(1756100000000000),
				"InactiveExitTimestamp": uint64(1756099000000000),
				"StateChangeTimestamp":  uint64(0),
			}, nil
		},
		GetUnitTypePropertiesFunc: func(_ context.Context, _, unitType string) (map[string]interface{}, error) {
			typeRequested = unitType
			return map[string]interface{}{
				"NextElapseUSecRealtime": uint64(1756186400000000),
				"LastTriggerUSec":        uint64(0),
				"TimersMonotonic": [][]interface{}{
					{"OnUnitInactiveUSec", uint64(60000000), uint64(120000000)},
				},
				"TimersCalendar": [][]interface{}{
					{"OnCalendar", "Mon *-*-* 02:00:00", uint64(1756186400000000)},
				},
			}, nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	info, err := client.ScheduleInfo(context.Background(), "nightly export")
	require.NoError(t, err)
	assert.Equal(t, "taskflow-nightly_export.timer", unitRequested)
	assert.Equal(t, "Timer", typeRequested)
	assert.Equal(t, "taskflow-nightly_export.timer", info.Timer)

	require.NotNil(t, info.ActiveEnter)
	assert.Equal(t, time.UnixMicro(1756100000000000), *info.ActiveEnter)
	require.NotNil(t, info.InactiveExit)
	assert.Equal(t, time.UnixMicro(1756099000000000), *info.InactiveExit)
	assert.Nil(t, info.StateChange, "zero timestamps mean the event never happened")

	require.NotNil(t, info.NextElapse)
	assert.Equal(t, time.UnixMicro(1756186400000000), *info.NextElapse)
	assert.Nil(t, info.LastTrigger)

	require.Len(t, info.Monotonic, 1)
	assert.Equal(t, "OnUnitInactiveUSec", info.Monotonic[0].Base)
	assert.Equal(t, time.Minute, info.Monotonic[0].Offset)
	assert.Equal(t, 2*time.Minute, info.Monotonic[0].NextElapse)

	require.Len(t, info.Calendar, 1)
	assert.Equal(t, "OnCalendar", info.Calendar[0].Base)
	assert.Equal(t, "Mon *-*-* 02:00:00", info.Calendar[0].Expression)
	require.NotNil(t, info.Calendar[0].NextElapse)
	assert.Equal(t, time.UnixMicro(1756186400000000), *info.Calendar[0].NextElapse)
}

func TestClientScheduleInfoNormalizesNames(t *testing.T) {
	tests := []struct {
		name string
		give string
		want string
	}{
		{"bare name", "export", "taskflow-export.timer"},
		{"prefixed name", "taskflow-export", "taskflow-export.timer"},
		{"full timer name", "taskflow-export.timer", "taskflow-export.timer"},
		{"stop timer keeps its prefix", "stop-taskflow-export.timer", "stop-taskflow-export.timer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var unitRequested string
			conn := &MockConnection{
				GetUnitPropertiesFunc: func(_ context.Context, unit string) (map[string]interface{}, error) {
					unitRequested = unit
					return map[string]interface{}{"LoadState": "loaded"}, nil
				},
				GetUnitTypePropertiesFunc: func(_ context.Context, _, _ string) (map[string]interface{}, error) {
					return map[string]interface{}{}, nil
				},
			}
			client, _ := newTestClient(t, conn, true)

			info, err := client.ScheduleInfo(context.Background(), tt.give)
			require.NoError(t, err)
			assert.Equal(t, tt.want, unitRequested)
			assert.Equal(t, tt.want, info.Timer)
			assert.Nil(t, info.NextElapse)
			assert.Empty(t, info.Monotonic)
		})
	}
}

func TestClientScheduleInfoUnitNotFound(t *testing.T) {
	conn := &MockConnection{
		GetUnitPropertiesFunc: func(_ context.Context, _ string) (map[string]interface{}, error) {
			return map[string]interface{}{"LoadState": "not-found"}, nil
		},
	}
	client, _ := newTestClient(t, conn, true)

	_, err := client.ScheduleInfo(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsUnitNotFoundError(err))
}

func TestClientScheduleInfoTimerPropertiesFailure(t *testing.T) {
	conn := &MockConnection{
		GetUnitPropertiesFunc: func(_ context.Context, _ string) (map[string]interface{}, error) {
			return map[string]interface{}{"LoadState": "loaded"}, nil
		},
		GetUnitTypePropertiesFunc: func(_ context.Context, _, _ string) (map[string]interface{}, error) {
			return nil, fmt.Errorf("unknown interface")
		},
	}
	client, _ := newTestClient(t, conn, true)

	_, err := client.ScheduleInfo(context.Background(), "export")
	require.Error(t, err)
	assert.True(t, IsError(err))
	assert.Contains(t, err.Error(), "unknown interface")
}
