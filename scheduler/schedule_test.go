package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-freshness/types"
)

func TestGenerateScheduleSkipsInactiveWidgets(t *testing.T) {
	now := time.UnixMilli(0)

	schedule := GenerateSchedule([]types.WidgetConfig{
		{ID: "active", Enabled: true, Interval: 5 * time.Minute},
		{ID: "disabled", Enabled: false, Interval: 5 * time.Minute},
		{ID: "no-interval", Enabled: true, Interval: 0},
	}, now)

	require.Len(t, schedule, 1)

	entry := schedule["active"]
	assert.Equal(t, "active", entry.WidgetID)
	assert.Equal(t, now, entry.LastRefresh)
	assert.Equal(t, now.Add(5*time.Minute), entry.NextRefresh)
}

func TestIsDueAtBoundary(t *testing.T) {
	start := time.UnixMilli(0)
	schedule := GenerateSchedule([]types.WidgetConfig{
		{ID: "w", Enabled: true, Interval: 5 * time.Minute},
	}, start)

	assert.False(t, IsDue("w", schedule, start.Add(5*time.Minute-time.Millisecond)))
	assert.True(t, IsDue("w", schedule, start.Add(5*time.Minute)))
	assert.False(t, IsDue("untracked", schedule, start.Add(time.Hour)))
}

func TestMarkRefreshedAdvancesCycle(t *testing.T) {
	start := time.UnixMilli(0)
	widgets := map[string]types.WidgetConfig{
		"w": {ID: "w", Enabled: true, Interval: 5 * time.Minute},
	}
	schedule := GenerateSchedule([]types.WidgetConfig{widgets["w"]}, start)

	refreshedAt := start.Add(5 * time.Minute)
	MarkRefreshed("w", schedule, widgets, refreshedAt)

	entry := schedule["w"]
	assert.Equal(t, refreshedAt, entry.LastRefresh)
	assert.Equal(t, start.Add(10*time.Minute), entry.NextRefresh)
}

func TestMarkRefreshedPicksUpIntervalChange(t *testing.T) {
	start := time.UnixMilli(0)
	widgets := map[string]types.WidgetConfig{
		"w": {ID: "w", Enabled: true, Interval: 5 * time.Minute},
	}
	schedule := GenerateSchedule([]types.WidgetConfig{widgets["w"]}, start)

	// The interval change applies from the next completed refresh on.
	widgets["w"] = types.WidgetConfig{ID: "w", Enabled: true, Interval: 15 * time.Minute}

	refreshedAt := start.Add(5 * time.Minute)
	MarkRefreshed("w", schedule, widgets, refreshedAt)

	entry := schedule["w"]
	assert.Equal(t, 15*time.Minute, entry.Interval)
	assert.Equal(t, refreshedAt.Add(15*time.Minute), entry.NextRefresh)
}

func TestMarkRefreshedUntrackedIsNoop(t *testing.T) {
	schedule := map[string]types.RefreshSchedule{}
	MarkRefreshed("ghost", schedule, nil, time.UnixMilli(0))
	assert.Empty(t, schedule)
}

func TestDueWidgets(t *testing.T) {
	start := time.UnixMilli(0)
	schedule := GenerateSchedule([]types.WidgetConfig{
		{ID: "fast", Enabled: true, Interval: time.Minute},
		{ID: "slow", Enabled: true, Interval: time.Hour},
	}, start)

	due := DueWidgets(schedule, start.Add(2*time.Minute))
	require.Len(t, due, 1)
	assert.Equal(t, "fast", due[0])
}
