package scheduler

import (
	"time"

	"github.com/saiset-co/sai-freshness/types"
)

// GenerateSchedule creates refresh bookkeeping for every enabled widget with
// a positive interval. Disabled or interval-less widgets are omitted and so
// never considered due.
func GenerateSchedule(widgets []types.WidgetConfig, now time.Time) map[string]types.RefreshSchedule {
	schedule := make(map[string]types.RefreshSchedule, len(widgets))

	for _, widget := range widgets {
		if !widget.Enabled || widget.Interval <= 0 {
			continue
		}

		schedule[widget.ID] = types.RefreshSchedule{
			WidgetID:    widget.ID,
			Interval:    widget.Interval,
			LastRefresh: now,
			NextRefresh: now.Add(widget.Interval),
		}
	}

	return schedule
}

// IsDue reports whether the widget's next refresh time has arrived.
// Untracked widgets are never due.
func IsDue(id string, schedule map[string]types.RefreshSchedule, now time.Time) bool {
	entry, tracked := schedule[id]
	if !tracked {
		return false
	}

	return !now.Before(entry.NextRefresh)
}

// MarkRefreshed records a completed refresh. The interval is re-read from
// the live widget config so an interval change applies to the next cycle
// rather than retroactively. Marking an untracked widget is a no-op.
func MarkRefreshed(id string, schedule map[string]types.RefreshSchedule, widgets map[string]types.WidgetConfig, now time.Time) {
	entry, tracked := schedule[id]
	if !tracked {
		return
	}

	interval := entry.Interval
	if widget, exists := widgets[id]; exists && widget.Interval > 0 {
		interval = widget.Interval
	}

	entry.Interval = interval
	entry.LastRefresh = now
	entry.NextRefresh = now.Add(interval)
	schedule[id] = entry
}

// DueWidgets returns every tracked widget that is due at now, in no
// particular order.
func DueWidgets(schedule map[string]types.RefreshSchedule, now time.Time) []string {
	var due []string
	for id := range schedule {
		if IsDue(id, schedule, now) {
			due = append(due, id)
		}
	}
	return due
}
