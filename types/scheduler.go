package types

import (
	"time"
)

// WidgetConfig describes one tracked entity. A disabled widget or one with a
// non-positive interval is never considered due.
type WidgetConfig struct {
	ID       string        `json:"id" yaml:"id"`
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// RefreshSchedule tracks refresh bookkeeping for a single widget.
// Invariant: NextRefresh == LastRefresh + Interval.
type RefreshSchedule struct {
	WidgetID    string        `json:"widget_id"`
	Interval    time.Duration `json:"interval"`
	LastRefresh time.Time     `json:"last_refresh"`
	NextRefresh time.Time     `json:"next_refresh"`
}

type SchedulerManager interface {
	LifecycleManager

	// RegisterWidget starts (or restarts) tracking for the widget. Disabled
	// widgets and non-positive intervals are silently excluded from due
	// consideration rather than rejected.
	RegisterWidget(widget WidgetConfig)

	RemoveWidget(id string)

	// MarkRefreshed records a completed refresh, advancing the widget's next
	// due time. The interval is re-read from the live widget config so
	// interval changes take effect on the following cycle.
	MarkRefreshed(id string)

	Schedule() map[string]RefreshSchedule
	Widgets() []WidgetConfig
}
