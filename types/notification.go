package types

import (
	"context"
	"time"
)

type NotificationType string

const (
	NotificationSevere      NotificationType = "severe"
	NotificationTemperature NotificationType = "temperature"
	NotificationRain        NotificationType = "rain"
	NotificationUV          NotificationType = "uv"
	NotificationAirQuality  NotificationType = "air_quality"
	NotificationDaily       NotificationType = "daily"
)

type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}

func ParsePriority(s string) Priority {
	switch s {
	case "urgent":
		return PriorityUrgent
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityNormal
	}
}

type SuppressReason string

const (
	SuppressNone         SuppressReason = ""
	SuppressNoPermission SuppressReason = "no_permission"
	SuppressTypeDisabled SuppressReason = "type_disabled"
	SuppressQuietHours   SuppressReason = "quiet_hours"
	SuppressThrottled    SuppressReason = "throttled"
)

// NotificationRequest is a single inbound alert. Tag is the throttle/dedup
// key and defaults to the type when empty.
type NotificationRequest struct {
	ID                 string                 `json:"id"`
	Type               NotificationType       `json:"type"`
	Priority           Priority               `json:"priority"`
	Title              string                 `json:"title"`
	Message            string                 `json:"message"`
	Tag                string                 `json:"tag"`
	Persistent         bool                   `json:"persistent"`
	RequireInteraction bool                   `json:"require_interaction"`
	Data               map[string]interface{} `json:"data,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}

func (r *NotificationRequest) ThrottleTag() string {
	if r.Tag != "" {
		return r.Tag
	}
	return string(r.Type)
}

// Outcome reports what the gate decided for a submitted request. A
// suppression is a normal outcome, never an error.
type Outcome struct {
	Queued bool
	Reason SuppressReason
}

type QuietHoursConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Start   string `json:"start" yaml:"start"`
	End     string `json:"end" yaml:"end"`
}

type AlertThresholds struct {
	TemperatureHigh float64 `json:"temperature_high" yaml:"temperature_high"`
	TemperatureLow  float64 `json:"temperature_low" yaml:"temperature_low"`
	RainProbability float64 `json:"rain_probability" yaml:"rain_probability" validate:"min=0,max=100"`
	UVIndex         float64 `json:"uv_index" yaml:"uv_index" validate:"min=0"`
	AQI             int     `json:"aqi" yaml:"aqi" validate:"min=0"`
}

// NotificationSettings enumerates every recognized option. Loaded once at
// startup, mutated only through SaveSettings, persisted synchronously on
// every mutation.
type NotificationSettings struct {
	Enabled    bool                      `json:"enabled" yaml:"enabled"`
	Types      map[NotificationType]bool `json:"types" yaml:"types"`
	QuietHours QuietHoursConfig          `json:"quiet_hours" yaml:"quiet_hours"`
	Thresholds AlertThresholds           `json:"thresholds" yaml:"thresholds"`
	Sound      bool                      `json:"sound" yaml:"sound"`
	Vibrate    bool                      `json:"vibrate" yaml:"vibrate"`
}

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

type NotificationEventKind int

const (
	NotificationClicked NotificationEventKind = iota
	NotificationClosed
	NotificationErrored
)

type NotificationEvent struct {
	Kind NotificationEventKind
	Err  error
}

// NotificationHandle settles exactly once with the terminal event for a
// shown notification, replacing callback-order branching with an awaitable
// channel.
type NotificationHandle interface {
	Events() <-chan NotificationEvent
	Close() error
}

// Notifier wraps the host alert capability.
type Notifier interface {
	Supported() bool
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, request NotificationRequest) (NotificationHandle, error)
}

type ActiveNotification struct {
	Request NotificationRequest
	Handle  NotificationHandle
	ShownAt time.Time
}

type NotificationManager interface {
	LifecycleManager

	// Submit gates the request and either queues it for display or reports
	// the suppression reason.
	Submit(request NotificationRequest) Outcome

	Settings() NotificationSettings
	SaveSettings(settings NotificationSettings) error
	ImportSettings(blob []byte) error

	Active() []ActiveNotification
	ClearAll()
}
