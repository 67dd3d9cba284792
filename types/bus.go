package types

type Topic string

const (
	TopicRefreshDue        Topic = "refresh.due"
	TopicNotificationClick Topic = "notification.click"
	TopicNotificationShown Topic = "notification.shown"
	TopicSettingsChanged   Topic = "settings.changed"
)

// RefreshDueEvent is published by the scheduler once per poll tick for every
// widget whose cached data has exceeded its refresh interval.
type RefreshDueEvent struct {
	WidgetID string `json:"widget_id"`
}

type NotificationClickEvent struct {
	Type NotificationType       `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

type NotificationShownEvent struct {
	ID   string           `json:"id"`
	Type NotificationType `json:"type"`
	Tag  string           `json:"tag"`
}

type EventHandler func(payload interface{})

// EventBus is a typed in-process pub/sub link between the core components
// and their collaborators. Handlers run synchronously in subscribe order.
type EventBus interface {
	LifecycleManager
	Publish(topic Topic, payload interface{}) error
	Subscribe(topic Topic, handler EventHandler) (unsubscribe func(), err error)
}
