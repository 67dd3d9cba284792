package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/types"
)

// ConsoleNotifier renders notifications to the log. It always grants
// permission, which makes it useful for examples and headless hosts.
type ConsoleNotifier struct {
	logger types.Logger
}

func NewConsoleNotifier(logger types.Logger) types.Notifier {
	return &ConsoleNotifier{logger: logger}
}

func (c *ConsoleNotifier) Supported() bool {
	return true
}

func (c *ConsoleNotifier) RequestPermission(ctx context.Context) (types.Permission, error) {
	return types.PermissionGranted, nil
}

func (c *ConsoleNotifier) Show(ctx context.Context, request types.NotificationRequest) (types.NotificationHandle, error) {
	c.logger.Info("NOTIFICATION",
		zap.String("title", request.Title),
		zap.String("message", request.Message),
		zap.String("type", string(request.Type)),
		zap.String("priority", request.Priority.String()))

	return NewHandle(), nil
}

// Handle is a settle-once notification handle. Host notifier adapters call
// Clicked/Errored from their native callbacks; Close settles as closed if
// nothing else happened first.
type Handle struct {
	events chan types.NotificationEvent
	once   sync.Once
}

func NewHandle() *Handle {
	return &Handle{
		events: make(chan types.NotificationEvent, 1),
	}
}

func (h *Handle) Events() <-chan types.NotificationEvent {
	return h.events
}

func (h *Handle) Close() error {
	h.settle(types.NotificationEvent{Kind: types.NotificationClosed})
	return nil
}

func (h *Handle) Clicked() {
	h.settle(types.NotificationEvent{Kind: types.NotificationClicked})
}

func (h *Handle) Errored(err error) {
	h.settle(types.NotificationEvent{Kind: types.NotificationErrored, Err: err})
}

func (h *Handle) settle(event types.NotificationEvent) {
	h.once.Do(func() {
		h.events <- event
		close(h.events)
	})
}
