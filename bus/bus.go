package bus

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/types"
)

type subscription struct {
	id      uint64
	handler types.EventHandler
}

// EventBus is a typed in-process dispatcher linking the scheduler and
// notification gate to their collaborators. Handlers run synchronously in
// subscribe order within the publishing call; a panicking handler is
// recovered and logged without affecting the others.
type EventBus struct {
	logger      types.Logger
	metrics     types.MetricsManager
	subscribers map[types.Topic][]subscription
	nextID      uint64
	mu          sync.RWMutex
	running     int32
}

func NewEventBus(logger types.Logger, metrics types.MetricsManager) types.EventBus {
	return &EventBus{
		logger:      logger,
		metrics:     metrics,
		subscribers: make(map[types.Topic][]subscription),
	}
}

func (b *EventBus) Start() error {
	if !atomic.CompareAndSwapInt32(&b.running, 0, 1) {
		return types.ErrServiceAlreadyRunning
	}

	b.logger.Info("Event bus started")
	return nil
}

func (b *EventBus) Stop() error {
	if !atomic.CompareAndSwapInt32(&b.running, 1, 0) {
		return types.ErrServiceNotRunning
	}

	b.mu.Lock()
	b.subscribers = make(map[types.Topic][]subscription)
	b.mu.Unlock()

	b.logger.Info("Event bus stopped gracefully")
	return nil
}

func (b *EventBus) IsRunning() bool {
	return atomic.LoadInt32(&b.running) == 1
}

func (b *EventBus) Publish(topic types.Topic, payload interface{}) error {
	if topic == "" {
		return types.ErrBusTopicEmpty
	}

	if !b.IsRunning() {
		return types.ErrBusNotRunning
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers[topic]))
	copy(subs, b.subscribers[topic])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.invoke(topic, sub, payload)
	}

	if b.metrics != nil {
		b.metrics.Counter("bus_events_published_total", map[string]string{
			"topic": string(topic),
		}).Inc()
	}

	b.logger.Debug("Event published",
		zap.String("topic", string(topic)),
		zap.Int("subscribers", len(subs)))

	return nil
}

func (b *EventBus) Subscribe(topic types.Topic, handler types.EventHandler) (func(), error) {
	if topic == "" {
		return nil, types.ErrBusTopicEmpty
	}

	if handler == nil {
		return nil, types.ErrBusHandlerIsNil
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[topic] = append(b.subscribers[topic], subscription{id: id, handler: handler})
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[topic]
		for i, sub := range subs {
			if sub.id == id {
				b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return unsubscribe, nil
}

func (b *EventBus) invoke(topic types.Topic, sub subscription, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("topic", string(topic)),
				zap.Any("panic", r))
		}
	}()

	sub.handler(payload)
}
