package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

const lastShownKey = types.NamespaceNotify + "last_shown"

// Manager gates inbound notification requests, queues the survivors by
// priority and drains them one at a time with a small inter-item delay.
// Requests the gate rejects terminate as logged suppressions, never errors.
type Manager struct {
	ctx           context.Context
	cancel        context.CancelFunc
	config        *types.NotificationsConfig
	logger        types.Logger
	metrics       types.MetricsManager
	storage       types.StorageManager
	bus           types.EventBus
	clock         types.Clock
	notifier      types.Notifier
	settingsStore *SettingsStore

	settings   types.NotificationSettings
	permission types.Permission
	lastShown  map[string]time.Time
	active     map[string]types.ActiveNotification
	queue      *requestQueue
	wake       chan struct{}
	drainDone  chan struct{}
	mu         sync.RWMutex
	state      atomic.Value
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger, metrics types.MetricsManager, storage types.StorageManager, eventBus types.EventBus, clock types.Clock, notifier types.Notifier) (types.NotificationManager, error) {
	notifyConfig := config.GetConfig().Notifications
	if notifyConfig == nil || !notifyConfig.Enabled {
		return nil, types.ErrNotificationsDisabled
	}

	defaults := types.NotificationSettings{}
	if notifyConfig.Defaults != nil {
		defaults = *notifyConfig.Defaults
	}

	managerCtx, cancel := context.WithCancel(ctx)

	manager := &Manager{
		ctx:           managerCtx,
		cancel:        cancel,
		config:        notifyConfig,
		logger:        logger,
		metrics:       metrics,
		storage:       storage,
		bus:           eventBus,
		clock:         clock,
		notifier:      notifier,
		settingsStore: NewSettingsStore(storage, logger, defaults),
		permission:    types.PermissionDefault,
		lastShown:     make(map[string]time.Time),
		active:        make(map[string]types.ActiveNotification),
		queue:         newRequestQueue(),
		wake:          make(chan struct{}, 1),
		drainDone:     make(chan struct{}),
	}

	manager.state.Store(StateStopped)

	return manager, nil
}

func (m *Manager) Start() error {
	if !m.transitionState(StateStopped, StateStarting) {
		return types.ErrServiceAlreadyRunning
	}

	defer func() {
		if m.getState() == StateStarting {
			m.setState(StateRunning)
		}
	}()

	m.mu.Lock()
	m.settings = m.settingsStore.Load()
	m.restoreThrottleStateLocked()
	m.mu.Unlock()

	if m.notifier.Supported() {
		permCtx, cancel := context.WithTimeout(m.ctx, 5*time.Second)
		permission, err := m.notifier.RequestPermission(permCtx)
		cancel()

		if err != nil {
			m.logger.Warn("Permission request failed", zap.Error(err))
			permission = types.PermissionDenied
		}

		m.mu.Lock()
		m.permission = permission
		m.mu.Unlock()

		m.logger.Info("Notification permission resolved", zap.String("permission", string(permission)))
	} else {
		m.logger.Info("Host alerting not supported, all notifications will be suppressed")
	}

	go m.drainLoop()

	m.logger.Info("Notification manager started")
	return nil
}

func (m *Manager) Stop() error {
	if !m.transitionState(StateRunning, StateStopping) {
		return types.ErrServiceNotRunning
	}

	defer func() {
		m.setState(StateStopped)
	}()

	m.cancel()

	select {
	case <-m.drainDone:
	case <-time.After(5 * time.Second):
		m.logger.Warn("Drain loop stop timeout")
	}

	m.ClearAll()
	m.persistThrottleState()

	m.logger.Info("Notification manager stopped gracefully")
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.getState() == StateRunning
}

// Submit gates the request and either queues it or reports why it was
// suppressed. Severe requests are forced persistent and interactive so an
// extreme-weather alert is never auto-dismissed unseen.
func (m *Manager) Submit(request types.NotificationRequest) types.Outcome {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = m.clock.Now()
	}
	if request.Type == types.NotificationSevere {
		request.Persistent = true
		request.RequireInteraction = true
	}

	m.mu.RLock()
	input := GateInput{
		Settings:   m.settings,
		Supported:  m.notifier.Supported(),
		Permission: m.permission,
		Now:        m.clock.Now(),
		LastShown:  m.lastShown,
		Throttle:   m.config.Throttle,
	}
	m.mu.RUnlock()

	if reason := Evaluate(request, input); reason != types.SuppressNone {
		m.logger.Debug("Notification suppressed",
			zap.String("id", request.ID),
			zap.String("type", string(request.Type)),
			zap.String("reason", string(reason)))
		m.countOutcome(string(reason))
		return types.Outcome{Reason: reason}
	}

	m.queue.push(request)
	m.signalDrain()
	m.countOutcome("queued")

	m.logger.Debug("Notification queued",
		zap.String("id", request.ID),
		zap.String("type", string(request.Type)),
		zap.String("priority", request.Priority.String()))

	return types.Outcome{Queued: true}
}

func (m *Manager) Settings() types.NotificationSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

func (m *Manager) SaveSettings(settings types.NotificationSettings) error {
	if err := m.settingsStore.Save(settings); err != nil {
		return err
	}

	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()

	if err := m.bus.Publish(types.TopicSettingsChanged, settings); err != nil {
		m.logger.Debug("Settings change event not delivered", zap.Error(err))
	}

	return nil
}

func (m *Manager) ImportSettings(blob []byte) error {
	settings, err := m.settingsStore.Import(blob)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()

	return nil
}

func (m *Manager) Active() []types.ActiveNotification {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := make([]types.ActiveNotification, 0, len(m.active))
	for _, notification := range m.active {
		active = append(active, notification)
	}
	return active
}

func (m *Manager) ClearAll() {
	m.queue.clear()

	m.mu.Lock()
	handles := make([]types.NotificationHandle, 0, len(m.active))
	for _, notification := range m.active {
		handles = append(handles, notification.Handle)
	}
	m.active = make(map[string]types.ActiveNotification)
	m.mu.Unlock()

	for _, handle := range handles {
		_ = handle.Close()
	}
}

func (m *Manager) drainLoop() {
	defer close(m.drainDone)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.wake:
		}

		for {
			request, ok := m.queue.pop()
			if !ok {
				break
			}

			m.show(request)

			select {
			case <-m.ctx.Done():
				return
			case <-time.After(m.config.DrainDelay):
			}
		}
	}
}

func (m *Manager) show(request types.NotificationRequest) {
	handle, err := m.notifier.Show(m.ctx, request)
	if err != nil {
		m.logger.Error("Notification show failed",
			zap.String("id", request.ID),
			zap.Error(err))
		m.countOutcome("errored")
		return
	}

	shownAt := m.clock.Now()

	m.mu.Lock()
	m.lastShown[request.ThrottleTag()] = shownAt
	m.active[request.ID] = types.ActiveNotification{
		Request: request,
		Handle:  handle,
		ShownAt: shownAt,
	}
	m.mu.Unlock()

	m.persistThrottleState()
	m.countOutcome("shown")

	if err := m.bus.Publish(types.TopicNotificationShown, types.NotificationShownEvent{
		ID:   request.ID,
		Type: request.Type,
		Tag:  request.ThrottleTag(),
	}); err != nil {
		m.logger.Debug("Shown event not delivered", zap.Error(err))
	}

	go m.watch(request, handle)
}

// watch awaits the terminal event for a shown notification, auto-closing
// non-interactive items after the display timeout. Urgent items persist
// until dismissed.
func (m *Manager) watch(request types.NotificationRequest, handle types.NotificationHandle) {
	var autoClose *time.Timer
	if !request.RequireInteraction && request.Priority != types.PriorityUrgent {
		autoClose = time.AfterFunc(m.config.AutoCloseTimeout, func() {
			_ = handle.Close()
		})
	}

	var event types.NotificationEvent
	select {
	case event = <-handle.Events():
	case <-m.ctx.Done():
		event = types.NotificationEvent{Kind: types.NotificationClosed}
	}

	if autoClose != nil {
		autoClose.Stop()
	}

	m.mu.Lock()
	delete(m.active, request.ID)
	m.mu.Unlock()

	switch event.Kind {
	case types.NotificationClicked:
		if err := m.bus.Publish(types.TopicNotificationClick, types.NotificationClickEvent{
			Type: request.Type,
			Data: request.Data,
		}); err != nil {
			m.logger.Debug("Click event not delivered", zap.Error(err))
		}
	case types.NotificationErrored:
		m.logger.Error("Notification errored after show",
			zap.String("id", request.ID),
			zap.Error(event.Err))
	}
}

func (m *Manager) signalDrain() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) restoreThrottleStateLocked() {
	var lastShown map[string]time.Time
	if m.storage.Get(lastShownKey, &lastShown) && lastShown != nil {
		m.lastShown = lastShown
	}
}

// persistThrottleState is best-effort; losing it only makes throttling
// forget a window across restarts.
func (m *Manager) persistThrottleState() {
	m.mu.RLock()
	snapshot := make(map[string]time.Time, len(m.lastShown))
	for tag, shownAt := range m.lastShown {
		snapshot[tag] = shownAt
	}
	m.mu.RUnlock()

	if err := m.storage.Set(lastShownKey, snapshot, 0); err != nil {
		m.logger.Debug("Throttle state not persisted", zap.Error(err))
	}
}

func (m *Manager) countOutcome(outcome string) {
	if m.metrics == nil {
		return
	}
	m.metrics.Counter("notifications_total", map[string]string{
		"outcome": outcome,
	}).Inc()
}

func (m *Manager) getState() State {
	return m.state.Load().(State)
}

func (m *Manager) setState(newState State) bool {
	currentState := m.getState()
	return m.state.CompareAndSwap(currentState, newState)
}

func (m *Manager) transitionState(from, to State) bool {
	return m.state.CompareAndSwap(from, to)
}
