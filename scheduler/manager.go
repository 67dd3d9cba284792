package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
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

const (
	widgetsKey  = types.NamespaceWidgets + "config"
	scheduleKey = types.NamespaceWidgets + "schedule"
)

// Manager polls tracked widgets on a single coarse cadence and raises a
// refresh-due event once per poll tick for every due widget. A second,
// independent autosave job persists the widget configuration whether or not
// it changed, for crash resilience.
type Manager struct {
	ctx      context.Context
	cancel   context.CancelFunc
	config   *types.SchedulerConfig
	logger   types.Logger
	storage  types.StorageManager
	bus      types.EventBus
	clock    types.Clock
	cron     *cron.Cron
	widgets  map[string]types.WidgetConfig
	schedule map[string]types.RefreshSchedule
	mu       sync.RWMutex
	state    atomic.Value
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger, storage types.StorageManager, eventBus types.EventBus, clock types.Clock) (types.SchedulerManager, error) {
	schedulerConfig := config.GetConfig().Scheduler
	if schedulerConfig == nil || !schedulerConfig.Enabled {
		return nil, types.ErrSchedulerIsDisabled
	}

	timezone, err := time.LoadLocation(schedulerConfig.Timezone)
	if err != nil {
		timezone = time.UTC
	}

	managerCtx, cancel := context.WithCancel(ctx)

	manager := &Manager{
		ctx:      managerCtx,
		cancel:   cancel,
		config:   schedulerConfig,
		logger:   logger,
		storage:  storage,
		bus:      eventBus,
		clock:    clock,
		widgets:  make(map[string]types.WidgetConfig),
		schedule: make(map[string]types.RefreshSchedule),
		cron: cron.New(
			cron.WithLocation(timezone),
			cron.WithChain(cron.Recover(cronLogger{logger: logger})),
		),
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

	m.restore()

	if _, err := m.cron.AddFunc(everySpec(m.config.PollInterval), m.pollOnce); err != nil {
		m.setState(StateStopped)
		return types.WrapError(err, "failed to schedule poll job")
	}

	if _, err := m.cron.AddFunc(everySpec(m.config.AutosaveInterval), m.persist); err != nil {
		m.setState(StateStopped)
		return types.WrapError(err, "failed to schedule autosave job")
	}

	m.cron.Start()

	m.logger.Info("Scheduler started",
		zap.Duration("poll_interval", m.config.PollInterval),
		zap.Duration("autosave_interval", m.config.AutosaveInterval))

	return nil
}

func (m *Manager) Stop() error {
	if !m.transitionState(StateRunning, StateStopping) {
		return types.ErrServiceNotRunning
	}

	defer func() {
		m.setState(StateStopped)
		m.cancel()
	}()

	stopCtx := m.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-time.After(10 * time.Second):
		m.logger.Warn("Scheduler stop timeout, a poll job may still be running")
	}

	m.persist()
	m.logger.Info("Scheduler stopped gracefully")
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.getState() == StateRunning
}

func (m *Manager) RegisterWidget(widget types.WidgetConfig) {
	if widget.ID == "" {
		return
	}

	now := m.clock.Now()

	m.mu.Lock()
	m.widgets[widget.ID] = widget

	if widget.Enabled && widget.Interval > 0 {
		m.schedule[widget.ID] = types.RefreshSchedule{
			WidgetID:    widget.ID,
			Interval:    widget.Interval,
			LastRefresh: now,
			NextRefresh: now.Add(widget.Interval),
		}
	} else {
		delete(m.schedule, widget.ID)
	}
	m.mu.Unlock()

	m.persist()

	m.logger.Debug("Widget registered",
		zap.String("widget_id", widget.ID),
		zap.Bool("enabled", widget.Enabled),
		zap.Duration("interval", widget.Interval))
}

func (m *Manager) RemoveWidget(id string) {
	m.mu.Lock()
	delete(m.widgets, id)
	delete(m.schedule, id)
	m.mu.Unlock()

	m.persist()

	m.logger.Debug("Widget removed", zap.String("widget_id", id))
}

func (m *Manager) MarkRefreshed(id string) {
	now := m.clock.Now()

	m.mu.Lock()
	MarkRefreshed(id, m.schedule, m.widgets, now)
	m.mu.Unlock()
}

func (m *Manager) Schedule() map[string]types.RefreshSchedule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make(map[string]types.RefreshSchedule, len(m.schedule))
	for id, entry := range m.schedule {
		snapshot[id] = entry
	}
	return snapshot
}

func (m *Manager) Widgets() []types.WidgetConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	widgets := make([]types.WidgetConfig, 0, len(m.widgets))
	for _, widget := range m.widgets {
		widgets = append(widgets, widget)
	}
	return widgets
}

func (m *Manager) pollOnce() {
	now := m.clock.Now()

	m.mu.RLock()
	due := DueWidgets(m.schedule, now)
	m.mu.RUnlock()

	for _, id := range due {
		if err := m.bus.Publish(types.TopicRefreshDue, types.RefreshDueEvent{WidgetID: id}); err != nil {
			m.logger.Error("Failed to publish refresh-due event",
				zap.String("widget_id", id),
				zap.Error(err))
		}
	}

	if len(due) > 0 {
		m.logger.Debug("Poll tick completed", zap.Int("due_widgets", len(due)))
	}
}

// persist writes the widget config and schedule every autosave tick
// regardless of whether anything changed.
func (m *Manager) persist() {
	m.mu.RLock()
	widgets := make(map[string]types.WidgetConfig, len(m.widgets))
	for id, widget := range m.widgets {
		widgets[id] = widget
	}
	schedule := make(map[string]types.RefreshSchedule, len(m.schedule))
	for id, entry := range m.schedule {
		schedule[id] = entry
	}
	m.mu.RUnlock()

	if err := m.storage.Set(widgetsKey, widgets, 0); err != nil {
		m.logger.Warn("Widget config autosave failed", zap.Error(err))
	}

	if err := m.storage.Set(scheduleKey, schedule, 0); err != nil {
		m.logger.Warn("Schedule autosave failed", zap.Error(err))
	}
}

// restore reloads persisted state. A corrupt or missing schedule is rebuilt
// from the widget config rather than treated as an error.
func (m *Manager) restore() {
	var widgets map[string]types.WidgetConfig
	if !m.storage.Get(widgetsKey, &widgets) || widgets == nil {
		return
	}

	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.widgets = widgets

	var schedule map[string]types.RefreshSchedule
	if m.storage.Get(scheduleKey, &schedule) && schedule != nil && schedulesValid(schedule) {
		for id, entry := range schedule {
			widget, exists := m.widgets[id]
			if exists && widget.Enabled && widget.Interval > 0 {
				m.schedule[id] = entry
			}
		}
		return
	}

	configs := make([]types.WidgetConfig, 0, len(widgets))
	for _, widget := range widgets {
		configs = append(configs, widget)
	}
	m.schedule = GenerateSchedule(configs, now)
}

func schedulesValid(schedule map[string]types.RefreshSchedule) bool {
	for id, entry := range schedule {
		if entry.WidgetID != id || entry.Interval <= 0 {
			return false
		}
		if !entry.NextRefresh.Equal(entry.LastRefresh.Add(entry.Interval)) {
			return false
		}
	}
	return true
}

func everySpec(interval time.Duration) string {
	if interval <= 0 {
		interval = time.Minute
	}
	return fmt.Sprintf("@every %s", interval)
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

type cronLogger struct {
	logger types.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
