package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-freshness/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// Manager evaluates registered checkers on a fixed interval and keeps the
// latest result per component.
type Manager struct {
	ctx          context.Context
	cancel       context.CancelFunc
	config       *types.HealthConfig
	logger       types.Logger
	checkers     map[string]types.HealthChecker
	results      map[string]types.HealthCheck
	checkTimeout time.Duration
	loopDone     chan struct{}
	mu           sync.RWMutex
	state        atomic.Value
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger) (types.HealthManager, error) {
	healthConfig := config.GetConfig().Health
	if healthConfig == nil {
		healthConfig = &types.HealthConfig{Enabled: true, CheckInterval: 30 * time.Second}
	}

	managerCtx, cancel := context.WithCancel(ctx)

	manager := &Manager{
		ctx:          managerCtx,
		cancel:       cancel,
		config:       healthConfig,
		logger:       logger,
		checkers:     make(map[string]types.HealthChecker),
		results:      make(map[string]types.HealthCheck),
		checkTimeout: 5 * time.Second,
		loopDone:     make(chan struct{}),
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

	if m.config.Enabled {
		go m.checkLoop()
	} else {
		close(m.loopDone)
	}

	m.logger.Info("Health manager started")
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
	case <-m.loopDone:
	case <-time.After(5 * time.Second):
		m.logger.Warn("Health check loop stop timeout")
	}

	m.logger.Info("Health manager stopped gracefully")
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.getState() == StateRunning
}

func (m *Manager) RegisterChecker(name string, checker types.HealthChecker) error {
	if checker == nil {
		return types.ErrHealthCheckEmpty
	}

	m.mu.Lock()
	m.checkers[name] = checker
	m.mu.Unlock()

	return nil
}

func (m *Manager) Status() map[string]types.HealthCheck {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]types.HealthCheck, len(m.results))
	for name, result := range m.results {
		status[name] = result
	}
	return status
}

func (m *Manager) Overall() types.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.results) == 0 {
		return types.HealthStatusHealthy
	}

	unhealthy := 0
	for _, result := range m.results {
		if result.Status == types.HealthStatusUnhealthy {
			unhealthy++
		}
	}

	switch {
	case unhealthy == 0:
		return types.HealthStatusHealthy
	case unhealthy < len(m.results):
		return types.HealthStatusDegraded
	default:
		return types.HealthStatusUnhealthy
	}
}

func (m *Manager) checkLoop() {
	defer close(m.loopDone)

	interval := m.config.CheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.runChecks()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.runChecks()
		}
	}
}

func (m *Manager) runChecks() {
	m.mu.RLock()
	checkers := make(map[string]types.HealthChecker, len(m.checkers))
	for name, checker := range m.checkers {
		checkers[name] = checker
	}
	m.mu.RUnlock()

	group, groupCtx := errgroup.WithContext(m.ctx)

	for name, checker := range checkers {
		name, checker := name, checker
		group.Go(func() error {
			checkCtx, cancel := context.WithTimeout(groupCtx, m.checkTimeout)
			err := checker(checkCtx)
			cancel()

			result := types.HealthCheck{
				Name:      name,
				Status:    types.HealthStatusHealthy,
				CheckedAt: time.Now(),
			}
			if err != nil {
				result.Status = types.HealthStatusUnhealthy
				result.Error = err.Error()
				m.logger.Warn("Health check failed",
					zap.String("component", name),
					zap.Error(err))
			}

			m.mu.Lock()
			m.results[name] = result
			m.mu.Unlock()
			return nil
		})
	}

	_ = group.Wait()
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
