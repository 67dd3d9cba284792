package freshness

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/bus"
	"github.com/saiset-co/sai-freshness/config"
	"github.com/saiset-co/sai-freshness/health"
	"github.com/saiset-co/sai-freshness/logger"
	"github.com/saiset-co/sai-freshness/metrics"
	"github.com/saiset-co/sai-freshness/notify"
	"github.com/saiset-co/sai-freshness/scheduler"
	"github.com/saiset-co/sai-freshness/storage"
	"github.com/saiset-co/sai-freshness/types"
)

// Service is the composition root. It owns every manager, wires them
// together explicitly and starts them in dependency order. Optional
// components (metrics, scheduler, notifications) stay nil when their
// configuration disables them.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc

	configManager types.ConfigManager
	logger        types.Logger
	metrics       types.MetricsManager
	healthManager types.HealthManager
	eventBus      types.EventBus
	storage       types.StorageManager
	scheduler     types.SchedulerManager
	notifications types.NotificationManager

	clock    types.Clock
	notifier types.Notifier
	running  int32
}

type Option func(*Service)

// WithClock substitutes the time source, mainly for tests.
func WithClock(clock types.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithNotifier substitutes the host alerting adapter. The default renders
// notifications to the log.
func WithNotifier(notifier types.Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// New builds a fully wired service from a YAML config file. An empty path
// falls back to the built-in defaults.
func New(ctx context.Context, configPath string, options ...Option) (*Service, error) {
	configManager := config.NewManager(configPath)
	if err := configManager.Load(); err != nil {
		return nil, types.WrapError(err, "failed to load config")
	}

	return newFromManager(ctx, configManager, options...)
}

// NewFromConfig builds a service from configuration assembled in code.
func NewFromConfig(ctx context.Context, serviceConfig *types.ServiceConfig, options ...Option) (*Service, error) {
	configManager, err := config.NewManagerFromConfig(serviceConfig)
	if err != nil {
		return nil, err
	}

	return newFromManager(ctx, configManager, options...)
}

func newFromManager(ctx context.Context, configManager types.ConfigManager, options ...Option) (*Service, error) {
	serviceCtx, cancel := context.WithCancel(ctx)

	service := &Service{
		ctx:           serviceCtx,
		cancel:        cancel,
		configManager: configManager,
		clock:         types.SystemClock{},
	}

	for _, option := range options {
		option(service)
	}

	if err := service.buildComponents(); err != nil {
		cancel()
		return nil, err
	}

	return service, nil
}

func (s *Service) buildComponents() error {
	serviceLogger, err := logger.NewLogger(s.configManager.GetConfig().Logger)
	if err != nil {
		return types.WrapError(err, "failed to create logger")
	}
	s.logger = serviceLogger

	metricsManager, err := metrics.NewManager(s.ctx, s.configManager, s.logger)
	if err != nil {
		if !types.IsError(err, types.ErrMetricsDisabled) {
			return types.WrapError(err, "failed to create metrics manager")
		}
		s.logger.Info("Metrics disabled")
	}
	s.metrics = metricsManager

	healthManager, err := health.NewManager(s.ctx, s.configManager, s.logger)
	if err != nil {
		return types.WrapError(err, "failed to create health manager")
	}
	s.healthManager = healthManager

	s.eventBus = bus.NewEventBus(s.logger, s.metrics)

	storageManager, err := storage.NewManager(s.configManager, s.logger, s.metrics, s.clock)
	if err != nil {
		return types.WrapError(err, "failed to create storage manager")
	}
	s.storage = storageManager

	schedulerManager, err := scheduler.NewManager(s.ctx, s.configManager, s.logger, s.storage, s.eventBus, s.clock)
	if err != nil {
		if !types.IsError(err, types.ErrSchedulerIsDisabled) {
			return types.WrapError(err, "failed to create scheduler")
		}
		s.logger.Info("Scheduler disabled")
	}
	s.scheduler = schedulerManager

	if s.notifier == nil {
		s.notifier = notify.NewConsoleNotifier(s.logger)
	}

	notificationManager, err := notify.NewManager(s.ctx, s.configManager, s.logger, s.metrics, s.storage, s.eventBus, s.clock, s.notifier)
	if err != nil {
		if !types.IsError(err, types.ErrNotificationsDisabled) {
			return types.WrapError(err, "failed to create notification manager")
		}
		s.logger.Info("Notifications disabled")
	}
	s.notifications = notificationManager

	s.registerHealthCheckers()

	return nil
}

func (s *Service) registerHealthCheckers() {
	_ = s.healthManager.RegisterChecker("storage", func(ctx context.Context) error {
		_, err := s.storage.GetStorageInfo()
		return err
	})

	_ = s.healthManager.RegisterChecker("bus", func(ctx context.Context) error {
		if !s.eventBus.IsRunning() {
			return types.ErrBusNotRunning
		}
		return nil
	})
}

// Start brings every component up in dependency order. The first failure
// aborts startup and rolls back the components already running.
func (s *Service) Start() error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return types.ErrServiceAlreadyRunning
	}

	serviceConfig := s.configManager.GetConfig()
	s.logger.Info("Starting service",
		zap.String("name", serviceConfig.Name),
		zap.String("version", serviceConfig.Version))

	started := make([]types.LifecycleManager, 0, 6)
	for _, component := range s.components() {
		if err := component.manager.Start(); err != nil {
			s.logger.Error("Component start failed",
				zap.String("component", component.name),
				zap.Error(err))
			s.stopAll(started)
			atomic.StoreInt32(&s.running, 0)
			return types.Errorf(types.ErrComponentStartFailed, "component: %s: %v", component.name, err)
		}
		started = append(started, component.manager)
	}

	s.logger.Info("Service started")
	return nil
}

// Stop shuts components down in reverse start order, each with a bounded
// grace period.
func (s *Service) Stop() error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return types.ErrServiceNotRunning
	}

	s.logger.Info("Stopping service")

	components := s.components()
	managers := make([]types.LifecycleManager, 0, len(components))
	for _, component := range components {
		managers = append(managers, component.manager)
	}
	s.stopAll(managers)

	s.cancel()
	s.logger.Info("Service stopped gracefully")
	return nil
}

func (s *Service) IsRunning() bool {
	return atomic.LoadInt32(&s.running) == 1
}

// Run starts the service and blocks until the context is done, then stops.
func (s *Service) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	<-s.ctx.Done()
	return s.Stop()
}

type component struct {
	name    string
	manager types.LifecycleManager
}

// components lists startables in dependency order, skipping disabled ones.
func (s *Service) components() []component {
	components := make([]component, 0, 6)

	if s.metrics != nil {
		components = append(components, component{"metrics", s.metrics})
	}
	components = append(components, component{"health", s.healthManager})
	components = append(components, component{"bus", s.eventBus})
	components = append(components, component{"storage", s.storage})
	if s.scheduler != nil {
		components = append(components, component{"scheduler", s.scheduler})
	}
	if s.notifications != nil {
		components = append(components, component{"notifications", s.notifications})
	}

	return components
}

func (s *Service) stopAll(managers []types.LifecycleManager) {
	for i := len(managers) - 1; i >= 0; i-- {
		manager := managers[i]
		if !manager.IsRunning() {
			continue
		}

		done := make(chan error, 1)
		go func() {
			done <- manager.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				s.logger.Warn("Component stop failed", zap.Error(err))
			}
		case <-time.After(15 * time.Second):
			s.logger.Warn("Component stop timeout")
		}
	}
}

func (s *Service) Config() *types.ServiceConfig {
	return s.configManager.GetConfig()
}

func (s *Service) Logger() types.Logger {
	return s.logger
}

func (s *Service) Metrics() types.MetricsManager {
	return s.metrics
}

func (s *Service) Health() types.HealthManager {
	return s.healthManager
}

func (s *Service) Bus() types.EventBus {
	return s.eventBus
}

func (s *Service) Storage() types.StorageManager {
	return s.storage
}

func (s *Service) Scheduler() types.SchedulerManager {
	return s.scheduler
}

func (s *Service) Notifications() types.NotificationManager {
	return s.notifications
}
