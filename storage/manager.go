package storage

import (
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/types"
)

var customBackendCreators = make(map[string]types.BackendCreator)

func RegisterBackend(backendName string, creator types.BackendCreator) {
	customBackendCreators[backendName] = creator
}

// NewManager builds the configured backend and wraps the store with
// operation metrics. A backend that cannot even be constructed degrades to
// the in-memory medium immediately rather than failing startup.
func NewManager(config types.ConfigManager, logger types.Logger, metrics types.MetricsManager, clock types.Clock) (types.StorageManager, error) {
	storageConfig := config.GetConfig().Storage
	if storageConfig == nil {
		return nil, types.ErrStorageIsDisabled
	}

	backend, err := newBackend(storageConfig)
	if err != nil {
		logger.Warn("Storage backend unavailable at startup, using memory",
			zap.String("type", storageConfig.Type),
			zap.Error(err))
		backend = NewMemoryBackend(storageConfig.Quota)
	}

	store := NewStore(storageConfig, logger, clock, backend)

	if metrics == nil {
		return store, nil
	}

	return newInstrumentedStorageManager(logger, metrics, store), nil
}

func newBackend(config *types.StorageConfig) (types.Backend, error) {
	switch config.Type {
	case "memory":
		return NewMemoryBackend(config.Quota), nil
	case "clover":
		return NewCloverBackend(config)
	case "redis":
		return NewRedisBackend(config)
	default:
		if creator, exists := customBackendCreators[config.Type]; exists {
			return creator(config)
		}
		return nil, types.Errorf(types.ErrStorageTypeUnknown, "type: %s", config.Type)
	}
}

type instrumentedStorageManager struct {
	impl    types.StorageManager
	logger  types.Logger
	metrics types.MetricsManager
}

func newInstrumentedStorageManager(logger types.Logger, metrics types.MetricsManager, impl types.StorageManager) types.StorageManager {
	return &instrumentedStorageManager{
		impl:    impl,
		logger:  logger,
		metrics: metrics,
	}
}

func (ism *instrumentedStorageManager) Get(key string, target interface{}) bool {
	start := time.Now()
	found := ism.impl.Get(key, target)
	duration := time.Since(start)

	result := "miss"
	if found {
		result = "hit"
	}

	ism.recordMetric("get", result, duration)
	return found
}

func (ism *instrumentedStorageManager) Set(key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := ism.impl.Set(key, value, ttl)
	duration := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
	}

	ism.recordMetric("set", result, duration)
	return err
}

func (ism *instrumentedStorageManager) Remove(key string) error {
	start := time.Now()
	err := ism.impl.Remove(key)
	duration := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
	}

	ism.recordMetric("remove", result, duration)
	return err
}

func (ism *instrumentedStorageManager) Clear() error {
	start := time.Now()
	err := ism.impl.Clear()
	duration := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
	}

	ism.recordMetric("clear", result, duration)
	return err
}

func (ism *instrumentedStorageManager) GetStorageInfo() (types.StorageInfo, error) {
	info, err := ism.impl.GetStorageInfo()
	if err == nil {
		ism.metrics.Gauge("storage_used_bytes", nil).Set(float64(info.UsedBytes))
		ism.metrics.Gauge("storage_item_count", nil).Set(float64(info.ItemCount))
	}
	return info, err
}

func (ism *instrumentedStorageManager) SetValidator(prefix string, validator types.EntryValidator) {
	ism.impl.SetValidator(prefix, validator)
}

func (ism *instrumentedStorageManager) Start() error {
	return ism.impl.Start()
}

func (ism *instrumentedStorageManager) Stop() error {
	return ism.impl.Stop()
}

func (ism *instrumentedStorageManager) IsRunning() bool {
	return ism.impl.IsRunning()
}

func (ism *instrumentedStorageManager) recordMetric(operation, result string, duration time.Duration) {
	opCounter := ism.metrics.Counter("storage_operations_total", map[string]string{
		"operation": operation,
		"result":    result,
	})
	opCounter.Inc()

	opDuration := ism.metrics.Histogram("storage_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	)
	opDuration.Observe(duration.Seconds())
}
