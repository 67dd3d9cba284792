package metrics

import (
	"context"
	"sync"

	"github.com/saiset-co/sai-freshness/types"
)

var customMetricsCreators = sync.Map{}

type MetricsManagerCreator func(config *types.MetricsConfig) (types.MetricsManager, error)

func RegisterMetricsManager(metricsManagerName string, creator MetricsManagerCreator) {
	customMetricsCreators.Store(metricsManagerName, creator)
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger) (types.MetricsManager, error) {
	metricsConfig := config.GetConfig().Metrics

	if metricsConfig == nil || !metricsConfig.Enabled {
		return nil, types.ErrMetricsDisabled
	}

	switch metricsConfig.Type {
	case "prometheus":
		return NewPrometheusMetrics(ctx, logger, metricsConfig)
	case "memory":
		return NewMemoryMetrics(logger), nil
	default:
		if creator, exists := customMetricsCreators.Load(metricsConfig.Type); exists {
			return creator.(MetricsManagerCreator)(metricsConfig)
		}
		return nil, types.Errorf(types.ErrMetricsUnknown, "type: %s", metricsConfig.Type)
	}
}
