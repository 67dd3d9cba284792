package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/logger"
)

func TestMemoryCounterSeries(t *testing.T) {
	manager := NewMemoryMetrics(logger.NewZapWrapper(zap.NewNop()))
	recorder := manager.(*MemoryMetrics)

	labels := map[string]string{"operation": "get", "result": "hit"}
	manager.Counter("storage_operations_total", labels).Inc()
	manager.Counter("storage_operations_total", labels).Add(2)

	assert.Equal(t, float64(3), recorder.CounterValue("storage_operations_total", labels))
	assert.Equal(t, float64(0), recorder.CounterValue("storage_operations_total", map[string]string{"operation": "set"}))
}

func TestMemorySeriesKeyIsLabelOrderInsensitive(t *testing.T) {
	manager := NewMemoryMetrics(logger.NewZapWrapper(zap.NewNop()))
	recorder := manager.(*MemoryMetrics)

	manager.Counter("hits", map[string]string{"a": "1", "b": "2"}).Inc()
	manager.Counter("hits", map[string]string{"b": "2", "a": "1"}).Inc()

	assert.Equal(t, float64(2), recorder.CounterValue("hits", map[string]string{"a": "1", "b": "2"}))
}

func TestMemoryLifecycle(t *testing.T) {
	manager := NewMemoryMetrics(logger.NewZapWrapper(zap.NewNop()))

	require.NoError(t, manager.Start())
	assert.True(t, manager.IsRunning())
	assert.Error(t, manager.Start())

	require.NoError(t, manager.Stop())
	assert.False(t, manager.IsRunning())
}
