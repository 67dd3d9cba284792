package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/logger"
	"github.com/saiset-co/sai-freshness/types"
)

type stubConfig struct {
	config *types.ServiceConfig
}

func (s stubConfig) Load() error {
	return nil
}

func (s stubConfig) GetConfig() *types.ServiceConfig {
	return s.config
}

func newTestHealthManager(t *testing.T) types.HealthManager {
	t.Helper()

	config := stubConfig{config: &types.ServiceConfig{
		Health: &types.HealthConfig{
			Enabled:       true,
			CheckInterval: time.Hour,
		},
	}}

	manager, err := NewManager(context.Background(), config, logger.NewZapWrapper(zap.NewNop()))
	require.NoError(t, err)
	return manager
}

func TestHealthOverallHealthy(t *testing.T) {
	manager := newTestHealthManager(t)

	require.NoError(t, manager.RegisterChecker("storage", func(ctx context.Context) error {
		return nil
	}))

	require.NoError(t, manager.Start())
	defer func() { require.NoError(t, manager.Stop()) }()

	require.Eventually(t, func() bool {
		return len(manager.Status()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, types.HealthStatusHealthy, manager.Overall())
	assert.Equal(t, types.HealthStatusHealthy, manager.Status()["storage"].Status)
}

func TestHealthDegradedOnPartialFailure(t *testing.T) {
	manager := newTestHealthManager(t)

	require.NoError(t, manager.RegisterChecker("ok", func(ctx context.Context) error {
		return nil
	}))
	require.NoError(t, manager.RegisterChecker("broken", func(ctx context.Context) error {
		return types.ErrStorageUnavailable
	}))

	require.NoError(t, manager.Start())
	defer func() { require.NoError(t, manager.Stop()) }()

	require.Eventually(t, func() bool {
		return len(manager.Status()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, types.HealthStatusDegraded, manager.Overall())

	broken := manager.Status()["broken"]
	assert.Equal(t, types.HealthStatusUnhealthy, broken.Status)
	assert.NotEmpty(t, broken.Error)
}

func TestHealthNilCheckerRejected(t *testing.T) {
	manager := newTestHealthManager(t)

	err := manager.RegisterChecker("nil", nil)
	assert.True(t, types.IsError(err, types.ErrHealthCheckEmpty))
}
