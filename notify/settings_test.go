package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/config"
	"github.com/saiset-co/sai-freshness/logger"
	"github.com/saiset-co/sai-freshness/storage"
	"github.com/saiset-co/sai-freshness/types"
	"github.com/saiset-co/sai-freshness/utils"
)

func newTestStorage(t *testing.T) types.StorageManager {
	t.Helper()

	store := storage.NewStore(
		&types.StorageConfig{Type: "memory"},
		logger.NewZapWrapper(zap.NewNop()),
		types.SystemClock{},
		storage.NewMemoryBackend(0),
	)
	require.NoError(t, store.Start())
	return store
}

func newSettingsStore(t *testing.T) *SettingsStore {
	t.Helper()

	return NewSettingsStore(
		newTestStorage(t),
		logger.NewZapWrapper(zap.NewNop()),
		*config.DefaultNotificationSettings(),
	)
}

func TestSettingsLoadDefaultsWhenEmpty(t *testing.T) {
	store := newSettingsStore(t)

	settings := store.Load()
	assert.Equal(t, *config.DefaultNotificationSettings(), settings)
}

func TestSettingsLoadIsIdempotent(t *testing.T) {
	store := newSettingsStore(t)

	settings := store.Load()
	settings.QuietHours.Enabled = true
	require.NoError(t, store.Save(settings))

	first := store.Load()
	second := store.Load()
	assert.Equal(t, first, second)
	assert.True(t, first.QuietHours.Enabled)
}

func TestSettingsSaveRejectsInvalid(t *testing.T) {
	store := newSettingsStore(t)

	settings := store.Load()
	settings.Thresholds.RainProbability = 150
	err := store.Save(settings)
	assert.True(t, types.IsError(err, types.ErrSettingsInvalid))

	settings = store.Load()
	settings.QuietHours = types.QuietHoursConfig{Enabled: true, Start: "26:00", End: "07:00"}
	err = store.Save(settings)
	assert.True(t, types.IsError(err, types.ErrQuietHoursInvalid))

	settings = store.Load()
	settings.Thresholds.TemperatureLow = 40
	settings.Thresholds.TemperatureHigh = 10
	assert.Error(t, store.Save(settings))
}

func TestSettingsImportMergesOverDefaults(t *testing.T) {
	store := newSettingsStore(t)

	blob := []byte(`{"quiet_hours":{"enabled":true,"start":"21:00","end":"06:00"}}`)

	imported, err := store.Import(blob)
	require.NoError(t, err)

	assert.True(t, imported.QuietHours.Enabled)
	assert.Equal(t, "21:00", imported.QuietHours.Start)
	assert.Equal(t, config.DefaultNotificationSettings().Types, imported.Types,
		"omitted type switches keep their defaults")
	assert.Equal(t, config.DefaultNotificationSettings().Thresholds, imported.Thresholds)

	reloaded := store.Load()
	assert.Equal(t, imported, reloaded, "import persists synchronously")
}

func TestSettingsImportRejectedWholesale(t *testing.T) {
	store := newSettingsStore(t)

	baseline := store.Load()
	baseline.Sound = false
	require.NoError(t, store.Save(baseline))

	_, err := store.Import([]byte(`{"thresholds":{"rain_probability":150}}`))
	require.Error(t, err)

	_, err = store.Import([]byte(`{broken`))
	assert.True(t, types.IsError(err, types.ErrInvalidConfig))

	assert.Equal(t, baseline, store.Load(), "a rejected import leaves stored settings untouched")
}

func TestSettingsImportFullExport(t *testing.T) {
	store := newSettingsStore(t)

	exported := store.Load()
	exported.Types[types.NotificationUV] = true
	exported.Thresholds.UVIndex = 6
	exported.Vibrate = true

	blob, err := utils.Marshal(exported)
	require.NoError(t, err)

	imported, err := store.Import(blob)
	require.NoError(t, err)
	assert.Equal(t, exported, imported)
}
