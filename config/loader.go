package config

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-freshness/types"
)

type Loader struct {
	validator *validator.Validate
}

func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (l *Loader) LoadFromFile(configPath string) (config *types.ServiceConfig, err error) {
	if configPath == "" {
		return config, types.ErrConfigNotFound
	}

	if _, err = os.Stat(configPath); os.IsNotExist(err) {
		return config, types.WrapError(err, "file not found: "+configPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := l.ReadFileWithTimeout(ctx, configPath)
	if err != nil {
		return config, types.WrapError(err, "failed to read config file")
	}

	config = l.Defaults()

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, types.WrapError(err, "failed to parse YAML config")
	}

	if err := l.Validate(config); err != nil {
		return config, err
	}

	return config, nil
}

func (l *Loader) Validate(config *types.ServiceConfig) error {
	if config == nil {
		return types.ErrConfigIsNil
	}

	if err := l.validator.Struct(config); err != nil {
		return types.WrapError(err, "config validation failed")
	}

	return nil
}

func (l *Loader) ReadFileWithTimeout(ctx context.Context, filepath string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	resultChan := make(chan result, 1)

	go func() {
		data, err := os.ReadFile(filepath)
		resultChan <- result{data: data, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "file read timeout")
	}
}

func (l *Loader) Defaults() *types.ServiceConfig {
	return &types.ServiceConfig{
		Name:    "sai-freshness",
		Version: "1.0.0",
		Logger: &types.LoggerConfig{
			Level: "info",
		},
		Metrics: &types.MetricsConfig{
			Enabled: false,
			Type:    "prometheus",
			HTTP: types.MetricsHTTPConfig{
				Enabled: false,
				Path:    "/metrics",
				Port:    9090,
			},
		},
		Health: &types.HealthConfig{
			Enabled:       true,
			CheckInterval: 30 * time.Second,
		},
		Storage: &types.StorageConfig{
			Type:          "memory",
			Quota:         5 * 1024 * 1024,
			CurrentTTL:    10 * time.Minute,
			ForecastTTL:   30 * time.Minute,
			AirQualityTTL: 15 * time.Minute,
			HistoricalTTL: 24 * time.Hour,
		},
		Scheduler: &types.SchedulerConfig{
			Enabled:          true,
			Timezone:         "UTC",
			PollInterval:     60 * time.Second,
			AutosaveInterval: 30 * time.Second,
		},
		Notifications: &types.NotificationsConfig{
			Enabled:          true,
			DrainDelay:       500 * time.Millisecond,
			AutoCloseTimeout: 10 * time.Second,
			Throttle: map[types.NotificationType]time.Duration{
				types.NotificationTemperature: 60 * time.Minute,
				types.NotificationRain:        120 * time.Minute,
				types.NotificationUV:          180 * time.Minute,
				types.NotificationAirQuality:  240 * time.Minute,
				types.NotificationSevere:      0,
			},
			Defaults: DefaultNotificationSettings(),
		},
	}
}

// DefaultNotificationSettings is the last-known-good fallback when no
// persisted settings exist or an import is rejected.
func DefaultNotificationSettings() *types.NotificationSettings {
	return &types.NotificationSettings{
		Enabled: true,
		Types: map[types.NotificationType]bool{
			types.NotificationSevere:      true,
			types.NotificationTemperature: true,
			types.NotificationRain:        true,
			types.NotificationUV:          false,
			types.NotificationAirQuality:  true,
			types.NotificationDaily:       false,
		},
		QuietHours: types.QuietHoursConfig{
			Enabled: false,
			Start:   "22:00",
			End:     "07:00",
		},
		Thresholds: types.AlertThresholds{
			TemperatureHigh: 35,
			TemperatureLow:  -10,
			RainProbability: 70,
			UVIndex:         8,
			AQI:             150,
		},
		Sound:   true,
		Vibrate: false,
	}
}
