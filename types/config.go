package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
}

type ServiceConfig struct {
	Name          string               `yaml:"name" json:"name" validate:"required"`
	Version       string               `yaml:"version" json:"version" validate:"required"`
	Logger        *LoggerConfig        `yaml:"logger" json:"logger"`
	Metrics       *MetricsConfig       `yaml:"metrics" json:"metrics"`
	Health        *HealthConfig        `yaml:"health" json:"health"`
	Storage       *StorageConfig       `yaml:"storage" json:"storage"`
	Scheduler     *SchedulerConfig     `yaml:"scheduler" json:"scheduler"`
	Notifications *NotificationsConfig `yaml:"notifications" json:"notifications"`
}

type LoggerConfig struct {
	Level  string      `yaml:"level" json:"level" validate:"required"`
	Config interface{} `yaml:"config" json:"config"`
}

type MetricsConfig struct {
	Enabled bool              `yaml:"enabled" json:"enabled"`
	Type    string            `yaml:"type" json:"type" validate:"required_if=Enabled true"`
	Config  interface{}       `yaml:"config" json:"config"`
	Labels  map[string]string `yaml:"labels" json:"labels"`
	HTTP    MetricsHTTPConfig `yaml:"http" json:"http"`
}

type MetricsHTTPConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port" validate:"omitempty,min=1,max=65535"`
}

type HealthConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	CheckInterval time.Duration `yaml:"check_interval" json:"check_interval" validate:"min=0"`
}

type StorageConfig struct {
	Type   string      `yaml:"type" json:"type" validate:"required"`
	Path   string      `yaml:"path" json:"path"`
	Quota  int64       `yaml:"quota" json:"quota" validate:"min=0"`
	Config interface{} `yaml:"config" json:"config"`

	// TTLs applied to the weather cache namespace per data type.
	CurrentTTL    time.Duration `yaml:"current_ttl" json:"current_ttl" validate:"min=0"`
	ForecastTTL   time.Duration `yaml:"forecast_ttl" json:"forecast_ttl" validate:"min=0"`
	AirQualityTTL time.Duration `yaml:"air_quality_ttl" json:"air_quality_ttl" validate:"min=0"`
	HistoricalTTL time.Duration `yaml:"historical_ttl" json:"historical_ttl" validate:"min=0"`
}

func (c *StorageConfig) TTLFor(dataType string) time.Duration {
	switch dataType {
	case "current":
		return c.CurrentTTL
	case "forecast":
		return c.ForecastTTL
	case "air_quality":
		return c.AirQualityTTL
	case "historical":
		return c.HistoricalTTL
	default:
		return c.CurrentTTL
	}
}

type SchedulerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	Timezone         string        `yaml:"timezone" json:"timezone"`
	PollInterval     time.Duration `yaml:"poll_interval" json:"poll_interval" validate:"min=0"`
	AutosaveInterval time.Duration `yaml:"autosave_interval" json:"autosave_interval" validate:"min=0"`
}

type NotificationsConfig struct {
	Enabled          bool                               `yaml:"enabled" json:"enabled"`
	DrainDelay       time.Duration                      `yaml:"drain_delay" json:"drain_delay" validate:"min=0"`
	AutoCloseTimeout time.Duration                      `yaml:"auto_close_timeout" json:"auto_close_timeout" validate:"min=0"`
	Throttle         map[NotificationType]time.Duration `yaml:"throttle" json:"throttle"`
	Defaults         *NotificationSettings              `yaml:"defaults" json:"defaults"`
}
