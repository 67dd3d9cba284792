package notify

import (
	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/types"
	"github.com/saiset-co/sai-freshness/utils"
)

const settingsKey = types.NamespaceSettings + "notifications"

// SettingsStore loads and persists notification settings. Partial persisted
// blobs are merged over the defaults field by field, so loading the same
// blob twice yields identical in-memory state.
type SettingsStore struct {
	storage  types.StorageManager
	logger   types.Logger
	defaults types.NotificationSettings
}

func NewSettingsStore(storage types.StorageManager, logger types.Logger, defaults types.NotificationSettings) *SettingsStore {
	return &SettingsStore{
		storage:  storage,
		logger:   logger,
		defaults: defaults,
	}
}

// Load returns the persisted settings merged over the defaults, or the
// defaults when nothing valid is stored.
func (s *SettingsStore) Load() types.NotificationSettings {
	settings := s.cloneDefaults()

	if !s.storage.Get(settingsKey, &settings) {
		return s.cloneDefaults()
	}

	s.fillMissingTypes(&settings)

	if err := Validate(settings); err != nil {
		s.logger.Warn("Persisted notification settings invalid, using defaults", zap.Error(err))
		return s.cloneDefaults()
	}

	return settings
}

// Save validates then persists synchronously.
func (s *SettingsStore) Save(settings types.NotificationSettings) error {
	if err := Validate(settings); err != nil {
		return err
	}

	return s.storage.Set(settingsKey, settings, 0)
}

// Import merges an exported settings blob over the defaults field by field.
// A malformed blob is rejected wholesale; the caller keeps its current
// settings.
func (s *SettingsStore) Import(blob []byte) (types.NotificationSettings, error) {
	settings := s.cloneDefaults()

	if err := utils.UnmarshalInto(blob, &settings); err != nil {
		return types.NotificationSettings{}, types.Errorf(types.ErrInvalidConfig, "unparseable settings blob: %v", err)
	}

	s.fillMissingTypes(&settings)

	if err := Validate(settings); err != nil {
		return types.NotificationSettings{}, types.WrapError(err, "imported settings rejected")
	}

	if err := s.Save(settings); err != nil {
		return types.NotificationSettings{}, err
	}

	return settings, nil
}

func (s *SettingsStore) cloneDefaults() types.NotificationSettings {
	settings := s.defaults
	settings.Types = make(map[types.NotificationType]bool, len(s.defaults.Types))
	for notificationType, enabled := range s.defaults.Types {
		settings.Types[notificationType] = enabled
	}
	return settings
}

// fillMissingTypes keeps defaults for type switches a partial blob omits.
func (s *SettingsStore) fillMissingTypes(settings *types.NotificationSettings) {
	if settings.Types == nil {
		settings.Types = make(map[types.NotificationType]bool, len(s.defaults.Types))
	}
	for notificationType, enabled := range s.defaults.Types {
		if _, present := settings.Types[notificationType]; !present {
			settings.Types[notificationType] = enabled
		}
	}
}

func Validate(settings types.NotificationSettings) error {
	if settings.QuietHours.Enabled {
		if _, err := parseClockMinutes(settings.QuietHours.Start); err != nil {
			return err
		}
		if _, err := parseClockMinutes(settings.QuietHours.End); err != nil {
			return err
		}
	}

	if settings.Thresholds.RainProbability < 0 || settings.Thresholds.RainProbability > 100 {
		return types.Errorf(types.ErrSettingsInvalid, "rain probability out of range: %v", settings.Thresholds.RainProbability)
	}

	if settings.Thresholds.AQI < 0 {
		return types.Errorf(types.ErrSettingsInvalid, "negative AQI threshold: %d", settings.Thresholds.AQI)
	}

	if settings.Thresholds.TemperatureLow >= settings.Thresholds.TemperatureHigh {
		return types.Errorf(types.ErrSettingsInvalid, "temperature thresholds inverted: low %v >= high %v",
			settings.Thresholds.TemperatureLow, settings.Thresholds.TemperatureHigh)
	}

	return nil
}
