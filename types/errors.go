package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigValidateFailed = errors.New("config validate failed")
	ErrInvalidConfig        = errors.New("invalid config")
)

var (
	ErrStorageKeyEmpty       = errors.New("storage key empty")
	ErrStorageQuotaExceeded  = errors.New("storage quota exceeded")
	ErrStorageUnavailable    = errors.New("storage backend unavailable")
	ErrStorageTypeUnknown    = errors.New("storage backend type unknown")
	ErrStorageWriteFailed    = errors.New("storage write failed")
	ErrStorageEntryCorrupted = errors.New("storage entry corrupted")
	ErrStorageIsDisabled     = errors.New("storage manager is disabled")
)

var (
	ErrSchedulerIsDisabled    = errors.New("scheduler is disabled")
	ErrSchedulerJobFailed     = errors.New("scheduler job failed")
	ErrWidgetNotTracked       = errors.New("widget not tracked")
	ErrWidgetIDEmpty          = errors.New("widget id empty")
	ErrWidgetIntervalInvalid  = errors.New("widget interval invalid")
	ErrScheduleCorrupted      = errors.New("schedule corrupted")
	ErrCronExpressionInvalid  = errors.New("cron expression invalid")
	ErrSchedulerStopRequested = errors.New("scheduler stop requested")
)

var (
	ErrNotificationsDisabled  = errors.New("notifications disabled")
	ErrNotifierNotSupported   = errors.New("notifier not supported")
	ErrPermissionNotGranted   = errors.New("notification permission not granted")
	ErrNotificationShowFailed = errors.New("notification show failed")
	ErrNotificationNotFound   = errors.New("notification not found")
	ErrSettingsInvalid        = errors.New("notification settings invalid")
	ErrQuietHoursInvalid      = errors.New("quiet hours window invalid")
)

var (
	ErrBusTopicEmpty    = errors.New("bus topic empty")
	ErrBusHandlerIsNil  = errors.New("bus handler is nil")
	ErrBusNotRunning    = errors.New("bus not running")
	ErrMetricsDisabled  = errors.New("metrics manager is disabled")
	ErrMetricsUnknown   = errors.New("metrics type unknown")
	ErrHealthCheckEmpty = errors.New("health checker is nil")
)

var (
	ErrServiceNotRunning     = errors.New("service not running")
	ErrServiceAlreadyRunning = errors.New("service already running")
	ErrComponentStartFailed  = errors.New("component start failed")
	ErrComponentStopFailed   = errors.New("component stop failed")
	ErrInvalidParameter      = errors.New("invalid parameter")
	ErrInvalidState          = errors.New("invalid state")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
