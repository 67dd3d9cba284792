package notify

import (
	"strconv"
	"strings"
	"time"

	"github.com/saiset-co/sai-freshness/types"
)

// GateInput is everything the gate checks read. Suppression is a normal
// outcome; Evaluate never errors.
type GateInput struct {
	Settings   types.NotificationSettings
	Supported  bool
	Permission types.Permission
	Now        time.Time
	LastShown  map[string]time.Time
	Throttle   map[types.NotificationType]time.Duration
}

// Evaluate applies the gate checks in order, short-circuiting on the first
// failure: capability/permission, enablement, quiet hours, throttle.
func Evaluate(request types.NotificationRequest, input GateInput) types.SuppressReason {
	if !input.Supported || input.Permission != types.PermissionGranted {
		return types.SuppressNoPermission
	}

	if !input.Settings.Enabled || !input.Settings.Types[request.Type] {
		return types.SuppressTypeDisabled
	}

	if inQuietHours(input.Settings.QuietHours, request.Priority, input.Now) {
		return types.SuppressQuietHours
	}

	if throttled(request, input.Now, input.LastShown, input.Throttle) {
		return types.SuppressThrottled
	}

	return types.SuppressNone
}

// inQuietHours suppresses non-urgent requests inside the configured window.
// A start later than the end means the window wraps past midnight. Urgent
// requests bypass quiet hours unconditionally.
func inQuietHours(config types.QuietHoursConfig, priority types.Priority, now time.Time) bool {
	if !config.Enabled || priority == types.PriorityUrgent {
		return false
	}

	start, err := parseClockMinutes(config.Start)
	if err != nil {
		return false
	}

	end, err := parseClockMinutes(config.End)
	if err != nil {
		return false
	}

	current := now.Hour()*60 + now.Minute()

	if start <= end {
		return current >= start && current <= end
	}

	return current >= start || current <= end
}

func throttled(request types.NotificationRequest, now time.Time, lastShown map[string]time.Time, throttle map[types.NotificationType]time.Duration) bool {
	window := throttle[request.Type]
	if window <= 0 {
		return false
	}

	last, shown := lastShown[request.ThrottleTag()]
	if !shown {
		return false
	}

	return now.Sub(last) < window
}

// parseClockMinutes converts "HH:MM" to minutes since midnight.
func parseClockMinutes(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, types.Errorf(types.ErrQuietHoursInvalid, "value: %s", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, types.Errorf(types.ErrQuietHoursInvalid, "hour: %s", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, types.Errorf(types.ErrQuietHoursInvalid, "minute: %s", parts[1])
	}

	return hour*60 + minute, nil
}
