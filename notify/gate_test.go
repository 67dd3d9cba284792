package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saiset-co/sai-freshness/types"
)

func enabledSettings() types.NotificationSettings {
	return types.NotificationSettings{
		Enabled: true,
		Types: map[types.NotificationType]bool{
			types.NotificationSevere:      true,
			types.NotificationTemperature: true,
			types.NotificationRain:        true,
		},
		QuietHours: types.QuietHoursConfig{
			Enabled: true,
			Start:   "22:00",
			End:     "07:00",
		},
		Thresholds: types.AlertThresholds{TemperatureLow: -10, TemperatureHigh: 35},
	}
}

func gateInput(now time.Time) GateInput {
	return GateInput{
		Settings:   enabledSettings(),
		Supported:  true,
		Permission: types.PermissionGranted,
		Now:        now,
		LastShown:  map[string]time.Time{},
		Throttle:   map[types.NotificationType]time.Duration{},
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 9, 1, hour, minute, 0, 0, time.UTC)
}

func TestGateOrderOfChecks(t *testing.T) {
	request := types.NotificationRequest{Type: types.NotificationTemperature, Priority: types.PriorityNormal}

	noPermission := gateInput(at(23, 30))
	noPermission.Permission = types.PermissionDenied
	assert.Equal(t, types.SuppressNoPermission, Evaluate(request, noPermission),
		"permission is checked before quiet hours")

	unsupported := gateInput(at(12, 0))
	unsupported.Supported = false
	assert.Equal(t, types.SuppressNoPermission, Evaluate(request, unsupported))

	disabled := gateInput(at(12, 0))
	disabled.Settings.Enabled = false
	assert.Equal(t, types.SuppressTypeDisabled, Evaluate(request, disabled))

	typeOff := gateInput(at(12, 0))
	typeOff.Settings.Types[types.NotificationTemperature] = false
	assert.Equal(t, types.SuppressTypeDisabled, Evaluate(request, typeOff))
}

func TestGateQuietHoursWrapMidnight(t *testing.T) {
	request := types.NotificationRequest{Type: types.NotificationTemperature, Priority: types.PriorityNormal}

	assert.Equal(t, types.SuppressQuietHours, Evaluate(request, gateInput(at(23, 30))))
	assert.Equal(t, types.SuppressQuietHours, Evaluate(request, gateInput(at(3, 0))))
	assert.Equal(t, types.SuppressQuietHours, Evaluate(request, gateInput(at(22, 0))))
	assert.Equal(t, types.SuppressQuietHours, Evaluate(request, gateInput(at(7, 0))))
	assert.Equal(t, types.SuppressNone, Evaluate(request, gateInput(at(12, 0))))
	assert.Equal(t, types.SuppressNone, Evaluate(request, gateInput(at(21, 59))))
}

func TestGateQuietHoursSameDayWindow(t *testing.T) {
	request := types.NotificationRequest{Type: types.NotificationTemperature, Priority: types.PriorityNormal}

	input := gateInput(at(13, 0))
	input.Settings.QuietHours.Start = "12:00"
	input.Settings.QuietHours.End = "14:00"
	assert.Equal(t, types.SuppressQuietHours, Evaluate(request, input))

	input.Now = at(15, 0)
	assert.Equal(t, types.SuppressNone, Evaluate(request, input))
}

func TestGateUrgentBypassesQuietHours(t *testing.T) {
	request := types.NotificationRequest{Type: types.NotificationSevere, Priority: types.PriorityUrgent}

	assert.Equal(t, types.SuppressNone, Evaluate(request, gateInput(at(23, 30))))
}

func TestGateInvalidQuietHoursIgnored(t *testing.T) {
	request := types.NotificationRequest{Type: types.NotificationTemperature, Priority: types.PriorityNormal}

	input := gateInput(at(23, 30))
	input.Settings.QuietHours.Start = "25:99"
	assert.Equal(t, types.SuppressNone, Evaluate(request, input),
		"an unparseable window must not suppress everything")
}

func TestGateThrottle(t *testing.T) {
	request := types.NotificationRequest{Type: types.NotificationTemperature, Priority: types.PriorityNormal}

	input := gateInput(at(12, 0))
	input.Throttle[types.NotificationTemperature] = time.Hour
	input.LastShown["temperature"] = at(11, 30)
	assert.Equal(t, types.SuppressThrottled, Evaluate(request, input))

	input.LastShown["temperature"] = at(10, 59)
	assert.Equal(t, types.SuppressNone, Evaluate(request, input))
}

func TestGateThrottleIsPerTag(t *testing.T) {
	input := gateInput(at(12, 0))
	input.Throttle[types.NotificationTemperature] = time.Hour
	input.LastShown["temperature"] = at(11, 30)

	tagged := types.NotificationRequest{
		Type:     types.NotificationTemperature,
		Priority: types.PriorityNormal,
		Tag:      "heat-wave",
	}
	assert.Equal(t, types.SuppressNone, Evaluate(tagged, input),
		"a distinct tag has its own throttle window")
}

func TestGateZeroWindowNeverThrottles(t *testing.T) {
	request := types.NotificationRequest{Type: types.NotificationSevere, Priority: types.PriorityNormal}

	input := gateInput(at(12, 0))
	input.Throttle[types.NotificationSevere] = 0
	input.LastShown["severe"] = at(11, 59)
	assert.Equal(t, types.SuppressNone, Evaluate(request, input))
}
