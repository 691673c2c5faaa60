package monitor

import (
	"fmt"

	"netguard/internal/registry"
)

const (
	msgConnectionLost  = "Connection lost: Device is unreachable"
	descDeviceOffline  = "Device went offline"
	msgHighLatencyFmt  = "High latency detected: %dms"
	descHighLatencyFmt = "High latency: %dms"
)

// Evaluate decides whether moving from previous to the probed status is an
// alertable transition. Rules are applied in order:
//
//   - any change into offline raises a connectivity alert
//   - a change into slow from anything but slow raises a latency alert
//   - offline -> online is a recovery and raises nothing
func Evaluate(previous registry.Status, res Result) Decision {
	d := Decision{Previous: previous, Current: res.Status}
	if !d.Changed() {
		return d
	}

	switch {
	case res.Status == registry.StatusOffline:
		d.Alert = &AlertSpec{
			Type:        registry.AlertConnectivity,
			Message:     msgConnectionLost,
			Description: descDeviceOffline,
		}
	case res.Status == registry.StatusSlow && previous != registry.StatusSlow:
		d.Alert = &AlertSpec{
			Type:        registry.AlertLatency,
			Message:     fmt.Sprintf(msgHighLatencyFmt, res.Latency),
			Description: fmt.Sprintf(descHighLatencyFmt, res.Latency),
		}
	case res.Status == registry.StatusOnline && previous == registry.StatusOffline:
		d.Recovered = true
	}
	return d
}
