package monitor

import (
	"context"

	"netguard/internal/registry"
)

// Result is the classified outcome of a single probe.
type Result struct {
	Status  registry.Status
	Latency int // milliseconds, 0 when unreachable

	// Reason explains an offline result ("timeout", "unreachable", ...).
	// Only used for logging.
	Reason string
}

// AlertSpec describes the alert and fault log a transition produces.
type AlertSpec struct {
	Type        registry.AlertType
	Message     string
	Description string
}

// Decision is the outcome of comparing a probe result with the persisted
// status of a device.
type Decision struct {
	Previous registry.Status
	Current  registry.Status

	// Alert is non-nil when the transition is alertable.
	Alert *AlertSpec
	// Recovered is set for offline -> online. Recoveries are logged, never
	// stored as alerts.
	Recovered bool
}

// Changed reports whether the status moved.
func (d Decision) Changed() bool {
	return d.Previous != d.Current
}

// Registry is the part of the device registry the monitor needs.
type Registry interface {
	ListDevices(ctx context.Context) ([]registry.Device, error)
	UpdateDeviceState(ctx context.Context, id string, status registry.Status, latency int, checkedAt int64) error
	AppendAlert(ctx context.Context, a registry.Alert) error
	AppendFaultLog(ctx context.Context, e registry.FaultLogEntry) error
}

// Notifier receives alerts after they are stored. Implementations must not
// block the caller.
type Notifier interface {
	Notify(ctx context.Context, alert registry.Alert)
}
