// Package registry persists devices, alerts and fault logs.
package registry

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a device id does not exist.
	ErrNotFound = errors.New("registry: device not found")
	// ErrDuplicate is returned when creating a device whose id is taken.
	ErrDuplicate = errors.New("registry: device already exists")
)

// DefaultLogLimit is used by ListFaultLogs callers that do not pass a limit.
const DefaultLogLimit = 100

// Store is the device registry shared by the monitor (writer of observed
// state) and the API layer (writer of configuration).
//
// Single-row updates are atomic: a concurrent ListDevices sees either the
// row before or after UpdateDeviceState, never a mix.
type Store interface {
	ListDevices(ctx context.Context) ([]Device, error)
	CountDevices(ctx context.Context) (int, error)
	CreateDevice(ctx context.Context, d Device) error
	DeleteDevice(ctx context.Context, id string) error
	// ToggleMonitoring flips the monitoring flag and returns the new value.
	ToggleMonitoring(ctx context.Context, id string) (bool, error)
	// UpdateDeviceState writes observed fields only. last_checked never moves
	// backwards.
	UpdateDeviceState(ctx context.Context, id string, status Status, latency int, checkedAt int64) error

	AppendAlert(ctx context.Context, a Alert) error
	// ListAlerts returns all alerts, newest first.
	ListAlerts(ctx context.Context) ([]Alert, error)

	AppendFaultLog(ctx context.Context, e FaultLogEntry) error
	// ListFaultLogs returns at most limit entries, newest first.
	ListFaultLogs(ctx context.Context, limit int) ([]FaultLogEntry, error)

	Close()
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
