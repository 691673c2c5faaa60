package registry

// Status is the observed health of a device.
type Status string

const (
	StatusOnline  Status = "online"
	StatusSlow    Status = "slow"
	StatusOffline Status = "offline"
)

// Valid reports whether s is one of the known health states.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusSlow, StatusOffline:
		return true
	}
	return false
}

// AlertType classifies what triggered an alert.
type AlertType string

const (
	AlertConnectivity AlertType = "connectivity"
	AlertLatency      AlertType = "latency"
)

// AlertStatusActive is the only status the monitor ever writes.
const AlertStatusActive = "active"

// Device is the external (API) view of a monitored device: configuration
// plus the last observed state.
type Device struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	IP          string  `json:"ip"`
	Type        string  `json:"type"`
	Status      Status  `json:"status"`
	Latency     int     `json:"latency"`
	LastChecked int64   `json:"lastChecked"`
	IsMonitored bool    `json:"isMonitored"`
	Uptime      float64 `json:"uptime"`
}

// Alert is an append-only record of a status transition. Device fields are a
// snapshot taken at emission time.
type Alert struct {
	ID         string    `json:"id" db:"id"`
	DeviceID   string    `json:"deviceId" db:"device_id"`
	DeviceName string    `json:"deviceName" db:"device_name"`
	DeviceIP   string    `json:"deviceIp" db:"device_ip"`
	Type       AlertType `json:"type" db:"type"`
	Message    string    `json:"message" db:"message"`
	Timestamp  int64     `json:"timestamp" db:"timestamp"`
	Status     string    `json:"status" db:"status"`
}

// FaultLogEntry is the historical counterpart of an Alert. IDs are assigned
// by the store in insertion order.
type FaultLogEntry struct {
	ID          int64     `json:"id" db:"id"`
	DeviceID    string    `json:"deviceId" db:"device_id"`
	DeviceName  string    `json:"deviceName" db:"device_name"`
	DeviceIP    string    `json:"deviceIp" db:"device_ip"`
	FaultType   AlertType `json:"faultType" db:"fault_type"`
	Description string    `json:"description" db:"description"`
	Timestamp   int64     `json:"timestamp" db:"timestamp"`
}
