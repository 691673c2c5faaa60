package registry

// DeviceRow is the storage shape of a device. Column names are snake_case and
// the monitoring flag is stored as an integer.
type DeviceRow struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	IP          string  `db:"ip"`
	Type        string  `db:"type"`
	Status      string  `db:"status"`
	Latency     int     `db:"latency"`
	LastChecked int64   `db:"last_checked"`
	IsMonitored int     `db:"is_monitored"`
	Uptime      float64 `db:"uptime"`
}

// DeviceFromRow converts a stored row into the API representation.
func DeviceFromRow(r DeviceRow) Device {
	return Device{
		ID:          r.ID,
		Name:        r.Name,
		IP:          r.IP,
		Type:        r.Type,
		Status:      Status(r.Status),
		Latency:     r.Latency,
		LastChecked: r.LastChecked,
		IsMonitored: r.IsMonitored != 0,
		Uptime:      r.Uptime,
	}
}

// RowFromDevice is the inverse of DeviceFromRow.
func RowFromDevice(d Device) DeviceRow {
	monitored := 0
	if d.IsMonitored {
		monitored = 1
	}
	return DeviceRow{
		ID:          d.ID,
		Name:        d.Name,
		IP:          d.IP,
		Type:        d.Type,
		Status:      string(d.Status),
		Latency:     d.Latency,
		LastChecked: d.LastChecked,
		IsMonitored: monitored,
		Uptime:      d.Uptime,
	}
}
