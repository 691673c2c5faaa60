package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. It keeps devices as storage rows so the
// row mapping is exercised the same way the SQL store does.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	devices map[string]DeviceRow
	alerts  []Alert
	logs    []FaultLogEntry
	nextLog int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices: make(map[string]DeviceRow),
		nextLog: 1,
	}
}

func (s *MemoryStore) ListDevices(ctx context.Context) ([]Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Device, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, DeviceFromRow(s.devices[id]))
	}
	return out, nil
}

func (s *MemoryStore) CountDevices(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

func (s *MemoryStore) CreateDevice(ctx context.Context, d Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[d.ID]; ok {
		return fmt.Errorf("create device %q: %w", d.ID, ErrDuplicate)
	}
	s.devices[d.ID] = RowFromDevice(d)
	s.order = append(s.order, d.ID)
	return nil
}

func (s *MemoryStore) DeleteDevice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[id]; !ok {
		return fmt.Errorf("delete device %q: %w", id, ErrNotFound)
	}
	delete(s.devices, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) ToggleMonitoring(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.devices[id]
	if !ok {
		return false, fmt.Errorf("toggle device %q: %w", id, ErrNotFound)
	}
	if row.IsMonitored != 0 {
		row.IsMonitored = 0
	} else {
		row.IsMonitored = 1
	}
	s.devices[id] = row
	return row.IsMonitored != 0, nil
}

func (s *MemoryStore) UpdateDeviceState(ctx context.Context, id string, status Status, latency int, checkedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.devices[id]
	if !ok {
		return fmt.Errorf("update device %q: %w", id, ErrNotFound)
	}
	row.Status = string(status)
	row.Latency = latency
	if checkedAt > row.LastChecked {
		row.LastChecked = checkedAt
	}
	s.devices[id] = row
	return nil
}

func (s *MemoryStore) AppendAlert(ctx context.Context, a Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *MemoryStore) ListAlerts(ctx context.Context) ([]Alert, error) {
	s.mu.RLock()
	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	s.mu.RUnlock()

	// Reverse first so equal timestamps keep newest-inserted first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (s *MemoryStore) AppendFaultLog(ctx context.Context, e FaultLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextLog
	s.nextLog++
	s.logs = append(s.logs, e)
	return nil
}

func (s *MemoryStore) ListFaultLogs(ctx context.Context, limit int) ([]FaultLogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	s.mu.RLock()
	out := make([]FaultLogEntry, len(s.logs))
	copy(out, s.logs)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() {}
