package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRowMapping(t *testing.T) {
	t.Run("monitoring flag coercion", func(t *testing.T) {
		assert.False(t, DeviceFromRow(DeviceRow{IsMonitored: 0}).IsMonitored)
		assert.True(t, DeviceFromRow(DeviceRow{IsMonitored: 1}).IsMonitored)
		assert.Equal(t, 1, RowFromDevice(Device{IsMonitored: true}).IsMonitored)
		assert.Equal(t, 0, RowFromDevice(Device{IsMonitored: false}).IsMonitored)
	})

	t.Run("field rename", func(t *testing.T) {
		row := DeviceRow{
			ID:          "d1",
			Name:        "Core Router",
			IP:          "192.168.1.1",
			Type:        "router",
			Status:      "slow",
			Latency:     180,
			LastChecked: 1700000000000,
			IsMonitored: 1,
			Uptime:      99.5,
		}
		d := DeviceFromRow(row)
		assert.Equal(t, Device{
			ID:          "d1",
			Name:        "Core Router",
			IP:          "192.168.1.1",
			Type:        "router",
			Status:      StatusSlow,
			Latency:     180,
			LastChecked: 1700000000000,
			IsMonitored: true,
			Uptime:      99.5,
		}, d)
		assert.Equal(t, row, RowFromDevice(d))
	})
}

func TestMemoryStore_DeviceLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateDevice(ctx, Device{ID: "a", Name: "A", IP: "10.0.0.1", IsMonitored: true}))
	require.NoError(t, s.CreateDevice(ctx, Device{ID: "b", Name: "B", IP: "10.0.0.2"}))

	err := s.CreateDevice(ctx, Device{ID: "a"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	devices, err := s.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "a", devices[0].ID)
	assert.Equal(t, "b", devices[1].ID)

	monitored, err := s.ToggleMonitoring(ctx, "b")
	require.NoError(t, err)
	assert.True(t, monitored)

	_, err = s.ToggleMonitoring(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.DeleteDevice(ctx, "a"))
	assert.True(t, errors.Is(s.DeleteDevice(ctx, "a"), ErrNotFound))

	n, err := s.CountDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_UpdateDeviceState(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateDevice(ctx, Device{ID: "d1", Status: StatusOnline, Latency: 10, LastChecked: 500}))

	require.NoError(t, s.UpdateDeviceState(ctx, "d1", StatusOffline, 0, 1000))
	devices, _ := s.ListDevices(ctx)
	assert.Equal(t, StatusOffline, devices[0].Status)
	assert.Equal(t, 0, devices[0].Latency)
	assert.Equal(t, int64(1000), devices[0].LastChecked)

	// last_checked never moves backwards
	require.NoError(t, s.UpdateDeviceState(ctx, "d1", StatusOnline, 12, 900))
	devices, _ = s.ListDevices(ctx)
	assert.Equal(t, StatusOnline, devices[0].Status)
	assert.Equal(t, int64(1000), devices[0].LastChecked)

	err := s.UpdateDeviceState(ctx, "gone", StatusOnline, 1, 1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_HistoryOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.AppendAlert(ctx, Alert{ID: "old", Timestamp: 100}))
	require.NoError(t, s.AppendAlert(ctx, Alert{ID: "new", Timestamp: 300}))
	require.NoError(t, s.AppendAlert(ctx, Alert{ID: "mid", Timestamp: 200}))

	alerts, err := s.ListAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{alerts[0].ID, alerts[1].ID, alerts[2].ID})

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendFaultLog(ctx, FaultLogEntry{DeviceID: "d1", Timestamp: 100}))
	}

	logs, err := s.ListFaultLogs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, int64(5), logs[0].ID)
	assert.Equal(t, int64(4), logs[1].ID)

	logs, err = s.ListFaultLogs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 5)
}

func TestMemoryStore_ConcurrentReadsSeeWholeRows(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateDevice(ctx, Device{ID: "d1", Status: StatusOnline, Latency: 10, IsMonitored: true}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				_ = s.UpdateDeviceState(ctx, "d1", StatusOffline, 0, int64(i))
			} else {
				_ = s.UpdateDeviceState(ctx, "d1", StatusSlow, 200, int64(i))
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			devices, _ := s.ListDevices(ctx)
			d := devices[0]
			switch d.Status {
			case StatusOffline:
				assert.Equal(t, 0, d.Latency)
			case StatusSlow:
				assert.Equal(t, 200, d.Latency)
			case StatusOnline:
				assert.Equal(t, 10, d.Latency)
			}
		}
	}()
	wg.Wait()
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed := []Device{{ID: "1", Name: "Google DNS", IP: "8.8.8.8"}, {ID: "2", Name: "Cloudflare DNS", IP: "1.1.1.1"}}

	added, err := SeedIfEmpty(ctx, s, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = SeedIfEmpty(ctx, s, seed)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}
