package registry

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to DATABASE_URL and skips when it is unset.
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dbURL, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func newTestDevice(t *testing.T, store *PostgresStore) Device {
	t.Helper()

	d := Device{
		ID:          "test-" + uuid.NewString(),
		Name:        "Edge",
		IP:          "10.0.0.1",
		Type:        "router",
		Status:      StatusOnline,
		Latency:     10,
		LastChecked: 5000,
		IsMonitored: true,
	}
	require.NoError(t, store.CreateDevice(context.Background(), d))
	t.Cleanup(func() {
		err := store.DeleteDevice(context.Background(), d.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			t.Errorf("cleanup %s: %v", d.ID, err)
		}
	})
	return d
}

func findDevice(t *testing.T, store *PostgresStore, id string) Device {
	t.Helper()
	devices, err := store.ListDevices(context.Background())
	require.NoError(t, err)
	for _, d := range devices {
		if d.ID == id {
			return d
		}
	}
	t.Fatalf("device %s not found", id)
	return Device{}
}

func TestPostgresStore_DuplicateCreate(t *testing.T) {
	store := newTestPostgres(t)
	d := newTestDevice(t, store)

	err := store.CreateDevice(context.Background(), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgresStore_LastCheckedNeverDecreases(t *testing.T) {
	store := newTestPostgres(t)
	d := newTestDevice(t, store)
	ctx := context.Background()

	require.NoError(t, store.UpdateDeviceState(ctx, d.ID, StatusSlow, 220, 4000))
	got := findDevice(t, store, d.ID)
	assert.Equal(t, StatusSlow, got.Status)
	assert.Equal(t, 220, got.Latency)
	assert.Equal(t, int64(5000), got.LastChecked)

	require.NoError(t, store.UpdateDeviceState(ctx, d.ID, StatusOnline, 12, 9000))
	assert.Equal(t, int64(9000), findDevice(t, store, d.ID).LastChecked)
}

func TestPostgresStore_MissingDevice(t *testing.T) {
	store := newTestPostgres(t)
	ctx := context.Background()
	id := "missing-" + uuid.NewString()

	assert.ErrorIs(t, store.UpdateDeviceState(ctx, id, StatusOnline, 1, 1), ErrNotFound)
	assert.ErrorIs(t, store.DeleteDevice(ctx, id), ErrNotFound)
	_, err := store.ToggleMonitoring(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_ToggleMonitoring(t *testing.T) {
	store := newTestPostgres(t)
	d := newTestDevice(t, store)

	monitored, err := store.ToggleMonitoring(context.Background(), d.ID)
	require.NoError(t, err)
	assert.False(t, monitored)
	assert.False(t, findDevice(t, store, d.ID).IsMonitored)
}
