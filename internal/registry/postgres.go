package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	seq          BIGSERIAL,
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	ip           TEXT NOT NULL,
	type         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'offline',
	latency      INTEGER NOT NULL DEFAULT 0,
	last_checked BIGINT NOT NULL DEFAULT 0,
	is_monitored INTEGER NOT NULL DEFAULT 1,
	uptime       DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS alerts (
	id          TEXT PRIMARY KEY,
	device_id   TEXT NOT NULL,
	device_name TEXT NOT NULL,
	device_ip   TEXT NOT NULL,
	type        TEXT NOT NULL,
	message     TEXT NOT NULL,
	timestamp   BIGINT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'active'
);
CREATE INDEX IF NOT EXISTS alerts_timestamp_idx ON alerts (timestamp DESC);

CREATE TABLE IF NOT EXISTS fault_logs (
	id          BIGSERIAL PRIMARY KEY,
	device_id   TEXT NOT NULL,
	device_name TEXT NOT NULL,
	device_ip   TEXT NOT NULL,
	fault_type  TEXT NOT NULL,
	description TEXT NOT NULL,
	timestamp   BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS fault_logs_timestamp_idx ON fault_logs (timestamp DESC);
`

// Alerts and fault logs reference device ids without a foreign key: history
// outlives the device it describes.

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore connects to dbURL, verifies the connection and creates the
// schema if it is missing.
func NewPostgresStore(ctx context.Context, dbURL string, logger zerolog.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}
	// PgBouncer in transaction pooling mode rejects prepared statements.
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "registry").Logger(),
	}
	s.logger.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("postgres registry ready")
	return s, nil
}

func (s *PostgresStore) ListDevices(ctx context.Context) ([]Device, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, ip, type, status, latency, last_checked, is_monitored, uptime
		  FROM devices
		 ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	stored, err := pgx.CollectRows(rows, pgx.RowToStructByName[DeviceRow])
	if err != nil {
		return nil, fmt.Errorf("scan devices: %w", err)
	}

	out := make([]Device, 0, len(stored))
	for _, r := range stored {
		out = append(out, DeviceFromRow(r))
	}
	return out, nil
}

func (s *PostgresStore) CountDevices(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM devices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count devices: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CreateDevice(ctx context.Context, d Device) error {
	r := RowFromDevice(d)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO devices (id, name, ip, type, status, latency, last_checked, is_monitored, uptime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.Name, r.IP, r.Type, r.Status, r.Latency, r.LastChecked, r.IsMonitored, r.Uptime,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			s.logger.Debug().Str("device_id", d.ID).Str("constraint", pgErr.ConstraintName).Msg("duplicate device")
			return fmt.Errorf("create device %q: %w", d.ID, ErrDuplicate)
		}
		return fmt.Errorf("create device %q: %w", d.ID, err)
	}
	return nil
}

func (s *PostgresStore) DeleteDevice(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete device %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete device %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ToggleMonitoring(ctx context.Context, id string) (bool, error) {
	var monitored int
	err := s.pool.QueryRow(ctx, `
		UPDATE devices
		   SET is_monitored = CASE WHEN is_monitored = 0 THEN 1 ELSE 0 END
		 WHERE id = $1
		RETURNING is_monitored`, id,
	).Scan(&monitored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("toggle device %q: %w", id, ErrNotFound)
		}
		return false, fmt.Errorf("toggle device %q: %w", id, err)
	}
	return monitored != 0, nil
}

func (s *PostgresStore) UpdateDeviceState(ctx context.Context, id string, status Status, latency int, checkedAt int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE devices
		   SET status = $2,
		       latency = $3,
		       last_checked = GREATEST(last_checked, $4)
		 WHERE id = $1`,
		id, string(status), latency, checkedAt,
	)
	if err != nil {
		return fmt.Errorf("update device %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update device %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AppendAlert(ctx context.Context, a Alert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts (id, device_id, device_name, device_ip, type, message, timestamp, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.DeviceID, a.DeviceName, a.DeviceIP, string(a.Type), a.Message, a.Timestamp, a.Status,
	)
	if err != nil {
		return fmt.Errorf("append alert for %q: %w", a.DeviceID, err)
	}
	return nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context) ([]Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, device_id, device_name, device_ip, type, message, timestamp, status
		  FROM alerts
		 ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	alerts, err := pgx.CollectRows(rows, pgx.RowToStructByName[Alert])
	if err != nil {
		return nil, fmt.Errorf("scan alerts: %w", err)
	}
	return alerts, nil
}

func (s *PostgresStore) AppendFaultLog(ctx context.Context, e FaultLogEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fault_logs (device_id, device_name, device_ip, fault_type, description, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.DeviceID, e.DeviceName, e.DeviceIP, string(e.FaultType), e.Description, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append fault log for %q: %w", e.DeviceID, err)
	}
	return nil
}

func (s *PostgresStore) ListFaultLogs(ctx context.Context, limit int) ([]FaultLogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, device_id, device_name, device_ip, fault_type, description, timestamp
		  FROM fault_logs
		 ORDER BY timestamp DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list fault logs: %w", err)
	}
	logs, err := pgx.CollectRows(rows, pgx.RowToStructByName[FaultLogEntry])
	if err != nil {
		return nil, fmt.Errorf("scan fault logs: %w", err)
	}
	return logs, nil
}

func (s *PostgresStore) Close() {
	s.logger.Debug().Msg("closing db pool")
	s.pool.Close()
}
