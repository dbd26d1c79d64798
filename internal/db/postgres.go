package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autocare-monitor/internal/models"
)

// PostgresStore is the Store backed by a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to PostgreSQL and creates the schema if missing
func NewPostgres(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		license_plate TEXT UNIQUE NOT NULL,
		fuel_type TEXT NOT NULL,
		baseline_km INTEGER NOT NULL DEFAULT 0,
		registered_at DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS service_records (
		id BIGSERIAL PRIMARY KEY,
		vehicle_id TEXT NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		item_type TEXT NOT NULL,
		service_date DATE NOT NULL,
		odometer_km INTEGER NOT NULL,
		cost DOUBLE PRECISION NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS raw_samples (
		id BIGSERIAL PRIMARY KEY,
		vehicle_id TEXT NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		ts TIMESTAMPTZ NOT NULL,
		speed DOUBLE PRECISION NOT NULL,
		accel_x DOUBLE PRECISION NOT NULL,
		accel_y DOUBLE PRECISION NOT NULL,
		accel_z DOUBLE PRECISION NOT NULL,
		gyro_x DOUBLE PRECISION NOT NULL,
		gyro_y DOUBLE PRECISION NOT NULL,
		gyro_z DOUBLE PRECISION NOT NULL
	);

	CREATE TABLE IF NOT EXISTS driving_sessions (
		id BIGSERIAL PRIMARY KEY,
		vehicle_id TEXT NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		max_speed DOUBLE PRECISION NOT NULL,
		average_speed DOUBLE PRECISION NOT NULL,
		accelerations INTEGER NOT NULL,
		brakings INTEGER NOT NULL,
		distance_meters DOUBLE PRECISION NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id BIGSERIAL PRIMARY KEY,
		vehicle_id TEXT NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		alert_type TEXT NOT NULL,
		score INTEGER NOT NULL,
		triggered_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_service_vehicle_type ON service_records(vehicle_id, item_type);
	CREATE INDEX IF NOT EXISTS idx_samples_vehicle_ts ON raw_samples(vehicle_id, ts);
	CREATE INDEX IF NOT EXISTS idx_sessions_vehicle_start ON driving_sessions(vehicle_id, start_time);
	CREATE INDEX IF NOT EXISTS idx_alerts_vehicle ON alerts(vehicle_id, triggered_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// pgQueryer is satisfied by *pgxpool.Pool and pgx.Tx
type pgQueryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) InsertVehicle(ctx context.Context, v *models.Vehicle) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO vehicles (id, name, license_plate, fuel_type, baseline_km, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.Name, v.LicensePlate, string(v.FuelType), v.BaselineKm, v.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("insert vehicle %s: %w", v.ID, err)
	}
	return nil
}

const pgVehicleColumns = `id, name, license_plate, fuel_type, baseline_km, registered_at, created_at`

func scanPgVehicle(row pgx.Row) (models.Vehicle, error) {
	var (
		v    models.Vehicle
		fuel string
	)
	err := row.Scan(&v.ID, &v.Name, &v.LicensePlate, &fuel, &v.BaselineKm, &v.RegisteredAt, &v.CreatedAt)
	v.FuelType = models.FuelType(fuel)
	return v, err
}

func (s *PostgresStore) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	return pgGetVehicle(ctx, s.pool, id)
}

func pgGetVehicle(ctx context.Context, q pgQueryer, id string) (*models.Vehicle, error) {
	v, err := scanPgVehicle(q.QueryRow(ctx, `SELECT `+pgVehicleColumns+` FROM vehicles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PostgresStore) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgVehicleColumns+` FROM vehicles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		v, err := scanPgVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (s *PostgresStore) deleteOne(ctx context.Context, query string, id any, what string) error {
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteVehicle(ctx context.Context, id string) error {
	return s.deleteOne(ctx, `DELETE FROM vehicles WHERE id = $1`, id, "vehicle")
}

func (s *PostgresStore) InsertServiceRecord(ctx context.Context, r *models.ServiceRecord) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO service_records (vehicle_id, item_type, service_date, odometer_km, cost)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		r.VehicleID, r.ItemType, r.ServiceDate, r.OdometerKm, r.Cost,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert service record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListServiceRecords(ctx context.Context, vehicleID string) ([]models.ServiceRecord, error) {
	return pgListServiceRecords(ctx, s.pool, vehicleID)
}

func pgListServiceRecords(ctx context.Context, q pgQueryer, vehicleID string) ([]models.ServiceRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT id, vehicle_id, item_type, service_date, odometer_km, cost
		FROM service_records
		WHERE vehicle_id = $1
		ORDER BY service_date DESC, id DESC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ServiceRecord
	for rows.Next() {
		var r models.ServiceRecord
		if err := rows.Scan(&r.ID, &r.VehicleID, &r.ItemType, &r.ServiceDate, &r.OdometerKm, &r.Cost); err != nil {
			return nil, err
		}
		r.ServiceDate = r.ServiceDate.UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) DeleteServiceRecord(ctx context.Context, id int64) error {
	return s.deleteOne(ctx, `DELETE FROM service_records WHERE id = $1`, id, "service record")
}

var sampleColumns = []string{
	"vehicle_id", "ts", "speed",
	"accel_x", "accel_y", "accel_z",
	"gyro_x", "gyro_y", "gyro_z",
}

// InsertSamples bulk loads samples with COPY
func (s *PostgresStore) InsertSamples(ctx context.Context, samples []models.RawSample) (int64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	rows := make([][]interface{}, len(samples))
	for i, m := range samples {
		rows[i] = []interface{}{
			m.VehicleID, m.Timestamp, m.Speed,
			m.AccelX, m.AccelY, m.AccelZ,
			m.GyroX, m.GyroY, m.GyroZ,
		}
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"raw_samples"}, sampleColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("CopyFrom failed for batch of %d: %w", len(samples), err)
	}
	return n, nil
}

func (s *PostgresStore) QuerySamples(ctx context.Context, vehicleID string, start, end time.Time) ([]models.RawSample, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, vehicle_id, ts, speed, accel_x, accel_y, accel_z, gyro_x, gyro_y, gyro_z
		FROM raw_samples
		WHERE vehicle_id = $1 AND ts BETWEEN $2 AND $3
		ORDER BY ts, id`, vehicleID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.RawSample
	for rows.Next() {
		var m models.RawSample
		err := rows.Scan(&m.ID, &m.VehicleID, &m.Timestamp, &m.Speed,
			&m.AccelX, &m.AccelY, &m.AccelZ, &m.GyroX, &m.GyroY, &m.GyroZ)
		if err != nil {
			return nil, err
		}
		m.Timestamp = m.Timestamp.UTC()
		samples = append(samples, m)
	}
	return samples, rows.Err()
}

func (s *PostgresStore) PurgeSamples(ctx context.Context, vehicleID string, start, end time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM raw_samples WHERE vehicle_id = $1 AND ts BETWEEN $2 AND $3`,
		vehicleID, start, end)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) FinalizeTrip(ctx context.Context, ds *models.DrivingSession, purgeSamples bool) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO driving_sessions
			(vehicle_id, start_time, end_time, max_speed, average_speed, accelerations, brakings, distance_meters)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			ds.VehicleID, ds.StartTime, ds.EndTime, ds.MaxSpeed, ds.AverageSpeed,
			ds.Accelerations, ds.Brakings, ds.DistanceMeters,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		if purgeSamples {
			_, err = tx.Exec(ctx,
				`DELETE FROM raw_samples WHERE vehicle_id = $1 AND ts BETWEEN $2 AND $3`,
				ds.VehicleID, ds.StartTime, ds.EndTime)
			if err != nil {
				return fmt.Errorf("purge samples: %w", err)
			}
		}
		ds.ID = id
		return nil
	})
}

func (s *PostgresStore) ListSessions(ctx context.Context, q models.SessionQuery) ([]models.DrivingSession, error) {
	return pgListSessions(ctx, s.pool, q)
}

func pgListSessions(ctx context.Context, qr pgQueryer, q models.SessionQuery) ([]models.DrivingSession, error) {
	var conditions []string
	var args []any

	query := `
		SELECT id, vehicle_id, start_time, end_time, max_speed, average_speed,
		       accelerations, brakings, distance_meters
		FROM driving_sessions`

	if q.VehicleID != "" {
		args = append(args, q.VehicleID)
		conditions = append(conditions, fmt.Sprintf("vehicle_id = $%d", len(args)))
	}
	if !q.StartTime.IsZero() {
		args = append(args, q.StartTime)
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if !q.EndTime.IsZero() {
		args = append(args, q.EndTime)
		conditions = append(conditions, fmt.Sprintf("start_time <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time DESC, id DESC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	}

	rows, err := qr.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.DrivingSession
	for rows.Next() {
		var ds models.DrivingSession
		err := rows.Scan(&ds.ID, &ds.VehicleID, &ds.StartTime, &ds.EndTime, &ds.MaxSpeed, &ds.AverageSpeed,
			&ds.Accelerations, &ds.Brakings, &ds.DistanceMeters)
		if err != nil {
			return nil, err
		}
		ds.StartTime = ds.StartTime.UTC()
		ds.EndTime = ds.EndTime.UTC()
		results = append(results, ds)
	}
	return results, rows.Err()
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id int64) error {
	return s.deleteOne(ctx, `DELETE FROM driving_sessions WHERE id = $1`, id, "session")
}

// Snapshot reads under a repeatable-read transaction so the three queries agree
func (s *PostgresStore) Snapshot(ctx context.Context, vehicleID string) (*models.VehicleSnapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	v, err := pgGetVehicle(ctx, tx, vehicleID)
	if err != nil {
		return nil, err
	}
	history, err := pgListServiceRecords(ctx, tx, vehicleID)
	if err != nil {
		return nil, err
	}
	sessions, err := pgListSessions(ctx, tx, models.SessionQuery{VehicleID: vehicleID})
	if err != nil {
		return nil, err
	}
	return &models.VehicleSnapshot{Vehicle: *v, History: history, Sessions: sessions}, tx.Commit(ctx)
}

func (s *PostgresStore) RecordAlert(ctx context.Context, a models.AlertSignal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO alerts (vehicle_id, alert_type, score, triggered_at) VALUES ($1, $2, $3, $4)`,
		a.VehicleID, string(a.Type), a.Score, a.TriggeredAt,
	)
	return err
}

func (s *PostgresStore) ListAlerts(ctx context.Context, vehicleID string, limit int) ([]models.AlertSignal, error) {
	query := `SELECT vehicle_id, alert_type, score, triggered_at FROM alerts`
	var args []any
	if vehicleID != "" {
		query += " WHERE vehicle_id = $1"
		args = append(args, vehicleID)
	}
	query += " ORDER BY triggered_at DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.AlertSignal
	for rows.Next() {
		var (
			a   models.AlertSignal
			typ string
		)
		if err := rows.Scan(&a.VehicleID, &typ, &a.Score, &a.TriggeredAt); err != nil {
			return nil, err
		}
		a.Type = models.AlertType(typ)
		a.TriggeredAt = a.TriggeredAt.UTC()
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *PostgresStore) GetVehicleSummary(ctx context.Context, vehicleID string) (*models.VehicleSummary, error) {
	sum := models.VehicleSummary{VehicleID: vehicleID}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(distance_meters), 0) / 1000.0,
			COALESCE(MAX(max_speed), 0),
			COALESCE(SUM(accelerations), 0),
			COALESCE(SUM(brakings), 0),
			(SELECT COUNT(*) FROM service_records WHERE vehicle_id = $1)
		FROM driving_sessions
		WHERE vehicle_id = $1`, vehicleID,
	).Scan(&sum.TotalSessions, &sum.TotalDistanceKm, &sum.MaxSpeed,
		&sum.Accelerations, &sum.Brakings, &sum.ServiceRecords)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	counts := []struct {
		key   string
		table string
	}{
		{"total_vehicles", "vehicles"},
		{"total_service_records", "service_records"},
		{"total_sessions", "driving_sessions"},
		{"pending_samples", "raw_samples"},
		{"total_alerts", "alerts"},
	}
	for _, c := range counts {
		var n int64
		if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(&n); err != nil {
			return nil, err
		}
		stats[c.key] = n
	}
	return stats, nil
}
