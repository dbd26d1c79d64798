package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"autocare-monitor/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the SQLite connection
type Database struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dbPath string) (*Database, error) {
	// Enable WAL mode, foreign keys and other optimizations via connection string
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	connStr := fmt.Sprintf("%s%s_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_foreign_keys=on", dbPath, sep)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer; also keeps :memory: on one connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &Database{conn: conn}

	if err := db.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// initialize creates tables and indexes
func (db *Database) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		license_plate TEXT UNIQUE NOT NULL,
		fuel_type TEXT NOT NULL,
		baseline_km INTEGER NOT NULL DEFAULT 0,
		registered_at TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS service_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id TEXT NOT NULL,
		item_type TEXT NOT NULL,
		service_date TEXT NOT NULL,
		odometer_km INTEGER NOT NULL,
		cost REAL NOT NULL DEFAULT 0,
		FOREIGN KEY (vehicle_id) REFERENCES vehicles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS raw_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id TEXT NOT NULL,
		ts_ms INTEGER NOT NULL,
		speed REAL NOT NULL,
		accel_x REAL NOT NULL,
		accel_y REAL NOT NULL,
		accel_z REAL NOT NULL,
		gyro_x REAL NOT NULL,
		gyro_y REAL NOT NULL,
		gyro_z REAL NOT NULL,
		FOREIGN KEY (vehicle_id) REFERENCES vehicles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS driving_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id TEXT NOT NULL,
		start_ms INTEGER NOT NULL,
		end_ms INTEGER NOT NULL,
		max_speed REAL NOT NULL,
		average_speed REAL NOT NULL,
		accelerations INTEGER NOT NULL,
		brakings INTEGER NOT NULL,
		distance_meters REAL NOT NULL,
		FOREIGN KEY (vehicle_id) REFERENCES vehicles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id TEXT NOT NULL,
		alert_type TEXT NOT NULL,
		score INTEGER NOT NULL,
		triggered_ms INTEGER NOT NULL,
		FOREIGN KEY (vehicle_id) REFERENCES vehicles(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_service_vehicle_type ON service_records(vehicle_id, item_type);
	CREATE INDEX IF NOT EXISTS idx_samples_vehicle_ts ON raw_samples(vehicle_id, ts_ms);
	CREATE INDEX IF NOT EXISTS idx_sessions_vehicle_start ON driving_sessions(vehicle_id, start_ms);
	CREATE INDEX IF NOT EXISTS idx_sessions_end ON driving_sessions(end_ms);
	CREATE INDEX IF NOT EXISTS idx_alerts_vehicle ON alerts(vehicle_id, triggered_ms);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.conn.Close()
}

// Ping checks the connection
func (db *Database) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// InsertVehicle adds a new vehicle
func (db *Database) InsertVehicle(ctx context.Context, v *models.Vehicle) error {
	query := `INSERT INTO vehicles (id, name, license_plate, fuel_type, baseline_km, registered_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, query,
		v.ID, v.Name, v.LicensePlate, string(v.FuelType), v.BaselineKm, v.RegisteredAt.Format(dateLayout),
	)
	if err != nil {
		return fmt.Errorf("insert vehicle %s: %w", v.ID, err)
	}
	return nil
}

const vehicleColumns = `id, name, license_plate, fuel_type, baseline_km, registered_at, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVehicle(row rowScanner) (models.Vehicle, error) {
	var (
		v          models.Vehicle
		fuel       string
		registered string
		created    sql.NullTime
	)
	if err := row.Scan(&v.ID, &v.Name, &v.LicensePlate, &fuel, &v.BaselineKm, &registered, &created); err != nil {
		return v, err
	}
	v.FuelType = models.FuelType(fuel)
	t, err := time.Parse(dateLayout, registered)
	if err != nil {
		return v, fmt.Errorf("vehicle %s: bad registration date %q: %w", v.ID, registered, err)
	}
	v.RegisteredAt = t
	if created.Valid {
		v.CreatedAt = created.Time
	}
	return v, nil
}

// GetVehicle retrieves a vehicle by ID
func (db *Database) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	return getVehicle(ctx, db.conn, id)
}

func getVehicle(ctx context.Context, q queryer, id string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`

	v, err := scanVehicle(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVehicles returns all vehicles
func (db *Database) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles ORDER BY name`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// DeleteVehicle removes a vehicle and, by cascade, everything recorded for it
func (db *Database) DeleteVehicle(ctx context.Context, id string) error {
	return db.deleteOne(ctx, `DELETE FROM vehicles WHERE id = ?`, id, "vehicle")
}

func (db *Database) deleteOne(ctx context.Context, query string, id interface{}, what string) error {
	res, err := db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return nil
}

// InsertServiceRecord logs a maintenance job
func (db *Database) InsertServiceRecord(ctx context.Context, r *models.ServiceRecord) error {
	query := `INSERT INTO service_records (vehicle_id, item_type, service_date, odometer_km, cost) VALUES (?, ?, ?, ?, ?)`
	result, err := db.conn.ExecContext(ctx, query,
		r.VehicleID, r.ItemType, r.ServiceDate.Format(dateLayout), r.OdometerKm, r.Cost,
	)
	if err != nil {
		return fmt.Errorf("insert service record: %w", err)
	}

	id, _ := result.LastInsertId()
	r.ID = id
	return nil
}

// ListServiceRecords returns a vehicle's history, newest first
func (db *Database) ListServiceRecords(ctx context.Context, vehicleID string) ([]models.ServiceRecord, error) {
	return listServiceRecords(ctx, db.conn, vehicleID)
}

func listServiceRecords(ctx context.Context, q queryer, vehicleID string) ([]models.ServiceRecord, error) {
	query := `
		SELECT id, vehicle_id, item_type, service_date, odometer_km, cost
		FROM service_records
		WHERE vehicle_id = ?
		ORDER BY service_date DESC, id DESC
	`
	rows, err := q.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ServiceRecord
	for rows.Next() {
		var (
			r    models.ServiceRecord
			date string
		)
		if err := rows.Scan(&r.ID, &r.VehicleID, &r.ItemType, &date, &r.OdometerKm, &r.Cost); err != nil {
			return nil, err
		}
		if r.ServiceDate, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("service record %d: bad date %q: %w", r.ID, date, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteServiceRecord removes one history entry
func (db *Database) DeleteServiceRecord(ctx context.Context, id int64) error {
	return db.deleteOne(ctx, `DELETE FROM service_records WHERE id = ?`, id, "service record")
}

// InsertSamples efficiently inserts raw samples in one transaction
func (db *Database) InsertSamples(ctx context.Context, samples []models.RawSample) (int64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_samples
		(vehicle_id, ts_ms, speed, accel_x, accel_y, accel_z, gyro_x, gyro_y, gyro_z)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int64
	for _, s := range samples {
		_, err := stmt.ExecContext(ctx,
			s.VehicleID, toMillis(s.Timestamp), s.Speed,
			s.AccelX, s.AccelY, s.AccelZ, s.GyroX, s.GyroY, s.GyroZ,
		)
		if err != nil {
			return count, err
		}
		count++
	}

	return count, tx.Commit()
}

// QuerySamples returns a vehicle's samples within [start, end] in stream order
func (db *Database) QuerySamples(ctx context.Context, vehicleID string, start, end time.Time) ([]models.RawSample, error) {
	query := `
		SELECT id, vehicle_id, ts_ms, speed, accel_x, accel_y, accel_z, gyro_x, gyro_y, gyro_z
		FROM raw_samples
		WHERE vehicle_id = ? AND ts_ms BETWEEN ? AND ?
		ORDER BY ts_ms, id
	`
	rows, err := db.conn.QueryContext(ctx, query, vehicleID, toMillis(start), toMillis(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.RawSample
	for rows.Next() {
		var (
			s  models.RawSample
			ts int64
		)
		err := rows.Scan(&s.ID, &s.VehicleID, &ts, &s.Speed,
			&s.AccelX, &s.AccelY, &s.AccelZ, &s.GyroX, &s.GyroY, &s.GyroZ)
		if err != nil {
			return nil, err
		}
		s.Timestamp = fromMillis(ts)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// PurgeSamples deletes a vehicle's samples within [start, end]
func (db *Database) PurgeSamples(ctx context.Context, vehicleID string, start, end time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM raw_samples WHERE vehicle_id = ? AND ts_ms BETWEEN ? AND ?`,
		vehicleID, toMillis(start), toMillis(end),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FinalizeTrip stores a segmented session, optionally purging its raw samples
func (db *Database) FinalizeTrip(ctx context.Context, s *models.DrivingSession, purgeSamples bool) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO driving_sessions
		(vehicle_id, start_ms, end_ms, max_speed, average_speed, accelerations, brakings, distance_meters)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.VehicleID, toMillis(s.StartTime), toMillis(s.EndTime), s.MaxSpeed, s.AverageSpeed,
		s.Accelerations, s.Brakings, s.DistanceMeters,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	if purgeSamples {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM raw_samples WHERE vehicle_id = ? AND ts_ms BETWEEN ? AND ?`,
			s.VehicleID, toMillis(s.StartTime), toMillis(s.EndTime),
		)
		if err != nil {
			return fmt.Errorf("purge samples: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.ID = id
	return nil
}

// ListSessions retrieves sessions based on query parameters, newest first
func (db *Database) ListSessions(ctx context.Context, q models.SessionQuery) ([]models.DrivingSession, error) {
	return listSessions(ctx, db.conn, q)
}

func listSessions(ctx context.Context, qr queryer, q models.SessionQuery) ([]models.DrivingSession, error) {
	var conditions []string
	var args []interface{}

	baseQuery := `
		SELECT id, vehicle_id, start_ms, end_ms, max_speed, average_speed,
		       accelerations, brakings, distance_meters
		FROM driving_sessions
	`

	if q.VehicleID != "" {
		conditions = append(conditions, "vehicle_id = ?")
		args = append(args, q.VehicleID)
	}
	if !q.StartTime.IsZero() {
		conditions = append(conditions, "start_ms >= ?")
		args = append(args, toMillis(q.StartTime))
	}
	if !q.EndTime.IsZero() {
		conditions = append(conditions, "start_ms <= ?")
		args = append(args, toMillis(q.EndTime))
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	baseQuery += " ORDER BY start_ms DESC, id DESC"

	if q.Limit > 0 {
		baseQuery += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			baseQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	}

	rows, err := qr.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.DrivingSession
	for rows.Next() {
		var (
			s            models.DrivingSession
			start, endMs int64
		)
		err := rows.Scan(&s.ID, &s.VehicleID, &start, &endMs, &s.MaxSpeed, &s.AverageSpeed,
			&s.Accelerations, &s.Brakings, &s.DistanceMeters)
		if err != nil {
			return nil, err
		}
		s.StartTime = fromMillis(start)
		s.EndTime = fromMillis(endMs)
		results = append(results, s)
	}

	return results, rows.Err()
}

// DeleteSession removes a recorded session
func (db *Database) DeleteSession(ctx context.Context, id int64) error {
	return db.deleteOne(ctx, `DELETE FROM driving_sessions WHERE id = ?`, id, "session")
}

// Snapshot reads the vehicle, its history and its sessions in one read transaction
func (db *Database) Snapshot(ctx context.Context, vehicleID string) (*models.VehicleSnapshot, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := getVehicle(ctx, tx, vehicleID)
	if err != nil {
		return nil, err
	}
	history, err := listServiceRecords(ctx, tx, vehicleID)
	if err != nil {
		return nil, err
	}
	sessions, err := listSessions(ctx, tx, models.SessionQuery{VehicleID: vehicleID})
	if err != nil {
		return nil, err
	}

	return &models.VehicleSnapshot{Vehicle: *v, History: history, Sessions: sessions}, tx.Commit()
}

// RecordAlert keeps an audit row for a dispatched alert
func (db *Database) RecordAlert(ctx context.Context, a models.AlertSignal) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO alerts (vehicle_id, alert_type, score, triggered_ms) VALUES (?, ?, ?, ?)`,
		a.VehicleID, string(a.Type), a.Score, toMillis(a.TriggeredAt),
	)
	return err
}

// ListAlerts returns recorded alerts, newest first
func (db *Database) ListAlerts(ctx context.Context, vehicleID string, limit int) ([]models.AlertSignal, error) {
	query := `SELECT vehicle_id, alert_type, score, triggered_ms FROM alerts`

	var args []interface{}
	if vehicleID != "" {
		query += " WHERE vehicle_id = ?"
		args = append(args, vehicleID)
	}

	query += " ORDER BY triggered_ms DESC, id DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.AlertSignal
	for rows.Next() {
		var (
			a     models.AlertSignal
			typ   string
			trigd int64
		)
		if err := rows.Scan(&a.VehicleID, &typ, &a.Score, &trigd); err != nil {
			return nil, err
		}
		a.Type = models.AlertType(typ)
		a.TriggeredAt = fromMillis(trigd)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// GetVehicleSummary returns aggregated driving statistics for a vehicle
func (db *Database) GetVehicleSummary(ctx context.Context, vehicleID string) (*models.VehicleSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(distance_meters), 0) / 1000.0,
			COALESCE(MAX(max_speed), 0),
			COALESCE(SUM(accelerations), 0),
			COALESCE(SUM(brakings), 0),
			(SELECT COUNT(*) FROM service_records WHERE vehicle_id = ?)
		FROM driving_sessions
		WHERE vehicle_id = ?
	`

	s := models.VehicleSummary{VehicleID: vehicleID}
	err := db.conn.QueryRowContext(ctx, query, vehicleID, vehicleID).Scan(
		&s.TotalSessions, &s.TotalDistanceKm, &s.MaxSpeed,
		&s.Accelerations, &s.Brakings, &s.ServiceRecords,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStats returns database statistics
func (db *Database) GetStats(ctx context.Context) (map[string]interface{}, error) {
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
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(&n); err != nil {
			return nil, err
		}
		stats[c.key] = n
	}

	return stats, nil
}
