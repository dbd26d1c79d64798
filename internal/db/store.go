package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autocare-monitor/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Store is the persistence surface used by the API, tracker and evaluator
type Store interface {
	InsertVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	DeleteVehicle(ctx context.Context, id string) error

	InsertServiceRecord(ctx context.Context, r *models.ServiceRecord) error
	ListServiceRecords(ctx context.Context, vehicleID string) ([]models.ServiceRecord, error)
	DeleteServiceRecord(ctx context.Context, id int64) error

	InsertSamples(ctx context.Context, samples []models.RawSample) (int64, error)
	QuerySamples(ctx context.Context, vehicleID string, start, end time.Time) ([]models.RawSample, error)
	PurgeSamples(ctx context.Context, vehicleID string, start, end time.Time) (int64, error)

	// FinalizeTrip stores the session and, when purgeSamples is set, deletes the
	// trip's raw samples in the same transaction.
	FinalizeTrip(ctx context.Context, s *models.DrivingSession, purgeSamples bool) error
	ListSessions(ctx context.Context, q models.SessionQuery) ([]models.DrivingSession, error)
	DeleteSession(ctx context.Context, id int64) error

	// Snapshot reads a vehicle with its history and sessions in one transaction
	Snapshot(ctx context.Context, vehicleID string) (*models.VehicleSnapshot, error)

	RecordAlert(ctx context.Context, a models.AlertSignal) error
	ListAlerts(ctx context.Context, vehicleID string, limit int) ([]models.AlertSignal, error)

	GetVehicleSummary(ctx context.Context, vehicleID string) (*models.VehicleSummary, error)
	GetStats(ctx context.Context) (map[string]interface{}, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open selects a Store implementation by driver name
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		db, err := New(dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres", "pgx":
		pg, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

const dateLayout = "2006-01-02"

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var (
	_ Store = (*Database)(nil)
	_ Store = (*PostgresStore)(nil)
)
