package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autocare-monitor/internal/models"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedVehicle(t *testing.T, db *Database, id string) models.Vehicle {
	t.Helper()
	v := models.Vehicle{
		ID:           id,
		Name:         "Car " + id,
		LicensePlate: "PL-" + id,
		FuelType:     models.FuelGasoline,
		BaselineKm:   50_000,
		RegisteredAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.InsertVehicle(context.Background(), &v))
	return v
}

func TestVehicleCRUD(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedVehicle(t, db, "VEH-002")
	seedVehicle(t, db, "VEH-001")

	v, err := db.GetVehicle(ctx, "VEH-001")
	require.NoError(t, err)
	assert.Equal(t, "Car VEH-001", v.Name)
	assert.Equal(t, models.FuelGasoline, v.FuelType)
	assert.Equal(t, 50_000, v.BaselineKm)
	assert.True(t, v.RegisteredAt.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))

	list, err := db.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "VEH-001", list[0].ID)

	dup := *v
	assert.Error(t, db.InsertVehicle(ctx, &dup))

	_, err = db.GetVehicle(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteVehicle(ctx, "missing"), ErrNotFound)
}

func TestServiceRecords(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedVehicle(t, db, "VEH-001")

	older := models.ServiceRecord{VehicleID: "VEH-001", ItemType: "engine_oil",
		ServiceDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), OdometerKm: 51_000, Cost: 80}
	newer := models.ServiceRecord{VehicleID: "VEH-001", ItemType: "tires",
		ServiceDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), OdometerKm: 58_000, Cost: 400}
	require.NoError(t, db.InsertServiceRecord(ctx, &older))
	require.NoError(t, db.InsertServiceRecord(ctx, &newer))
	assert.NotZero(t, older.ID)

	records, err := db.ListServiceRecords(ctx, "VEH-001")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "tires", records[0].ItemType)
	assert.True(t, records[1].ServiceDate.Equal(older.ServiceDate))

	require.NoError(t, db.DeleteServiceRecord(ctx, older.ID))
	assert.ErrorIs(t, db.DeleteServiceRecord(ctx, older.ID), ErrNotFound)
}

func TestFinalizeTrip_PurgesSamples(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedVehicle(t, db, "VEH-001")

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	var samples []models.RawSample
	for i := 0; i < 5; i++ {
		samples = append(samples, models.RawSample{
			VehicleID: "VEH-001",
			Timestamp: start.Add(time.Duration(i) * time.Second),
			Speed:     10,
		})
	}
	n, err := db.InsertSamples(ctx, samples)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	got, err := db.QuerySamples(ctx, "VEH-001", start, start.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.True(t, got[2].Timestamp.Equal(samples[2].Timestamp))

	session := models.DrivingSession{
		VehicleID:      "VEH-001",
		StartTime:      start,
		EndTime:        start.Add(4 * time.Second),
		MaxSpeed:       10,
		AverageSpeed:   10,
		DistanceMeters: 40,
	}
	require.NoError(t, db.FinalizeTrip(ctx, &session, true))
	assert.NotZero(t, session.ID)

	got, err = db.QuerySamples(ctx, "VEH-001", start, start.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, got)

	sessions, err := db.ListSessions(ctx, models.SessionQuery{VehicleID: "VEH-001"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 40.0, sessions[0].DistanceMeters)
	assert.True(t, sessions[0].EndTime.Equal(session.EndTime))
}

func TestFinalizeTrip_KeepsSamplesWhenAsked(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedVehicle(t, db, "VEH-001")

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	_, err := db.InsertSamples(ctx, []models.RawSample{{VehicleID: "VEH-001", Timestamp: start}})
	require.NoError(t, err)

	session := models.DrivingSession{VehicleID: "VEH-001", StartTime: start, EndTime: start.Add(time.Second)}
	require.NoError(t, db.FinalizeTrip(ctx, &session, false))

	got, err := db.QuerySamples(ctx, "VEH-001", start, start.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListSessions_Filters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedVehicle(t, db, "VEH-001")
	seedVehicle(t, db, "VEH-002")

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		s := models.DrivingSession{
			VehicleID:      "VEH-001",
			StartTime:      base.Add(time.Duration(i) * 24 * time.Hour),
			EndTime:        base.Add(time.Duration(i)*24*time.Hour + time.Hour),
			DistanceMeters: float64(i+1) * 1000,
		}
		require.NoError(t, db.FinalizeTrip(ctx, &s, false))
	}
	other := models.DrivingSession{VehicleID: "VEH-002", StartTime: base, EndTime: base.Add(time.Hour)}
	require.NoError(t, db.FinalizeTrip(ctx, &other, false))

	tests := []struct {
		name  string
		query models.SessionQuery
		want  []float64
	}{
		{"by vehicle newest first", models.SessionQuery{VehicleID: "VEH-001"}, []float64{4000, 3000, 2000, 1000}},
		{"start bound", models.SessionQuery{VehicleID: "VEH-001", StartTime: base.Add(48 * time.Hour)}, []float64{4000, 3000}},
		{"end bound", models.SessionQuery{VehicleID: "VEH-001", EndTime: base.Add(24 * time.Hour)}, []float64{2000, 1000}},
		{"limit offset", models.SessionQuery{VehicleID: "VEH-001", Limit: 2, Offset: 1}, []float64{3000, 2000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListSessions(ctx, tt.query)
			require.NoError(t, err)
			var dist []float64
			for _, s := range got {
				dist = append(dist, s.DistanceMeters)
			}
			assert.Equal(t, tt.want, dist)
		})
	}
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedVehicle(t, db, "VEH-001")

	r := models.ServiceRecord{VehicleID: "VEH-001", ItemType: "engine_oil",
		ServiceDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), OdometerKm: 55_000}
	require.NoError(t, db.InsertServiceRecord(ctx, &r))
	s := models.DrivingSession{VehicleID: "VEH-001", StartTime: time.Now().UTC(), EndTime: time.Now().UTC(), DistanceMeters: 1500}
	require.NoError(t, db.FinalizeTrip(ctx, &s, false))

	snap, err := db.Snapshot(ctx, "VEH-001")
	require.NoError(t, err)
	assert.Equal(t, "VEH-001", snap.Vehicle.ID)
	assert.Len(t, snap.History, 1)
	assert.Len(t, snap.Sessions, 1)

	_, err = db.Snapshot(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteVehicleCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedVehicle(t, db, "VEH-001")

	r := models.ServiceRecord{VehicleID: "VEH-001", ItemType: "tires", ServiceDate: time.Now().UTC()}
	require.NoError(t, db.InsertServiceRecord(ctx, &r))
	s := models.DrivingSession{VehicleID: "VEH-001", StartTime: time.Now().UTC(), EndTime: time.Now().UTC()}
	require.NoError(t, db.FinalizeTrip(ctx, &s, false))
	require.NoError(t, db.RecordAlert(ctx, models.AlertSignal{
		Type: models.AlertPredictiveMaintenance, VehicleID: "VEH-001", Score: 70, TriggeredAt: time.Now().UTC(),
	}))

	require.NoError(t, db.DeleteVehicle(ctx, "VEH-001"))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats["total_vehicles"])
	assert.Equal(t, int64(0), stats["total_service_records"])
	assert.Equal(t, int64(0), stats["total_sessions"])
	assert.Equal(t, int64(0), stats["total_alerts"])
}

func TestAlertsAndSummary(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedVehicle(t, db, "VEH-001")

	at := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	for i, score := range []int{61, 75} {
		require.NoError(t, db.RecordAlert(ctx, models.AlertSignal{
			Type:        models.AlertPredictiveMaintenance,
			VehicleID:   "VEH-001",
			Score:       score,
			TriggeredAt: at.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}
	alerts, err := db.ListAlerts(ctx, "VEH-001", 1)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 75, alerts[0].Score)
	assert.Equal(t, models.AlertPredictiveMaintenance, alerts[0].Type)

	for _, s := range []models.DrivingSession{
		{VehicleID: "VEH-001", StartTime: at, EndTime: at, MaxSpeed: 20, DistanceMeters: 1500, Accelerations: 2, Brakings: 1},
		{VehicleID: "VEH-001", StartTime: at, EndTime: at, MaxSpeed: 30, DistanceMeters: 500, Brakings: 3},
	} {
		s := s
		require.NoError(t, db.FinalizeTrip(ctx, &s, false))
	}

	sum, err := db.GetVehicleSummary(ctx, "VEH-001")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalSessions)
	assert.InDelta(t, 2.0, sum.TotalDistanceKm, 1e-9)
	assert.Equal(t, 30.0, sum.MaxSpeed)
	assert.Equal(t, 2, sum.Accelerations)
	assert.Equal(t, 4, sum.Brakings)
	assert.Zero(t, sum.ServiceRecords)
}
