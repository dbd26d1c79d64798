package wear

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autocare-monitor/internal/models"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func trip(start time.Time, dur time.Duration, meters float64, accel, brake int) models.DrivingSession {
	return models.DrivingSession{
		VehicleID:      "VEH-001",
		StartTime:      start,
		EndTime:        start.Add(dur),
		DistanceMeters: meters,
		Accelerations:  accel,
		Brakings:       brake,
	}
}

var dueSoon = []models.MaintenanceProjection{
	{ItemType: "engine_oil", RemainingKm: intp(3_000), Status: models.StatusSoon},
}

var nothingDue = []models.MaintenanceProjection{
	{ItemType: "engine_oil", RemainingKm: intp(25_000), RemainingDays: intp(200), Status: models.StatusOK},
}

func TestScore_NoSessions(t *testing.T) {
	ws := Score(nil, dueSoon)
	assert.Zero(t, ws.Score)
	assert.False(t, ws.ShouldAlert)
}

func TestScore_AllAxesCapped(t *testing.T) {
	// 500 km, 5000 events (10/km), 15000 s (120 km/h)
	s := trip(now.Add(-24*time.Hour), 15_000*time.Second, 500_000, 2_500, 2_500)
	ws := Score([]models.DrivingSession{s}, dueSoon)
	assert.Equal(t, 100, ws.Score)
	assert.True(t, ws.ShouldAlert)
	assert.InDelta(t, 120.0, ws.AvgSpeedKmh, 1e-9)
	assert.InDelta(t, 10.0, ws.EventsPerKm, 1e-9)
}

func TestScore_CapsPreventOverflow(t *testing.T) {
	s := trip(now.Add(-time.Hour), 3_600*time.Second, 2_000_000, 40_000, 0)
	ws := Score([]models.DrivingSession{s}, nil)
	assert.Equal(t, 100, ws.Score)
	assert.False(t, ws.ShouldAlert, "no projection in the alert window")
}

func TestScore_SubScores(t *testing.T) {
	tests := []struct {
		name     string
		sessions []models.DrivingSession
		want     int
	}{
		// 250 km -> 20, 1 event/km -> 3.5, 50 km/h -> 10.41
		{"half distance", []models.DrivingSession{trip(now.Add(-time.Hour), 5*time.Hour, 250_000, 150, 100)}, 33},
		// 10 km -> 0.8, 0 events, 60 km/h -> 12.5
		{"short gentle trip", []models.DrivingSession{trip(now.Add(-time.Hour), 10*time.Minute, 10_000, 0, 0)}, 13},
		// distance summed across sessions: 2 x 100 km in 2 x 1 h -> 16 + 0 + 20.83
		{"two sessions", []models.DrivingSession{
			trip(now.Add(-48*time.Hour), time.Hour, 100_000, 0, 0),
			trip(now.Add(-24*time.Hour), time.Hour, 100_000, 0, 0),
		}, 36},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.sessions, nil).Score)
		})
	}
}

func TestScore_ZeroDistanceAndTimeGuarded(t *testing.T) {
	s := trip(now, 0, 0, 3, 1)
	ws := Score([]models.DrivingSession{s}, dueSoon)
	assert.Zero(t, ws.Score)
	assert.Zero(t, ws.EventsPerKm)
	assert.Zero(t, ws.AvgSpeedKmh)
}

func TestScore_NegativeDurationClamped(t *testing.T) {
	s := trip(now, -time.Hour, 60_000, 0, 0)
	ws := Score([]models.DrivingSession{s}, nil)
	// 60 km -> 4.8, no time -> no speed score
	assert.Equal(t, 4, ws.Score)
}

func TestScore_AlertNeedsBothConditions(t *testing.T) {
	heavy := []models.DrivingSession{trip(now.Add(-time.Hour), 15_000*time.Second, 500_000, 2_500, 2_500)}
	light := []models.DrivingSession{trip(now.Add(-time.Hour), time.Hour, 20_000, 0, 0)}

	assert.True(t, Score(heavy, dueSoon).ShouldAlert)
	assert.False(t, Score(heavy, nothingDue).ShouldAlert)
	assert.False(t, Score(light, dueSoon).ShouldAlert)

	// the alert window is stricter on days than the display SOON status
	display := []models.MaintenanceProjection{{RemainingDays: intp(25), Status: models.StatusSoon}}
	assert.False(t, Score(heavy, display).ShouldAlert)
}

func TestScore_ThresholdBoundary(t *testing.T) {
	// 500 km -> 40, 0 events, 96 km/h -> 20: exactly 60
	s := trip(now.Add(-time.Hour), 18_750*time.Second, 500_000, 0, 0)
	ws := Score([]models.DrivingSession{s}, dueSoon)
	assert.Equal(t, 60, ws.Score)
	assert.True(t, ws.ShouldAlert)
}

func TestRecentSessions(t *testing.T) {
	sessions := []models.DrivingSession{
		trip(now.Add(-8*24*time.Hour), time.Hour, 1, 0, 0),
		trip(now.Add(-Window), time.Hour, 2, 0, 0),
		trip(now.Add(-2*time.Hour), time.Hour, 3, 0, 0),
	}
	got := RecentSessions(sessions, now, Window)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].DistanceMeters)
	assert.Equal(t, 3.0, got[1].DistanceMeters)

	assert.Empty(t, RecentSessions(nil, now, Window))
}

func TestDecide(t *testing.T) {
	assert.Nil(t, Decide("VEH-001", models.WearScore{Score: 90}, now))

	sig := Decide("VEH-001", models.WearScore{Score: 72, ShouldAlert: true}, now)
	require.NotNil(t, sig)
	assert.Equal(t, models.AlertPredictiveMaintenance, sig.Type)
	assert.Equal(t, "VEH-001", sig.VehicleID)
	assert.Equal(t, 72, sig.Score)
	assert.Equal(t, now, sig.TriggeredAt)
}

func TestAverageAggressiveness(t *testing.T) {
	assert.Zero(t, AverageAggressiveness(nil, 10))

	sessions := []models.DrivingSession{
		trip(now.Add(-72*time.Hour), time.Hour, 100_000, 10, 0), // 10 / 100 km, oldest
		trip(now.Add(-48*time.Hour), time.Hour, 100_000, 2, 2),  // 4 / 100 km
		trip(now.Add(-24*time.Hour), time.Hour, 50_000, 1, 0),   // 2 / 100 km
	}
	assert.InDelta(t, 16.0/3.0, AverageAggressiveness(sessions, 0), 1e-9)
	assert.InDelta(t, 3.0, AverageAggressiveness(sessions, 2), 1e-9)
}
