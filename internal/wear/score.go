// Package wear rates recent driving severity and decides whether the owner
// should be nudged toward early maintenance.
package wear

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"autocare-monitor/internal/maintenance"
	"autocare-monitor/internal/models"
	"autocare-monitor/internal/telemetry"
)

// Window is the look-back period for the wear score
const Window = 7 * 24 * time.Hour

// AlertThreshold is the minimum score that can trigger an alert
const AlertThreshold = 60

// Sub-score caps and weights
const (
	distanceCapKm  = 500.0
	distanceWeight = 40.0
	eventsCapPerKm = 10.0
	eventsWeight   = 35.0
	speedCapKmh    = 120.0
	speedWeight    = 25.0
	defaultLastN   = 10
	secondsPerHour = 3600.0
)

// RecentSessions keeps the sessions that started within window before now
func RecentSessions(sessions []models.DrivingSession, now time.Time, window time.Duration) []models.DrivingSession {
	cutoff := now.Add(-window)
	var out []models.DrivingSession
	for _, s := range sessions {
		if !s.StartTime.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Score rates the recent sessions and checks the projections for an item in
// the alert window.
func Score(recent []models.DrivingSession, projections []models.MaintenanceProjection) models.WearScore {
	var ws models.WearScore
	for _, p := range projections {
		if maintenance.DueSoonForAlert(p) {
			ws.DueSoonItems++
		}
	}
	if len(recent) == 0 {
		return ws
	}

	var (
		totalKm     float64
		totalSecs   float64
		totalEvents int
	)
	for _, s := range recent {
		totalKm += s.DistanceKm()
		totalSecs += s.Duration().Seconds()
		totalEvents += s.HarshEvents()
	}

	kmScore := math.Min(totalKm, distanceCapKm) / distanceCapKm * distanceWeight

	var eventsPerKm float64
	if totalKm > 0 {
		eventsPerKm = float64(totalEvents) / totalKm
	}
	eventsScore := math.Min(eventsPerKm, eventsCapPerKm) / eventsCapPerKm * eventsWeight

	var avgSpeed float64
	if totalSecs > 0 {
		avgSpeed = totalKm * secondsPerHour / totalSecs
	}
	speedScore := math.Min(avgSpeed, speedCapKmh) / speedCapKmh * speedWeight

	ws.Score = int(math.Floor(kmScore + eventsScore + speedScore))
	ws.Sessions = len(recent)
	ws.DistanceKm = totalKm
	ws.EventsPerKm = eventsPerKm
	ws.AvgSpeedKmh = avgSpeed
	ws.ShouldAlert = ws.Score >= AlertThreshold && ws.DueSoonItems > 0
	return ws
}

// Decide turns a score into an alert signal for the dispatcher, or nil
func Decide(vehicleID string, ws models.WearScore, at time.Time) *models.AlertSignal {
	if !ws.ShouldAlert {
		return nil
	}
	return &models.AlertSignal{
		Type:        models.AlertPredictiveMaintenance,
		VehicleID:   vehicleID,
		Score:       ws.Score,
		TriggeredAt: at,
	}
}

// AverageAggressiveness is the mean harsh events per 100 km over the lastN
// most recently ended sessions. lastN <= 0 uses 10.
func AverageAggressiveness(sessions []models.DrivingSession, lastN int) float64 {
	if len(sessions) == 0 {
		return 0
	}
	if lastN <= 0 {
		lastN = defaultLastN
	}

	sorted := make([]models.DrivingSession, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EndTime.After(sorted[j].EndTime)
	})
	if len(sorted) > lastN {
		sorted = sorted[:lastN]
	}

	values := make([]float64, len(sorted))
	for i, s := range sorted {
		values[i] = telemetry.AggressivenessPer100Km(s)
	}
	return stat.Mean(values, nil)
}
