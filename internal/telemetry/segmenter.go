// Package telemetry turns the raw motion samples of one trip into a
// DrivingSession summary.
package telemetry

import (
	"time"

	"autocare-monitor/internal/models"
)

// Tuning values for segmentation. Speeds are in m/s.
const (
	SmoothingAlpha = 0.25

	MinPairInterval = 400 * time.Millisecond
	MaxPairInterval = 6 * time.Second

	EventDebounce = 1200 * time.Millisecond

	AccelMinSpeed = 3.0
	AccelMinRate  = 1.8
	AccelMinDelta = 2.0

	BrakeMinSpeed = 5.0
	BrakeMaxRate  = -2.2
	BrakeMaxDelta = -2.0

	minSamples = 2
)

// Segmenter accumulates one trip incrementally. Each appended sample is
// evaluated against the previous one, so Finalize is O(1).
// A Segmenter is not safe for concurrent use.
type Segmenter struct {
	vehicleID string
	tripStart time.Time

	count    int
	prev     models.RawSample
	ema      float64
	maxSpeed float64
	sumSpeed float64

	distance      float64
	accelerations int
	brakings      int

	lastEvent    time.Time
	hasLastEvent bool
}

// NewSegmenter starts a segmenter for a trip that began at tripStart
func NewSegmenter(vehicleID string, tripStart time.Time) *Segmenter {
	return &Segmenter{vehicleID: vehicleID, tripStart: tripStart}
}

// Append feeds the next sample in stream order
func (s *Segmenter) Append(sample models.RawSample) {
	s.count++
	s.sumSpeed += sample.Speed

	if s.count == 1 {
		s.prev = sample
		s.ema = sample.Speed
		s.maxSpeed = sample.Speed
		return
	}
	if sample.Speed > s.maxSpeed {
		s.maxSpeed = sample.Speed
	}

	prev := s.prev
	s.prev = sample

	elapsed := sample.Timestamp.Sub(prev.Timestamp)
	if elapsed < MinPairInterval || elapsed > MaxPairInterval {
		return
	}
	dt := elapsed.Seconds()

	s.distance += 0.5 * (prev.Speed + sample.Speed) * dt

	emaPrev := s.ema
	emaCurr := SmoothingAlpha*sample.Speed + (1-SmoothingAlpha)*emaPrev
	dv := emaCurr - emaPrev
	a := dv / dt
	s.ema = emaCurr

	free := !s.hasLastEvent || sample.Timestamp.Sub(s.lastEvent) >= EventDebounce
	if !free {
		return
	}

	switch {
	case emaPrev > AccelMinSpeed && a > AccelMinRate && dv > AccelMinDelta:
		s.accelerations++
		s.markEvent(sample.Timestamp)
	case emaPrev > BrakeMinSpeed && a < BrakeMaxRate && dv < BrakeMaxDelta:
		s.brakings++
		s.markEvent(sample.Timestamp)
	}
}

func (s *Segmenter) markEvent(ts time.Time) {
	s.lastEvent = ts
	s.hasLastEvent = true
}

// Count returns the number of samples appended so far
func (s *Segmenter) Count() int {
	return s.count
}

// Progress returns the running totals without finalizing
func (s *Segmenter) Progress() models.TripProgress {
	return models.TripProgress{
		VehicleID:      s.vehicleID,
		StartTime:      s.tripStart,
		Samples:        s.count,
		DistanceMeters: s.distance,
		MaxSpeed:       s.maxSpeed,
		Accelerations:  s.accelerations,
		Brakings:       s.brakings,
	}
}

// Finalize closes the trip at tripEnd. It returns false when fewer than two
// samples were appended; that is not an error.
func (s *Segmenter) Finalize(tripEnd time.Time) (models.DrivingSession, bool) {
	if s.count < minSamples {
		return models.DrivingSession{}, false
	}
	return models.DrivingSession{
		VehicleID:      s.vehicleID,
		StartTime:      s.tripStart,
		EndTime:        tripEnd,
		MaxSpeed:       s.maxSpeed,
		AverageSpeed:   s.sumSpeed / float64(s.count),
		Accelerations:  s.accelerations,
		Brakings:       s.brakings,
		DistanceMeters: s.distance,
	}, true
}

// SegmentSession summarizes an ordered sample window for one trip.
// The vehicle id is taken from the first sample.
func SegmentSession(samples []models.RawSample, tripStart, tripEnd time.Time) (models.DrivingSession, bool) {
	if len(samples) < minSamples {
		return models.DrivingSession{}, false
	}
	seg := NewSegmenter(samples[0].VehicleID, tripStart)
	for _, sample := range samples {
		seg.Append(sample)
	}
	return seg.Finalize(tripEnd)
}

// AggressivenessPer100Km normalizes harsh events by distance. Distances under
// 100 m count as 100 m so short hops do not explode the ratio.
func AggressivenessPer100Km(s models.DrivingSession) float64 {
	km := s.DistanceKm()
	if km < 0.1 {
		km = 0.1
	}
	return float64(s.HarshEvents()) / km * 100
}
