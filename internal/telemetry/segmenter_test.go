package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autocare-monitor/internal/models"
)

var tripStart = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// samplesAt builds a window with a fixed spacing between samples
func samplesAt(step time.Duration, speeds ...float64) []models.RawSample {
	out := make([]models.RawSample, len(speeds))
	for i, v := range speeds {
		out[i] = models.RawSample{
			VehicleID: "VEH-001",
			Timestamp: tripStart.Add(time.Duration(i) * step),
			Speed:     v,
		}
	}
	return out
}

func TestSegmentSession_InsufficientSamples(t *testing.T) {
	end := tripStart.Add(time.Minute)

	_, ok := SegmentSession(nil, tripStart, end)
	assert.False(t, ok)

	_, ok = SegmentSession(samplesAt(time.Second, 12), tripStart, end)
	assert.False(t, ok)
}

func TestSegmentSession_ConstantSpeedDistance(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		n     int
	}{
		{"two samples", 10, 2},
		{"city", 13.89, 60},
		{"highway", 33.3, 600},
		{"standing", 0, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			speeds := make([]float64, tt.n)
			for i := range speeds {
				speeds[i] = tt.speed
			}
			s, ok := SegmentSession(samplesAt(time.Second, speeds...), tripStart, tripStart.Add(time.Hour))
			require.True(t, ok)
			assert.InDelta(t, tt.speed*float64(tt.n-1), s.DistanceMeters, 1e-6)
			assert.InDelta(t, tt.speed, s.AverageSpeed, 1e-9)
			assert.Equal(t, tt.speed, s.MaxSpeed)
			assert.Zero(t, s.Accelerations)
			assert.Zero(t, s.Brakings)
		})
	}
}

func TestSegmentSession_SummaryFields(t *testing.T) {
	end := tripStart.Add(10 * time.Minute)
	s, ok := SegmentSession(samplesAt(time.Second, 0, 4, 8, 8), tripStart, end)
	require.True(t, ok)

	assert.Equal(t, "VEH-001", s.VehicleID)
	assert.Equal(t, tripStart, s.StartTime)
	assert.Equal(t, end, s.EndTime)
	assert.Equal(t, 8.0, s.MaxSpeed)
	assert.InDelta(t, 5.0, s.AverageSpeed, 1e-9)
	// trapezoids: 2 + 6 + 8
	assert.InDelta(t, 16.0, s.DistanceMeters, 1e-9)
}

func TestSegmentSession_DiscardsOutOfRangeIntervals(t *testing.T) {
	samples := []models.RawSample{
		{VehicleID: "VEH-001", Timestamp: tripStart, Speed: 10},
		{VehicleID: "VEH-001", Timestamp: tripStart.Add(1 * time.Second), Speed: 10},
		// stream gap: 30 s
		{VehicleID: "VEH-001", Timestamp: tripStart.Add(31 * time.Second), Speed: 10},
		// sensor chatter: 100 ms
		{VehicleID: "VEH-001", Timestamp: tripStart.Add(31*time.Second + 100*time.Millisecond), Speed: 10},
		{VehicleID: "VEH-001", Timestamp: tripStart.Add(32*time.Second + 100*time.Millisecond), Speed: 10},
	}

	s, ok := SegmentSession(samples, tripStart, samples[len(samples)-1].Timestamp)
	require.True(t, ok)
	assert.InDelta(t, 20.0, s.DistanceMeters, 1e-9)
	assert.InDelta(t, 10.0, s.AverageSpeed, 1e-9)
}

func TestSegmentSession_IntervalBoundsAreInclusive(t *testing.T) {
	low, ok := SegmentSession(samplesAt(MinPairInterval, 10, 10), tripStart, tripStart.Add(time.Second))
	require.True(t, ok)
	assert.InDelta(t, 4.0, low.DistanceMeters, 1e-9)

	high, ok := SegmentSession(samplesAt(MaxPairInterval, 10, 10), tripStart, tripStart.Add(time.Minute))
	require.True(t, ok)
	assert.InDelta(t, 60.0, high.DistanceMeters, 1e-9)
}

func TestSegmentSession_OutOfOrderSampleIsSkipped(t *testing.T) {
	samples := []models.RawSample{
		{VehicleID: "VEH-001", Timestamp: tripStart.Add(2 * time.Second), Speed: 10},
		{VehicleID: "VEH-001", Timestamp: tripStart.Add(1 * time.Second), Speed: 10},
		{VehicleID: "VEH-001", Timestamp: tripStart.Add(2 * time.Second), Speed: 10},
	}
	s, ok := SegmentSession(samples, tripStart, tripStart.Add(time.Minute))
	require.True(t, ok)
	assert.InDelta(t, 10.0, s.DistanceMeters, 1e-9)
}

func TestSegmentSession_HarshAcceleration(t *testing.T) {
	// ema 10 -> 12.5: dv 2.5, a 2.5 m/s²
	s, ok := SegmentSession(samplesAt(time.Second, 10, 10, 20), tripStart, tripStart.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, 1, s.Accelerations)
	assert.Zero(t, s.Brakings)
}

func TestSegmentSession_AccelerationFromStandstillIgnored(t *testing.T) {
	// ema below the moving threshold, so the jump is not counted
	s, ok := SegmentSession(samplesAt(time.Second, 2, 2, 14), tripStart, tripStart.Add(time.Minute))
	require.True(t, ok)
	assert.Zero(t, s.Accelerations)
}

func TestSegmentSession_HarshBrakingSpacedApart(t *testing.T) {
	// first brake at t=2s (ema 20 -> 17.5), second at t=5s (ema 14.22 -> 11.16)
	s, ok := SegmentSession(samplesAt(time.Second, 20, 20, 10, 10, 10, 2), tripStart, tripStart.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, 2, s.Brakings)
	assert.Zero(t, s.Accelerations)
}

func TestSegmentSession_HarshBrakingDebounced(t *testing.T) {
	// both pairs qualify as braking, but only 500 ms apart
	s, ok := SegmentSession(samplesAt(500*time.Millisecond, 20, 20, 10, 0), tripStart, tripStart.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, 1, s.Brakings)
}

func TestSegmentSession_AccelerationThenBraking(t *testing.T) {
	// accel at t=2s (ema 10 -> 12.5), brake at t=4s (ema 14.375 -> 10.78)
	s, ok := SegmentSession(samplesAt(time.Second, 10, 10, 20, 20, 0), tripStart, tripStart.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, 1, s.Accelerations)
	assert.Equal(t, 1, s.Brakings)
}

func TestSegmenter_IncrementalMatchesBatch(t *testing.T) {
	samples := samplesAt(time.Second, 0, 5, 12, 20, 20, 10, 10, 10, 2, 0, 0, 8, 16)
	end := tripStart.Add(20 * time.Second)

	seg := NewSegmenter("VEH-001", tripStart)
	for i, sample := range samples {
		seg.Append(sample)
		assert.Equal(t, i+1, seg.Count())
	}
	incremental, ok := seg.Finalize(end)
	require.True(t, ok)

	batch, ok := SegmentSession(samples, tripStart, end)
	require.True(t, ok)
	assert.Equal(t, batch, incremental)

	progress := seg.Progress()
	assert.Equal(t, len(samples), progress.Samples)
	assert.InDelta(t, batch.DistanceMeters, progress.DistanceMeters, 1e-9)
}

func TestAggressivenessPer100Km(t *testing.T) {
	s := models.DrivingSession{DistanceMeters: 50_000, Accelerations: 3, Brakings: 2}
	assert.InDelta(t, 10.0, AggressivenessPer100Km(s), 1e-9)

	short := models.DrivingSession{DistanceMeters: 20, Brakings: 1}
	assert.InDelta(t, 1000.0, AggressivenessPer100Km(short), 1e-9)
}
