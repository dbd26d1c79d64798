package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autocare-monitor/internal/db"
	"autocare-monitor/internal/logging"
	"autocare-monitor/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	vehicles  map[string]bool
	samples   []models.RawSample
	sessions  []models.DrivingSession
	purged    int
	purgeFlag []bool
	failNext  error
}

func newFakeStore(ids ...string) *fakeStore {
	f := &fakeStore{vehicles: make(map[string]bool)}
	for _, id := range ids {
		f.vehicles[id] = true
	}
	return f
}

func (f *fakeStore) GetVehicle(_ context.Context, id string) (*models.Vehicle, error) {
	if !f.vehicles[id] {
		return nil, db.ErrNotFound
	}
	return &models.Vehicle{ID: id}, nil
}

func (f *fakeStore) InsertSamples(_ context.Context, s []models.RawSample) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, s...)
	return int64(len(s)), nil
}

func (f *fakeStore) PurgeSamples(_ context.Context, _ string, _, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged++
	return 0, nil
}

func (f *fakeStore) FinalizeTrip(_ context.Context, s *models.DrivingSession, purge bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	s.ID = int64(len(f.sessions) + 1)
	f.sessions = append(f.sessions, *s)
	f.purgeFlag = append(f.purgeFlag, purge)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

var tripStart = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func samplesAt(speeds ...float64) []models.RawSample {
	out := make([]models.RawSample, len(speeds))
	for i, v := range speeds {
		out[i] = models.RawSample{Timestamp: tripStart.Add(time.Duration(i) * time.Second), Speed: v}
	}
	return out
}

func newManager(t *testing.T, store Store, opts ...Option) (*Manager, *clock) {
	t.Helper()
	c := &clock{t: tripStart}
	opts = append([]Option{WithClock(c.now)}, opts...)
	return NewManager(store, logging.Discard(), opts...), c
}

func TestStartRecordStop(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("VEH-001")
	m, c := newManager(t, store)

	id, err := m.Start(ctx, "VEH-001")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	p, err := m.Record(ctx, "VEH-001", samplesAt(10, 10, 20)...)
	require.NoError(t, err)
	assert.Equal(t, id, p.TripID)
	assert.Equal(t, 3, p.Samples)
	assert.Equal(t, 1, p.Accelerations)
	assert.InDelta(t, 25.0, p.DistanceMeters, 1e-9)

	c.t = tripStart.Add(5 * time.Second)
	s, err := m.Stop(ctx, "VEH-001")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int64(1), s.ID)
	assert.Equal(t, "VEH-001", s.VehicleID)
	assert.True(t, s.StartTime.Equal(tripStart))
	assert.True(t, s.EndTime.Equal(c.t))
	assert.Equal(t, 1, s.Accelerations)

	assert.Len(t, store.samples, 3)
	for _, smp := range store.samples {
		assert.Equal(t, "VEH-001", smp.VehicleID)
	}
	assert.Equal(t, []bool{true}, store.purgeFlag)

	_, err = m.Progress("VEH-001")
	assert.ErrorIs(t, err, ErrNoActiveTrip)
}

func TestStart_OneTripPerVehicle(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, newFakeStore("VEH-001", "VEH-002"))

	_, err := m.Start(ctx, "VEH-001")
	require.NoError(t, err)
	_, err = m.Start(ctx, "VEH-001")
	assert.ErrorIs(t, err, ErrTripActive)

	_, err = m.Start(ctx, "VEH-002")
	assert.NoError(t, err)
	assert.Len(t, m.Active(), 2)

	_, err = m.Start(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestRecord_Rejections(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("VEH-001")
	m, _ := newManager(t, store)

	_, err := m.Record(ctx, "VEH-001", samplesAt(1)...)
	assert.ErrorIs(t, err, ErrNoActiveTrip)

	_, err = m.Start(ctx, "VEH-001")
	require.NoError(t, err)

	bad := samplesAt(1, 2)
	bad[1].VehicleID = "VEH-999"
	_, err = m.Record(ctx, "VEH-001", bad...)
	assert.ErrorIs(t, err, ErrVehicleMismatch)
	assert.Empty(t, store.samples, "a rejected batch is not persisted")
}

func TestStop_TooFewSamples(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("VEH-001")
	m, _ := newManager(t, store)

	_, err := m.Start(ctx, "VEH-001")
	require.NoError(t, err)
	_, err = m.Record(ctx, "VEH-001", samplesAt(5)...)
	require.NoError(t, err)

	s, err := m.Stop(ctx, "VEH-001")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Empty(t, store.sessions)
	assert.Equal(t, 1, store.purged)

	_, err = m.Stop(ctx, "VEH-001")
	assert.ErrorIs(t, err, ErrNoActiveTrip)
}

func TestStop_RetryAfterStorageError(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("VEH-001")
	m, _ := newManager(t, store, KeepSamples())

	_, err := m.Start(ctx, "VEH-001")
	require.NoError(t, err)
	_, err = m.Record(ctx, "VEH-001", samplesAt(3, 4)...)
	require.NoError(t, err)

	store.failNext = errors.New("disk full")
	_, err = m.Stop(ctx, "VEH-001")
	require.Error(t, err)

	p, err := m.Progress("VEH-001")
	require.NoError(t, err, "trip stays active after a failed stop")
	assert.Equal(t, 2, p.Samples)

	s, err := m.Stop(ctx, "VEH-001")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, []bool{false}, store.purgeFlag)
}

func TestRecord_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("VEH-001")
	m, _ := newManager(t, store)
	_, err := m.Start(ctx, "VEH-001")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = m.Record(ctx, "VEH-001", models.RawSample{Timestamp: tripStart.Add(time.Duration(i) * time.Second), Speed: 1})
		}(i)
	}
	wg.Wait()

	p, err := m.Progress("VEH-001")
	require.NoError(t, err)
	assert.Equal(t, 20, p.Samples)
	assert.Len(t, store.samples, 20)
}

func TestStopAll(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("VEH-001", "VEH-002")
	m, _ := newManager(t, store)

	for _, id := range []string{"VEH-001", "VEH-002"} {
		_, err := m.Start(ctx, id)
		require.NoError(t, err)
		_, err = m.Record(ctx, id, samplesAt(2, 2)...)
		require.NoError(t, err)
	}

	m.StopAll(ctx)
	assert.Empty(t, m.Active())
	assert.Len(t, store.sessions, 2)
}
