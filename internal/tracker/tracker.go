// Package tracker owns the lifecycle of active trips: at most one per vehicle,
// segmented incrementally as samples arrive and finalized on stop.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"autocare-monitor/internal/metrics"
	"autocare-monitor/internal/models"
	"autocare-monitor/internal/telemetry"
)

var (
	ErrNoActiveTrip    = errors.New("no active trip for vehicle")
	ErrTripActive      = errors.New("vehicle already has an active trip")
	ErrVehicleMismatch = errors.New("sample belongs to another vehicle")
)

// Store is the persistence the tracker needs
type Store interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	InsertSamples(ctx context.Context, samples []models.RawSample) (int64, error)
	PurgeSamples(ctx context.Context, vehicleID string, start, end time.Time) (int64, error)
	FinalizeTrip(ctx context.Context, s *models.DrivingSession, purgeSamples bool) error
}

type trip struct {
	mu     sync.Mutex
	id     string
	seg    *telemetry.Segmenter
	closed bool
}

// Manager tracks active trips. It is safe for concurrent use.
type Manager struct {
	store        Store
	log          *slog.Logger
	purgeSamples bool
	now          func() time.Time

	mu    sync.Mutex
	trips map[string]*trip
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// KeepSamples leaves raw samples in storage after a trip is finalized
func KeepSamples() Option {
	return func(m *Manager) { m.purgeSamples = false }
}

func NewManager(store Store, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		log:          log,
		purgeSamples: true,
		now:          func() time.Time { return time.Now().UTC() },
		trips:        make(map[string]*trip),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a trip for the vehicle and returns its id
func (m *Manager) Start(ctx context.Context, vehicleID string) (string, error) {
	if _, err := m.store.GetVehicle(ctx, vehicleID); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.trips[vehicleID]; ok && !t.isClosed() {
		return "", fmt.Errorf("%s: %w", vehicleID, ErrTripActive)
	}

	t := &trip{
		id:  uuid.NewString(),
		seg: telemetry.NewSegmenter(vehicleID, m.now()),
	}
	m.trips[vehicleID] = t
	metrics.TripsStarted.Add(1)

	m.log.Info("trip started", "vehicle_id", vehicleID, "trip_id", t.id)
	return t.id, nil
}

// Record persists samples and feeds them to the trip's segmenter in order.
// Samples with an empty vehicle id are attributed to vehicleID.
func (m *Manager) Record(ctx context.Context, vehicleID string, samples ...models.RawSample) (models.TripProgress, error) {
	t, err := m.active(vehicleID)
	if err != nil {
		return models.TripProgress{}, err
	}

	batch := make([]models.RawSample, len(samples))
	for i, s := range samples {
		if s.VehicleID == "" {
			s.VehicleID = vehicleID
		}
		if s.VehicleID != vehicleID {
			metrics.SamplesRejected.Add(int64(len(samples)))
			return models.TripProgress{}, fmt.Errorf("%s != %s: %w", s.VehicleID, vehicleID, ErrVehicleMismatch)
		}
		batch[i] = s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return models.TripProgress{}, fmt.Errorf("%s: %w", vehicleID, ErrNoActiveTrip)
	}

	if len(batch) > 0 {
		if _, err := m.store.InsertSamples(ctx, batch); err != nil {
			return models.TripProgress{}, fmt.Errorf("persist samples: %w", err)
		}
	}
	for _, s := range batch {
		t.seg.Append(s)
	}
	metrics.SamplesRecorded.Add(int64(len(batch)))

	return t.progress(), nil
}

// Stop finalizes the active trip. The returned session is nil when the trip
// collected fewer than two samples. On a storage error the trip stays active
// so Stop can be retried.
func (m *Manager) Stop(ctx context.Context, vehicleID string) (*models.DrivingSession, error) {
	t, err := m.active(vehicleID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", vehicleID, ErrNoActiveTrip)
	}

	end := m.now()
	start := t.seg.Progress().StartTime
	session, ok := t.seg.Finalize(end)

	var result *models.DrivingSession
	if ok {
		if err := m.store.FinalizeTrip(ctx, &session, m.purgeSamples); err != nil {
			t.mu.Unlock()
			return nil, fmt.Errorf("finalize trip %s: %w", t.id, err)
		}
		result = &session
		metrics.SessionsFinalized.Add(1)
	} else {
		metrics.SessionsEmpty.Add(1)
		if m.purgeSamples {
			if _, err := m.store.PurgeSamples(ctx, vehicleID, start, end); err != nil {
				m.log.Warn("purge samples failed", "vehicle_id", vehicleID, "trip_id", t.id, "error", err)
			}
		}
	}
	t.closed = true
	t.mu.Unlock()

	m.mu.Lock()
	if m.trips[vehicleID] == t {
		delete(m.trips, vehicleID)
	}
	m.mu.Unlock()

	if result != nil {
		m.log.Info("trip finalized",
			"vehicle_id", vehicleID,
			"trip_id", t.id,
			"session_id", result.ID,
			"distance_m", result.DistanceMeters,
			"accelerations", result.Accelerations,
			"brakings", result.Brakings,
		)
	} else {
		m.log.Info("trip stopped without a session", "vehicle_id", vehicleID, "trip_id", t.id)
	}
	return result, nil
}

// Progress returns the live view of a vehicle's active trip
func (m *Manager) Progress(vehicleID string) (models.TripProgress, error) {
	t, err := m.active(vehicleID)
	if err != nil {
		return models.TripProgress{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress(), nil
}

// Active lists every active trip ordered by vehicle id
func (m *Manager) Active() []models.TripProgress {
	m.mu.Lock()
	trips := make([]*trip, 0, len(m.trips))
	for _, t := range m.trips {
		trips = append(trips, t)
	}
	m.mu.Unlock()

	out := make([]models.TripProgress, 0, len(trips))
	for _, t := range trips {
		t.mu.Lock()
		if !t.closed {
			out = append(out, t.progress())
		}
		t.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

// StopAll finalizes every active trip, used on shutdown
func (m *Manager) StopAll(ctx context.Context) {
	for _, p := range m.Active() {
		if _, err := m.Stop(ctx, p.VehicleID); err != nil && !errors.Is(err, ErrNoActiveTrip) {
			m.log.Error("stop trip on shutdown failed", "vehicle_id", p.VehicleID, "error", err)
		}
	}
}

func (m *Manager) active(vehicleID string) (*trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[vehicleID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", vehicleID, ErrNoActiveTrip)
	}
	return t, nil
}

func (t *trip) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// progress must be called with t.mu held
func (t *trip) progress() models.TripProgress {
	p := t.seg.Progress()
	p.TripID = t.id
	return p
}
