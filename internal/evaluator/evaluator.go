// Package evaluator runs the periodic maintenance pass: for every vehicle it
// projects the catalog, scores recent driving and dispatches alert signals.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"autocare-monitor/internal/catalog"
	"autocare-monitor/internal/maintenance"
	"autocare-monitor/internal/metrics"
	"autocare-monitor/internal/models"
	"autocare-monitor/internal/notify"
	"autocare-monitor/internal/wear"
)

// DefaultInterval is the pause between scheduled passes
const DefaultInterval = 24 * time.Hour

// Store is the read side the evaluator needs
type Store interface {
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	Snapshot(ctx context.Context, vehicleID string) (*models.VehicleSnapshot, error)
}

// Result is the outcome of evaluating one vehicle
type Result struct {
	VehicleID   string                         `json:"vehicle_id"`
	CurrentKm   int                            `json:"current_km"`
	Projections []models.MaintenanceProjection `json:"projections"`
	Wear        models.WearScore               `json:"wear"`
	Alert       *models.AlertSignal            `json:"alert,omitempty"`
	Delivered   bool                           `json:"delivered"`
}

// Report summarizes one pass over every vehicle
type Report struct {
	Evaluated int              `json:"evaluated"`
	Alerts    int              `json:"alerts"`
	Failures  map[string]error `json:"-"`
	Duration  time.Duration    `json:"duration"`
}

type Evaluator struct {
	store      Store
	dispatcher notify.Dispatcher
	entries    []models.CatalogEntry
	log        *slog.Logger

	Workers  int
	Interval time.Duration
	Window   time.Duration
	Now      func() time.Time
}

// New builds an evaluator over the default catalog. A nil dispatcher only
// computes results.
func New(store Store, dispatcher notify.Dispatcher, log *slog.Logger) *Evaluator {
	return &Evaluator{
		store:      store,
		dispatcher: dispatcher,
		entries:    catalog.Default(),
		log:        log,
		Workers:    4,
		Interval:   DefaultInterval,
		Window:     wear.Window,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// EvaluateVehicle runs projection, scoring and the alert decision for one
// vehicle against a single consistent snapshot.
func (e *Evaluator) EvaluateVehicle(ctx context.Context, vehicleID string) (*Result, error) {
	snap, err := e.store.Snapshot(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	now := e.Now()
	res := Evaluate(*snap, e.entries, now, e.Window)

	if res.Alert != nil && e.dispatcher != nil {
		delivered, err := e.dispatcher.Dispatch(ctx, *res.Alert)
		if err != nil {
			return res, fmt.Errorf("dispatch alert: %w", err)
		}
		res.Delivered = delivered
	}

	metrics.Evaluations.Add(1)
	return res, nil
}

// Evaluate is the pure part of a pass over one snapshot. Current distance is
// resolved once and shared by every projection.
func Evaluate(snap models.VehicleSnapshot, entries []models.CatalogEntry, now time.Time, window time.Duration) *Result {
	v := snap.Vehicle
	currentKm := maintenance.CurrentDistanceKm(v, snap.Sessions)
	projections := maintenance.ProjectFrom(v, snap.History, currentKm, entries, now)

	recent := wear.RecentSessions(snap.Sessions, now, window)
	ws := wear.Score(recent, projections)

	return &Result{
		VehicleID:   v.ID,
		CurrentKm:   currentKm,
		Projections: projections,
		Wear:        ws,
		Alert:       wear.Decide(v.ID, ws, now),
	}
}

// RunOnce evaluates every vehicle with a bounded worker pool. A failure on
// one vehicle is logged and recorded in the report; the others still run.
func (e *Evaluator) RunOnce(ctx context.Context) (*Report, error) {
	started := time.Now()

	vehicles, err := e.store.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}

	report := &Report{Failures: make(map[string]error)}
	var mu sync.Mutex

	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for _, v := range vehicles {
		vehicleID := v.ID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, err := e.EvaluateVehicle(ctx, vehicleID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.EvaluationErrors.Add(1)
				report.Failures[vehicleID] = err
				e.log.Error("vehicle evaluation failed", "vehicle_id", vehicleID, "error", err)
				return nil
			}
			report.Evaluated++
			if res.Delivered {
				report.Alerts++
			}
			e.log.Debug("vehicle evaluated",
				"vehicle_id", vehicleID,
				"current_km", res.CurrentKm,
				"score", res.Wear.Score,
				"due_soon", res.Wear.DueSoonItems,
				"alert", res.Alert != nil,
				"delivered", res.Delivered,
			)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(started)
	e.log.Info("evaluation pass complete",
		"vehicles", len(vehicles),
		"evaluated", report.Evaluated,
		"alerts", report.Alerts,
		"failures", len(report.Failures),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, ctx.Err()
}

// Run performs a pass immediately and then every Interval until ctx is done
func (e *Evaluator) Run(ctx context.Context) {
	interval := e.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	e.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.runLogged(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Evaluator) runLogged(ctx context.Context) {
	if _, err := e.RunOnce(ctx); err != nil && ctx.Err() == nil {
		e.log.Error("evaluation pass failed", "error", err)
	}
}

// FailedVehicles returns the failing vehicle ids in order
func (r *Report) FailedVehicles() []string {
	ids := make([]string, 0, len(r.Failures))
	for id := range r.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
