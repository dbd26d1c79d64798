// Package maintenance projects when each catalog item is next due for a
// vehicle, from its service history and the distance driven since
// registration.
package maintenance

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"autocare-monitor/internal/models"
)

// Display thresholds for SOON
const (
	SoonKm   = 5000
	SoonDays = 30
)

// Stricter list-view thresholds, applied to items already SOON
const (
	UrgentKm   = 1000
	UrgentDays = 7
)

// Wear-alert trigger window
const (
	AlertSoonKm   = 5000
	AlertSoonDays = 20
)

// CurrentDistanceKm is the vehicle's baseline odometer plus the whole
// kilometres of every recorded session. Every consumer of "current distance"
// must go through this function.
func CurrentDistanceKm(v models.Vehicle, sessions []models.DrivingSession) int {
	meters := make([]float64, 0, len(sessions))
	for _, s := range sessions {
		if s.VehicleID != v.ID {
			continue
		}
		meters = append(meters, s.DistanceMeters)
	}
	return v.BaselineKm + int(floats.Sum(meters)/1000)
}

// Project computes one projection per applicable catalog entry that defines
// at least one interval. The result order follows entries.
func Project(
	v models.Vehicle,
	history []models.ServiceRecord,
	sessions []models.DrivingSession,
	entries []models.CatalogEntry,
	today time.Time,
) []models.MaintenanceProjection {
	return ProjectFrom(v, history, CurrentDistanceKm(v, sessions), entries, today)
}

// ProjectFrom is Project with the current distance already resolved, so a
// caller evaluating several things in one pass uses a single value.
func ProjectFrom(
	v models.Vehicle,
	history []models.ServiceRecord,
	currentKm int,
	entries []models.CatalogEntry,
	today time.Time,
) []models.MaintenanceProjection {
	day := civilDate(today)
	out := make([]models.MaintenanceProjection, 0, len(entries))

	for _, e := range entries {
		if !e.HasInterval() || !e.Applies(v.FuelType) {
			continue
		}

		p := models.MaintenanceProjection{ItemType: e.ItemType}

		if e.IntervalKm != nil {
			next := lastServiceKm(v, history, e.ItemType) + *e.IntervalKm
			left := next - currentKm
			p.NextKm = &next
			p.RemainingKm = &left
		}
		if e.IntervalMonths != nil {
			next := addMonths(lastServiceDate(v, history, e.ItemType), *e.IntervalMonths)
			left := daysBetween(day, next)
			p.NextDate = &next
			p.RemainingDays = &left
		}

		p.Status = Classify(p.RemainingKm, p.RemainingDays)
		out = append(out, p)
	}
	return out
}

// Classify applies OVERDUE > SOON > OK over whichever axes are defined
func Classify(remainingKm, remainingDays *int) models.ReviewStatus {
	if (remainingKm != nil && *remainingKm < 0) || (remainingDays != nil && *remainingDays < 0) {
		return models.StatusOverdue
	}
	if (remainingKm != nil && *remainingKm <= SoonKm) || (remainingDays != nil && *remainingDays <= SoonDays) {
		return models.StatusSoon
	}
	return models.StatusOK
}

// IsUrgent re-tests a projection against the tighter list-view bound
func IsUrgent(p models.MaintenanceProjection) bool {
	switch p.Status {
	case models.StatusOverdue:
		return true
	case models.StatusSoon:
		return within(p.RemainingKm, UrgentKm) || within(p.RemainingDays, UrgentDays)
	}
	return false
}

// DueSoonForAlert reports whether the projection falls inside the wear-alert
// trigger window. Overdue items are inside it.
func DueSoonForAlert(p models.MaintenanceProjection) bool {
	return within(p.RemainingKm, AlertSoonKm) || within(p.RemainingDays, AlertSoonDays)
}

// AnyUrgent reports whether a projection list has at least one urgent item
func AnyUrgent(ps []models.MaintenanceProjection) bool {
	for _, p := range ps {
		if IsUrgent(p) {
			return true
		}
	}
	return false
}

func within(v *int, bound int) bool {
	return v != nil && *v <= bound
}

// lastServiceDate picks the latest service date for the item, falling back to
// the registration date.
func lastServiceDate(v models.Vehicle, history []models.ServiceRecord, itemType string) time.Time {
	var (
		last  time.Time
		found bool
	)
	for _, r := range history {
		if r.VehicleID != v.ID || r.ItemType != itemType {
			continue
		}
		if !found || r.ServiceDate.After(last) {
			last = r.ServiceDate
			found = true
		}
	}
	if !found {
		last = v.RegisteredAt
	}
	return civilDate(last)
}

// lastServiceKm picks the highest odometer reading logged for the item,
// independently of lastServiceDate, falling back to the baseline odometer.
func lastServiceKm(v models.Vehicle, history []models.ServiceRecord, itemType string) int {
	var (
		last  int
		found bool
	)
	for _, r := range history {
		if r.VehicleID != v.ID || r.ItemType != itemType {
			continue
		}
		if !found || r.OdometerKm > last {
			last = r.OdometerKm
			found = true
		}
	}
	if !found {
		return v.BaselineKm
	}
	return last
}
