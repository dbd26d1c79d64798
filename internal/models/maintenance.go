package models

import "time"

// CatalogEntry describes how often one maintenance item is due
type CatalogEntry struct {
	ItemType       string     `json:"item_type"`
	Description    string     `json:"description"`
	IntervalKm     *int       `json:"interval_km,omitempty"`
	IntervalMonths *int       `json:"interval_months,omitempty"`
	AppliesTo      []FuelType `json:"applies_to"`
}

// HasInterval reports whether the entry defines any due threshold
func (e CatalogEntry) HasInterval() bool {
	return e.IntervalKm != nil || e.IntervalMonths != nil
}

// Applies reports whether the entry is relevant to the given powertrain
func (e CatalogEntry) Applies(fuel FuelType) bool {
	for _, f := range e.AppliesTo {
		if f == fuel {
			return true
		}
	}
	return false
}

// ReviewStatus classifies how close a maintenance item is to being due
type ReviewStatus string

const (
	StatusOK      ReviewStatus = "OK"
	StatusSoon    ReviewStatus = "SOON"
	StatusOverdue ReviewStatus = "OVERDUE"
)

// MaintenanceProjection is the derived forecast for one catalog item.
// Remaining and next fields are nil when the entry has no interval on that axis.
type MaintenanceProjection struct {
	ItemType      string       `json:"item_type"`
	RemainingKm   *int         `json:"remaining_km,omitempty"`
	RemainingDays *int         `json:"remaining_days,omitempty"`
	NextKm        *int         `json:"next_km,omitempty"`
	NextDate      *time.Time   `json:"next_date,omitempty"`
	Status        ReviewStatus `json:"status"`
}

// AlertType identifies the kind of alert signal
type AlertType string

const (
	AlertPredictiveMaintenance AlertType = "PREDICTIVE_MAINTENANCE"
)

// WearScore is the outcome of one wear evaluation
type WearScore struct {
	Score        int     `json:"score"`
	ShouldAlert  bool    `json:"should_alert"`
	Sessions     int     `json:"sessions"`
	DistanceKm   float64 `json:"distance_km"`
	EventsPerKm  float64 `json:"events_per_km"`
	AvgSpeedKmh  float64 `json:"avg_speed_kmh"`
	DueSoonItems int     `json:"due_soon_items"`
}

// AlertSignal is handed to the notification dispatcher
type AlertSignal struct {
	Type        AlertType `json:"type"`
	VehicleID   string    `json:"vehicle_id"`
	Score       int       `json:"score"`
	TriggeredAt time.Time `json:"triggered_at"`
}
