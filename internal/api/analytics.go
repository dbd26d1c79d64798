package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"autocare-monitor/internal/catalog"
	"autocare-monitor/internal/evaluator"
	"autocare-monitor/internal/maintenance"
	"autocare-monitor/internal/models"
	"autocare-monitor/internal/wear"
)

type projectionItem struct {
	models.MaintenanceProjection
	Description string `json:"description"`
	Urgent      bool   `json:"urgent"`
}

type projectionsResponse struct {
	VehicleID      string           `json:"vehicle_id"`
	CurrentKm      int              `json:"current_km"`
	CatalogVersion string           `json:"catalog_version"`
	AnyUrgent      bool             `json:"any_urgent"`
	Items          []projectionItem `json:"items"`
}

type wearResponse struct {
	VehicleID      string                         `json:"vehicle_id"`
	CurrentKm      int                            `json:"current_km"`
	Wear           models.WearScore               `json:"wear"`
	Alert          *models.AlertSignal            `json:"alert,omitempty"`
	Aggressiveness float64                        `json:"aggressiveness_per_100km"`
	DueSoon        []models.MaintenanceProjection `json:"due_soon"`
}

// evaluate computes the pure evaluation for one vehicle without dispatching
func (s *Server) evaluate(r *http.Request) (*models.VehicleSnapshot, *evaluator.Result, error) {
	snap, err := s.store.Snapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, nil, err
	}
	window := wear.Window
	if s.eval != nil && s.eval.Window > 0 {
		window = s.eval.Window
	}
	return snap, evaluator.Evaluate(*snap, catalog.Default(), s.now(), window), nil
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	_, res, err := s.evaluate(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	items := make([]projectionItem, 0, len(res.Projections))
	for _, p := range res.Projections {
		entry, _ := catalog.Lookup(p.ItemType)
		items = append(items, projectionItem{
			MaintenanceProjection: p,
			Description:           entry.Description,
			Urgent:                maintenance.IsUrgent(p),
		})
	}

	respondJSON(w, http.StatusOK, projectionsResponse{
		VehicleID:      res.VehicleID,
		CurrentKm:      res.CurrentKm,
		CatalogVersion: catalog.Version,
		AnyUrgent:      maintenance.AnyUrgent(res.Projections),
		Items:          items,
	})
}

func (s *Server) handleWear(w http.ResponseWriter, r *http.Request) {
	snap, res, err := s.evaluate(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	dueSoon := []models.MaintenanceProjection{}
	for _, p := range res.Projections {
		if maintenance.DueSoonForAlert(p) {
			dueSoon = append(dueSoon, p)
		}
	}

	respondJSON(w, http.StatusOK, wearResponse{
		VehicleID:      res.VehicleID,
		CurrentKm:      res.CurrentKm,
		Wear:           res.Wear,
		Alert:          res.Alert,
		Aggressiveness: wear.AverageAggressiveness(snap.Sessions, 0),
		DueSoon:        dueSoon,
	})
}

func (s *Server) handleVehicleAlerts(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.store.GetVehicle(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.listAlerts(w, r, id)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	s.listAlerts(w, r, "")
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request, vehicleID string) {
	alerts, err := s.store.ListAlerts(r.Context(), vehicleID, queryInt(r, "limit", 100))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if alerts == nil {
		alerts = []models.AlertSignal{}
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	entries := catalog.Default()
	if f := r.URL.Query().Get("fuel"); f != "" {
		fuel, err := models.ParseFuelType(f)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries = catalog.ForFuel(entries, fuel)
	}
	respondWithMeta(w, entries, &meta{Total: len(entries)})
}
