package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"autocare-monitor/internal/catalog"
	"autocare-monitor/internal/models"
)

type vehicleRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LicensePlate string `json:"license_plate"`
	FuelType     string `json:"fuel_type"`
	BaselineKm   int    `json:"baseline_km"`
	RegisteredAt string `json:"registered_at"`
}

type serviceRequest struct {
	ItemType    string  `json:"item_type"`
	ServiceDate string  `json:"service_date"`
	OdometerKm  int     `json:"odometer_km"`
	Cost        float64 `json:"cost"`
}

// parseDate accepts a calendar date or an RFC 3339 timestamp
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func (req vehicleRequest) toVehicle(today time.Time) (models.Vehicle, error) {
	v := models.Vehicle{
		ID:           strings.TrimSpace(req.ID),
		Name:         strings.TrimSpace(req.Name),
		LicensePlate: strings.TrimSpace(req.LicensePlate),
		BaselineKm:   req.BaselineKm,
	}
	if v.Name == "" || v.LicensePlate == "" {
		return v, fmt.Errorf("name and license_plate are required")
	}
	if v.BaselineKm < 0 {
		return v, fmt.Errorf("baseline_km cannot be negative")
	}
	fuel, err := models.ParseFuelType(req.FuelType)
	if err != nil {
		return v, err
	}
	v.FuelType = fuel

	if req.RegisteredAt == "" {
		y, m, d := today.Date()
		v.RegisteredAt = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	} else if v.RegisteredAt, err = parseDate(req.RegisteredAt); err != nil {
		return v, err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return v, nil
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.store.ListVehicles(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if vehicles == nil {
		vehicles = []models.Vehicle{}
	}
	respondJSON(w, http.StatusOK, vehicles)
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	v, err := req.toVehicle(s.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.InsertVehicle(r.Context(), &v); err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, v)
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, err := s.store.GetVehicle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vehicle)
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.trips.Progress(id); err == nil {
		respondError(w, http.StatusConflict, "vehicle has an active trip")
		return
	}
	if err := s.store.DeleteVehicle(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleVehicleSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := mux.Vars(r)["id"]

	if _, err := s.store.GetVehicle(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	summary, err := s.store.GetVehicleSummary(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondWithMeta(w, summary, &meta{QueryMs: time.Since(start).Milliseconds()})
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.store.GetVehicle(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	records, err := s.store.ListServiceRecords(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if records == nil {
		records = []models.ServiceRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !catalog.IsKnown(req.ItemType) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown item_type %q", req.ItemType))
		return
	}
	if req.OdometerKm < 0 || req.Cost < 0 {
		respondError(w, http.StatusBadRequest, "odometer_km and cost cannot be negative")
		return
	}
	date, err := parseDate(req.ServiceDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.store.GetVehicle(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}

	rec := models.ServiceRecord{
		VehicleID:   id,
		ItemType:    req.ItemType,
		ServiceDate: date,
		OdometerKm:  req.OdometerKm,
		Cost:        req.Cost,
	}
	if err := s.store.InsertServiceRecord(r.Context(), &rec); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	sid, err := strconv.ParseInt(mux.Vars(r)["sid"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid service record id")
		return
	}
	if err := s.store.DeleteServiceRecord(r.Context(), sid); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": sid})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := mux.Vars(r)["id"]

	q := models.SessionQuery{
		VehicleID: id,
		Limit:     queryInt(r, "limit", 100),
		Offset:    queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("start_time"); v != "" {
		q.StartTime, _ = time.Parse(time.RFC3339, v)
	}
	if v := r.URL.Query().Get("end_time"); v != "" {
		q.EndTime, _ = time.Parse(time.RFC3339, v)
	}

	if _, err := s.store.GetVehicle(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	sessions, err := s.store.ListSessions(r.Context(), q)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.DrivingSession{}
	}

	respondWithMeta(w, sessions, &meta{
		Total:   len(sessions),
		Limit:   q.Limit,
		Offset:  q.Offset,
		QueryMs: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sid, err := strconv.ParseInt(mux.Vars(r)["sid"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := s.store.DeleteSession(r.Context(), sid); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": sid})
}
