package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"autocare-monitor/internal/db"
	"autocare-monitor/internal/evaluator"
	"autocare-monitor/internal/metrics"
	"autocare-monitor/internal/tracker"

	"github.com/gorilla/mux"
)

// Server represents the API server
type Server struct {
	store  db.Store
	trips  *tracker.Manager
	eval   *evaluator.Evaluator
	log    *slog.Logger
	router *mux.Router
	now    func() time.Time
}

// NewServer creates a new API server
func NewServer(store db.Store, trips *tracker.Manager, eval *evaluator.Evaluator, log *slog.Logger) *Server {
	s := &Server{
		store:  store,
		trips:  trips,
		eval:   eval,
		log:    log,
		router: mux.NewRouter(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/metrics", metrics.HandleMetrics).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Vehicle endpoints
	api.HandleFunc("/vehicles", s.handleListVehicles).Methods("GET")
	api.HandleFunc("/vehicles", s.handleCreateVehicle).Methods("POST")
	api.HandleFunc("/vehicles/{id}", s.handleGetVehicle).Methods("GET")
	api.HandleFunc("/vehicles/{id}", s.handleDeleteVehicle).Methods("DELETE")
	api.HandleFunc("/vehicles/{id}/summary", s.handleVehicleSummary).Methods("GET")

	// Service history
	api.HandleFunc("/vehicles/{id}/services", s.handleListServices).Methods("GET")
	api.HandleFunc("/vehicles/{id}/services", s.handleCreateService).Methods("POST")
	api.HandleFunc("/services/{sid}", s.handleDeleteService).Methods("DELETE")

	// Driving sessions
	api.HandleFunc("/vehicles/{id}/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{sid}", s.handleDeleteSession).Methods("DELETE")

	// Analytics
	api.HandleFunc("/vehicles/{id}/projections", s.handleProjections).Methods("GET")
	api.HandleFunc("/vehicles/{id}/wear", s.handleWear).Methods("GET")
	api.HandleFunc("/vehicles/{id}/alerts", s.handleVehicleAlerts).Methods("GET")
	api.HandleFunc("/alerts", s.handleAlerts).Methods("GET")
	api.HandleFunc("/catalog", s.handleCatalog).Methods("GET")

	// Trips
	api.HandleFunc("/trips", s.handleActiveTrips).Methods("GET")
	api.HandleFunc("/vehicles/{id}/trip", s.handleTripProgress).Methods("GET")
	api.HandleFunc("/vehicles/{id}/trip/start", s.handleTripStart).Methods("POST")
	api.HandleFunc("/vehicles/{id}/trip/samples", s.handleTripSamples).Methods("POST")
	api.HandleFunc("/vehicles/{id}/trip/stop", s.handleTripStop).Methods("POST")
	api.HandleFunc("/vehicles/{id}/trip/stream", s.handleTripStream).Methods("GET")

	// Stats endpoint
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	s.router.Use(s.loggingMiddleware)
	s.router.Use(jsonMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequests.Add(1)

		// websocket upgrades need the raw writer's Hijacker
		if r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			s.log.Info("request", "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Response helpers
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *meta       `json:"meta,omitempty"`
}

type meta struct {
	Total   int   `json:"total,omitempty"`
	Limit   int   `json:"limit,omitempty"`
	Offset  int   `json:"offset,omitempty"`
	QueryMs int64 `json:"query_ms,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

func respondWithMeta(w http.ResponseWriter, data interface{}, m *meta) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data, Meta: m})
}

// respondStoreError maps sentinel errors to status codes
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tracker.ErrTripActive), errors.Is(err, tracker.ErrNoActiveTrip):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, tracker.ErrVehicleMismatch):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// Handlers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	stats["active_trips"] = len(s.trips.Active())
	respondJSON(w, http.StatusOK, stats)
}
