package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleetops/core/alerting"
	"github.com/kilianp07/fleetops/core/allocation"
	"github.com/kilianp07/fleetops/core/fleet"
	"github.com/kilianp07/fleetops/core/ledger"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/telemetry"
)

// maxBody bounds request bodies; bulk telemetry is the largest payload.
const maxBody = 8 << 20

// Deps are the components the HTTP API exposes.
type Deps struct {
	Store        *telemetry.Store
	Ledger       *ledger.Ledger
	Thresholds   *alerting.ThresholdStore
	Orchestrator *allocation.Orchestrator
	Fleet        *fleet.Registry
	Logger       logger.Logger
	// Token protects the decision log endpoint when non-empty.
	Token string
	Now   func() time.Time
}

type server struct {
	Deps
}

// NewRouter returns the routes of the HTTP API.
func NewRouter(d Deps) *mux.Router {
	if d.Logger == nil {
		d.Logger = logger.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	s := &server{Deps: d}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/telemetry", s.postTelemetry).Methods(http.MethodPost)
	a.HandleFunc("/telemetry/bulk", s.postTelemetryBulk).Methods(http.MethodPost)
	a.HandleFunc("/telemetry/vehicle/{id}", s.vehicleTelemetry).Methods(http.MethodGet)
	a.HandleFunc("/telemetry/stats", s.telemetryStats).Methods(http.MethodGet)

	a.HandleFunc("/alerts", s.listAlerts).Methods(http.MethodGet)
	a.HandleFunc("/alerts/acknowledge", s.acknowledgeAlert).Methods(http.MethodPost)
	a.HandleFunc("/alerts/resolve", s.resolveAlert).Methods(http.MethodPost)
	a.HandleFunc("/alerts/simulate", s.simulateAlert).Methods(http.MethodPost)
	a.HandleFunc("/alerts/thresholds", s.getThresholds).Methods(http.MethodGet)
	a.HandleFunc("/alerts/thresholds", s.updateThresholds).Methods(http.MethodPost)

	a.HandleFunc("/allocation/assign_next", s.assignNext).Methods(http.MethodGet, http.MethodPost)
	a.Handle("/allocation/logs", NewLogHandler(d.Orchestrator, d.Token)).Methods(http.MethodGet)

	a.HandleFunc("/vehicles", s.listVehicles).Methods(http.MethodGet)
	a.HandleFunc("/vehicles", s.upsertVehicle).Methods(http.MethodPost)
	a.HandleFunc("/vehicles/{id}/break", s.recordBreak).Methods(http.MethodPost)
	a.HandleFunc("/jobs", s.listJobs).Methods(http.MethodGet)
	a.HandleFunc("/jobs", s.createJob).Methods(http.MethodPost)
	a.HandleFunc("/jobs/{id}/assign", s.assignJob).Methods(http.MethodPost)
	a.HandleFunc("/jobs/{id}/complete", s.completeJob).Methods(http.MethodPost)
	a.HandleFunc("/jobs/{id}/cancel", s.cancelJob).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Route not found"})
	})
	return r
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": s.Now().UTC()})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP status codes.
func (s *server) writeError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	var nf *model.NotFoundError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Reason})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorBody{Error: notFoundTitle(nf.Entity), Message: err.Error()})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found", Message: err.Error()})
	case errors.Is(err, model.ErrStateConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Conflict", Message: err.Error()})
	default:
		s.Logger.Errorf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error", Message: err.Error()})
	}
}

func notFoundTitle(entity string) string {
	switch entity {
	case "alert":
		return "Alert not found"
	case "vehicle":
		return "Vehicle not found"
	case "job":
		return "Job not found"
	default:
		return "Not found"
	}
}

// decode reads a JSON body into v. Malformed JSON is a validation error.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody)).Decode(v); err != nil {
		return model.NewValidationError("malformed body: %v", err)
	}
	return nil
}
