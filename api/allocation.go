package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/fleetops/core/allocation"
)

func (s *server) assignNext(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("vehicle_id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "vehicle_id is required"})
		return
	}
	d, err := s.Orchestrator.AssignNext(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DecisionSource reads back logged allocation decisions.
type DecisionSource interface {
	Decisions(ctx context.Context, q allocation.DecisionQuery) ([]allocation.DecisionRecord, error)
}

// NewLogHandler returns an HTTP handler exposing allocation decisions via GET /api/allocation/logs.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewLogHandler(src DecisionSource, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
		}
		q := allocation.DecisionQuery{}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		q.VehicleID = r.URL.Query().Get("vehicle_id")
		if o := r.URL.Query().Get("outcome"); o != "" {
			if v, ok := outcomeFromString(o); ok {
				q.Outcome = v
			}
		}
		if l := r.URL.Query().Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 {
				q.Limit = n
			}
		}
		records, err := src.Decisions(r.Context(), q)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error", Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, records)
	})
}

func outcomeFromString(s string) (allocation.Outcome, bool) {
	switch o := allocation.Outcome(s); o {
	case allocation.OutcomeFatigueBreak, allocation.OutcomeIneligible, allocation.OutcomeNoJobs, allocation.OutcomeAssigned:
		return o, true
	default:
		return "", false
	}
}
