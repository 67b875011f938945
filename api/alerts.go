package api

import (
	"net/http"

	"github.com/kilianp07/fleetops/core/ledger"
	"github.com/kilianp07/fleetops/core/model"
)

type alertAction struct {
	AlertID string `json:"alertId"`
	ActorID string `json:"actorId"`
}

func (s *server) listAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.Filter{
		Kind:      model.AlertKind(q.Get("type")),
		Severity:  model.Severity(q.Get("severity")),
		Status:    model.AlertStatus(q.Get("status")),
		VehicleID: q.Get("vehicle_id"),
	}
	writeJSON(w, http.StatusOK, s.Ledger.List(f))
}

func (s *server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	s.transitionAlert(w, r, s.Ledger.Acknowledge)
}

func (s *server) resolveAlert(w http.ResponseWriter, r *http.Request) {
	s.transitionAlert(w, r, s.Ledger.Resolve)
}

func (s *server) transitionAlert(w http.ResponseWriter, r *http.Request, fn func(id, actor string) (model.Alert, error)) {
	var req alertAction
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.AlertID == "" {
		s.writeError(w, model.NewValidationError("alertId is required"))
		return
	}
	a, err := fn(req.AlertID, req.ActorID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "alert": a})
}

func (s *server) simulateAlert(w http.ResponseWriter, r *http.Request) {
	var d model.AlertDraft
	if err := decode(r, &d); err != nil {
		s.writeError(w, err)
		return
	}
	a, err := s.Ledger.Simulate(d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *server) getThresholds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Thresholds.Get())
}

func (s *server) updateThresholds(w http.ResponseWriter, r *http.Request) {
	var p model.ThresholdPatch
	if err := decode(r, &p); err != nil {
		s.writeError(w, err)
		return
	}
	th, err := s.Thresholds.Update(p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.Logger.Infow("thresholds updated", map[string]any{"thresholds": th})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "thresholds": th})
}
