package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleetops/core/model"
)

func (s *server) listVehicles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Fleet.Vehicles())
}

func (s *server) upsertVehicle(w http.ResponseWriter, r *http.Request) {
	var v model.VehicleState
	if err := decode(r, &v); err != nil {
		s.writeError(w, err)
		return
	}
	v, err := s.Fleet.UpsertVehicle(v)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *server) recordBreak(w http.ResponseWriter, r *http.Request) {
	v, err := s.Fleet.RecordBreak(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) listJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Fleet.Jobs(model.JobStatus(r.URL.Query().Get("status"))))
}

func (s *server) createJob(w http.ResponseWriter, r *http.Request) {
	var j model.Job
	if err := decode(r, &j); err != nil {
		s.writeError(w, err)
		return
	}
	j, err := s.Fleet.CreateJob(j)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

// assignJob is the manual dispatch path. It bypasses eligibility and
// scoring but still requires an idle vehicle and a pending job.
func (s *server) assignJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VehicleID string `json:"vehicle_id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.VehicleID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "vehicle_id is required"})
		return
	}
	j, err := s.Fleet.AssignDirect(req.VehicleID, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *server) completeJob(w http.ResponseWriter, r *http.Request) {
	s.closeJob(w, r, s.Fleet.CompleteJob)
}

func (s *server) cancelJob(w http.ResponseWriter, r *http.Request) {
	s.closeJob(w, r, s.Fleet.CancelJob)
}

func (s *server) closeJob(w http.ResponseWriter, r *http.Request, fn func(string) (model.Job, error)) {
	j, err := fn(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}
