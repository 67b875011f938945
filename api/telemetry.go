package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleetops/core/model"
)

func (s *server) postTelemetry(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		s.writeError(w, model.NewValidationError("read body: %v", err))
		return
	}
	sample, err := model.DecodeTelemetry(body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sample.ReceivedAt = s.Now()
	if err := s.Store.Record(sample); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Telemetry received",
		"data":    sample,
	})
}

func (s *server) postTelemetryBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Events json.RawMessage `json:"events"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	samples, err := model.DecodeTelemetryBatch(req.Events)
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := s.Now()
	for i := range samples {
		samples[i].ReceivedAt = now
	}
	n, err := s.Store.RecordBatch(samples)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Bulk telemetry received",
		"count":   n,
	})
}

func (s *server) vehicleTelemetry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	from, err := timeParam(r, "from")
	if err != nil {
		s.writeError(w, err)
		return
	}
	to, err := timeParam(r, "to")
	if err != nil {
		s.writeError(w, err)
		return
	}
	events := s.Store.Query(id, from, to)
	writeJSON(w, http.StatusOK, map[string]any{
		"vehicleId": id,
		"count":     len(events),
		"events":    events,
	})
}

func (s *server) telemetryStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Store.Stats())
}

// timeParam parses an optional RFC3339 or unix-millisecond query parameter.
func timeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := model.ParseTimeString(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
