package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

func TestGeneratorRanges(t *testing.T) {
	g := NewGenerator([]string{"veh_1", "veh_x"}, 1)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	evs := g.Tick(now, 200)
	if len(evs) != 200 {
		t.Fatalf("expected 200 events, got %d", len(evs))
	}
	for _, ev := range evs {
		base, ok := baseLocations[ev.VehicleID]
		if !ok {
			base = defaultBase
		}
		if ev.Lat < base.Lat-0.05 || ev.Lat > base.Lat+0.05 {
			t.Fatalf("lat out of range: %+v", ev)
		}
		if ev.Speed < 0 || ev.Speed >= 140 || ev.FuelLevel < 50 || ev.FuelLevel >= 100 {
			t.Fatalf("reading out of range: %+v", ev)
		}
		if ev.EngineTemp < 80 || ev.EngineTemp >= 110 {
			t.Fatalf("engine temp out of range: %+v", ev)
		}
	}
	if evs[0].Timestamp != now.Format(time.RFC3339Nano) {
		t.Fatalf("first event not at tick start: %s", evs[0].Timestamp)
	}
}

func TestEventsDecodeAsTelemetry(t *testing.T) {
	g := NewGenerator([]string{"veh_2"}, 7)
	ev := g.Event("veh_2", time.Now())
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	s, err := model.DecodeTelemetry(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.VehicleID != "veh_2" || s.FuelLevel == nil || *s.FuelLevel != ev.FuelLevel || s.Position.Lon != ev.Lng {
		t.Fatalf("unexpected sample %+v", s)
	}
}

func TestHTTPPublisher(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/telemetry/bulk" {
			http.NotFound(w, r)
			return
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := NewHTTPPublisher(srv.URL + "/")
	evs := NewGenerator([]string{"veh_1"}, 3).Tick(time.Now(), 3)
	if err := p.Publish(context.Background(), evs); err != nil {
		t.Fatalf("publish: %v", err)
	}
	var req struct {
		Events json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	samples, err := model.DecodeTelemetryBatch(req.Events)
	if err != nil || len(samples) != 3 {
		t.Fatalf("bad body %s: %v", body, err)
	}
}

func TestHTTPPublisherRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"events must be an array"}`, http.StatusBadRequest)
	}))
	defer srv.Close()
	err := NewHTTPPublisher(srv.URL).Publish(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

type recordPublisher struct {
	mu      sync.Mutex
	batches [][]Event
	fail    bool
}

func (r *recordPublisher) Publish(_ context.Context, evs []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("down")
	}
	r.batches = append(r.batches, evs)
	return nil
}

func TestRunBatches(t *testing.T) {
	cfg := Config{Rate: 7, BatchSize: 3, Duration: 55 * time.Millisecond}
	cfg.SetDefaults()
	pub := &recordPublisher{}
	st := Run(context.Background(), cfg, NewGenerator(cfg.Vehicles, 1), pub, nil, 10*time.Millisecond)
	if st.Events == 0 || st.Events%7 != 0 {
		t.Fatalf("unexpected event count %d", st.Events)
	}
	if st.Batches != st.Events/7*3 {
		t.Fatalf("expected 3 batches per tick, got %d for %d events", st.Batches, st.Events)
	}
	if len(pub.batches[0]) != 3 || len(pub.batches[2]) != 1 {
		t.Fatalf("unexpected batch sizes")
	}
}

func TestRunCountsFailures(t *testing.T) {
	cfg := Config{Rate: 2, Duration: 35 * time.Millisecond}
	cfg.SetDefaults()
	st := Run(context.Background(), cfg, NewGenerator(cfg.Vehicles, 1), &recordPublisher{fail: true}, nil, 10*time.Millisecond)
	if st.Events != 0 || st.Failed == 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	cfg.Target = "amqp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown target")
	}
}
