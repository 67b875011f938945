package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
)

type captureServer struct {
	mu   sync.Mutex
	body string
}

func (c *captureServer) handler(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.body = string(data)
	c.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (c *captureServer) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.body)
}

func TestInfluxSink_RecordDecision(t *testing.T) {
	cs := &captureServer{}
	srv := httptest.NewServer(http.HandlerFunc(cs.handler))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.DecisionEvent{
		VehicleID:     "veh1",
		Outcome:       "job_assigned",
		JobID:         "J1",
		Profitability: 65,
		DistanceKm:    12.0004,
		Candidates:    2,
		Latency:       1500 * time.Microsecond,
		Time:          now,
	}
	if err := sink.RecordDecision(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("allocation_decision").
		AddTag("vehicle_id", "veh1").
		AddTag("outcome", "job_assigned").
		AddField("candidates", 2).
		AddField("latency_ms", 1.5).
		AddField("job_id", "J1").
		AddField("profitability", 65.0).
		AddField("distance_km", 12.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if cs.last() != expected {
		t.Errorf("unexpected body:\n%s\nwant:\n%s", cs.last(), expected)
	}
}

func TestInfluxSink_RecordSampleAndAlert(t *testing.T) {
	cs := &captureServer{}
	srv := httptest.NewServer(http.HandlerFunc(cs.handler))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "t", Org: "o", Bucket: "b"})
	defer sink.Close()
	fuel := 42.0
	if err := sink.RecordSample(coremetrics.SampleEvent{VehicleID: "V1", Speed: 80, FuelLevel: &fuel, Time: time.Now()}); err != nil {
		t.Fatalf("sample: %v", err)
	}
	if !strings.HasPrefix(cs.last(), "vehicle_telemetry,vehicle_id=V1 ") || !strings.Contains(cs.last(), "fuel_level=42") {
		t.Fatalf("unexpected sample line %q", cs.last())
	}
	if err := sink.RecordAlert(coremetrics.AlertEvent{AlertID: "a1", VehicleID: "V1", Kind: model.KindFuelLow, Severity: model.SeverityMedium, Status: model.AlertActive, Time: time.Now()}); err != nil {
		t.Fatalf("alert: %v", err)
	}
	if !strings.Contains(cs.last(), "kind=fuel_low") || !strings.Contains(cs.last(), `alert_id="a1"`) {
		t.Fatalf("unexpected alert line %q", cs.last())
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	var mu sync.Mutex
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			mu.Lock()
			called = true
			mu.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	mu.Lock()
	defer mu.Unlock()
	if !called {
		t.Fatalf("health endpoint not queried")
	}
}
