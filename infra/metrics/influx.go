package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes fleet events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSample writes a vehicle telemetry point.
func (s *InfluxSink) RecordSample(ev coremetrics.SampleEvent) error {
	p := write.NewPointWithMeasurement("vehicle_telemetry").
		AddTag("vehicle_id", ev.VehicleID).
		AddField("speed", round3(ev.Speed)).
		AddField("lat", ev.Position.Lat).
		AddField("lng", ev.Position.Lon).
		SetTime(ev.Time)
	if ev.FuelLevel != nil {
		p = p.AddField("fuel_level", round3(*ev.FuelLevel))
	}
	return s.write(p)
}

// RecordAlert writes an alert transition.
func (s *InfluxSink) RecordAlert(ev coremetrics.AlertEvent) error {
	p := write.NewPointWithMeasurement("fleet_alert").
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("kind", string(ev.Kind)).
		AddTag("severity", string(ev.Severity)).
		AddTag("status", string(ev.Status)).
		AddField("alert_id", ev.AlertID).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordDecision writes an allocation decision.
func (s *InfluxSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	p := write.NewPointWithMeasurement("allocation_decision").
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("outcome", ev.Outcome).
		AddField("candidates", ev.Candidates).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	if ev.JobID != "" {
		p = p.AddField("job_id", ev.JobID).
			AddField("profitability", round3(ev.Profitability)).
			AddField("distance_km", round3(ev.DistanceKm))
	}
	return s.write(p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
