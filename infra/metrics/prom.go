package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/fleetops/core/metrics"
)

// PromSink records fleet events in Prometheus metrics.
type PromSink struct {
	samples   *prometheus.CounterVec
	evictions *prometheus.CounterVec
	alerts    *prometheus.CounterVec
	decisions *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	profit    prometheus.Histogram
}

// NewPromSink registers fleet metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_telemetry_samples_total",
			Help: "Telemetry samples stored",
		}, []string{"vehicle_id"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_telemetry_evictions_total",
			Help: "Telemetry samples evicted from full histories",
		}, []string{"vehicle_id"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_alerts_total",
			Help: "Alert transitions by kind, severity and status",
		}, []string{"kind", "severity", "status"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_allocation_decisions_total",
			Help: "Allocation decisions by outcome",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleet_allocation_latency_seconds",
			Help:    "Time taken to reach an allocation decision",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		profit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleet_allocation_profitability_sar",
			Help:    "Profitability of assigned jobs",
			Buckets: []float64{0, 10, 20, 40, 60, 80, 120, 200},
		}),
	}
	var err error
	if s.samples, err = register(reg, s.samples); err != nil {
		return nil, err
	}
	if s.evictions, err = register(reg, s.evictions); err != nil {
		return nil, err
	}
	if s.alerts, err = register(reg, s.alerts); err != nil {
		return nil, err
	}
	if s.decisions, err = register(reg, s.decisions); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	if s.profit, err = register(reg, s.profit); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c is a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordSample(ev coremetrics.SampleEvent) error {
	s.samples.WithLabelValues(ev.VehicleID).Inc()
	return nil
}

func (s *PromSink) RecordEviction(vehicleID string) error {
	s.evictions.WithLabelValues(vehicleID).Inc()
	return nil
}

func (s *PromSink) RecordAlert(ev coremetrics.AlertEvent) error {
	s.alerts.WithLabelValues(string(ev.Kind), string(ev.Severity), string(ev.Status)).Inc()
	return nil
}

// RecordDecision counts the outcome and observes latency. Profitability is
// only observed for assignments.
func (s *PromSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	s.decisions.WithLabelValues(ev.Outcome).Inc()
	s.latency.WithLabelValues(ev.Outcome).Observe(ev.Latency.Seconds())
	if ev.JobID != "" {
		s.profit.Observe(ev.Profitability)
	}
	return nil
}
