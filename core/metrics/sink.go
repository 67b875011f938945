package metrics

import (
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

// SampleEvent describes a stored telemetry sample.
type SampleEvent struct {
	VehicleID string
	Speed     float64
	FuelLevel *float64
	Position  model.Position
	Time      time.Time
}

// AlertEvent describes an alert creation or status change.
type AlertEvent struct {
	AlertID   string
	VehicleID string
	Kind      model.AlertKind
	Severity  model.Severity
	Status    model.AlertStatus
	Time      time.Time
}

// DecisionEvent describes one allocation decision.
type DecisionEvent struct {
	VehicleID     string
	Outcome       string
	JobID         string
	Profitability float64
	DistanceKm    float64
	Candidates    int
	Latency       time.Duration
	Time          time.Time
}

// Sink records fleet events for observability purposes.
type Sink interface {
	RecordSample(SampleEvent) error
	RecordAlert(AlertEvent) error
	RecordDecision(DecisionEvent) error
}

// EvictionRecorder is implemented by sinks that track telemetry history
// evictions.
type EvictionRecorder interface {
	RecordEviction(vehicleID string) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSample(SampleEvent) error     { return nil }
func (NopSink) RecordAlert(AlertEvent) error       { return nil }
func (NopSink) RecordDecision(DecisionEvent) error { return nil }
func (NopSink) RecordEviction(string) error        { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSample forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordSample(ev SampleEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSample(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordAlert forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordAlert(ev AlertEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAlert(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordDecision forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordDecision(ev DecisionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDecision(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordEviction forwards evictions to the sinks that support them.
func (m *MultiSink) RecordEviction(vehicleID string) error {
	for _, s := range m.Sinks {
		if er, ok := s.(EvictionRecorder); ok {
			if err := er.RecordEviction(vehicleID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the sinks that hold resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
