package mqtt

import (
	"strings"
	"sync/atomic"

	"github.com/kilianp07/fleetops/core/model"
)

// Recorder stores decoded telemetry. telemetry.Store satisfies it.
type Recorder interface {
	Record(model.TelemetrySample) error
}

// Ingester turns pushed MQTT payloads into telemetry samples.
type Ingester struct {
	rec     Recorder
	pattern []string

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// NewIngester creates an Ingester. pattern is the subscription topic; its
// single-level wildcard marks the segment carrying the vehicle id.
func NewIngester(rec Recorder, pattern string) *Ingester {
	if pattern == "" {
		pattern = DefaultTelemetryTopic
	}
	return &Ingester{rec: rec, pattern: strings.Split(pattern, "/")}
}

// Handle decodes payload and records it. The vehicle id is taken from the
// topic when the payload does not carry one.
func (in *Ingester) Handle(topic string, payload []byte) error {
	s, err := model.DecodeTelemetry(payload)
	if err != nil {
		in.rejected.Add(1)
		return err
	}
	if s.VehicleID == "" {
		s.VehicleID = in.vehicleFromTopic(topic)
	}
	if err := in.rec.Record(s); err != nil {
		in.rejected.Add(1)
		return err
	}
	in.accepted.Add(1)
	return nil
}

// Counts returns the number of accepted and rejected messages.
func (in *Ingester) Counts() (accepted, rejected uint64) {
	return in.accepted.Load(), in.rejected.Load()
}

func (in *Ingester) vehicleFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	for i, p := range in.pattern {
		if p == "+" && i < len(parts) {
			return parts[i]
		}
	}
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return ""
}
