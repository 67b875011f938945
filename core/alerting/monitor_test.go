package alerting

import (
	"testing"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/ledger"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/telemetry"
)

type collectPublisher struct{ names []string }

func (c *collectPublisher) Publish(e events.Event) { c.names = append(c.names, e.Name()) }

func newPipeline(t *testing.T) (*telemetry.Store, *ledger.Ledger, *collectPublisher) {
	t.Helper()
	ts, err := NewThresholdStore(model.DefaultThresholds())
	if err != nil {
		t.Fatalf("thresholds: %v", err)
	}
	pub := &collectPublisher{}
	l := ledger.New(ledger.WithPublisher(pub))
	mon := NewMonitor(NewEvaluator(ts), l, pub, nil)
	return telemetry.NewStore(telemetry.Config{}, mon), l, pub
}

func TestMonitor_SpeedingRaisesOneHighAlert(t *testing.T) {
	store, l, pub := newPipeline(t)
	if err := store.Record(model.TelemetrySample{VehicleID: "V1", Speed: 135}); err != nil {
		t.Fatalf("record: %v", err)
	}
	alerts := l.List(ledger.Filter{})
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	if alerts[0].Kind != model.KindSpeeding || alerts[0].Severity != model.SeverityHigh || alerts[0].VehicleID != "V1" {
		t.Fatalf("unexpected alert %+v", alerts[0])
	}
	want := []string{events.NameTelemetry, events.NameAlertNew}
	if len(pub.names) != 2 || pub.names[0] != want[0] || pub.names[1] != want[1] {
		t.Fatalf("expected events %v got %v", want, pub.names)
	}
}

func TestMonitor_BulkBatchRaisesSingleAlert(t *testing.T) {
	store, l, _ := newPipeline(t)
	n, err := store.RecordBatch([]model.TelemetrySample{
		{VehicleID: "V1", Speed: 80},
		{VehicleID: "V2", Speed: 130},
	})
	if err != nil || n != 2 {
		t.Fatalf("batch: n=%d err=%v", n, err)
	}
	alerts := l.List(ledger.Filter{})
	if len(alerts) != 1 || alerts[0].VehicleID != "V2" {
		t.Fatalf("expected one alert for V2, got %+v", alerts)
	}
}

func TestMonitor_NoDebounce(t *testing.T) {
	store, l, _ := newPipeline(t)
	for i := 0; i < 3; i++ {
		_ = store.Record(model.TelemetrySample{VehicleID: "V1", Speed: 140})
	}
	if got := l.Len(); got != 3 {
		t.Fatalf("expected one alert per breaching sample, got %d", got)
	}
}

func TestMonitor_UnderLimitPublishesTelemetryOnly(t *testing.T) {
	store, l, pub := newPipeline(t)
	_ = store.Record(model.TelemetrySample{VehicleID: "V1", Speed: 60, FuelLevel: model.Float(80)})
	if l.Len() != 0 {
		t.Fatalf("no alert expected")
	}
	if len(pub.names) != 1 || pub.names[0] != events.NameTelemetry {
		t.Fatalf("expected only telemetry event, got %v", pub.names)
	}
}
