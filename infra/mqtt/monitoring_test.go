package mqtt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kilianp07/fleetops/core/events"
	coremon "github.com/kilianp07/fleetops/core/monitoring"
)

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) CapturePanic(any, map[string]string) {}
func (r *recordMonitor) Flush(time.Duration)                 {}

func TestNotifyErrorCaptured(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail, fail}}
	withMock(t, mc)
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "id", BackoffMS: 1})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	err = cli.Notify(context.Background(), events.AssignmentDecided{VehicleID: "veh1", Outcome: "job_assigned"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(mc.published) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(mc.published))
	}
	if mon.err == nil {
		t.Fatalf("error not captured")
	}
	if mon.tags["vehicle_id"] != "veh1" || mon.tags["module"] != "mqtt" || mon.tags["event"] != events.NameAssignment {
		t.Fatalf("tags not set: %v", mon.tags)
	}
}
