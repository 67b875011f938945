package events

import (
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

// Names used on push channels. They match the event names dashboards and
// the driver app already listen to.
const (
	NameTelemetry    = "telemetry"
	NameAlertNew     = "alert_new"
	NameAlertUpdated = "alert_updated"
	NameAssignment   = "assignment"
)

// Event is anything published on the bus.
type Event interface {
	// Name is the push channel name of the event.
	Name() string
	// Key identifies the vehicle the event is about, if any.
	Key() string
}

// TelemetryUpdated is published after a sample has been stored.
type TelemetryUpdated struct {
	Sample model.TelemetrySample `json:"sample"`
}

func (TelemetryUpdated) Name() string  { return NameTelemetry }
func (e TelemetryUpdated) Key() string { return e.Sample.VehicleID }

// AlertRaised is published when the ledger creates an alert.
type AlertRaised struct {
	Alert model.Alert `json:"alert"`
}

func (AlertRaised) Name() string  { return NameAlertNew }
func (e AlertRaised) Key() string { return e.Alert.VehicleID }

// AlertUpdated is published on acknowledge and resolve.
type AlertUpdated struct {
	Alert model.Alert `json:"alert"`
}

func (AlertUpdated) Name() string  { return NameAlertUpdated }
func (e AlertUpdated) Key() string { return e.Alert.VehicleID }

// AssignmentDecided is published for every allocation decision.
type AssignmentDecided struct {
	VehicleID string    `json:"vehicle_id"`
	Outcome   string    `json:"status"`
	JobID     string    `json:"job_id,omitempty"`
	Time      time.Time `json:"time"`
}

func (AssignmentDecided) Name() string  { return NameAssignment }
func (e AssignmentDecided) Key() string { return e.VehicleID }

// Publisher is the write side of the event bus.
type Publisher interface {
	Publish(Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
