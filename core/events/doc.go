// Package events defines the notifications emitted on the event bus.
//
// Available event types:
//   - TelemetryUpdated: a sample was stored for a vehicle
//   - AlertRaised: a new alert entered the ledger
//   - AlertUpdated: an alert was acknowledged or resolved
//   - AssignmentDecided: the orchestrator produced an allocation decision
package events
