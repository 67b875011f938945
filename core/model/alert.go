package model

import "time"

// AlertKind classifies what triggered an alert.
type AlertKind string

const (
	KindSpeeding       AlertKind = "speeding"
	KindFatigue        AlertKind = "fatigue"
	KindFuelLow        AlertKind = "fuel_low"
	KindEngineTemp     AlertKind = "engine_temp"
	KindRouteDeviation AlertKind = "route_deviation"
	KindOther          AlertKind = "other"
)

// Valid reports whether k is a known alert kind.
func (k AlertKind) Valid() bool {
	switch k {
	case KindSpeeding, KindFatigue, KindFuelLow, KindEngineTemp, KindRouteDeviation, KindOther:
		return true
	}
	return false
}

// Severity of an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertStatus is the lifecycle state of an alert. It only moves forward:
// active -> acknowledged -> resolved, or active -> resolved.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// AlertDraft is an alert that has not been stored yet.
type AlertDraft struct {
	Kind      AlertKind      `json:"type"`
	Severity  Severity       `json:"severity"`
	VehicleID string         `json:"vehicle"`
	Title     string         `json:"title"`
	Message   string         `json:"description"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Validate checks kind and severity. An empty severity is accepted and
// defaults to medium when the alert is created.
func (d AlertDraft) Validate() error {
	if !d.Kind.Valid() {
		return NewValidationError("unknown alert type %q", d.Kind)
	}
	if d.Severity != "" && !d.Severity.Valid() {
		return NewValidationError("unknown severity %q", d.Severity)
	}
	return nil
}

// Alert is a raised alert held by the ledger. Kind and Severity never change
// after creation.
type Alert struct {
	ID             string         `json:"id"`
	Kind           AlertKind      `json:"type"`
	Severity       Severity       `json:"severity"`
	VehicleID      string         `json:"vehicle"`
	Title          string         `json:"title"`
	Message        string         `json:"description"`
	Status         AlertStatus    `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	AcknowledgedBy string         `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time     `json:"acknowledgedAt,omitempty"`
	ResolvedBy     string         `json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time     `json:"resolvedAt,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
