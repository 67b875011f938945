package allocation

import (
	"context"
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

// Outcome is the terminal state of one allocation request.
type Outcome string

const (
	OutcomeFatigueBreak Outcome = "fatigue_break_required"
	OutcomeIneligible   Outcome = "ineligible"
	OutcomeNoJobs       Outcome = "no_jobs"
	OutcomeAssigned     Outcome = "job_assigned"
)

// ScoreBreakdown is the 2-decimal view of a Scored candidate.
type ScoreBreakdown struct {
	Profitability      float64 `json:"profitability"`
	Revenue            float64 `json:"revenue"`
	RepositionCost     float64 `json:"reposition_cost"`
	DistanceToPickupKm float64 `json:"distance_to_pickup_km"`
}

// Assignment describes the job handed to the vehicle.
type Assignment struct {
	JobID       string         `json:"job_id"`
	JobType     string         `json:"job_type,omitempty"`
	Origin      model.Position `json:"origin"`
	Destination model.Position `json:"destination"`
	Passengers  int            `json:"passengers,omitempty"`
	Score       ScoreBreakdown `json:"score"`
	Rationale   string         `json:"rationale"`
}

// Decision is the discriminated result of AssignNext. Status selects which
// of the optional fields are set.
type Decision struct {
	Status    Outcome   `json:"status"`
	VehicleID string    `json:"vehicle_id"`
	Message   string    `json:"message"`
	DecidedAt time.Time `json:"decided_at"`

	// fatigue_break_required
	Driver                 string  `json:"driver,omitempty"`
	HoursWorked            float64 `json:"hours_worked,omitempty"`
	RequiresAcknowledgment bool    `json:"requires_acknowledgment,omitempty"`

	// ineligible
	Issues []string `json:"issues,omitempty"`

	// no_jobs
	VehicleLocation *model.Position `json:"vehicle_location,omitempty"`

	// job_assigned
	Assignment        *Assignment `json:"assignment,omitempty"`
	AlternativesCount int         `json:"alternatives_count"`
}

// DecisionRecord is the persisted form of a Decision.
type DecisionRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	VehicleID     string    `json:"vehicle_id"`
	Outcome       Outcome   `json:"outcome"`
	JobID         string    `json:"job_id,omitempty"`
	Profitability float64   `json:"profitability,omitempty"`
	DistanceKm    float64   `json:"distance_km,omitempty"`
	Candidates    int       `json:"candidates"`
	Issues        []string  `json:"issues,omitempty"`
	Rationale     string    `json:"rationale,omitempty"`
}

// Record converts d to a DecisionRecord.
func (d Decision) Record(candidates int) DecisionRecord {
	rec := DecisionRecord{
		Timestamp:  d.DecidedAt,
		VehicleID:  d.VehicleID,
		Outcome:    d.Status,
		Candidates: candidates,
		Issues:     d.Issues,
	}
	if a := d.Assignment; a != nil {
		rec.JobID = a.JobID
		rec.Profitability = a.Score.Profitability
		rec.DistanceKm = a.Score.DistanceToPickupKm
		rec.Rationale = a.Rationale
	}
	return rec
}

// DecisionQuery filters decision log reads. Zero values match everything.
type DecisionQuery struct {
	Start     time.Time
	End       time.Time
	VehicleID string
	Outcome   Outcome
	Limit     int
}

// Match reports whether r passes the filter. Limit is applied by stores.
func (q DecisionQuery) Match(r DecisionRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.VehicleID != "" && r.VehicleID != q.VehicleID {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}

// DecisionLog persists allocation decisions.
type DecisionLog interface {
	Append(ctx context.Context, rec DecisionRecord) error
	Query(ctx context.Context, q DecisionQuery) ([]DecisionRecord, error)
	Close() error
}
