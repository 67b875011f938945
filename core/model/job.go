package model

import "time"

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobAssigned  JobStatus = "assigned"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

// Job is a trip or delivery waiting to be served by a vehicle.
type Job struct {
	ID         string    `json:"id"`
	Type       string    `json:"type,omitempty"`
	Pickup     Position  `json:"origin"`
	Dropoff    Position  `json:"destination"`
	Passengers int       `json:"passengers,omitempty"`
	Addons     []string  `json:"addons,omitempty"`
	Status     JobStatus `json:"status"`
	VehicleID  string    `json:"vehicle_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	AssignedAt time.Time `json:"assigned_at,omitempty"`
}

// OccupancyMultiplier is the revenue multiplier for the passenger count.
// Jobs without passengers (cargo) count as one.
func (j Job) OccupancyMultiplier() float64 {
	if j.Passengers < 1 {
		return 1
	}
	return float64(j.Passengers)
}
