package model

import "time"

// Occupancy describes whether a vehicle can take work right now.
type Occupancy string

const (
	OccupancyIdle         Occupancy = "idle"
	OccupancyAssigned     Occupancy = "assigned"
	OccupancyEnRoute      Occupancy = "en_route"
	OccupancyOutOfService Occupancy = "out_of_service"
)

// Valid reports whether o is one of the known occupancy values.
func (o Occupancy) Valid() bool {
	switch o {
	case OccupancyIdle, OccupancyAssigned, OccupancyEnRoute, OccupancyOutOfService:
		return true
	}
	return false
}

// Position is a WGS84 coordinate in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// VehicleState is the dispatch view of a vehicle and its driver.
type VehicleState struct {
	ID               string    `json:"id"`
	Driver           string    `json:"driver,omitempty"`
	Type             string    `json:"type,omitempty"`
	Position         Position  `json:"position"`
	Occupancy        Occupancy `json:"status"`
	OnDutyMinutes    float64   `json:"on_duty_minutes"`
	FuelLevel        *float64  `json:"fuel_level,omitempty"`
	NeedsMaintenance bool      `json:"needs_maintenance"`
	CurrentJobID     string    `json:"current_job_id,omitempty"`
	LastBreakAt      time.Time `json:"last_break_at,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OnDutyHours returns the on-duty time in hours.
func (v VehicleState) OnDutyHours() float64 { return v.OnDutyMinutes / 60 }

// Validate checks the fields a caller must provide when registering a vehicle.
func (v VehicleState) Validate() error {
	if v.ID == "" {
		return NewValidationError("vehicle id is required")
	}
	if v.Occupancy != "" && !v.Occupancy.Valid() {
		return NewValidationError("unknown occupancy %q", v.Occupancy)
	}
	if v.OnDutyMinutes < 0 {
		return NewValidationError("on-duty minutes must not be negative")
	}
	return nil
}
