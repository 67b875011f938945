package model

import "time"

// TelemetrySample is a single position/sensor reading reported by a vehicle.
// Optional sensor readings are nil when the producer did not send them.
type TelemetrySample struct {
	VehicleID  string    `json:"vehicleId"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
	Position   Position  `json:"position"`
	Speed      float64   `json:"speed"`
	Heading    float64   `json:"heading"`

	FuelLevel        *float64 `json:"fuelLevel,omitempty"`
	EngineTemp       *float64 `json:"engineTemp,omitempty"`
	OnDutyMinutes    *float64 `json:"onDutyMinutes,omitempty"`
	RouteDeviationKm *float64 `json:"routeDeviationKm,omitempty"`
}

// EffectiveTime is the producer timestamp when present, otherwise the
// server receipt time.
func (s TelemetrySample) EffectiveTime() time.Time {
	if !s.Timestamp.IsZero() {
		return s.Timestamp
	}
	return s.ReceivedAt
}

// Float returns a pointer to v. It is handy for optional sample readings.
func Float(v float64) *float64 { return &v }
