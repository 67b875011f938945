package model

// Thresholds holds the limits whose breach raises an alert.
type Thresholds struct {
	SpeedLimit       float64 `json:"speedLimit"`
	DriverHoursLimit float64 `json:"driverHoursLimit"`
	FuelLowThreshold float64 `json:"fuelLowThreshold"`
	EngineTempHigh   float64 `json:"engineTempHigh"`
	RouteDeviationKm float64 `json:"routeDeviationKm"`
}

// DefaultThresholds returns the limits used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SpeedLimit:       120,
		DriverHoursLimit: 10,
		FuelLowThreshold: 20,
		EngineTempHigh:   110,
		RouteDeviationKm: 5,
	}
}

// WithDefaults replaces zero limits with the defaults.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.SpeedLimit == 0 {
		t.SpeedLimit = d.SpeedLimit
	}
	if t.DriverHoursLimit == 0 {
		t.DriverHoursLimit = d.DriverHoursLimit
	}
	if t.FuelLowThreshold == 0 {
		t.FuelLowThreshold = d.FuelLowThreshold
	}
	if t.EngineTempHigh == 0 {
		t.EngineTempHigh = d.EngineTempHigh
	}
	if t.RouteDeviationKm == 0 {
		t.RouteDeviationKm = d.RouteDeviationKm
	}
	return t
}

// FatigueLimitMinutes is DriverHoursLimit expressed in minutes.
func (t Thresholds) FatigueLimitMinutes() float64 { return t.DriverHoursLimit * 60 }

// Validate rejects non-positive limits.
func (t Thresholds) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"speedLimit", t.SpeedLimit},
		{"driverHoursLimit", t.DriverHoursLimit},
		{"fuelLowThreshold", t.FuelLowThreshold},
		{"engineTempHigh", t.EngineTempHigh},
		{"routeDeviationKm", t.RouteDeviationKm},
	}
	for _, c := range checks {
		if c.v <= 0 {
			return NewValidationError("%s must be positive", c.name)
		}
	}
	return nil
}

// ThresholdPatch is a partial update. Nil fields keep their current value.
type ThresholdPatch struct {
	SpeedLimit       *float64 `json:"speedLimit,omitempty"`
	DriverHoursLimit *float64 `json:"driverHoursLimit,omitempty"`
	FuelLowThreshold *float64 `json:"fuelLowThreshold,omitempty"`
	EngineTempHigh   *float64 `json:"engineTempHigh,omitempty"`
	RouteDeviationKm *float64 `json:"routeDeviationKm,omitempty"`
}

// Apply merges p into t and returns the result.
func (t Thresholds) Apply(p ThresholdPatch) Thresholds {
	if p.SpeedLimit != nil {
		t.SpeedLimit = *p.SpeedLimit
	}
	if p.DriverHoursLimit != nil {
		t.DriverHoursLimit = *p.DriverHoursLimit
	}
	if p.FuelLowThreshold != nil {
		t.FuelLowThreshold = *p.FuelLowThreshold
	}
	if p.EngineTempHigh != nil {
		t.EngineTempHigh = *p.EngineTempHigh
	}
	if p.RouteDeviationKm != nil {
		t.RouteDeviationKm = *p.RouteDeviationKm
	}
	return t
}
