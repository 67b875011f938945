package allocation

import (
	"fmt"

	"github.com/kilianp07/fleetops/core/model"
)

// Eligibility is the outcome of a fitness check.
type Eligibility struct {
	Eligible bool     `json:"eligible"`
	Issues   []string `json:"issues"`
}

// EligibilityChecker decides whether a vehicle can take a new job.
type EligibilityChecker struct {
	// MaxShiftMinutes is the on-duty time from which a driver is no longer
	// offered work.
	MaxShiftMinutes float64
	// MinFuel is the lowest fuel percentage accepted. Vehicles without a
	// fuel reading are not checked.
	MinFuel float64
}

// Check evaluates every rule and accumulates all failing reasons in a
// fixed order.
func (c EligibilityChecker) Check(v model.VehicleState) Eligibility {
	issues := []string{}
	if v.OnDutyMinutes >= c.MaxShiftMinutes {
		issues = append(issues, fmt.Sprintf("Driver has exceeded maximum hours (%gh)", c.MaxShiftMinutes/60))
	}
	if v.FuelLevel != nil && *v.FuelLevel < c.MinFuel {
		issues = append(issues, fmt.Sprintf("Fuel level below %g%%", c.MinFuel))
	}
	if v.NeedsMaintenance {
		issues = append(issues, "Vehicle requires maintenance")
	}
	if v.Occupancy != model.OccupancyIdle {
		issues = append(issues, fmt.Sprintf("Vehicle is not available (status: %s)", v.Occupancy))
	}
	return Eligibility{Eligible: len(issues) == 0, Issues: issues}
}
