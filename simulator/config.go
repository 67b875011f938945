package simulator

import (
	"fmt"
	"time"
)

// Config holds parameters for the telemetry simulator.
type Config struct {
	// Target is "http" or "mqtt".
	Target   string
	APIURL   string
	Broker   string
	ClientID string
	// Topic is the telemetry topic template; %s is replaced by the vehicle id.
	Topic string

	Vehicles  []string
	Rate      int
	Duration  time.Duration
	BatchSize int
	Seed      int64
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Target == "" {
		c.Target = "http"
	}
	if c.APIURL == "" {
		c.APIURL = "http://localhost:8080"
	}
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.ClientID == "" {
		c.ClientID = "fleetops-sim"
	}
	if c.Topic == "" {
		c.Topic = "fleet/vehicle/%s/telemetry"
	}
	if len(c.Vehicles) == 0 {
		c.Vehicles = []string{"veh_1", "veh_2", "veh_3", "veh_4"}
	}
	if c.Rate <= 0 {
		c.Rate = 10
	}
	if c.Duration <= 0 {
		c.Duration = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Target {
	case "http", "mqtt":
	default:
		return fmt.Errorf("simulator: unknown target %q", c.Target)
	}
	if len(c.Vehicles) == 0 {
		return fmt.Errorf("simulator: no vehicles")
	}
	return nil
}
