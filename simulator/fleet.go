package simulator

import (
	"math/rand"
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

// baseLocations anchors the random walk of the demo vehicles.
var baseLocations = map[string]model.Position{
	"veh_1": {Lat: 24.7136, Lon: 46.6753},
	"veh_2": {Lat: 21.3891, Lon: 39.8579},
	"veh_3": {Lat: 24.7500, Lon: 46.7000},
	"veh_4": {Lat: 26.4367, Lon: 50.1039},
}

var defaultBase = model.Position{Lat: 24.7, Lon: 46.7}

// Event is one telemetry payload in the producer wire format.
type Event struct {
	VehicleID  string  `json:"vehicleId"`
	Timestamp  string  `json:"timestamp"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Speed      float64 `json:"speed"`
	Heading    float64 `json:"heading"`
	FuelLevel  float64 `json:"fuel_level"`
	EngineTemp float64 `json:"engine_temp"`
}

// Generator produces random telemetry around fixed base locations. Speeds
// range up to 140 km/h so that some events breach the default limit.
type Generator struct {
	rng      *rand.Rand
	vehicles []string
}

// NewGenerator creates a generator for vehicles seeded with seed. A zero
// seed uses the current time.
func NewGenerator(vehicles []string, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), vehicles: vehicles}
}

// Event generates one event for vehicleID at t.
func (g *Generator) Event(vehicleID string, t time.Time) Event {
	base, ok := baseLocations[vehicleID]
	if !ok {
		base = defaultBase
	}
	return Event{
		VehicleID:  vehicleID,
		Timestamp:  t.UTC().Format(time.RFC3339Nano),
		Lat:        base.Lat + (g.rng.Float64()-0.5)*0.1,
		Lng:        base.Lon + (g.rng.Float64()-0.5)*0.1,
		Speed:      float64(g.rng.Intn(140)),
		Heading:    float64(g.rng.Intn(360)),
		FuelLevel:  float64(50 + g.rng.Intn(50)),
		EngineTemp: float64(80 + g.rng.Intn(30)),
	}
}

// Tick generates n events for random vehicles spread over one second
// starting at now.
func (g *Generator) Tick(now time.Time, n int) []Event {
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		id := g.vehicles[g.rng.Intn(len(g.vehicles))]
		at := now.Add(time.Duration(i) * time.Second / time.Duration(n))
		out = append(out, g.Event(id, at))
	}
	return out
}
