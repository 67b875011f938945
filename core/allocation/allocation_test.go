package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/model"
)

var riyadh = model.Position{Lat: 24.7136, Lon: 46.6753}

// kmPerDegree is the length of one degree of latitude on the model sphere.
var kmPerDegree = EarthRadiusKm * 3.141592653589793 / 180

// north moves p km kilometres due north. Along a meridian the haversine
// distance equals the arc length, which keeps test geometry exact.
func north(p model.Position, km float64) model.Position {
	return model.Position{Lat: p.Lat + km/kmPerDegree, Lon: p.Lon}
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, Haversine(riyadh, riyadh), 1e-12)
	assert.InDelta(t, kmPerDegree, Haversine(model.Position{Lat: 0, Lon: 10}, model.Position{Lat: 1, Lon: 10}), 1e-9)
	assert.InDelta(t, 12, Haversine(riyadh, north(riyadh, 12)), 1e-9)
	// symmetric
	a, b := riyadh, model.Position{Lat: 21.4858, Lon: 39.1925}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestFindWithinRadius(t *testing.T) {
	jobs := []model.Job{
		{ID: "near", Status: model.JobPending, Pickup: north(riyadh, 3)},
		{ID: "edge", Status: model.JobPending, Pickup: north(riyadh, 20)},
		{ID: "far", Status: model.JobPending, Pickup: north(riyadh, 20.01)},
		{ID: "taken", Status: model.JobAssigned, Pickup: north(riyadh, 1)},
	}
	got := FindWithinRadius(riyadh, jobs, 20)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].Job.ID)
	assert.Equal(t, "edge", got[1].Job.ID)
	assert.InDelta(t, 3, got[0].DistanceKm, 1e-9)
}

func TestEligibilityAccumulatesIssues(t *testing.T) {
	c := EligibilityChecker{MaxShiftMinutes: 480, MinFuel: 20}
	el := c.Check(model.VehicleState{
		ID:               "V1",
		OnDutyMinutes:    480,
		FuelLevel:        model.Float(10),
		NeedsMaintenance: true,
		Occupancy:        model.OccupancyEnRoute,
	})
	assert.False(t, el.Eligible)
	assert.Equal(t, []string{
		"Driver has exceeded maximum hours (8h)",
		"Fuel level below 20%",
		"Vehicle requires maintenance",
		"Vehicle is not available (status: en_route)",
	}, el.Issues)

	ok := c.Check(model.VehicleState{ID: "V2", OnDutyMinutes: 120, FuelLevel: model.Float(80), Occupancy: model.OccupancyIdle})
	assert.True(t, ok.Eligible)
	assert.Empty(t, ok.Issues)

	noReading := c.Check(model.VehicleState{ID: "V3", OnDutyMinutes: 120, Occupancy: model.OccupancyIdle})
	assert.True(t, noReading.Eligible, noReading.Issues)
}

func TestScoreBreakdown(t *testing.T) {
	s := Scorer{Pricing: DefaultPricing()}
	pickup := north(riyadh, 4)
	sc := s.Score(Candidate{
		Job: model.Job{
			ID:         "j",
			Pickup:     pickup,
			Dropoff:    north(pickup, 10),
			Passengers: 2,
			Addons:     []string{"child_seat", "wifi"},
		},
		DistanceKm: 4,
	})
	assert.InDelta(t, 15+10*5*2+20, sc.Revenue, 1e-6)
	assert.InDelta(t, 10+4*2.5, sc.RepositionCost, 1e-9)
	assert.InDelta(t, sc.Revenue-sc.RepositionCost, sc.Profitability, 1e-9)
}

func TestRankTieBreaks(t *testing.T) {
	s := Scorer{Pricing: DefaultPricing()}
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// Same revenue for all: zero-length trips, no passengers, no addons.
	mk := func(id string, created time.Time) model.Job {
		return model.Job{ID: id, CreatedAt: created, Pickup: riyadh, Dropoff: riyadh}
	}
	cands := []Candidate{
		{Job: mk("late", t0.Add(time.Minute)), DistanceKm: 2},
		{Job: mk("far", t0), DistanceKm: 3},
		{Job: mk("early", t0), DistanceKm: 2},
		{Job: mk("close", t0.Add(time.Hour)), DistanceKm: 1},
	}
	ranked := s.Rank(cands)
	var ids []string
	for _, r := range ranked {
		ids = append(ids, r.Job.ID)
	}
	// Shorter pickup is both more profitable and first on distance; equal
	// distances fall back to creation time.
	assert.Equal(t, []string{"close", "early", "late", "far"}, ids)
}

func TestRankEqualProfitPrefersNearerPickup(t *testing.T) {
	s := Scorer{Pricing: DefaultPricing()}
	// Longer trip compensates the longer reposition exactly:
	// 5 km more trip earns 25, 10 km more reposition costs 25.
	nearPickup := north(riyadh, 2)
	farPickup := north(riyadh, 12)
	cands := []Candidate{
		{Job: model.Job{ID: "far", Pickup: farPickup, Dropoff: north(farPickup, 10)}, DistanceKm: 12},
		{Job: model.Job{ID: "near", Pickup: nearPickup, Dropoff: north(nearPickup, 5)}, DistanceKm: 2},
	}
	ranked := s.Rank(cands)
	require.InDelta(t, ranked[0].Profitability, ranked[1].Profitability, 1e-6)
	assert.Equal(t, "near", ranked[0].Job.ID)
}

func TestRationale(t *testing.T) {
	s := Scorer{Pricing: DefaultPricing()}
	got := s.Rationale(Scored{Profitability: 65.0000001, Revenue: 105, RepositionCost: 40, DistanceKm: 12})
	assert.Equal(t, "Best profitability score of 65.00 SAR. Revenue: 105.00 SAR, Reposition cost: 40.00 SAR, Distance to pickup: 12.00 km", got)
}
