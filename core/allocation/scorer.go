package allocation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/kilianp07/fleetops/core/model"
)

// scoreTolerance treats profitabilities this close as equal.
const scoreTolerance = 1e-9

// Pricing holds the tariff used to score jobs.
type Pricing struct {
	BaseFare       float64 `json:"base_fare"`
	RatePerKm      float64 `json:"rate_per_km"`
	AddonPremium   float64 `json:"addon_premium"`
	RepositionBase float64 `json:"reposition_base"`
	CostPerKm      float64 `json:"cost_per_km"`
	Currency       string  `json:"currency"`
}

// DefaultPricing returns the standard tariff.
func DefaultPricing() Pricing {
	return Pricing{
		BaseFare:       15,
		RatePerKm:      5,
		AddonPremium:   10,
		RepositionBase: 10,
		CostPerKm:      2.5,
		Currency:       "SAR",
	}
}

// SetDefaults fills unset fields from DefaultPricing.
func (p *Pricing) SetDefaults() {
	d := DefaultPricing()
	if p.BaseFare == 0 {
		p.BaseFare = d.BaseFare
	}
	if p.RatePerKm == 0 {
		p.RatePerKm = d.RatePerKm
	}
	if p.AddonPremium == 0 {
		p.AddonPremium = d.AddonPremium
	}
	if p.RepositionBase == 0 {
		p.RepositionBase = d.RepositionBase
	}
	if p.CostPerKm == 0 {
		p.CostPerKm = d.CostPerKm
	}
	if p.Currency == "" {
		p.Currency = d.Currency
	}
}

// Scored is a candidate with its score breakdown.
type Scored struct {
	Job            model.Job
	DistanceKm     float64
	TripKm         float64
	Revenue        float64
	RepositionCost float64
	Profitability  float64
}

// Scorer ranks candidates by profitability.
type Scorer struct {
	Pricing Pricing
}

// Score computes the breakdown of one candidate.
func (s Scorer) Score(c Candidate) Scored {
	p := s.Pricing
	trip := Haversine(c.Job.Pickup, c.Job.Dropoff)
	revenue := p.BaseFare + trip*p.RatePerKm*c.Job.OccupancyMultiplier() + p.AddonPremium*float64(len(c.Job.Addons))
	cost := p.RepositionBase + c.DistanceKm*p.CostPerKm
	return Scored{
		Job:            c.Job,
		DistanceKm:     c.DistanceKm,
		TripKm:         trip,
		Revenue:        revenue,
		RepositionCost: cost,
		Profitability:  revenue - cost,
	}
}

// Rank scores every candidate and sorts them best first: profitability
// descending, then pickup distance ascending, then job creation time
// ascending. The job id settles anything left so the order is total.
func (s Scorer) Rank(cands []Candidate) []Scored {
	out := make([]Scored, len(cands))
	for i, c := range cands {
		out[i] = s.Score(c)
	}
	sort.SliceStable(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}

func better(a, b Scored) bool {
	if !scalar.EqualWithinAbs(a.Profitability, b.Profitability, scoreTolerance) {
		return a.Profitability > b.Profitability
	}
	if !scalar.EqualWithinAbs(a.DistanceKm, b.DistanceKm, distanceTolerance) {
		return a.DistanceKm < b.DistanceKm
	}
	if !a.Job.CreatedAt.Equal(b.Job.CreatedAt) {
		return a.Job.CreatedAt.Before(b.Job.CreatedAt)
	}
	return a.Job.ID < b.Job.ID
}

// money rounds v to cents.
func money(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(2) }

// Rationale renders the human readable summary of a scored job.
func (s Scorer) Rationale(sc Scored) string {
	cur := s.Pricing.Currency
	return fmt.Sprintf("Best profitability score of %s %s. Revenue: %s %s, Reposition cost: %s %s, Distance to pickup: %s km",
		money(sc.Profitability).StringFixed(2), cur,
		money(sc.Revenue).StringFixed(2), cur,
		money(sc.RepositionCost).StringFixed(2), cur,
		money(sc.DistanceKm).StringFixed(2),
	)
}
