package allocation

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/kilianp07/fleetops/core/model"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// distanceTolerance absorbs floating point noise at the radius boundary.
const distanceTolerance = 1e-9

// Haversine returns the great-circle distance between a and b in km.
func Haversine(a, b model.Position) float64 {
	lat1 := deg2rad(a.Lat)
	lat2 := deg2rad(b.Lat)
	dLat := deg2rad(b.Lat - a.Lat)
	dLon := deg2rad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

// Candidate is a pending job reachable from the search origin.
type Candidate struct {
	Job        model.Job
	DistanceKm float64
}

// FindWithinRadius returns the pending jobs whose pickup lies within
// radiusKm of origin. The radius is inclusive. Results keep input order.
func FindWithinRadius(origin model.Position, jobs []model.Job, radiusKm float64) []Candidate {
	var out []Candidate
	for _, j := range jobs {
		if j.Status != model.JobPending {
			continue
		}
		d := Haversine(origin, j.Pickup)
		if d <= radiusKm || scalar.EqualWithinAbs(d, radiusKm, distanceTolerance) {
			out = append(out, Candidate{Job: j, DistanceKm: d})
		}
	}
	return out
}
