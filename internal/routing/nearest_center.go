package routing

import (
	"sort"

	"github.com/marikina-frc/floodcore/internal/evac"
	"github.com/marikina-frc/floodcore/internal/geo"
)

// RouteToNearestCenter evaluates routes to the candidatesLimit
// geographically-nearest of the given centers (no availability filtering
// is applied here; candidatesLimit < 1 selects 3) and returns the
// one with the lowest risk-aware Cost under the safest-weighted cost
// function already baked into Route. Returns ErrNoPath if every
// candidate is unreachable.
func (r *Router) RouteToNearestCenter(start geo.LatLon, centers []evac.Center, candidatesLimit int) (RouteResult, error) {
	if candidatesLimit < 1 {
		candidatesLimit = 3
	}

	type scored struct {
		center evac.Center
		dist   float64
	}
	byDistance := make([]scored, 0, len(centers))
	for _, c := range centers {
		byDistance = append(byDistance, scored{c, geo.HaversineM(start, geo.LatLon{Lat: c.Lat, Lon: c.Lon})})
	}
	sort.Slice(byDistance, func(i, j int) bool { return byDistance[i].dist < byDistance[j].dist })

	if len(byDistance) > candidatesLimit {
		byDistance = byDistance[:candidatesLimit]
	}

	var best RouteResult
	found := false
	for _, cand := range byDistance {
		res, err := r.Route(start, geo.LatLon{Lat: cand.center.Lat, Lon: cand.center.Lon}, Preferences{RouteType: RouteSafest})
		if err != nil {
			continue
		}
		if !found || res.Cost < best.Cost {
			best = res
			found = true
		}
	}

	if !found {
		return RouteResult{RiskLevel: 1.0}, ErrNoPath
	}
	return best, nil
}
