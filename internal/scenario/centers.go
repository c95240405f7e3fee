package scenario

import (
	"math"

	"github.com/marikina-frc/floodcore/internal/evac"
)

// DefaultCenters seeds a directory with a handful of named evacuation
// centers spread around the default grid's footprint, standing in for
// the barangay gymnasium/school roster a real deployment would load
// from its own registry.
func DefaultCenters(cfg GridConfig) []evac.Center {
	cfg = cfg.withDefaults()

	dLat, dLonBase := degreesPerMeter(cfg.CenterLat)
	dLon := dLonBase / math.Cos(cfg.CenterLat*math.Pi/180.0)
	offset := cfg.SpacingM * float64(cfg.Rows) / 3

	return []evac.Center{
		{Name: "Barangay Gym North", Lat: cfg.CenterLat + offset*dLat, Lon: cfg.CenterLon, Capacity: 500},
		{Name: "Barangay Gym South", Lat: cfg.CenterLat - offset*dLat, Lon: cfg.CenterLon, Capacity: 500},
		{Name: "Elementary School", Lat: cfg.CenterLat, Lon: cfg.CenterLon + offset*dLon, Capacity: 300},
	}
}
