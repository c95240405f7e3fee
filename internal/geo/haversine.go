// Package geo holds the small set of coordinate-math primitives shared by
// the spatial index, the terrain service and the router: all three need a
// consistent great-circle distance and none of them needs a full
// geodesy library for it.
package geo

import "math"

// EarthRadiusM is the mean Earth radius used by every Haversine call in
// the core. Keeping one constant avoids routing and the spatial index
// ever disagreeing on what a meter is.
const EarthRadiusM = 6371000.0

// LatLon is a WGS84 coordinate pair.
type LatLon struct {
	Lat float64
	Lon float64
}

// HaversineM returns the great-circle distance between a and b in meters.
func HaversineM(a, b LatLon) float64 {
	const deg2rad = math.Pi / 180.0

	lat1 := a.Lat * deg2rad
	lat2 := b.Lat * deg2rad
	dLat := (b.Lat - a.Lat) * deg2rad
	dLon := (b.Lon - a.Lon) * deg2rad

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusM * math.Asin(math.Sqrt(h))
}

// DegreesLatPerMeter converts a meter distance to a delta in degrees of
// latitude, used to size grid cells and search radii without a full
// projection.
func DegreesLatPerMeter() float64 {
	return 1.0 / (EarthRadiusM * math.Pi / 180.0)
}
