package scenario

import "github.com/marikina-frc/floodcore/internal/raster"

// SyntheticSource is a raster.Source that fabricates a depth grid
// proportional to return period and time step rather than decoding a
// real GeoTIFF. The core takes no dependency on any concrete raster
// format (ingestion adapters are explicitly out of scope), so this is
// what cmd/floodsim hands the raster service for a self-contained demo
// run: depth rises monotonically with time step and is higher for
// rarer return periods, just enough variation to exercise fusion's
// sigmoid risk curve end to end.
type SyntheticSource struct {
	Size       int // grid is Size x Size
	PeakDepthM float64
}

func (s SyntheticSource) sizeOrDefault() int {
	if s.Size <= 0 {
		return 32
	}
	return s.Size
}

func (s SyntheticSource) peakOrDefault() float64 {
	if s.PeakDepthM <= 0 {
		return 2.0
	}
	return s.PeakDepthM
}

func (s SyntheticSource) Load(scn raster.Scenario) (*raster.Raster, error) {
	n := s.sizeOrDefault()
	peak := s.peakOrDefault()

	returnPeriodFactor := returnPeriodSeverity(scn.ReturnPeriodID)
	timeFactor := float64(scn.TimeStep) / float64(raster.DefaultTimeSteps)

	depth := float32(peak * returnPeriodFactor * timeFactor)

	grid := make([][]float32, n)
	for r := 0; r < n; r++ {
		row := make([]float32, n)
		for c := 0; c < n; c++ {
			// Bowl-shaped: deepest at the center, dry at the edges, so
			// routing around a flooded core has something to avoid.
			dr := float64(r) - float64(n)/2
			dc := float64(c) - float64(n)/2
			distFrac := (dr*dr + dc*dc) / (float64(n) * float64(n) / 4)
			if distFrac > 1 {
				distFrac = 1
			}
			row[c] = depth * float32(1.0-distFrac)
		}
		grid[r] = row
	}

	return &raster.Raster{Depths: grid, NoData: -9999}, nil
}

func returnPeriodSeverity(id raster.ReturnPeriodID) float64 {
	switch id {
	case "rr01":
		return 0.4
	case "rr02":
		return 0.65
	case "rr03":
		return 0.85
	case "rr04":
		return 1.0
	default:
		return 0.5
	}
}
