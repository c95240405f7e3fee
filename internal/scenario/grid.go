// Package scenario builds small deterministic road graphs for the CLI's
// demo and smoke-test scenarios. The core never ships a real OSM/GIS
// ingestion adapter (floodcore is handed a graph, not responsible for
// building one from survey data), so something has to hand the CLI a
// graph to drive; this package is that something, adapted from the
// deterministic Grid constructor in the lvlath builder package: same
// fixed row-major vertex order and right/bottom edge emission, rebuilt
// against graphenv's coordinate-bearing node/edge model instead of
// builder's opaque string-keyed core.Graph.
package scenario

import (
	"fmt"
	"math"

	"github.com/marikina-frc/floodcore/internal/graphenv"
)

// GridConfig parameterizes a synthetic rows x cols street grid centered
// on (CenterLat, CenterLon), with uniform block spacing in meters.
type GridConfig struct {
	Rows, Cols   int
	SpacingM     float64
	CenterLat    float64
	CenterLon    float64
	HighwayClass string
}

func (c GridConfig) withDefaults() GridConfig {
	if c.Rows <= 0 {
		c.Rows = 6
	}
	if c.Cols <= 0 {
		c.Cols = 6
	}
	if c.SpacingM <= 0 {
		c.SpacingM = 120
	}
	if c.HighwayClass == "" {
		c.HighwayClass = "residential"
	}
	return c
}

// degreesPerMeter approximates local lon/lat degrees-per-meter at a
// given latitude using an equirectangular projection, good enough at
// the block scale this generator operates at.
func degreesPerMeter(lat float64) (dLat, dLon float64) {
	const metersPerDegreeLat = 111320.0
	dLat = 1.0 / metersPerDegreeLat
	dLon = dLat // corrected by cos(lat) below
	return dLat, dLon
}

// BuildGrid constructs a rows x cols orthogonal street grid with
// bidirectional edges to the right and bottom neighbor of every cell,
// mirroring builder.Grid's deterministic row-major emission order so a
// fixed GridConfig always yields byte-identical node/edge ordering.
func BuildGrid(cfg GridConfig) *graphenv.Graph {
	cfg = cfg.withDefaults()
	g := graphenv.New()

	dLat, dLonBase := degreesPerMeter(cfg.CenterLat)
	cosLat := math.Cos(cfg.CenterLat * math.Pi / 180.0)
	dLon := dLonBase / cosLat

	id := func(r, c int) graphenv.NodeID {
		return graphenv.NodeID(r*cfg.Cols + c)
	}

	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			lat := cfg.CenterLat + (float64(r)-float64(cfg.Rows)/2)*cfg.SpacingM*dLat
			lon := cfg.CenterLon + (float64(c)-float64(cfg.Cols)/2)*cfg.SpacingM*dLon
			g.AddNode(id(r, c), lon, lat)
		}
	}

	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			u := id(r, c)
			if c+1 < cfg.Cols {
				v := id(r, c+1)
				addBidirectional(g, u, v, cfg.SpacingM, cfg.HighwayClass)
			}
			if r+1 < cfg.Rows {
				v := id(r+1, c)
				addBidirectional(g, u, v, cfg.SpacingM, cfg.HighwayClass)
			}
		}
	}

	return g
}

func addBidirectional(g *graphenv.Graph, u, v graphenv.NodeID, lengthM float64, highwayClass string) {
	name := fmt.Sprintf("block-%d-%d", u, v)
	_ = g.AddEdge(u, v, "f", lengthM, name, highwayClass)
	_ = g.AddEdge(v, u, "f", lengthM, name, highwayClass)
}
