// Package spatialindex provides a uniform grid over graph node coordinates
// for O(1)-ish nearest-node and radius queries, generalizing the teacher's
// integer-cell gridgraph to lon/lat cells sized in degrees.
package spatialindex

import (
	"math"

	"github.com/marikina-frc/floodcore/internal/geo"
	"github.com/marikina-frc/floodcore/internal/graphenv"
)

// DefaultCellSizeDeg is ~1km at tropical latitudes (spec default).
const DefaultCellSizeDeg = 0.01

type cellKey struct {
	cx int
	cy int
}

type entry struct {
	id  graphenv.NodeID
	pos geo.LatLon
}

// Index is a uniform grid index over a fixed set of nodes. It is built
// once from a graph snapshot at load time; graphenv node coordinates
// never change after load, so the index never needs to be invalidated
// mid-run (only risk mutates, and risk plays no part in this index).
type Index struct {
	cellSize float64
	cells    map[cellKey][]entry
}

// New builds an Index over every node in g using cellSizeDeg-sized cells.
// Passing cellSizeDeg <= 0 selects DefaultCellSizeDeg.
func New(g *graphenv.Graph, cellSizeDeg float64) *Index {
	if cellSizeDeg <= 0 {
		cellSizeDeg = DefaultCellSizeDeg
	}
	idx := &Index{
		cellSize: cellSizeDeg,
		cells:    make(map[cellKey][]entry),
	}
	for _, n := range g.Nodes() {
		k := idx.keyFor(n.Lon, n.Lat)
		idx.cells[k] = append(idx.cells[k], entry{id: n.ID, pos: geo.LatLon{Lat: n.Lat, Lon: n.Lon}})
	}
	return idx
}

func (idx *Index) keyFor(lon, lat float64) cellKey {
	return cellKey{
		cx: int(math.Floor(lon / idx.cellSize)),
		cy: int(math.Floor(lat / idx.cellSize)),
	}
}

// DefaultMaxDistanceM is the 500m snap cap the router uses for endpoints.
const DefaultMaxDistanceM = 500.0

// NearestNode returns the closest node to (lat, lon) within maxDistanceM,
// scanning every ring of cells out to the ring bound for maxDistanceM
// (it does not stop early once a candidate is found). maxDistanceM <= 0
// selects DefaultMaxDistanceM.
//
// Complexity: O(k) where k is the number of nodes in the touched cells.
func (idx *Index) NearestNode(lat, lon float64, maxDistanceM float64) (graphenv.NodeID, bool) {
	if maxDistanceM <= 0 {
		maxDistanceM = DefaultMaxDistanceM
	}
	origin := geo.LatLon{Lat: lat, Lon: lon}
	center := idx.keyFor(lon, lat)

	var best graphenv.NodeID
	bestDist := math.Inf(1)
	found := false

	maxRing := idx.ringBoundFor(maxDistanceM)
	for ring := 0; ring <= maxRing; ring++ {
		for _, k := range ringCells(center, ring) {
			for _, e := range idx.cells[k] {
				d := geo.HaversineM(origin, e.pos)
				if d <= maxDistanceM && d < bestDist {
					bestDist = d
					best = e.id
					found = true
				}
			}
		}
	}
	return best, found
}

// NodesWithinRadius returns every node whose Haversine distance from
// (lat, lon) is <= radiusM.
//
// Complexity: O(cellsTouched + hits).
func (idx *Index) NodesWithinRadius(lat, lon, radiusM float64) []graphenv.NodeID {
	origin := geo.LatLon{Lat: lat, Lon: lon}
	center := idx.keyFor(lon, lat)
	ringCount := idx.ringBoundFor(radiusM)

	var out []graphenv.NodeID
	seen := make(map[graphenv.NodeID]struct{})
	for ring := 0; ring <= ringCount; ring++ {
		for _, k := range ringCells(center, ring) {
			for _, e := range idx.cells[k] {
				if _, dup := seen[e.id]; dup {
					continue
				}
				if geo.HaversineM(origin, e.pos) <= radiusM {
					out = append(out, e.id)
					seen[e.id] = struct{}{}
				}
			}
		}
	}
	return out
}

// ringBoundFor returns how many rings of cells around the center must be
// scanned to guarantee coverage of a circle of radius distM.
func (idx *Index) ringBoundFor(distM float64) int {
	degPerM := geo.DegreesLatPerMeter()
	cells := int(math.Ceil((distM * degPerM) / idx.cellSize))
	return cells + 1
}

// ringCells enumerates the cells forming the square ring at the given
// Chebyshev distance from center (ring 0 is just the center cell).
func ringCells(center cellKey, ring int) []cellKey {
	if ring == 0 {
		return []cellKey{center}
	}
	var out []cellKey
	for dx := -ring; dx <= ring; dx++ {
		out = append(out, cellKey{cx: center.cx + dx, cy: center.cy - ring})
		out = append(out, cellKey{cx: center.cx + dx, cy: center.cy + ring})
	}
	for dy := -ring + 1; dy <= ring-1; dy++ {
		out = append(out, cellKey{cx: center.cx - ring, cy: center.cy + dy})
		out = append(out, cellKey{cx: center.cx + ring, cy: center.cy + dy})
	}
	return out
}
