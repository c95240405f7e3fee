// Package terrain loads a DEM (digital elevation model) and answers
// elevation/slope/relative-elevation queries used by hazard fusion's
// terrain prior and by line-of-sight barrier checks.
package terrain

import (
	"errors"
	"math"

	"github.com/marikina-frc/floodcore/internal/geo"
	"github.com/marikina-frc/floodcore/internal/graphenv"
)

// ErrMissing is a fatal construction error: the DEM could not be loaded.
var ErrMissing = errors.New("terrain: DEM missing")

// DefaultLocalRadiusM and DefaultRegionalRadiusM mirror the reference
// DEM service's ~150m and ~2km relative-elevation windows.
const (
	DefaultLocalRadiusM    = 150.0
	DefaultRegionalRadiusM = 2000.0
)

// DEM is the raw elevation grid a Service is built from. PixelSizeM is
// the ground size of one cell (assumed square, matching the source DEM's
// near-31m resolution).
type DEM struct {
	Elevation  [][]float64 // meters, NaN = nodata
	Bounds     Bounds
	PixelSizeM float64
}

// Bounds is the DEM's WGS84 footprint.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// Service answers terrain queries against a fixed DEM, with slope and two
// relative-elevation arrays (local and regional scale) precomputed once
// at construction.
type Service struct {
	dem *DEM

	slope       [][]float64
	relLocal    [][]float64
	relRegional [][]float64
}

// Option configures Service construction.
type Option func(*config)

type config struct {
	localRadiusM    float64
	regionalRadiusM float64
}

func WithLocalRadiusM(m float64) Option    { return func(c *config) { c.localRadiusM = m } }
func WithRegionalRadiusM(m float64) Option { return func(c *config) { c.regionalRadiusM = m } }

// NewService builds a Service over dem, or returns ErrMissing if dem is nil
// or has no rows (a missing DEM is a fatal construction error, not a
// recoverable query failure, per spec §4.2/§7).
func NewService(dem *DEM, opts ...Option) (*Service, error) {
	if dem == nil || len(dem.Elevation) == 0 || len(dem.Elevation[0]) == 0 {
		return nil, ErrMissing
	}

	cfg := config{localRadiusM: DefaultLocalRadiusM, regionalRadiusM: DefaultRegionalRadiusM}
	for _, opt := range opts {
		opt(&cfg)
	}

	localPx := radiusPixels(cfg.localRadiusM, dem.PixelSizeM)
	regionalPx := radiusPixels(cfg.regionalRadiusM, dem.PixelSizeM)

	s := &Service{dem: dem}
	s.slope = computeSlope(dem.Elevation, dem.PixelSizeM)
	s.relLocal = computeRelativeElevation(dem.Elevation, localPx)
	s.relRegional = computeRelativeElevation(dem.Elevation, regionalPx)
	return s, nil
}

func radiusPixels(meters, pixelSizeM float64) int {
	if pixelSizeM <= 0 {
		return 1
	}
	px := int(meters / pixelSizeM)
	if px < 1 {
		px = 1
	}
	return px
}

func (s *Service) height() int { return len(s.dem.Elevation) }
func (s *Service) width() int  { return len(s.dem.Elevation[0]) }

func (s *Service) toPixel(lon, lat float64) (row, col int, ok bool) {
	b := s.dem.Bounds
	if lon < b.MinLon || lon > b.MaxLon || lat < b.MinLat || lat > b.MaxLat {
		return 0, 0, false
	}
	normX := (lon - b.MinLon) / (b.MaxLon - b.MinLon)
	normY := (lat - b.MinLat) / (b.MaxLat - b.MinLat)
	col = int(math.Round(normX * float64(s.width()-1)))
	row = int(math.Round((1.0 - normY) * float64(s.height()-1)))
	if row < 0 || row >= s.height() || col < 0 || col >= s.width() {
		return 0, 0, false
	}
	return row, col, true
}

func valueAt(grid [][]float64, row, col int) (float64, bool) {
	v := grid[row][col]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Elevation returns ground elevation in meters at (lon, lat), or (0, false)
// outside DEM coverage.
func (s *Service) Elevation(lon, lat float64) (float64, bool) {
	row, col, ok := s.toPixel(lon, lat)
	if !ok {
		return 0, false
	}
	return valueAt(s.dem.Elevation, row, col)
}

// Slope returns slope in degrees at (lon, lat), or (0, false) outside coverage.
func (s *Service) Slope(lon, lat float64) (float64, bool) {
	row, col, ok := s.toPixel(lon, lat)
	if !ok {
		return 0, false
	}
	return valueAt(s.slope, row, col)
}

// RelativeElevation returns the local-scale (elevation - local mean) in
// meters; negative values mark depressions.
func (s *Service) RelativeElevation(lon, lat float64) (float64, bool) {
	row, col, ok := s.toPixel(lon, lat)
	if !ok {
		return 0, false
	}
	return valueAt(s.relLocal, row, col)
}

// RegionalRelativeElevation is RelativeElevation computed over the wider
// (~2km) window, better at catching floodplains than the local window.
func (s *Service) RegionalRelativeElevation(lon, lat float64) (float64, bool) {
	row, col, ok := s.toPixel(lon, lat)
	if !ok {
		return 0, false
	}
	return valueAt(s.relRegional, row, col)
}

// LineOfSight samples `samples` interior points on the segment p->q and
// returns false if any sampled elevation exceeds maxElev (a crude barrier
// check: a ridge between two points blocks flood propagation between them).
// Points outside DEM coverage are skipped (treated as non-blocking).
func (s *Service) LineOfSight(p, q geo.LatLon, maxElev float64, samples int) bool {
	if samples < 1 {
		samples = 1
	}
	for i := 1; i <= samples; i++ {
		t := float64(i) / float64(samples+1)
		lat := p.Lat + (q.Lat-p.Lat)*t
		lon := p.Lon + (q.Lon-p.Lon)*t
		elev, ok := s.Elevation(lon, lat)
		if !ok {
			continue
		}
		if elev > maxElev {
			return false
		}
	}
	return true
}

// PrecomputeNodeElevations iterates every node once and caches three
// terrain scalars onto the node (elevation, slope and local relative
// elevation), run during graph load. The regional relative elevation is
// not cached on nodes; RegionalRelativeElevation computes it on demand.
// It returns the fraction of nodes that fell inside DEM coverage.
func (s *Service) PrecomputeNodeElevations(g *graphenv.Graph) float64 {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return 0
	}
	covered := 0
	for _, n := range nodes {
		elev, ok := s.Elevation(n.Lon, n.Lat)
		if !ok {
			continue
		}
		covered++
		slope, _ := s.Slope(n.Lon, n.Lat)
		rel, _ := s.RelativeElevation(n.Lon, n.Lat)
		g.SetNodeTerrain(n.ID, elev, slope, rel)
	}
	return float64(covered) / float64(len(nodes))
}
