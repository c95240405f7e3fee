package raster

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/stat"
)

// DefaultReturnPeriods and DefaultTimeSteps match the reference
// deployment: four return-period tags, 18 hourly time steps each.
var DefaultReturnPeriods = []ReturnPeriodID{"rr01", "rr02", "rr03", "rr04"}

const DefaultTimeSteps = 18

// Service loads and caches rasters for a fixed Source, idempotently and
// safely for concurrent callers requesting the same scenario.
type Service struct {
	src    Source
	cfg    Config
	cache  *lruCache
	mu     sync.Mutex
	flight singleflight.Group
}

// NewService wraps src with an LRU cache sized for at least
// len(returnPeriods)*timeSteps scenarios, and the manual bounding box cfg.
func NewService(src Source, cfg Config, returnPeriods int, timeSteps int) *Service {
	capacity := returnPeriods * timeSteps
	if capacity < 1 {
		capacity = len(DefaultReturnPeriods) * DefaultTimeSteps
	}
	return &Service{
		src:   src,
		cfg:   cfg.WithDefaults(),
		cache: newLRUCache(capacity),
	}
}

// Load returns the raster for scenario s, loading and caching it on first
// request. Concurrent callers asking for the same scenario block on a
// single underlying Source.Load call via singleflight, rather than
// decoding the same file N times.
func (s *Service) Load(scn Scenario) (*Raster, error) {
	s.mu.Lock()
	if r, ok := s.cache.get(scn); ok {
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	key := fmt.Sprintf("%s/%d", scn.ReturnPeriodID, scn.TimeStep)
	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		r, err := s.src.Load(scn)
		if err != nil {
			return nil, err
		}
		if len(r.Depths) == 0 || len(r.Depths[0]) == 0 {
			return nil, ErrCorrupt
		}
		for _, row := range r.Depths {
			if len(row) != len(r.Depths[0]) {
				return nil, ErrCorrupt
			}
		}
		if r.Bounds == (Bounds{}) {
			r.Bounds = manualBounds(s.cfg, r.width(), r.height())
		}
		s.mu.Lock()
		s.cache.put(scn, r)
		s.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Raster), nil
}

// DepthAt returns the flood depth in meters at (lon, lat) under scenario
// scn, using nearest-pixel sampling against the manual bounding box. It
// returns (0, true) for a valid but dry cell and (0, false) when the
// point lies outside the raster's bounds. Sampling errors (raster failed
// to load) are treated as dry (0, true) per spec §4.5's "sampling errors
// yield depth_edge = 0" rule — callers that need to distinguish a load
// failure from a dry cell should call Load directly first.
func (s *Service) DepthAt(lon, lat float64, scn Scenario) (depth float64, inBounds bool) {
	r, err := s.Load(scn)
	if err != nil {
		return 0, true
	}
	row, col, ok := pixelFor(lon, lat, r.Bounds, r.width(), r.height())
	if !ok {
		return 0, false
	}
	d := r.Depths[row][col]
	if d == r.NoData {
		return 0, true
	}
	return float64(d), true
}

// Stats computes flooded-cell statistics for scn using a 1cm threshold,
// matching the source's `data > 0.01` rule for counting a pixel as flooded.
func (s *Service) Stats(scn Scenario) (Stats, error) {
	r, err := s.Load(scn)
	if err != nil {
		return Stats{}, err
	}

	var flooded []float64
	validCount := 0
	for _, row := range r.Depths {
		for _, d := range row {
			if d == r.NoData {
				continue
			}
			validCount++
			if float64(d) > 0.01 {
				flooded = append(flooded, float64(d))
			}
		}
	}

	out := Stats{
		TotalCells:   r.width() * r.height(),
		ValidCells:   validCount,
		FloodedCells: len(flooded),
	}
	if len(flooded) > 0 {
		out.MeanDepth = stat.Mean(flooded, nil)
		min, max := flooded[0], flooded[0]
		for _, v := range flooded {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		out.MinDepth = min
		out.MaxDepth = max
	}
	return out, nil
}

// Bounds returns the manual geographic bounds for a scenario's raster.
func (s *Service) Bounds(scn Scenario) (Bounds, error) {
	r, err := s.Load(scn)
	if err != nil {
		return Bounds{}, err
	}
	return r.Bounds, nil
}
