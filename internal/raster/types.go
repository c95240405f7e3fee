// Package raster loads and serves flood-depth grids keyed by
// (return_period_id, time_step), using the manual centered bounding box
// that the original MAS-FRO frontend and backend both relied on instead
// of each GeoTIFF's (misaligned) embedded CRS metadata.
package raster

import (
	"fmt"

	"github.com/marikina-frc/floodcore/internal/apperr"
)

var (
	// ErrMissing is returned by Load when the backing file/source for a
	// scenario is absent. It wraps apperr.ErrRasterMissing.
	ErrMissing = fmt.Errorf("raster: scenario data missing: %w", apperr.ErrRasterMissing)

	// ErrCorrupt is returned by Load when a source decodes but is malformed
	// (wrong shape, non-rectangular rows, ...). It wraps apperr.ErrRasterCorrupt.
	ErrCorrupt = fmt.Errorf("raster: scenario data corrupt: %w", apperr.ErrRasterCorrupt)
)

// ReturnPeriodID is one of a small closed set of return-period tags
// (rr01..rr04 in the reference deployment); the core does not hardcode
// the set, it only requires Source to resolve whatever is asked of it.
type ReturnPeriodID string

// Scenario identifies one raster: a return period and an hourly time step.
type Scenario struct {
	ReturnPeriodID ReturnPeriodID
	TimeStep       int
}

// Bounds is the manual geographic bounding box a raster is mapped into,
// independent of (and overriding) any CRS metadata embedded in the file.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// Raster is an immutable, loaded depth grid in meters, row-major with
// row 0 at the north edge (matching the source imagery's top-down
// convention).
type Raster struct {
	Depths [][]float32
	Bounds Bounds
	NoData float32
}

func (r *Raster) height() int { return len(r.Depths) }
func (r *Raster) width() int {
	if len(r.Depths) == 0 {
		return 0
	}
	return len(r.Depths[0])
}

// Stats summarizes flooded-cell statistics for a raster, using a 1cm
// threshold to count a cell as "flooded" (matching the source's
// `data > 0.01` rule).
type Stats struct {
	TotalCells   int
	ValidCells   int
	FloodedCells int
	MinDepth     float64
	MaxDepth     float64
	MeanDepth    float64
}

// Source loads raw depth grids for a scenario. Implementations are
// expected to be slow (file/network I/O) and are wrapped by Service's
// cache; Source itself does not need to be safe for concurrent identical
// calls (Service deduplicates those via singleflight).
type Source interface {
	Load(s Scenario) (*Raster, error)
}
