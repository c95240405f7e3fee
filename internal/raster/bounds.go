package raster

// Manual coordinate configuration, aligned with the reference frontend.
// The source GeoTIFFs carry embedded CRS metadata that does not match
// their actual geographic footprint; every consumer in the reference
// deployment (frontend and backend alike) instead centers a fixed-size
// box on these coordinates. Changing these constants silently
// mislocates every depth query against any external renderer that still
// uses the old values — see spec §4.1.
const (
	ManualCenterLat    = 14.6456
	ManualCenterLon    = 121.10305
	ManualBaseCoverage = 0.06 // degrees, ~6.6km
)

// Config parameterizes the manual bounding box. The zero value resolves
// to the reference constants above via WithDefaults.
type Config struct {
	CenterLat    float64
	CenterLon    float64
	BaseCoverage float64
}

// WithDefaults fills any zero field with the reference constant.
func (c Config) WithDefaults() Config {
	if c.CenterLat == 0 {
		c.CenterLat = ManualCenterLat
	}
	if c.CenterLon == 0 {
		c.CenterLon = ManualCenterLon
	}
	if c.BaseCoverage == 0 {
		c.BaseCoverage = ManualBaseCoverage
	}
	return c
}

// manualBounds reproduces the aspect-ratio-aware coverage split from the
// source geotiff_service.py: wide rasters split BaseCoverage across width
// and height by aspect ratio; tall rasters widen the vertical coverage by
// 50% first. Matching this exactly (not just "a reasonable box") is what
// keeps floodcore's depth sampling aligned with external renderers.
func manualBounds(cfg Config, width, height int) Bounds {
	aspect := float64(width) / float64(height)

	var coverageWidth, coverageHeight float64
	if aspect > 1 {
		coverageWidth = cfg.BaseCoverage
		coverageHeight = cfg.BaseCoverage / aspect
	} else {
		coverageHeight = cfg.BaseCoverage * 1.5
		coverageWidth = coverageHeight * aspect
	}

	return Bounds{
		MinLon: cfg.CenterLon - coverageWidth/2,
		MaxLon: cfg.CenterLon + coverageWidth/2,
		MinLat: cfg.CenterLat - coverageHeight/2,
		MaxLat: cfg.CenterLat + coverageHeight/2,
	}
}

// pixelFor converts lon/lat to a (row, col) pixel using bounds, with row 0
// at the north edge and nearest-pixel rounding via truncation + clamping,
// matching the source's normalize-then-truncate-then-clamp sequence.
func pixelFor(lon, lat float64, b Bounds, width, height int) (row, col int, ok bool) {
	if lon < b.MinLon || lon > b.MaxLon || lat < b.MinLat || lat > b.MaxLat {
		return 0, 0, false
	}

	normX := (lon - b.MinLon) / (b.MaxLon - b.MinLon)
	normY := (lat - b.MinLat) / (b.MaxLat - b.MinLat)

	col = int(normX * float64(width))
	row = int((1.0 - normY) * float64(height))

	if col < 0 {
		col = 0
	} else if col > width-1 {
		col = width - 1
	}
	if row < 0 {
		row = 0
	} else if row > height-1 {
		row = height - 1
	}
	return row, col, true
}
