package raster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marikina-frc/floodcore/internal/raster"
)

// fakeSource serves an in-memory grid for one scenario and ErrMissing for
// anything else, standing in for a real GeoTIFF-backed Source in tests.
type fakeSource struct {
	depths [][]float32
	scn    raster.Scenario
	calls  int
}

func (f *fakeSource) Load(s raster.Scenario) (*raster.Raster, error) {
	f.calls++
	if s != f.scn {
		return nil, raster.ErrMissing
	}
	return &raster.Raster{Depths: f.depths, NoData: -9999}, nil
}

func grid4x4() [][]float32 {
	return [][]float32{
		{0, 0, 0, 0},
		{0, 0.5, 0.5, 0},
		{0, 0.5, 0.5, 0},
		{0, 0, 0, 0},
	}
}

func TestDepthAt_InsideAndOutsideBounds(t *testing.T) {
	scn := raster.Scenario{ReturnPeriodID: "rr04", TimeStep: 18}
	src := &fakeSource{depths: grid4x4(), scn: scn}
	svc := raster.NewService(src, raster.Config{}, 1, 1)

	cfg := raster.Config{}.WithDefaults()

	depth, inBounds := svc.DepthAt(cfg.CenterLon, cfg.CenterLat, scn)
	assert.True(t, inBounds)
	assert.GreaterOrEqual(t, depth, 0.0)

	_, inBounds = svc.DepthAt(0, 0, scn)
	assert.False(t, inBounds)
}

func TestLoad_CachesAndDeduplicates(t *testing.T) {
	scn := raster.Scenario{ReturnPeriodID: "rr01", TimeStep: 1}
	src := &fakeSource{depths: grid4x4(), scn: scn}
	svc := raster.NewService(src, raster.Config{}, 1, 1)

	_, err := svc.Load(scn)
	require.NoError(t, err)
	_, err = svc.Load(scn)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls, "second Load should hit the cache, not the source")
}

func TestLoad_MissingScenario(t *testing.T) {
	src := &fakeSource{depths: grid4x4(), scn: raster.Scenario{ReturnPeriodID: "rr01", TimeStep: 1}}
	svc := raster.NewService(src, raster.Config{}, 1, 1)

	_, err := svc.Load(raster.Scenario{ReturnPeriodID: "rr02", TimeStep: 1})
	assert.ErrorIs(t, err, raster.ErrMissing)
}

func TestStats_CountsFloodedCellsOverThreshold(t *testing.T) {
	scn := raster.Scenario{ReturnPeriodID: "rr04", TimeStep: 1}
	src := &fakeSource{depths: grid4x4(), scn: scn}
	svc := raster.NewService(src, raster.Config{}, 1, 1)

	st, err := svc.Stats(scn)
	require.NoError(t, err)
	assert.Equal(t, 4, st.FloodedCells)
	assert.InDelta(t, 0.5, st.MeanDepth, 1e-9)
	assert.InDelta(t, 0.5, st.MaxDepth, 1e-9)
}
