package fusion_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marikina-frc/floodcore/internal/fusion"
	"github.com/marikina-frc/floodcore/internal/graphenv"
	"github.com/marikina-frc/floodcore/internal/raster"
	"github.com/marikina-frc/floodcore/internal/spatialindex"
)

func buildLineGraph(t *testing.T) *graphenv.Graph {
	t.Helper()
	g := graphenv.New()
	g.AddNode(0, 121.1029, 14.6507)
	g.AddNode(1, 121.1039, 14.6507)
	require.NoError(t, g.AddEdge(0, 1, "a", 200, "Test St", "residential"))
	require.NoError(t, g.AddEdge(1, 0, "a", 200, "Test St", "residential"))
	return g
}

type constDepthSource struct {
	depth float32
	scn   raster.Scenario
}

func (s constDepthSource) Load(scn raster.Scenario) (*raster.Raster, error) {
	grid := make([][]float32, 10)
	for r := range grid {
		grid[r] = make([]float32, 10)
		for c := range grid[r] {
			grid[r][c] = s.depth
		}
	}
	return &raster.Raster{Depths: grid, NoData: -9999}, nil
}

func TestRunTick_DepthOnlyMatchesSigmoidWaypoints(t *testing.T) {
	g := buildLineGraph(t)
	idx := spatialindex.New(g, spatialindex.DefaultCellSizeDeg)
	scn := raster.Scenario{ReturnPeriodID: "rr01", TimeStep: 1}

	cases := []struct {
		depth    float32
		expected float64
	}{
		{0.0, 0.08},
		{0.3, 0.5},
		{0.6, 0.92},
		{1.0, 1.0},
	}

	for _, c := range cases {
		rasterSvc := raster.NewService(constDepthSource{depth: c.depth, scn: scn}, raster.Config{}, 1, 1)
		g2 := buildLineGraph(t)
		engine := fusion.NewEngine(fusion.Config{WFlood: 1, WScout: 0, WHistorical: 0}, nil, nil)

		engine.RunTick(g2, rasterSvc, idx, scn, nil)

		e, ok := g2.Edge(0, 1, "a")
		require.True(t, ok)
		assert.InDelta(t, c.expected, e.RiskScore, 0.02, "depth=%v", c.depth)
	}
}

func TestIngestScoutReports_DropsInvalidAndDuplicates(t *testing.T) {
	engine := fusion.NewEngine(fusion.Config{}, nil, nil)
	now := time.Now()

	reports := []fusion.ScoutReport{
		{LocationLabel: "Area A", Severity: 0.5, Timestamp: now},
		{LocationLabel: "Area A", Severity: 0.5, Timestamp: now}, // exact duplicate
		{LocationLabel: "", Severity: 0.5, Timestamp: now},       // missing label
		{LocationLabel: "Area B", Severity: 1.5, Timestamp: now}, // out of range
	}

	accepted, dropped := engine.IngestScoutReports(reports)
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 3, dropped)
}

func TestRunTick_ScoutPropagationRaisesNearbyRisk(t *testing.T) {
	g := buildLineGraph(t)
	idx := spatialindex.New(g, spatialindex.DefaultCellSizeDeg)
	scn := raster.Scenario{ReturnPeriodID: "rr01", TimeStep: 1}
	rasterSvc := raster.NewService(constDepthSource{depth: 0, scn: scn}, raster.Config{}, 1, 1)

	engine := fusion.NewEngine(fusion.Config{WFlood: 0, WScout: 1, WHistorical: 0, RadiusM: 800}, nil, nil)
	accepted, _ := engine.IngestScoutReports([]fusion.ScoutReport{
		{
			LocationLabel: "Near Node 0",
			Severity:      0.8,
			Timestamp:     time.Now(),
			HasCoords:     true,
			Lat:           14.6507,
			Lon:           121.1029,
			HasConfidence: true,
			Confidence:    0.9,
		},
	})
	require.Equal(t, 1, accepted)

	engine.RunTick(g, rasterSvc, idx, scn, nil)

	e, ok := g.Edge(0, 1, "a")
	require.True(t, ok)
	assert.Greater(t, e.RiskScore, 0.0)
	assert.LessOrEqual(t, e.RiskScore, 0.8*0.9+0.01)
}

func TestRunTick_NoTerrainRedistributesHistoricalWeight(t *testing.T) {
	g := buildLineGraph(t)
	idx := spatialindex.New(g, spatialindex.DefaultCellSizeDeg)
	scn := raster.Scenario{ReturnPeriodID: "rr01", TimeStep: 1}
	rasterSvc := raster.NewService(constDepthSource{depth: 0.3, scn: scn}, raster.Config{}, 1, 1)

	engine := fusion.NewEngine(fusion.Config{WFlood: 0.5, WScout: 0.3, WHistorical: 0.2}, nil, nil)
	engine.RunTick(g, rasterSvc, idx, scn, nil)

	e, ok := g.Edge(0, 1, "a")
	require.True(t, ok)
	// With w_historical redistributed proportionally, w_flood becomes
	// 0.5/0.8 = 0.625, so risk = 0.625*sigmoid(0.3) = 0.3125: scaled up
	// from the undistributed 0.5*0.5=0.25, not held down by a wasted
	// historical slot.
	assert.InDelta(t, 0.625*0.5, e.RiskScore, 0.02)
	assert.Greater(t, e.RiskScore, 0.25)
}

func TestRunTick_StationMultiplierAmplifiesFloodRisk(t *testing.T) {
	g := buildLineGraph(t)
	idx := spatialindex.New(g, spatialindex.DefaultCellSizeDeg)
	scn := raster.Scenario{ReturnPeriodID: "rr01", TimeStep: 1}
	rasterSvc := raster.NewService(constDepthSource{depth: 0.3, scn: scn}, raster.Config{}, 1, 1)

	baseline := fusion.NewEngine(fusion.Config{WFlood: 1, WScout: 0, WHistorical: 0}, nil, nil)
	g1 := buildLineGraph(t)
	baseline.RunTick(g1, rasterSvc, idx, scn, nil)
	e1, _ := g1.Edge(0, 1, "a")

	amplified := fusion.NewEngine(fusion.Config{WFlood: 1, WScout: 0, WHistorical: 0}, nil, nil)
	g2 := buildLineGraph(t)
	obs := []fusion.FloodObservation{{
		Kind:      fusion.KindRiverLevel,
		Timestamp: time.Now(),
		River:     fusion.RiverLevel{StationName: "Station A", WaterLevelM: 5, AlertM: 2, AlarmM: 3, CriticalM: 4},
	}}
	amplified.RunTick(g2, rasterSvc, idx, scn, obs)
	e2, _ := g2.Edge(0, 1, "a")

	assert.GreaterOrEqual(t, e2.RiskScore, e1.RiskScore)
}
