package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marikina-frc/floodcore/internal/apperr"
	"github.com/marikina-frc/floodcore/internal/evac"
	"github.com/marikina-frc/floodcore/internal/fusion"
	"github.com/marikina-frc/floodcore/internal/geo"
	"github.com/marikina-frc/floodcore/internal/graphenv"
	"github.com/marikina-frc/floodcore/internal/orchestrator"
	"github.com/marikina-frc/floodcore/internal/raster"
	"github.com/marikina-frc/floodcore/internal/routing"
	"github.com/marikina-frc/floodcore/internal/spatialindex"
)

// flatDepthSource returns a constant depth for every scenario, letting
// tests drive sigmoid waypoints deterministically without a real raster.
type flatDepthSource struct{ depth float32 }

func (s flatDepthSource) Load(scn raster.Scenario) (*raster.Raster, error) {
	grid := make([][]float32, 4)
	for i := range grid {
		grid[i] = []float32{s.depth, s.depth, s.depth, s.depth}
	}
	return &raster.Raster{
		Depths: grid,
		Bounds: raster.Bounds{MinLon: 121.0, MaxLon: 121.2, MinLat: 14.60, MaxLat: 14.70},
		NoData: -9999,
	}, nil
}

func buildOrchestrator(t *testing.T, depth float32) (*orchestrator.Orchestrator, *graphenv.Graph) {
	t.Helper()
	g := graphenv.New()
	g.AddNode(1, 121.1000, 14.6500)
	g.AddNode(2, 121.1010, 14.6505)
	require.NoError(t, g.AddEdge(1, 2, "f", 150, "", "residential"))
	require.NoError(t, g.AddEdge(2, 1, "f", 150, "", "residential"))

	idx := spatialindex.New(g, spatialindex.DefaultCellSizeDeg)
	rasterSvc := raster.NewService(flatDepthSource{depth: depth}, raster.Config{}.WithDefaults(), 4, 18)
	fusionE := fusion.NewEngine(fusion.Config{}.WithDefaults(), nil, nil)
	router := routing.NewRouter(g, idx)
	centers := evac.NewDirectory()
	centers.Register(evac.Center{Name: "Gym A", Lat: 14.651, Lon: 121.101, Capacity: 1000})

	return orchestrator.New(g, idx, rasterSvc, fusionE, router, centers, nil), g
}

func TestRunTick_RequiresRunningState(t *testing.T) {
	o, _ := buildOrchestrator(t, 0)
	_, err := o.RunTick(nil)
	assert.ErrorIs(t, err, apperr.ErrNotRunning)
}

func TestStart_RejectsInvalidMode(t *testing.T) {
	o, _ := buildOrchestrator(t, 0)
	_, err := o.Start(orchestrator.Mode("catastrophic"))
	assert.ErrorIs(t, err, apperr.ErrInvalidMode)
}

func TestRunTick_PureRasterRiskMatchesSigmoid(t *testing.T) {
	// S1, collapsed to a single edge whose two endpoints both sample a
	// fixed depth; risk should land on w_flood * sigmoid(k=8, x0=0.3, depth).
	o, g := buildOrchestrator(t, 0.6)

	ts := 18
	_, err := o.Start(orchestrator.ModeHeavy)
	require.NoError(t, err)

	report, err := o.RunTick(&ts)
	require.NoError(t, err)
	assert.Empty(t, report.PhaseErrors)

	e, ok := g.Edge(1, 2, "f")
	require.True(t, ok)
	// sigmoid(8, 0.3, 0.6) ~= 0.917; with no terrain service configured,
	// w_historical (0.2) redistributes into w_flood (0.5 -> 0.625), so the
	// combined risk lands near 0.625 * 0.917 ~= 0.573.
	assert.InDelta(t, 0.573, e.RiskScore, 0.05)
}

func TestRunTick_RespectsExplicitTimeStepOverride(t *testing.T) {
	o, _ := buildOrchestrator(t, 0)
	_, err := o.Start(orchestrator.ModeMedium)
	require.NoError(t, err)

	ts := 7
	_, err = o.RunTick(&ts)
	require.NoError(t, err)

	status := o.Status()
	assert.Equal(t, 7, status.CurrentTimeStep, "explicit override must not be advanced by Phase 5")
	assert.Equal(t, 1, status.TickCount)
}

func TestRunTick_AdvancesTimeStepAndWraps(t *testing.T) {
	o, _ := buildOrchestrator(t, 0)
	_, err := o.Start(orchestrator.ModeLight)
	require.NoError(t, err)

	status := o.Status()
	require.Equal(t, 1, status.CurrentTimeStep)

	for i := 0; i < orchestrator.MaxTimeStep; i++ {
		_, err := o.RunTick(nil)
		require.NoError(t, err)
	}
	status = o.Status()
	assert.Equal(t, 1, status.CurrentTimeStep, "time_step must wrap 18 -> 1")
	assert.Equal(t, orchestrator.MaxTimeStep, status.TickCount)
}

func TestRunTick_EvacuationDistributesArrivals(t *testing.T) {
	o, _ := buildOrchestrator(t, 0)
	_, err := o.Start(orchestrator.ModeHeavy)
	require.NoError(t, err)

	report, err := o.RunTick(nil)
	require.NoError(t, err)
	assert.Greater(t, report.Evacuation.Counts["arrivals_distributed"], 0)
}

func TestRunTick_ResolvesQueuedRoutes(t *testing.T) {
	o, _ := buildOrchestrator(t, 0)
	_, err := o.Start(orchestrator.ModeLight)
	require.NoError(t, err)

	id := o.AddRouteRequest(
		geo.LatLon{Lat: 14.6500, Lon: 121.1000},
		geo.LatLon{Lat: 14.6505, Lon: 121.1010},
		routing.Preferences{RouteType: routing.RouteBalanced},
	)

	report, err := o.RunTick(nil)
	require.NoError(t, err)
	require.Len(t, report.ResolvedRoutes, 1)
	assert.Equal(t, id, report.ResolvedRoutes[0].ID)
	assert.NoError(t, report.ResolvedRoutes[0].Err)
}

func TestStop_PreservesTickCountAndTimeStep(t *testing.T) {
	o, _ := buildOrchestrator(t, 0)
	_, err := o.Start(orchestrator.ModeMedium)
	require.NoError(t, err)

	_, err = o.RunTick(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stopReport, err := o.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatePaused, stopReport.State)
	assert.Equal(t, 1, stopReport.TickCount)

	status := o.Status()
	assert.Equal(t, 1, status.TickCount)
	assert.Equal(t, 2, status.CurrentTimeStep)
}

func TestReset_ZerosClockAndRisk(t *testing.T) {
	o, g := buildOrchestrator(t, 0.6)
	_, err := o.Start(orchestrator.ModeHeavy)
	require.NoError(t, err)

	_, err = o.RunTick(nil)
	require.NoError(t, err)

	e, _ := g.Edge(1, 2, "f")
	require.Greater(t, e.RiskScore, 0.0)

	report := o.Reset()
	assert.Equal(t, orchestrator.StateStopped, report.State)

	status := o.Status()
	assert.Equal(t, orchestrator.StateStopped, status.State)
	assert.Equal(t, 0, status.TickCount)

	e, _ = g.Edge(1, 2, "f")
	assert.Equal(t, 0.0, e.RiskScore, "reset must zero edge risk")
}

func TestRunTick_AntiAccumulationAcrossIdenticalScoutReports(t *testing.T) {
	// S3: N identical scout reports must not produce N times the risk
	// of a single submission.
	single, g1 := buildOrchestrator(t, 0)
	_, err := single.Start(orchestrator.ModeLight)
	require.NoError(t, err)
	single.SubmitScoutReport(fusion.ScoutReport{
		LocationLabel: "Nangka", Severity: 0.8, Confidence: 0.9, HasConfidence: true,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		HasCoords: true, Lat: 14.6505, Lon: 121.1005,
	})
	_, err = single.RunTick(nil)
	require.NoError(t, err)
	eSingle, _ := g1.Edge(1, 2, "f")

	repeated, g2 := buildOrchestrator(t, 0)
	_, err = repeated.Start(orchestrator.ModeLight)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		repeated.SubmitScoutReport(fusion.ScoutReport{
			LocationLabel: "Nangka", Severity: 0.8, Confidence: 0.9, HasConfidence: true,
			Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			HasCoords: true, Lat: 14.6505, Lon: 121.1005,
		})
	}
	_, err = repeated.RunTick(nil)
	require.NoError(t, err)
	eRepeated, _ := g2.Edge(1, 2, "f")

	assert.InDelta(t, eSingle.RiskScore, eRepeated.RiskScore, 0.02)
}
