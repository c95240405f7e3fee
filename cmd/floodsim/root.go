// cmd/floodsim/root.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/marikina-frc/floodcore/internal/config"
	"github.com/marikina-frc/floodcore/internal/evac"
	"github.com/marikina-frc/floodcore/internal/fusion"
	"github.com/marikina-frc/floodcore/internal/metrics"
	"github.com/marikina-frc/floodcore/internal/mission"
	"github.com/marikina-frc/floodcore/internal/orchestrator"
	"github.com/marikina-frc/floodcore/internal/raster"
	"github.com/marikina-frc/floodcore/internal/routing"
	"github.com/marikina-frc/floodcore/internal/scenario"
	"github.com/marikina-frc/floodcore/internal/spatialindex"
)

var (
	configPath string
	logLevel   string
	modeFlag   string
	ticks      int
)

var rootCmd = &cobra.Command{
	Use:   "floodsim",
	Short: "Flood-aware evacuation routing core for Marikina City",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the simulation and drive it for a fixed number of ticks",
	RunE:  runRun,
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Start the simulation and execute exactly one tick",
	RunE:  runTick,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a floodsim YAML config (optional; defaults apply without one)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "medium", "Simulation mode (light, medium, heavy)")

	runCmd.Flags().IntVar(&ticks, "ticks", 18, "Number of ticks to run before stopping")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tickCmd)
}

// buildCore wires every internal service into a running orchestrator and
// mission executor from cfg, the same assembly order whether the binary
// is asked for a single tick or a full run.
func buildCore(cfg *config.Config, log *logrus.Logger) (*orchestrator.Orchestrator, *mission.Executor, *metrics.Metrics, error) {
	gridCfg := scenario.GridConfig{
		Rows:      cfg.Scenario.GridRows,
		Cols:      cfg.Scenario.GridCols,
		SpacingM:  cfg.Scenario.GridSpacingM,
		CenterLat: cfg.Raster.CenterLat,
		CenterLon: cfg.Raster.CenterLon,
	}
	if gridCfg.CenterLat == 0 {
		gridCfg.CenterLat = raster.ManualCenterLat
	}
	if gridCfg.CenterLon == 0 {
		gridCfg.CenterLon = raster.ManualCenterLon
	}

	g := scenario.BuildGrid(gridCfg)
	idx := spatialindex.New(g, spatialindex.DefaultCellSizeDeg)

	rasterCfg := raster.Config{
		CenterLat:    gridCfg.CenterLat,
		CenterLon:    gridCfg.CenterLon,
		BaseCoverage: cfg.Raster.BaseCoverage,
	}
	rasterSvc := raster.NewService(scenario.SyntheticSource{}, rasterCfg, cfg.Raster.ReturnPeriods, cfg.Raster.TimeSteps)

	fusionCfg := fusion.Config{
		WFlood:        cfg.Fusion.WFlood,
		WScout:        cfg.Fusion.WScout,
		WHistorical:   cfg.Fusion.WHistorical,
		RadiusM:       cfg.Fusion.RadiusM,
		SigmoidK:      cfg.Fusion.SigmoidK,
		SigmoidX0:     cfg.Fusion.SigmoidX0,
		CacheCapacity: cfg.Fusion.CacheCapacity,
		Epsilon:       cfg.Fusion.Epsilon,
		HalfLife:      cfg.Fusion.HalfLife,
	}
	fusionE := fusion.NewEngine(fusionCfg, nil, log)

	router := routing.NewRouter(g, idx)

	centers := evac.NewDirectory()
	for _, c := range scenario.DefaultCenters(gridCfg) {
		centers.Register(c)
	}

	var m *metrics.Metrics
	var opts []orchestrator.Option
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts = append(opts, orchestrator.WithMetrics(m))
	}

	orch := orchestrator.New(g, idx, rasterSvc, fusionE, router, centers, log, opts...)
	exec := mission.NewExecutor(orch, g, idx, router, centers)

	return orch, exec, m, nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func serveMetrics(addr string, m *metrics.Metrics, log *logrus.Logger) {
	if addr == "" {
		addr = ":9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")
}

func runRun(_ *cobra.Command, _ []string) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mode, err := parseMode(modeFlag)
	if err != nil {
		return err
	}

	orch, _, m, err := buildCore(cfg, log)
	if err != nil {
		return err
	}
	if m != nil {
		serveMetrics(cfg.Metrics.Addr, m, log)
	}

	start, err := orch.Start(mode)
	if err != nil {
		return fmt.Errorf("floodsim: start: %w", err)
	}
	log.WithField("mode", start.Mode).WithField("return_period", start.ReturnPeriod).Info("simulation started")

	// Start already launched the background driver loop; this command
	// only needs to wait long enough for `ticks` of them to land before
	// stopping cleanly.
	time.Sleep(time.Duration(ticks) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stop, err := orch.Stop(ctx)
	if err != nil {
		return fmt.Errorf("floodsim: stop: %w", err)
	}
	log.WithField("tick_count", stop.TickCount).WithField("runtime_s", stop.TotalRuntimeSeconds).Info("simulation stopped")
	return nil
}

func runTick(_ *cobra.Command, _ []string) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mode, err := parseMode(modeFlag)
	if err != nil {
		return err
	}

	orch, exec, _, err := buildCore(cfg, log)
	if err != nil {
		return err
	}

	if _, err := orch.Start(mode); err != nil {
		return fmt.Errorf("floodsim: start: %w", err)
	}

	req := mission.NewRequest(mission.KindCascadeRiskUpdate)
	req.CascadeRiskUpdate = &mission.CascadeRiskUpdateRequest{}
	res := exec.ExecuteMission(context.Background(), req)
	if res.Err != nil {
		return fmt.Errorf("floodsim: tick: %w", res.Err)
	}

	report := res.CascadeRiskUpdate.Tick
	log.WithField("tick", report.Tick).
		WithField("time_step", report.TimeStep).
		WithField("resolved_routes", len(report.ResolvedRoutes)).
		WithField("phase_errors", report.PhaseErrors).
		Info("tick complete")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = orch.Stop(ctx)
	return err
}

func parseMode(s string) (orchestrator.Mode, error) {
	switch orchestrator.Mode(s) {
	case orchestrator.ModeLight, orchestrator.ModeMedium, orchestrator.ModeHeavy:
		return orchestrator.Mode(s), nil
	default:
		return "", fmt.Errorf("floodsim: invalid mode %q (want light, medium or heavy)", s)
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Warnf("invalid log level %q, defaulting to info", logLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
