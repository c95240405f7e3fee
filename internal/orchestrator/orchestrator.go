package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marikina-frc/floodcore/internal/apperr"
	"github.com/marikina-frc/floodcore/internal/evac"
	"github.com/marikina-frc/floodcore/internal/fusion"
	"github.com/marikina-frc/floodcore/internal/geo"
	"github.com/marikina-frc/floodcore/internal/graphenv"
	"github.com/marikina-frc/floodcore/internal/metrics"
	"github.com/marikina-frc/floodcore/internal/raster"
	"github.com/marikina-frc/floodcore/internal/routing"
	"github.com/marikina-frc/floodcore/internal/spatialindex"
)

// modeMultiplier mirrors MODE_MULTIPLIER from simulation_manager.py:
// the tick arrival rate scales with how severe the running scenario is.
var modeMultiplier = map[Mode]float64{
	ModeLight:  1.0,
	ModeMedium: 2.0,
	ModeHeavy:  3.5,
}

// BaseArrivalRate is the per-tick arrival count before mode/time scaling.
const BaseArrivalRate = 2.0

// Orchestrator drives the fixed 5-phase tick pipeline (collection,
// fusion, routing, evacuation, advancement) over a shared graph, raster
// service and evacuation directory. A single mutex serializes RunTick
// and every bus mutation, matching the source's `with self._lock:` tick.
type Orchestrator struct {
	mu sync.Mutex

	graph   *graphenv.Graph
	index   *spatialindex.Index
	rasterS *raster.Service
	fusionE *fusion.Engine
	router  *routing.Router
	centers *evac.Directory
	log     *logrus.Logger
	metrics *metrics.Metrics

	state        State
	mode         Mode
	returnPeriod raster.ReturnPeriodID
	timeStep     int
	tickCount    int
	startedAt    time.Time
	runtimeAccum time.Duration

	floodBus []fusion.FloodObservation
	scoutBus []fusion.ScoutReport
	pending  []routeRequest

	pendingPhaseErrors []string

	loopCancel context.CancelFunc
	loopDone   sync.WaitGroup
}

// Option configures an Orchestrator at construction, matching the
// teacher's functional-option style (core.GraphOption).
type Option func(*Orchestrator)

// WithMetrics attaches a Prometheus-backed Metrics sink. Omitting this
// option leaves metrics nil, which every call site treats as a no-op.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New wires an Orchestrator around an already-loaded graph, raster
// service, fusion engine, router and evacuation directory.
func New(g *graphenv.Graph, idx *spatialindex.Index, rasterS *raster.Service, fusionE *fusion.Engine, router *routing.Router, centers *evac.Directory, log *logrus.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logrus.New()
	}
	o := &Orchestrator{
		graph:   g,
		index:   idx,
		rasterS: rasterS,
		fusionE: fusionE,
		router:  router,
		centers: centers,
		log:     log,
		state:   StateStopped,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start transitions Stopped/Paused -> Running, selecting mode's raster
// return period and, for a fresh start, resetting time_step/tick_count.
// Resuming from Paused preserves the clock accumulated so far.
func (o *Orchestrator) Start(mode Mode) (StartReport, error) {
	if !validMode(mode) {
		return StartReport{}, apperr.ErrInvalidMode
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	previous := o.state
	if previous == StateStopped {
		o.timeStep = 1
		o.tickCount = 0
		o.runtimeAccum = 0
	}
	o.mode = mode
	o.returnPeriod = modeToReturnPeriod[mode]
	o.state = StateRunning
	o.startedAt = time.Now()

	if o.loopCancel == nil {
		go o.RunLoop(context.Background())
	}

	return StartReport{
		State:         o.state,
		Mode:          o.mode,
		TimeStep:      o.timeStep,
		ReturnPeriod:  o.returnPeriod,
		StartedAt:     o.startedAt,
		PreviousState: previous,
	}, nil
}

// Stop transitions Running -> Paused, preserving clock, tick count and
// time_step. Cancels the background driver loop if one is running and
// waits (bounded by ctx) for it to exit.
func (o *Orchestrator) Stop(ctx context.Context) (StopReport, error) {
	o.mu.Lock()
	if o.state == StateRunning {
		o.runtimeAccum += time.Since(o.startedAt)
		o.state = StatePaused
	}
	cancel := o.loopCancel
	o.loopCancel = nil
	report := StopReport{
		State:               o.state,
		Mode:                o.mode,
		PausedAt:            time.Now(),
		TotalRuntimeSeconds: o.runtimeAccum.Seconds(),
		TickCount:           o.tickCount,
		TimeStep:            o.timeStep,
	}
	o.mu.Unlock()

	if cancel == nil {
		return report, nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		o.loopDone.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return report, nil
}

// Reset drives the orchestrator to Stopped from any state, zeroing the
// clock/tick count/time_step, resetting graph risk, clearing the
// evacuation directory and dropping any queued routes. Legal from any
// state per spec.
func (o *Orchestrator) Reset() ResetReport {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cancel := o.loopCancel; cancel != nil {
		cancel()
		o.loopCancel = nil
	}

	previousState := o.state
	previousMode := o.mode
	previousRuntime := o.runtimeAccum.Seconds()
	if o.state == StateRunning {
		previousRuntime += time.Since(o.startedAt).Seconds()
	}
	previousTicks := o.tickCount

	o.state = StateStopped
	o.mode = ""
	o.returnPeriod = ""
	o.timeStep = 0
	o.tickCount = 0
	o.runtimeAccum = 0
	o.floodBus = nil
	o.scoutBus = nil
	o.pending = nil

	o.graph.ResetRisk()
	o.centers.ResetAll()

	return ResetReport{
		State:            o.state,
		Mode:             previousMode,
		PreviousState:    previousState,
		PreviousMode:     previousMode,
		PreviousRuntimeS: previousRuntime,
		PreviousTicks:    previousTicks,
	}
}

// SubmitFloodObservation deposits an observation into the bus for the
// next tick's collection phase to drain.
func (o *Orchestrator) SubmitFloodObservation(obs fusion.FloodObservation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.floodBus = append(o.floodBus, obs)
}

// SubmitScoutReport deposits a scout report into the bus.
func (o *Orchestrator) SubmitScoutReport(r fusion.ScoutReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scoutBus = append(o.scoutBus, r)
}

// AddRouteRequest enqueues a route to be resolved during the next
// tick's routing phase, returning an ID the caller can match against
// TickReport.ResolvedRoutes.
func (o *Orchestrator) AddRouteRequest(start, end geo.LatLon, prefs routing.Preferences) RequestID {
	id := newRequestID()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, routeRequest{ID: id, Start: start, End: end, Prefs: prefs, AddedAt: time.Now()})
	return id
}

// Status returns a read-only snapshot of the orchestrator's state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	runtime := o.runtimeAccum
	if o.state == StateRunning {
		runtime += time.Since(o.startedAt)
	}
	return Status{
		State:               o.state,
		Mode:                o.mode,
		TotalRuntimeSeconds: runtime.Seconds(),
		TickCount:           o.tickCount,
		CurrentTimeStep:     o.timeStep,
		ReturnPeriod:        o.returnPeriod,
		PendingRoutes:       len(o.pending),
	}
}

// RunTick executes one pass of the fixed 5-phase pipeline. If
// overrideTimeStep is non-nil, fusion samples that time step instead of
// the orchestrator's own counter, and Phase 5 does not advance it
// (matching spec.md's test-override carve-out); an override outside
// [1, MaxTimeStep] is rejected with apperr.ErrInvalidTimeStep. Per-phase
// panics/errors are recovered and recorded in PhaseErrors; the tick
// always completes.
func (o *Orchestrator) RunTick(overrideTimeStep *int) (TickReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateRunning {
		return TickReport{}, apperr.ErrNotRunning
	}
	if overrideTimeStep != nil && (*overrideTimeStep < 1 || *overrideTimeStep > MaxTimeStep) {
		return TickReport{}, apperr.ErrInvalidTimeStep
	}

	activeTimeStep := o.timeStep
	if overrideTimeStep != nil {
		activeTimeStep = *overrideTimeStep
	}

	report := TickReport{
		Tick:     o.tickCount,
		TimeStep: activeTimeStep,
		Mode:     o.mode,
	}

	report.Collection = o.runPhase("collection", func() map[string]int {
		return o.collectionPhase()
	})
	report.Fusion = o.runPhase("fusion", func() map[string]int {
		return o.fusionPhase(activeTimeStep)
	})
	report.Routing = o.runPhase("routing", func() map[string]int {
		counts, resolved := o.routingPhase()
		report.ResolvedRoutes = resolved
		return counts
	})
	report.Evacuation = o.runPhase("evacuation", func() map[string]int {
		return o.evacuationPhase(activeTimeStep)
	})
	report.Advancement = o.runPhase("advancement", func() map[string]int {
		return o.advancementPhase(overrideTimeStep)
	})

	if len(o.pendingPhaseErrors) > 0 {
		report.PhaseErrors = o.pendingPhaseErrors
		o.pendingPhaseErrors = nil
	}

	return report, nil
}

// runPhase executes fn, timing it and recovering any panic so one
// failing phase never aborts the tick.
func (o *Orchestrator) runPhase(name string, fn func() map[string]int) PhaseReport {
	start := time.Now()
	counts := map[string]int{}

	func() {
		defer func() {
			if r := recover(); r != nil {
				o.pendingPhaseErrors = append(o.pendingPhaseErrors, fmt.Sprintf("%s: %v", name, r))
				o.metrics.IncPhaseError(name)
			}
		}()
		counts = fn()
	}()

	elapsed := time.Since(start)
	o.metrics.ObserveTickPhase(name, elapsed.Seconds())
	return PhaseReport{Duration: elapsed, Counts: counts}
}

// collectionPhase drains external producers' deposits and hands the
// batch sizes back as counters; the actual slices stay in place for
// fusionPhase to consume and clear.
func (o *Orchestrator) collectionPhase() map[string]int {
	return map[string]int{
		"flood_observations": len(o.floodBus),
		"scout_reports":      len(o.scoutBus),
	}
}

// fusionPhase hands the drained batches to the fusion engine for the
// active (return_period, time_step) scenario, then clears the bus.
func (o *Orchestrator) fusionPhase(timeStep int) map[string]int {
	scn := raster.Scenario{ReturnPeriodID: o.returnPeriod, TimeStep: timeStep}

	accepted, dropped := o.fusionE.IngestScoutReports(o.scoutBus)
	result := o.fusionE.RunTick(o.graph, o.rasterS, o.index, scn, o.floodBus)

	o.floodBus = nil
	o.scoutBus = nil

	o.metrics.SetScoutCacheSize(o.fusionE.CacheSize())
	o.metrics.SetMeanRisk(meanEdgeRisk(o.graph))

	return map[string]int{
		"edges_updated":   result.EdgesUpdated,
		"edges_sampled":   result.EdgesSampled,
		"scouts_ingested": accepted,
		"scouts_dropped":  dropped,
	}
}

// meanEdgeRisk computes the unweighted mean risk_score across every
// edge, for the risk distribution gauge.
func meanEdgeRisk(g *graphenv.Graph) float64 {
	edges := g.Edges()
	if len(edges) == 0 {
		return 0
	}
	var sum float64
	for _, e := range edges {
		sum += e.RiskScore
	}
	return sum / float64(len(edges))
}

// routingPhase drains pending route requests and resolves each against
// the freshly-fused graph.
func (o *Orchestrator) routingPhase() (map[string]int, []ResolvedRoute) {
	resolved := make([]ResolvedRoute, 0, len(o.pending))
	for _, req := range o.pending {
		res, err := o.router.Route(req.Start, req.End, req.Prefs)
		resolved = append(resolved, ResolvedRoute{ID: req.ID, Result: res, Err: err})
	}
	counts := map[string]int{"routes_resolved": len(resolved)}
	o.pending = nil
	return counts, resolved
}

// evacuationPhase computes this tick's arrival rate and distributes it
// across not-full centers.
func (o *Orchestrator) evacuationPhase(timeStep int) map[string]int {
	timeMultiplier := 1.0 + (float64(timeStep)/float64(MaxTimeStep))*1.5
	rate := BaseArrivalRate * modeMultiplier[o.mode] * timeMultiplier
	n := int(rate)

	plan := o.centers.DistributeArrivals(n)
	o.centers.ApplyArrivals(plan)

	distributed := 0
	for _, p := range plan {
		distributed += p.Count
	}
	return map[string]int{"arrivals_requested": n, "arrivals_distributed": distributed}
}

// advancementPhase increments the tick counter and advances time_step
// modulo MaxTimeStep (wraps 18 -> 1), unless the caller supplied an
// explicit override for this tick.
func (o *Orchestrator) advancementPhase(overrideTimeStep *int) map[string]int {
	o.tickCount++
	if overrideTimeStep == nil {
		o.timeStep = o.timeStep%MaxTimeStep + 1
	}
	return map[string]int{"tick_count": o.tickCount, "time_step": o.timeStep}
}

// RunLoop drives RunTick once per second until ctx is cancelled,
// grounded on the source driver's 1s cadence between ticks. Intended to
// be launched as Start's background loop; embedders that want
// synchronous control can call RunTick directly instead.
func (o *Orchestrator) RunLoop(ctx context.Context) {
	o.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	o.loopCancel = cancel
	o.loopDone.Add(1)
	o.mu.Unlock()

	defer o.loopDone.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			if _, err := o.RunTick(nil); err != nil {
				o.log.WithError(err).Warn("orchestrator: tick skipped")
			}
		}
	}
}
