package fusion

import (
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marikina-frc/floodcore/internal/geo"
	"github.com/marikina-frc/floodcore/internal/graphenv"
	"github.com/marikina-frc/floodcore/internal/raster"
	"github.com/marikina-frc/floodcore/internal/spatialindex"
)

// TerrainPrior is the subset of terrain.Service fusion depends on,
// narrowed to an interface so tests don't need a real DEM.
type TerrainPrior interface {
	RelativeElevation(lon, lat float64) (float64, bool)
}

// Config holds the tunables of the fusion algorithm. Zero-value fields
// resolve to the defaults below via WithDefaults.
type Config struct {
	WFlood      float64
	WScout      float64
	WHistorical float64

	RadiusM float64 // scout spatial propagation radius

	SigmoidK  float64
	SigmoidX0 float64

	CacheCapacity int
	Epsilon       float64 // minimum risk delta to trigger a write-back

	HalfLife time.Duration // scout intensity time-decay half-life, 0 disables decay
}

func (c Config) WithDefaults() Config {
	if c.WFlood == 0 && c.WScout == 0 && c.WHistorical == 0 {
		c.WFlood, c.WScout, c.WHistorical = 0.5, 0.3, 0.2
	}
	if c.RadiusM == 0 {
		c.RadiusM = 800
	}
	if c.SigmoidK == 0 {
		c.SigmoidK = 8
	}
	if c.SigmoidX0 == 0 {
		c.SigmoidX0 = 0.3
	}
	if c.CacheCapacity == 0 {
		c.CacheCapacity = 4000
	}
	if c.Epsilon == 0 {
		c.Epsilon = 1e-3
	}
	if c.HalfLife == 0 {
		c.HalfLife = 30 * time.Minute
	}
	return c
}

// Engine owns the scout cache and runs the per-tick fusion pipeline.
// It borrows the graph mutably only for the duration of RunTick's
// write-back step (Step G); no graph reference is retained between ticks.
type Engine struct {
	cfg     Config
	cache   *scoutCache
	log     *logrus.Logger
	terrain TerrainPrior // nil when no terrain service is configured
}

// NewEngine builds an Engine. terrain may be nil: the terrain prior term
// is then redistributed into WFlood/WScout per the resolved Open Question.
func NewEngine(cfg Config, terrain TerrainPrior, log *logrus.Logger) *Engine {
	cfg = cfg.WithDefaults()
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		cfg:     cfg,
		cache:   newScoutCache(cfg.CacheCapacity),
		log:     log,
		terrain: terrain,
	}
}

// CacheSize returns the number of scout reports currently held in the
// bounded ring buffer, for metrics/observability callers.
func (e *Engine) CacheSize() int {
	return e.cache.len()
}

// IngestScoutReports validates and pushes each report into the bounded
// deque, logging and dropping invalid ones and silently dropping
// duplicates (Step A).
func (e *Engine) IngestScoutReports(reports []ScoutReport) (accepted, dropped int) {
	for _, r := range reports {
		if err := r.Validate(); err != nil {
			e.log.WithField("location_label", r.LocationLabel).Warn("dropping invalid scout report")
			dropped++
			continue
		}
		if !e.cache.push(r) {
			dropped++
			continue
		}
		accepted++
	}
	return accepted, dropped
}

// Report summarizes one RunTick invocation for the orchestrator's
// per-phase tick detail.
type Report struct {
	EdgesUpdated   int
	EdgesSampled   int
	ScoutsIngested int
	ScoutsDropped  int
	StationFactor  float64
	// LabelIntensity holds Step B's output keyed by location_label.
	// Reports without coordinates can only enter risk_edge through this
	// fallback, applied in RunTick wherever an edge's Name matches a
	// label; it is also surfaced here as-is for callers that want to
	// report on crowdsourced severity by named area.
	LabelIntensity map[string]float64
}

// RunTick executes Steps B–G against g for the active raster scenario,
// returning write-back statistics. obs is the current FloodObservation
// batch (Step A for stations is a no-op besides the severity multiplier:
// stations never carry coordinates, so they cannot drive spatial decay).
func (e *Engine) RunTick(g *graphenv.Graph, rasterSvc *raster.Service, idx *spatialindex.Index, scn raster.Scenario, obs []FloodObservation) Report {
	stationFactor := e.stationMultiplier(obs)

	labelIntensity := e.labelIntensity(time.Now())

	wFlood, wScout, wHistorical := e.effectiveWeights()

	edges := g.Edges()
	report := Report{StationFactor: stationFactor, LabelIntensity: labelIntensity}

	scoutEdgeRisk := e.scoutEdgePropagation(g, idx)
	labelEdgeRisk := e.labelEdgeRisk(edges, labelIntensity)

	for _, edge := range edges {
		fromNode, _ := g.Node(edge.From)
		toNode, _ := g.Node(edge.To)

		depth := e.edgeDepth(rasterSvc, fromNode, toNode, scn)
		report.EdgesSampled++

		rFlood := sigmoidRisk(depth, e.cfg.SigmoidK, e.cfg.SigmoidX0) * stationFactor
		if rFlood > 1 {
			rFlood = 1
		}

		key := edgeKey{edge.From, edge.To, edge.Key}
		spatialRisk, hasSpatial := scoutEdgeRisk[key]
		labelRisk, hasLabel := labelEdgeRisk[key]
		var rScout float64
		switch {
		case hasSpatial && hasLabel:
			rScout = (spatialRisk + labelRisk) / 2
		case hasSpatial:
			rScout = spatialRisk
		case hasLabel:
			rScout = labelRisk
		}

		prior := 0.0
		if e.terrain != nil {
			prior = e.terrainPriorAt(fromNode, toNode)
		}

		risk := clamp01(wFlood*rFlood + wScout*rScout + wHistorical*prior)

		if math.Abs(risk-edge.RiskScore) > e.cfg.Epsilon {
			if err := g.UpdateEdgeRisk(edge.From, edge.To, edge.Key, risk); err == nil {
				report.EdgesUpdated++
			}
		}
	}

	return report
}

func (e *Engine) effectiveWeights() (wFlood, wScout, wHistorical float64) {
	if e.terrain != nil {
		return e.cfg.WFlood, e.cfg.WScout, e.cfg.WHistorical
	}
	// Step F: redistribute w_historical proportionally rather than
	// holding it at zero, which would silently shrink total risk.
	remaining := e.cfg.WFlood + e.cfg.WScout
	if remaining <= 0 {
		return e.cfg.WFlood, e.cfg.WScout, 0
	}
	scale := (e.cfg.WFlood + e.cfg.WScout + e.cfg.WHistorical) / remaining
	return e.cfg.WFlood * scale, e.cfg.WScout * scale, 0
}

func (e *Engine) stationMultiplier(obs []FloodObservation) float64 {
	mult := 1.0
	for _, o := range obs {
		if m := o.severityMultiplier(); m > mult {
			mult = m
		}
	}
	if mult > 1.5 {
		mult = 1.5
	}
	return mult
}

// sigmoidRisk is the calibrated depth->risk curve of Step D.
func sigmoidRisk(depthM, k, x0 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-k*(depthM-x0)))
}

// edgeDepth samples raster depth at both endpoints and averages the
// defined samples (Step C); if both are out of bounds, edge depth is 0.
func (e *Engine) edgeDepth(svc *raster.Service, from, to graphenv.Node, scn raster.Scenario) float64 {
	d1, ok1 := svc.DepthAt(from.Lon, from.Lat, scn)
	d2, ok2 := svc.DepthAt(to.Lon, to.Lat, scn)
	switch {
	case ok1 && ok2:
		return (d1 + d2) / 2
	case ok1:
		return d1
	case ok2:
		return d2
	default:
		return 0
	}
}

// terrainPriorAt maps -relative_elevation into [0,1] via a logistic
// squash centered at 0m, so depressions (negative relative elevation)
// score near 1 and ridges near 0.
func (e *Engine) terrainPriorAt(from, to graphenv.Node) float64 {
	rel1, ok1 := e.terrain.RelativeElevation(from.Lon, from.Lat)
	rel2, ok2 := e.terrain.RelativeElevation(to.Lon, to.Lat)
	var rel float64
	switch {
	case ok1 && ok2:
		rel = (rel1 + rel2) / 2
	case ok1:
		rel = rel1
	case ok2:
		rel = rel2
	default:
		return 0
	}
	return 1.0 / (1.0 + math.Exp(rel/5.0))
}

type edgeKey struct {
	From graphenv.NodeID
	To   graphenv.NodeID
	Key  string
}

// labelIntensity computes Step B's weighted-average severity per
// location_label from the cached deque, with optional exponential
// time-decay relative to now.
func (e *Engine) labelIntensity(now time.Time) map[string]float64 {
	type acc struct{ num, den float64 }
	sums := make(map[string]*acc)

	for _, r := range e.cache.snapshot() {
		decay := 1.0
		if e.cfg.HalfLife > 0 {
			age := now.Sub(r.Timestamp).Seconds()
			if age > 0 {
				decay = math.Exp(-math.Ln2 * age / e.cfg.HalfLife.Seconds())
			}
		}
		conf := r.confidenceOrDefault()
		a, ok := sums[r.LocationLabel]
		if !ok {
			a = &acc{}
			sums[r.LocationLabel] = a
		}
		a.num += r.Severity * conf * decay
		a.den += conf * decay
	}

	out := make(map[string]float64, len(sums))
	for label, a := range sums {
		if a.den > 0 {
			out[label] = a.num / a.den
		}
	}
	return out
}

// labelEdgeRisk is the label-keyed fallback for scout reports that carry
// no coordinates (Step B's output cannot drive spatial decay, so it
// lands on an edge only by a case-insensitive match against edge.Name).
// An edge whose Name is empty, or matches no cached label, gets none.
func (e *Engine) labelEdgeRisk(edges []graphenv.Edge, labelIntensity map[string]float64) map[edgeKey]float64 {
	if len(labelIntensity) == 0 {
		return nil
	}
	byLabel := make(map[string]float64, len(labelIntensity))
	for label, v := range labelIntensity {
		byLabel[normalizeLabel(label)] = v
	}

	out := make(map[edgeKey]float64)
	for _, edge := range edges {
		if edge.Name == "" {
			continue
		}
		if v, ok := byLabel[normalizeLabel(edge.Name)]; ok {
			out[edgeKey{edge.From, edge.To, edge.Key}] = v
		}
	}
	return out
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// scoutEdgePropagation implements Step E: for each scout report with
// coordinates, spread its severity*confidence over nearby nodes via a
// Gaussian spatial weight, then average (not sum) the contributions
// landing on each edge's incident nodes across both endpoints.
func (e *Engine) scoutEdgePropagation(g *graphenv.Graph, idx *spatialindex.Index) map[edgeKey]float64 {
	sigma := e.cfg.RadiusM / 3.0

	type acc struct{ num, den float64 }
	nodeAcc := make(map[graphenv.NodeID]*acc)

	for _, r := range e.cache.snapshot() {
		if !r.HasCoords {
			continue
		}
		conf := r.confidenceOrDefault()
		nodes := idx.NodesWithinRadius(r.Lat, r.Lon, e.cfg.RadiusM)
		for _, nodeID := range nodes {
			n, ok := g.Node(nodeID)
			if !ok {
				continue
			}
			d := geo.HaversineM(geo.LatLon{Lat: r.Lat, Lon: r.Lon}, geo.LatLon{Lat: n.Lat, Lon: n.Lon})
			weight := gaussianDecay(d, sigma)
			contribution := r.Severity * conf * weight

			a, ok := nodeAcc[nodeID]
			if !ok {
				a = &acc{}
				nodeAcc[nodeID] = a
			}
			a.num += contribution * weight
			a.den += weight
		}
	}

	nodeRisk := make(map[graphenv.NodeID]float64, len(nodeAcc))
	for id, a := range nodeAcc {
		if a.den > 0 {
			nodeRisk[id] = a.num / a.den
		}
	}

	out := make(map[edgeKey]float64)
	for _, edge := range g.Edges() {
		rFrom := nodeRisk[edge.From]
		rTo := nodeRisk[edge.To]
		if rFrom == 0 && rTo == 0 {
			continue
		}
		out[edgeKey{edge.From, edge.To, edge.Key}] = (rFrom + rTo) / 2
	}
	return out
}

func gaussianDecay(distM, sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	ratio := distM / sigma
	return math.Exp(-(ratio * ratio))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
