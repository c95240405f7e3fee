// Package mission implements the four fixed-shape mission types an
// external orchestrator issues against the core, dispatched through a
// single ExecuteMission entry point whose result is a discriminated
// union (Kind field + one populated payload field), matching
// jordigilh-kubernaut's typed workflow/result shapes adapted here
// without any LLM dependency.
package mission

import (
	"context"

	"github.com/google/uuid"

	"github.com/marikina-frc/floodcore/internal/apperr"
	"github.com/marikina-frc/floodcore/internal/evac"
	"github.com/marikina-frc/floodcore/internal/geo"
	"github.com/marikina-frc/floodcore/internal/graphenv"
	"github.com/marikina-frc/floodcore/internal/orchestrator"
	"github.com/marikina-frc/floodcore/internal/routing"
	"github.com/marikina-frc/floodcore/internal/spatialindex"
)

// Kind discriminates which request/result payload is populated.
type Kind string

const (
	KindAssessRisk            Kind = "assess_risk"
	KindRouteCalculation      Kind = "route_calculation"
	KindCoordinatedEvacuation Kind = "coordinated_evacuation"
	KindCascadeRiskUpdate     Kind = "cascade_risk_update"
)

// Request is a typed mission envelope; exactly one of the payload
// fields should be set, matching Kind.
type Request struct {
	ID   uuid.UUID
	Kind Kind

	AssessRisk            *AssessRiskRequest
	RouteCalculation      *RouteCalculationRequest
	CoordinatedEvacuation *CoordinatedEvacuationRequest
	CascadeRiskUpdate     *CascadeRiskUpdateRequest
}

// NewRequest returns an empty Request of the given kind stamped with a
// fresh mission ID.
func NewRequest(kind Kind) Request {
	return Request{ID: uuid.New(), Kind: kind}
}

// AssessRiskRequest asks for the risk picture around a single point.
type AssessRiskRequest struct {
	Location geo.LatLon
	RadiusM  float64 // 0 resolves to a 500m default
}

// RouteCalculationRequest asks for a single risk-aware route.
type RouteCalculationRequest struct {
	Start, End geo.LatLon
	Prefs      routing.Preferences
}

// CoordinatedEvacuationRequest asks for a route to the nearest
// available center plus a severity-scaled arrival reservation.
type CoordinatedEvacuationRequest struct {
	UserLocation geo.LatLon
	Severity     float64 // in [0,1]; scales how many slots to reserve
}

// CascadeRiskUpdateRequest carries no fields: it asks the orchestrator
// to run one tick immediately rather than waiting for the driver loop.
type CascadeRiskUpdateRequest struct{}

// Result is the discriminated-union mission outcome.
type Result struct {
	ID   uuid.UUID
	Kind Kind
	Err  error

	AssessRisk            *AssessRiskResult
	RouteCalculation      *RouteCalculationResult
	CoordinatedEvacuation *CoordinatedEvacuationResult
	CascadeRiskUpdate     *CascadeRiskUpdateResult
}

// AssessRiskResult summarizes the risk of edges leaving nodes within
// RadiusM of the requested location.
type AssessRiskResult struct {
	NodesFound   int
	SampledEdges int
	MeanRisk     float64
	MaxRisk      float64
}

// RouteCalculationResult wraps a resolved route.
type RouteCalculationResult struct {
	Route routing.RouteResult
}

// CoordinatedEvacuationResult carries the route to the chosen center
// and whether a reservation was made there.
type CoordinatedEvacuationResult struct {
	Route       routing.RouteResult
	Center      string
	Reserved    int
	NoSafeRoute bool
}

// CascadeRiskUpdateResult reports the tick that was forced to run.
type CascadeRiskUpdateResult struct {
	Tick orchestrator.TickReport
}

// Executor binds the mission API to a running orchestrator and its
// directly-queryable services. It holds no state of its own.
type Executor struct {
	orch    *orchestrator.Orchestrator
	graph   *graphenv.Graph
	index   *spatialindex.Index
	router  *routing.Router
	centers *evac.Directory
}

// NewExecutor builds an Executor around an already-wired orchestrator
// and the graph/index/router/directory it shares with it.
func NewExecutor(orch *orchestrator.Orchestrator, g *graphenv.Graph, idx *spatialindex.Index, router *routing.Router, centers *evac.Directory) *Executor {
	return &Executor{orch: orch, graph: g, index: idx, router: router, centers: centers}
}

// ExecuteMission dispatches req to its handler and always returns a
// Result carrying the same ID and Kind, even on error.
func (x *Executor) ExecuteMission(ctx context.Context, req Request) Result {
	base := Result{ID: req.ID, Kind: req.Kind}

	switch req.Kind {
	case KindAssessRisk:
		if req.AssessRisk == nil {
			base.Err = apperr.ErrInvalidCoordinates
			return base
		}
		res, err := x.assessRisk(*req.AssessRisk)
		base.AssessRisk = &res
		base.Err = err
		return base

	case KindRouteCalculation:
		if req.RouteCalculation == nil {
			base.Err = apperr.ErrInvalidCoordinates
			return base
		}
		route, err := x.router.Route(req.RouteCalculation.Start, req.RouteCalculation.End, req.RouteCalculation.Prefs)
		base.RouteCalculation = &RouteCalculationResult{Route: route}
		base.Err = err
		return base

	case KindCoordinatedEvacuation:
		if req.CoordinatedEvacuation == nil {
			base.Err = apperr.ErrInvalidCoordinates
			return base
		}
		res, err := x.coordinatedEvacuation(*req.CoordinatedEvacuation)
		base.CoordinatedEvacuation = &res
		base.Err = err
		return base

	case KindCascadeRiskUpdate:
		report, err := x.orch.RunTick(nil)
		base.CascadeRiskUpdate = &CascadeRiskUpdateResult{Tick: report}
		base.Err = err
		return base

	default:
		base.Err = apperr.ErrInvalidCoordinates
		return base
	}
}

// assessRisk samples every edge leaving a node within RadiusM of the
// requested location and summarizes their risk_score distribution.
func (x *Executor) assessRisk(req AssessRiskRequest) (AssessRiskResult, error) {
	radius := req.RadiusM
	if radius <= 0 {
		radius = 500
	}

	nodes := x.index.NodesWithinRadius(req.Location.Lat, req.Location.Lon, radius)
	if len(nodes) == 0 {
		return AssessRiskResult{}, apperr.ErrInvalidCoordinates
	}

	var sum, max float64
	sampled := 0
	for _, id := range nodes {
		for _, e := range x.graph.OutEdges(id) {
			sum += e.RiskScore
			if e.RiskScore > max {
				max = e.RiskScore
			}
			sampled++
		}
	}

	mean := 0.0
	if sampled > 0 {
		mean = sum / float64(sampled)
	}
	return AssessRiskResult{
		NodesFound:   len(nodes),
		SampledEdges: sampled,
		MeanRisk:     mean,
		MaxRisk:      max,
	}, nil
}

func (x *Executor) coordinatedEvacuation(req CoordinatedEvacuationRequest) (CoordinatedEvacuationResult, error) {
	centers := x.centers.ListAvailable()

	route, chosen, err := x.routeAndNameNearestCenter(req.UserLocation, centers)
	if err != nil {
		return CoordinatedEvacuationResult{NoSafeRoute: true}, apperr.ErrNoSafeRoute
	}

	reserveCount := reservationSize(req.Severity)
	_ = x.centers.AddEvacuees(chosen, reserveCount)

	return CoordinatedEvacuationResult{
		Route:    route,
		Center:   chosen,
		Reserved: reserveCount,
	}, nil
}

// routeAndNameNearestCenter mirrors routing.Router.RouteToNearestCenter's
// ranking by Cost but routes to every center passed in (no nearest-N
// prefilter) and keeps the winning center's name alongside its route,
// which the router's own result shape does not carry.
func (x *Executor) routeAndNameNearestCenter(start geo.LatLon, centers []evac.Center) (routing.RouteResult, string, error) {
	var best routing.RouteResult
	var bestName string
	found := false

	for _, c := range centers {
		res, err := x.router.Route(start, geo.LatLon{Lat: c.Lat, Lon: c.Lon}, routing.Preferences{RouteType: routing.RouteSafest})
		if err != nil {
			continue
		}
		if !found || res.Cost < best.Cost {
			best, bestName, found = res, c.Name, true
		}
	}

	if !found {
		return routing.RouteResult{RiskLevel: 1.0}, "", routing.ErrNoPath
	}
	return best, bestName, nil
}

// reservationSize scales a base reservation of 1 by severity in [0,1],
// capped at 10 slots per mission.
func reservationSize(severity float64) int {
	if severity < 0 {
		severity = 0
	} else if severity > 1 {
		severity = 1
	}
	return 1 + int(severity*9)
}
