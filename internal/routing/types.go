// Package routing implements risk-aware A* path-finding over a
// graphenv.Graph, plus k-shortest-path alternatives via Yen's algorithm
// and the fixed-rate evacuation routing entry points.
package routing

import (
	"errors"
	"fmt"

	"github.com/marikina-frc/floodcore/internal/apperr"
	"github.com/marikina-frc/floodcore/internal/geo"
	"github.com/marikina-frc/floodcore/internal/graphenv"
)

// ErrNoPath indicates A* exhausted its frontier without reaching the
// target; callers receive this rather than an empty RouteResult so they
// can distinguish "no path" from "path of zero length".
var ErrNoPath = errors.New("routing: no path found")

// ErrSnapFailed indicates an endpoint could not be matched to any graph
// node within the snap cap (default 500m). It wraps
// apperr.ErrInvalidCoordinates.
var ErrSnapFailed = fmt.Errorf("routing: endpoint could not be snapped to the graph: %w", apperr.ErrInvalidCoordinates)

// RouteType selects the cost function's (alpha, beta) weights. An
// explicit RouteType always wins over the Preferences booleans.
type RouteType string

const (
	RouteSafest   RouteType = "safest"
	RouteBalanced RouteType = "balanced"
	RouteFastest  RouteType = "fastest"
	RouteBaseline RouteType = "baseline"
)

// weights returns the mode-dependent (alpha, beta) cost blend.
func (t RouteType) weights() (alpha, beta float64) {
	switch t {
	case RouteSafest:
		return 0.2, 0.8
	case RouteFastest:
		return 0.8, 0.2
	case RouteBaseline:
		return 1.0, 0.0
	default: // balanced
		return 0.5, 0.5
	}
}

// Preferences configures a Route call. RouteType wins over the two
// booleans when set to a non-empty value.
type Preferences struct {
	AvoidFloods bool
	Fastest     bool
	RouteType   RouteType
}

// resolvedType applies the booleans-to-RouteType fallback described in
// spec §4.6: an explicit RouteType always wins.
func (p Preferences) resolvedType() RouteType {
	if p.RouteType != "" {
		return p.RouteType
	}
	if p.Fastest {
		return RouteFastest
	}
	if p.AvoidFloods {
		return RouteSafest
	}
	return RouteBalanced
}

// DefaultAssumedSpeedMPS is used to derive estimated_time_s when no
// per-edge travel-time data is present.
const DefaultAssumedSpeedMPS = 8.33 // ~30 km/h, urban arterial default

// SnapCapM is the maximum distance an endpoint may be snapped to its
// nearest graph node.
const SnapCapM = 500.0

// RiskPenaltyEpsilon keeps risk_penalty_fn finite as risk approaches 1.
const RiskPenaltyEpsilon = 0.05

// riskPenalty is the monotone non-decreasing penalty function that rises
// steeply as r -> 1 (9.5 at r = 0.95, capped at 1/RiskPenaltyEpsilon = 20
// at r = 1), so high-risk edges cost many times their length without a
// hard block.
func riskPenalty(r float64) float64 {
	return r / (1 - r + RiskPenaltyEpsilon)
}

// RouteResult is the semantic shape of a resolved route: an ordered
// waypoint list plus summary risk/distance/time statistics.
type RouteResult struct {
	Path           []graphenv.NodeID
	Waypoints      []geo.LatLon
	DistanceM      float64
	EstimatedTimeS float64
	RiskLevel      float64 // length-weighted average edge risk
	MaxRisk        float64
	NumSegments    int
	Warnings       []string

	// Cost is the mode-weighted A* objective (alpha*length +
	// beta*length*risk_penalty) this route minimized. Candidate
	// selection (Yen's k-alternatives, nearest-center routing) must
	// rank by Cost, not DistanceM, or a shorter-but-riskier candidate
	// beats a longer-but-safer one under safest/balanced modes.
	Cost float64
}

func warningsFor(maxRisk, riskLevel, distanceM float64) []string {
	var warnings []string
	switch {
	case maxRisk >= 0.9:
		warnings = append(warnings, "critical risk")
	case maxRisk >= 0.7:
		warnings = append(warnings, "warning")
	}
	if riskLevel >= 0.5 {
		warnings = append(warnings, "caution")
	}
	if distanceM > 10000 {
		warnings = append(warnings, "long route")
	}
	return warnings
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
