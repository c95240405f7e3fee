package routing

import (
	"container/heap"

	"github.com/marikina-frc/floodcore/internal/geo"
	"github.com/marikina-frc/floodcore/internal/graphenv"
	"github.com/marikina-frc/floodcore/internal/spatialindex"
)

// Router answers routing queries against a fixed Graph and its spatial
// index. Both are borrowed immutably for the lifetime of a query.
type Router struct {
	graph *graphenv.Graph
	index *spatialindex.Index
}

func NewRouter(g *graphenv.Graph, idx *spatialindex.Index) *Router {
	return &Router{graph: g, index: idx}
}

// snap resolves a lat/lon to its nearest graph node within SnapCapM.
func (r *Router) snap(p geo.LatLon) (graphenv.NodeID, error) {
	id, ok := r.index.NearestNode(p.Lat, p.Lon, SnapCapM)
	if !ok {
		return 0, ErrSnapFailed
	}
	return id, nil
}

// Route finds a single best path between start and end under prefs.
func (r *Router) Route(start, end geo.LatLon, prefs Preferences) (RouteResult, error) {
	from, err := r.snap(start)
	if err != nil {
		return RouteResult{RiskLevel: 1.0, Warnings: []string{"endpoint could not be matched to the road network"}}, err
	}
	to, err := r.snap(end)
	if err != nil {
		return RouteResult{RiskLevel: 1.0, Warnings: []string{"endpoint could not be matched to the road network"}}, err
	}
	return r.routeBetweenNodes(from, to, prefs, nil)
}

// BaselineRoute ignores risk entirely (cost = length only); used as the
// comparison route for the safest-mode admissibility invariant.
func (r *Router) BaselineRoute(start, end geo.LatLon) (RouteResult, error) {
	return r.Route(start, end, Preferences{RouteType: RouteBaseline})
}

// excludedEdge marks one (from,to,key) triple as forbidden, used by
// Yen's k-alternatives to force a deviation off the previous shortest path.
type excludedEdge struct {
	From graphenv.NodeID
	To   graphenv.NodeID
	Key  string
}

func (r *Router) routeBetweenNodes(from, to graphenv.NodeID, prefs Preferences, excluded map[excludedEdge]struct{}) (RouteResult, error) {
	if from == to {
		n, _ := r.graph.Node(from)
		return RouteResult{
			Path:      []graphenv.NodeID{from},
			Waypoints: []geo.LatLon{{Lat: n.Lat, Lon: n.Lon}},
		}, nil
	}

	alpha, beta := prefs.resolvedType().weights()

	goalNode, _ := r.graph.Node(to)
	heuristic := func(id graphenv.NodeID) float64 {
		n, ok := r.graph.Node(id)
		if !ok {
			return 0
		}
		return alpha * geo.HaversineM(geo.LatLon{Lat: n.Lat, Lon: n.Lon}, geo.LatLon{Lat: goalNode.Lat, Lon: goalNode.Lon})
	}

	gScore := map[graphenv.NodeID]float64{from: 0}
	cameFromNode := map[graphenv.NodeID]graphenv.NodeID{}
	cameFromEdge := map[graphenv.NodeID]graphenv.Edge{}
	closed := map[graphenv.NodeID]bool{}

	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, &heapItem{id: from, f: heuristic(from)})

	for open.Len() > 0 {
		item := heap.Pop(open).(*heapItem)
		current := item.id

		if closed[current] {
			continue
		}
		if current == to {
			return r.buildResult(from, to, cameFromNode, cameFromEdge, gScore[to]), nil
		}
		closed[current] = true

		for _, edge := range r.graph.OutEdges(current) {
			if excluded != nil {
				if _, skip := excluded[excludedEdge{edge.From, edge.To, edge.Key}]; skip {
					continue
				}
			}
			if closed[edge.To] {
				continue
			}
			cost := alpha*edge.LengthM + beta*edge.LengthM*riskPenalty(edge.RiskScore)
			tentative := gScore[current] + cost

			if existing, ok := gScore[edge.To]; !ok || tentative < existing {
				gScore[edge.To] = tentative
				cameFromNode[edge.To] = current
				cameFromEdge[edge.To] = edge
				heap.Push(open, &heapItem{id: edge.To, f: tentative + heuristic(edge.To)})
			}
		}
	}

	return RouteResult{RiskLevel: 1.0}, ErrNoPath
}

// buildResult walks cameFromNode back from `to` to `from` and computes
// the RouteResult's summary statistics.
func (r *Router) buildResult(from, to graphenv.NodeID, cameFromNode map[graphenv.NodeID]graphenv.NodeID, cameFromEdge map[graphenv.NodeID]graphenv.Edge, totalCost float64) RouteResult {
	var pathRev []graphenv.NodeID
	var edgesRev []graphenv.Edge

	cur := to
	for cur != from {
		pathRev = append(pathRev, cur)
		e := cameFromEdge[cur]
		edgesRev = append(edgesRev, e)
		cur = cameFromNode[cur]
	}
	pathRev = append(pathRev, from)

	path := make([]graphenv.NodeID, len(pathRev))
	for i := range pathRev {
		path[i] = pathRev[len(pathRev)-1-i]
	}
	edges := make([]graphenv.Edge, len(edgesRev))
	for i := range edgesRev {
		edges[i] = edgesRev[len(edgesRev)-1-i]
	}

	waypoints := make([]geo.LatLon, len(path))
	for i, id := range path {
		n, _ := r.graph.Node(id)
		waypoints[i] = geo.LatLon{Lat: n.Lat, Lon: n.Lon}
	}

	var distanceM, riskWeighted, maxRisk float64
	for _, e := range edges {
		distanceM += e.LengthM
		riskWeighted += e.LengthM * e.RiskScore
		if e.RiskScore > maxRisk {
			maxRisk = e.RiskScore
		}
	}
	riskLevel := 0.0
	if distanceM > 0 {
		riskLevel = riskWeighted / distanceM
	}

	return RouteResult{
		Path:           path,
		Waypoints:      waypoints,
		DistanceM:      distanceM,
		EstimatedTimeS: distanceM / DefaultAssumedSpeedMPS,
		RiskLevel:      clamp01(riskLevel),
		MaxRisk:        clamp01(maxRisk),
		NumSegments:    len(edges),
		Warnings:       warningsFor(maxRisk, riskLevel, distanceM),
		Cost:           totalCost,
	}
}

// routeBetweenNodesAvoidingNodes is routeBetweenNodes with both an edge
// exclusion set and a node exclusion set, used by Yen's spur search so
// a candidate cannot fold back through nodes already on its root path.
func (r *Router) routeBetweenNodesAvoidingNodes(from, to graphenv.NodeID, prefs Preferences, excludedEdges map[excludedEdge]struct{}, excludedNodes map[graphenv.NodeID]bool) (RouteResult, error) {
	alpha, beta := prefs.resolvedType().weights()

	goalNode, _ := r.graph.Node(to)
	heuristic := func(id graphenv.NodeID) float64 {
		n, ok := r.graph.Node(id)
		if !ok {
			return 0
		}
		return alpha * geo.HaversineM(geo.LatLon{Lat: n.Lat, Lon: n.Lon}, geo.LatLon{Lat: goalNode.Lat, Lon: goalNode.Lon})
	}

	gScore := map[graphenv.NodeID]float64{from: 0}
	cameFromNode := map[graphenv.NodeID]graphenv.NodeID{}
	cameFromEdge := map[graphenv.NodeID]graphenv.Edge{}
	closed := map[graphenv.NodeID]bool{}

	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, &heapItem{id: from, f: heuristic(from)})

	for open.Len() > 0 {
		item := heap.Pop(open).(*heapItem)
		current := item.id

		if closed[current] {
			continue
		}
		if current == to {
			return r.buildResult(from, to, cameFromNode, cameFromEdge, gScore[to]), nil
		}
		closed[current] = true

		for _, edge := range r.graph.OutEdges(current) {
			if _, skip := excludedEdges[excludedEdge{edge.From, edge.To, edge.Key}]; skip {
				continue
			}
			if excludedNodes[edge.To] || closed[edge.To] {
				continue
			}
			cost := alpha*edge.LengthM + beta*edge.LengthM*riskPenalty(edge.RiskScore)
			tentative := gScore[current] + cost

			if existing, ok := gScore[edge.To]; !ok || tentative < existing {
				gScore[edge.To] = tentative
				cameFromNode[edge.To] = current
				cameFromEdge[edge.To] = edge
				heap.Push(open, &heapItem{id: edge.To, f: tentative + heuristic(edge.To)})
			}
		}
	}

	return RouteResult{RiskLevel: 1.0}, ErrNoPath
}

// resultFromPath recomputes a RouteResult's summary statistics for an
// explicit node path (used once Yen has spliced a root path + spur path
// together), including Cost recomputed under prefs so it stays
// comparable against paths buildResult produced directly.
func (r *Router) resultFromPath(path []graphenv.NodeID, prefs Preferences) RouteResult {
	alpha, beta := prefs.resolvedType().weights()

	waypoints := make([]geo.LatLon, len(path))
	var distanceM, riskWeighted, maxRisk, cost float64
	for i, id := range path {
		n, _ := r.graph.Node(id)
		waypoints[i] = geo.LatLon{Lat: n.Lat, Lon: n.Lon}
		if i == 0 {
			continue
		}
		prev := path[i-1]
		edge, ok := bestEdge(r.graph, prev, id)
		if !ok {
			continue
		}
		distanceM += edge.LengthM
		riskWeighted += edge.LengthM * edge.RiskScore
		cost += alpha*edge.LengthM + beta*edge.LengthM*riskPenalty(edge.RiskScore)
		if edge.RiskScore > maxRisk {
			maxRisk = edge.RiskScore
		}
	}
	riskLevel := 0.0
	if distanceM > 0 {
		riskLevel = riskWeighted / distanceM
	}
	return RouteResult{
		Path:           path,
		Waypoints:      waypoints,
		DistanceM:      distanceM,
		EstimatedTimeS: distanceM / DefaultAssumedSpeedMPS,
		RiskLevel:      clamp01(riskLevel),
		MaxRisk:        clamp01(maxRisk),
		NumSegments:    len(path) - 1,
		Warnings:       warningsFor(maxRisk, riskLevel, distanceM),
		Cost:           cost,
	}
}

// bestEdge returns the lowest-length parallel edge between from and to,
// used when reconstructing a spliced path that doesn't carry its own
// edge selection.
func bestEdge(g *graphenv.Graph, from, to graphenv.NodeID) (graphenv.Edge, bool) {
	var best graphenv.Edge
	found := false
	for _, e := range g.OutEdges(from) {
		if e.To != to {
			continue
		}
		if !found || e.LengthM < best.LengthM {
			best = e
			found = true
		}
	}
	return best, found
}

// heapItem is a lazily-decreased A* frontier entry: f = g + h.
type heapItem struct {
	id graphenv.NodeID
	f  float64
}

type nodeHeap []*heapItem

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].id < h[j].id // stable node-id tie-break
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) {
	*h = append(*h, x.(*heapItem))
}
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
