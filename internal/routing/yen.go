package routing

import (
	"github.com/marikina-frc/floodcore/internal/geo"
	"github.com/marikina-frc/floodcore/internal/graphenv"
)

// KAlternatives returns up to k distinct routes between start and end,
// found via Yen's algorithm over the A* shortest-path search above.
// Alternatives are required to differ by at least one edge from every
// previously accepted path (node-sequence difference, not full
// edge-disjointness) — the classic Yen deviation-edge exclusion.
func (r *Router) KAlternatives(start, end geo.LatLon, k int, prefs Preferences) ([]RouteResult, error) {
	if k < 1 {
		k = 1
	}

	from, err := r.snap(start)
	if err != nil {
		return nil, err
	}
	to, err := r.snap(end)
	if err != nil {
		return nil, err
	}

	first, err := r.routeBetweenNodes(from, to, prefs, nil)
	if err != nil {
		return nil, err
	}

	accepted := []RouteResult{first}
	candidates := []RouteResult{}

	for len(accepted) < k {
		base := accepted[len(accepted)-1]

		for spurIdx := 0; spurIdx < len(base.Path)-1; spurIdx++ {
			spurNode := base.Path[spurIdx]
			rootPath := base.Path[:spurIdx+1]

			excluded := map[excludedEdge]struct{}{}
			for _, acc := range accepted {
				if samePrefix(acc.Path, rootPath) && len(acc.Path) > spurIdx+1 {
					excluded[excludedEdge{acc.Path[spurIdx], acc.Path[spurIdx+1], ""}] = struct{}{}
					// exclude every parallel edge between the same pair too
					for _, e := range r.graph.OutEdges(acc.Path[spurIdx]) {
						if e.To == acc.Path[spurIdx+1] {
							excluded[excludedEdge{e.From, e.To, e.Key}] = struct{}{}
						}
					}
				}
			}

			// Forbid revisiting any node already on the root path (except the spur node).
			rootVisited := map[graphenv.NodeID]bool{}
			for _, id := range rootPath[:len(rootPath)-1] {
				rootVisited[id] = true
			}

			spurResult, err := r.routeBetweenNodesAvoidingNodes(spurNode, to, prefs, excluded, rootVisited)
			if err != nil {
				continue
			}

			fullPath := append(append([]graphenv.NodeID{}, rootPath[:len(rootPath)-1]...), spurResult.Path...)
			candidate := r.resultFromPath(fullPath, prefs)
			if !containsPath(accepted, candidate.Path) && !containsPath(candidates, candidate.Path) {
				candidates = append(candidates, candidate)
			}
		}

		if len(candidates) == 0 {
			break
		}

		best := pickCheapest(candidates)
		accepted = append(accepted, best)
		candidates = removePath(candidates, best.Path)
	}

	return accepted, nil
}

func samePrefix(path, prefix []graphenv.NodeID) bool {
	if len(path) < len(prefix) {
		return false
	}
	for i, id := range prefix {
		if path[i] != id {
			return false
		}
	}
	return true
}

func containsPath(results []RouteResult, path []graphenv.NodeID) bool {
	for _, r := range results {
		if pathsEqual(r.Path, path) {
			return true
		}
	}
	return false
}

func pathsEqual(a, b []graphenv.NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func removePath(results []RouteResult, path []graphenv.NodeID) []RouteResult {
	out := make([]RouteResult, 0, len(results))
	for _, r := range results {
		if !pathsEqual(r.Path, path) {
			out = append(out, r)
		}
	}
	return out
}

func pickCheapest(results []RouteResult) RouteResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.Cost < best.Cost {
			best = r
		}
	}
	return best
}
