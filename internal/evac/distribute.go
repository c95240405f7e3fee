package evac

import "sort"

// ArrivalPlan is one center's share of a DistributeArrivals call.
type ArrivalPlan struct {
	Name  string
	Count int
}

// DistributeArrivals splits n newly-arriving evacuees round-robin
// across every not-full center, weighted by remaining capacity: centers
// with more headroom receive more passes before a center runs out of
// room. Centers that fill up mid-distribution drop out of subsequent
// rounds. The per-tick arrival rate formula names no distribution rule;
// this one follows original_source's v2 simulation manager.
func (d *Directory) DistributeArrivals(n int) []ArrivalPlan {
	if n <= 0 {
		return nil
	}

	candidates := d.ListAvailable()
	if len(candidates) == 0 {
		return nil
	}

	remaining := make(map[string]int, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		remaining[c.Name] = c.RemainingCapacity()
		order = append(order, c.Name)
	}

	plan := make(map[string]int, len(candidates))
	left := n
	for left > 0 {
		progressed := false
		// Highest-remaining-capacity center goes first in each pass,
		// re-sorted so a filling center drops toward the back.
		sort.SliceStable(order, func(i, j int) bool { return remaining[order[i]] > remaining[order[j]] })
		for _, name := range order {
			if left == 0 {
				break
			}
			if remaining[name] <= 0 {
				continue
			}
			plan[name]++
			remaining[name]--
			left--
			progressed = true
		}
		if !progressed {
			break // every center is at capacity
		}
	}

	out := make([]ArrivalPlan, 0, len(plan))
	for _, name := range order {
		if count, ok := plan[name]; ok {
			out = append(out, ArrivalPlan{Name: name, Count: count})
		}
	}
	return out
}

// ApplyArrivals commits a distribution plan, adding each center's share
// of evacuees via AddEvacuees.
func (d *Directory) ApplyArrivals(plan []ArrivalPlan) {
	for _, p := range plan {
		_ = d.AddEvacuees(p.Name, p.Count)
	}
}
