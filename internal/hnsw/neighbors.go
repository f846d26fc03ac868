package hnsw

import (
	"sort"

	"github.com/edgevec/edgevec/internal/util"
)

// selectNeighbors implements heuristic neighbor selection: candidates are
// accepted in increasing distance order unless a closer already-accepted
// neighbor dominates them (is strictly closer to the candidate than the
// candidate is to the query). Ties break by smaller NodeId for
// determinism.
//
// Grounded on internal/index/hnsw/neighbors.go's NeighborSelector /
// SelectNeighborsOptimized / selectWithSimpleHeuristic.
func (g *Graph) selectNeighbors(candidates []util.Candidate, m int) []uint32 {
	sorted := make([]util.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Distance != sorted[j].Distance {
			return sorted[i].Distance < sorted[j].Distance
		}
		return sorted[i].ID < sorted[j].ID
	})

	selected := make([]uint32, 0, m)
	for _, cand := range sorted {
		if len(selected) >= m {
			break
		}
		dominated := false
		for _, acceptedID := range selected {
			dAcceptedToCand := g.dist(g.vectorAt(acceptedID), g.vectorAt(cand.ID))
			if dAcceptedToCand < cand.Distance {
				dominated = true
				break
			}
		}
		if !dominated {
			selected = append(selected, cand.ID)
		}
	}

	// If the diversity heuristic left room unused (few unique directions),
	// fill the remainder by pure distance order, skipping anything already
	// selected — guarantees the degree bound is actually reached when
	// enough candidates exist.
	if len(selected) < m {
		have := make(map[uint32]bool, len(selected))
		for _, id := range selected {
			have[id] = true
		}
		for _, cand := range sorted {
			if len(selected) >= m {
				break
			}
			if !have[cand.ID] {
				selected = append(selected, cand.ID)
				have[cand.ID] = true
			}
		}
	}
	return selected
}

// connectBidirectional adds `to` as a neighbor of `from` (and vice versa)
// at layer, pruning each side back down to maxM(layer) using the heuristic
// selector whenever an addition would exceed the bound.
func (g *Graph) connectBidirectional(from, to uint32, layer int) {
	g.addAndPruneNeighbor(from, to, layer)
	g.addAndPruneNeighbor(to, from, layer)
}

func (g *Graph) addAndPruneNeighbor(n, add uint32, layer int) {
	existing := g.neighborsAt(n, layer)
	for _, e := range existing {
		if e == add {
			return
		}
	}
	merged := make([]uint32, len(existing), len(existing)+1)
	copy(merged, existing)
	merged = append(merged, add)

	maxM := g.maxM(layer)
	if len(merged) <= maxM {
		g.setNeighborsAt(n, layer, merged)
		return
	}

	cands := make([]util.Candidate, len(merged))
	for i, id := range merged {
		cands[i] = util.Candidate{ID: id, Distance: g.distanceToQuery(g.vectorAt(n), id)}
	}
	pruned := g.selectNeighbors(cands, maxM)
	g.setNeighborsAt(n, layer, pruned)
}
