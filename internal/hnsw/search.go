package hnsw

import (
	"github.com/edgevec/edgevec/internal/util"
	"github.com/edgevec/edgevec/internal/vecstore"
)

// Result is one ranked hit from Search.
type Result struct {
	Id       vecstore.VectorId
	Distance float32
}

// greedyDescend performs a 1-best search from `from` at `layer`, moving to
// strictly closer neighbors until no improvement is found. Used both
// during insertion (descending to the insertion layer) and at query time
// (descending from the entry point down to layer 1).
func (g *Graph) greedyDescend(query []float32, from NodeId, layer int) NodeId {
	current := from
	currentDist := g.distanceToQuery(query, current)
	for {
		improved := false
		for _, nb := range g.neighborsAt(current, layer) {
			d := g.distanceToQuery(query, nb)
			if d < currentDist {
				currentDist = d
				current = nb
				improved = true
			}
		}
		if !improved {
			return current
		}
	}
}

// searchLayer runs a beam search of width ef at layer starting from entry,
// returning up to ef candidates sorted by ascending distance. Tombstoned
// nodes are traversed (their edges are followed) but never placed in the
// best-so-far set: deleted nodes stay searchable as waypoints without
// appearing in results.
//
// Grounded on internal/index/hnsw/search.go's searchLevel.
func (g *Graph) searchLayer(query []float32, entry NodeId, ef int, layer int) []util.Candidate {
	visited := make(map[NodeId]bool)
	visited[entry] = true

	entryDist := g.distanceToQuery(query, entry)

	candidates := util.NewMinHeap(ef) // frontier: closest unvisited
	candidates.PushCandidate(&util.Candidate{ID: entry, Distance: entryDist})

	best := util.NewMaxHeap(ef) // best-so-far, bounded to ef, worst on top
	if !g.isTombstoned(entry) {
		best.PushCandidate(&util.Candidate{ID: entry, Distance: entryDist})
	}

	for candidates.Len() > 0 {
		c := candidates.PopCandidate()
		if best.Len() >= ef {
			worst := best.Top()
			if worst != nil && c.Distance > worst.Distance {
				break
			}
		}

		for _, nbID := range g.neighborsAt(c.ID, layer) {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true
			d := g.distanceToQuery(query, nbID)

			worst := best.Top()
			if best.Len() < ef || worst == nil || d < worst.Distance {
				if !g.isTombstoned(nbID) {
					best.PushCandidate(&util.Candidate{ID: nbID, Distance: d})
					if best.Len() > ef {
						best.PopCandidate()
					}
				}
				candidates.PushCandidate(&util.Candidate{ID: nbID, Distance: d})
			}
		}
	}

	out := make([]util.Candidate, 0, best.Len())
	for best.Len() > 0 {
		c := best.PopCandidate()
		out = append(out, *c)
	}
	// best is a max-heap, so pops come out worst-first; reverse for
	// ascending-distance order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// FilterFunc reports whether a VectorId should be retained in results. A
// nil FilterFunc retains everything.
type FilterFunc func(id vecstore.VectorId) bool

// Search runs the standard HNSW search: greedy descent from the entry
// point down to layer 1, then a layer-0 beam search of width ef. When
// filter is non-nil, it widens the candidate list opportunistically
// (doubling ef, up to a beam width of maxCandidates) until k filtered
// live results are found or the frontier is exhausted, implementing a
// post-filter search. Returns results sorted ascending by distance and a
// flag reporting whether the search was truncated by maxCandidates before
// finding k matches.
func (g *Graph) Search(query []float32, k int, ef int, filter FilterFunc, maxCandidates int) ([]Result, bool, error) {
	if !g.hasEntry {
		return nil, false, nil
	}
	if ef < k {
		ef = k
	}

	current := g.entryPoint
	for layer := g.topLayer; layer >= 1; layer-- {
		current = g.greedyDescend(query, current, layer)
	}

	widenedEf := ef
	var cands []util.Candidate
	truncated := false
	for {
		cands = g.searchLayer(query, current, widenedEf, 0)
		matched := 0
		for _, c := range cands {
			if filter == nil || filter(g.store.IdAt(c.ID)) {
				matched++
			}
		}
		if matched >= k || filter == nil {
			break
		}
		if maxCandidates > 0 && widenedEf >= maxCandidates {
			truncated = true
			break
		}
		next := widenedEf * 2
		if maxCandidates > 0 && next > maxCandidates {
			next = maxCandidates
		}
		if next <= widenedEf {
			truncated = true
			break
		}
		widenedEf = next
	}

	results := make([]Result, 0, k)
	for _, c := range cands {
		id := g.store.IdAt(c.ID)
		if filter != nil && !filter(id) {
			continue
		}
		results = append(results, Result{Id: id, Distance: c.Distance})
		if len(results) == k {
			break
		}
	}
	return results, truncated, nil
}
