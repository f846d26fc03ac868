package edgevec

import (
	"sort"

	"github.com/edgevec/edgevec/internal/filter"
	"github.com/edgevec/edgevec/internal/hnsw"
	"github.com/edgevec/edgevec/internal/quant"
	"github.com/edgevec/edgevec/internal/vecstore"
	"github.com/edgevec/edgevec/internal/verrors"
)

// filterSelectivityTheta is the θ constant from the pre/post-filter plan
// choice: a filter is enumerated pre-filter (brute-force over matches) once
// its estimated match count s·N drops to k·θ or below, otherwise the graph
// runs its own post-filter widening search.
const filterSelectivityTheta = 16

// Search implements search(q, k[, opts]): dense nearest-neighbor search,
// optionally narrowed by a metadata filter expression (opts.Filter). When a
// filter is present, its estimated selectivity decides between brute-force
// pre-filtering (few matches expected) and post-filter graph widening (many
// matches expected).
func (idx *Index) Search(query []float32, k int, opts SearchOptions) ([]Result, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, false, verrors.Internal("index is closed")
	}
	if len(query) != idx.cfg.Dimensions {
		return nil, false, verrors.DimensionMismatch(idx.cfg.Dimensions, len(query))
	}
	if k <= 0 {
		return nil, false, verrors.InvalidVector("k must be positive")
	}

	ef := opts.Ef
	if ef <= 0 {
		ef = idx.cfg.EfSearch
	}
	maxCandidates := opts.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = ef * 8
	}
	if opts.CandidateBudget > 0 {
		if opts.CandidateBudget < maxCandidates {
			maxCandidates = opts.CandidateBudget
		}
		if opts.CandidateBudget < ef {
			ef = opts.CandidateBudget
		}
	}

	if !idx.useGraph {
		return idx.searchHammingBruteForce(query, k)
	}

	var filterExpr filter.Node
	if opts.Filter != "" {
		expr, err := parseFilterCached(opts.Filter)
		if err != nil {
			return nil, false, err
		}
		filterExpr = expr

		n := float64(idx.store.LiveCount())
		s := filter.EstimateSelectivity(expr, idx.hist.h)
		if s*n <= float64(k)*filterSelectivityTheta {
			results, truncated, err := idx.searchPreFilterBruteForce(query, k, expr, maxCandidates)
			if err != nil {
				idx.metrics.SearchErrors.Inc()
				return nil, false, err
			}
			idx.metrics.SearchQueries.Inc()
			return results, truncated, nil
		}
	}

	var filterFn hnsw.FilterFunc
	if filterExpr != nil {
		filterFn = func(id vecstore.VectorId) bool {
			return evaluateFilter(filterExpr, idx.meta.Get(id))
		}
	}

	hits, truncated, err := idx.graph.Search(query, k, ef, filterFn, maxCandidates)
	if err != nil {
		idx.metrics.SearchErrors.Inc()
		return nil, false, err
	}
	idx.metrics.SearchQueries.Inc()

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Id: uint64(h.Id), Distance: h.Distance}
	}
	return results, truncated, nil
}

// searchPreFilterBruteForce enumerates live vectors matching expr (C3) and
// ranks them by exact distance against the query (C1), skipping the graph
// entirely. budget caps the number of filter matches scored before the
// search reports truncated=true, mirroring the post-filter path's
// maxCandidates ceiling.
func (idx *Index) searchPreFilterBruteForce(query []float32, k int, expr filter.Node, budget int) ([]Result, bool, error) {
	distFn, err := utilFuncForMetric(idx.cfg.Metric)
	if err != nil {
		return nil, false, err
	}

	type scored struct {
		id   vecstore.VectorId
		dist float32
	}
	var matches []scored
	truncated := false
	idx.store.IterLive(func(id vecstore.VectorId, vector []float32) bool {
		if !evaluateFilter(expr, idx.meta.Get(id)) {
			return true
		}
		if budget > 0 && len(matches) >= budget {
			truncated = true
			return false
		}
		matches = append(matches, scored{id: id, dist: distFn(query, vector)})
		return true
	})

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].id < matches[j].id
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{Id: uint64(m.id), Distance: m.dist}
	}
	return results, truncated, nil
}

// SearchBQ implements search_bq(q, k): ranks every live candidate by
// Hamming distance over its BQ payload alone, no F32 rescoring.
func (idx *Index) SearchBQ(query []float32, k int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.cfg.EnableBQ {
		return nil, verrors.Internal("enable_bq was not set for this index")
	}
	results, _, err := idx.searchHammingBruteForce(query, k)
	return results, err
}

// SearchBQRescored implements search_bq_rescored(q, k, rf).
func (idx *Index) SearchBQRescored(query []float32, k, rf int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.cfg.EnableBQ {
		return nil, verrors.Internal("enable_bq was not set for this index")
	}
	queryBQ := idx.bqCodec.Encode(query)
	var candidates []uint32
	idx.store.IterLive(func(id vecstore.VectorId, _ []float32) bool {
		if slot, ok := idx.store.Slot(id); ok {
			candidates = append(candidates, slot)
		}
		return true
	})

	l2, err := utilFuncForMetric(idx.cfg.Metric)
	if err != nil {
		return nil, err
	}
	rescored := quant.SearchBQRescored(query, queryBQ, candidates, bqSource{idx}, k, rf, l2)

	out := make([]Result, len(rescored))
	for i, c := range rescored {
		out[i] = Result{Id: uint64(idx.store.IdAt(c.ID)), Distance: c.Distance}
	}
	return out, nil
}

// SearchSQ8 ranks every live candidate by the integer-reconstructed SQ8
// distance (internal/quant.DistanceSQ8ToQuery) against the query, with no
// F32 rescoring. Used by hybrid_search(mode=adaptive) as the mid-pressure
// tier between the cheaper BQ path and full F32 search.
func (idx *Index) SearchSQ8(query []float32, k int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.cfg.EnableSQ8 {
		return nil, verrors.Internal("enable_sq8 was not set for this index")
	}

	type scored struct {
		id   vecstore.VectorId
		dist float32
	}
	var all []scored
	idx.store.IterLive(func(id vecstore.VectorId, _ []float32) bool {
		slot, ok := idx.store.Slot(id)
		if !ok {
			return true
		}
		bytes, params, ok := idx.store.SQ8At(slot)
		if !ok {
			return true
		}
		all = append(all, scored{id: id, dist: quant.DistanceSQ8ToQuery(query, bytes, params)})
		return true
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].dist != all[j].dist {
			return all[i].dist < all[j].dist
		}
		return all[i].id < all[j].id
	})
	if k < len(all) {
		all = all[:k]
	}
	results := make([]Result, len(all))
	for i, s := range all {
		results[i] = Result{Id: uint64(s.id), Distance: s.dist}
	}
	idx.metrics.SearchQueries.Inc()
	return results, nil
}

// bqSource adapts Index to quant.BQCandidateSource.
type bqSource struct{ idx *Index }

func (b bqSource) BQBytes(slot uint32) ([]byte, bool) { return b.idx.store.BQAt(slot) }
func (b bqSource) F32(slot uint32) []float32           { return b.idx.store.VectorAt(slot) }

func (idx *Index) searchHammingBruteForce(query []float32, k int) ([]Result, bool, error) {
	queryBQ := idx.bqCodec.Encode(query)
	type scored struct {
		id   vecstore.VectorId
		dist uint32
	}
	var all []scored
	idx.store.IterLive(func(id vecstore.VectorId, _ []float32) bool {
		slot, ok := idx.store.Slot(id)
		if !ok {
			return true
		}
		bits, ok := idx.store.BQAt(slot)
		if !ok {
			return true
		}
		all = append(all, scored{id: id, dist: quant.Hamming(queryBQ, bits)})
		return true
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].dist != all[j].dist {
			return all[i].dist < all[j].dist
		}
		return all[i].id < all[j].id
	})
	if k < len(all) {
		all = all[:k]
	}
	results := make([]Result, len(all))
	for i, s := range all {
		results[i] = Result{Id: uint64(s.id), Distance: float32(s.dist)}
	}
	idx.metrics.SearchQueries.Inc()
	return results, false, nil
}
