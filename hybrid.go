package edgevec

import (
	"github.com/edgevec/edgevec/internal/sparse"
	"github.com/edgevec/edgevec/internal/verrors"
)

// SparseResult mirrors sparse.Result at the façade boundary.
type SparseResult struct {
	Id    uint64
	Score float32
}

// InsertSparse attaches a sparse (CSR) row to an existing or new VectorId,
// supporting hybrid_search's sparse side: sparse rows live alongside, not
// instead of, a dense vector for the same id.
func (idx *Index) InsertSparse(id uint64, v sparse.Vector) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.sparse.Put(vecstoreID(id), v)
}

// SearchSparse implements search_sparse(query, k): brute-force sparse
// dot-product ranking over every live sparse row.
func (idx *Index) SearchSparse(query sparse.Vector, k int) ([]SparseResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if k <= 0 {
		return nil, verrors.InvalidVector("k must be positive")
	}
	hits := sparse.Search(query, idx.sparse, k)
	out := make([]SparseResult, len(hits))
	for i, h := range hits {
		out[i] = SparseResult{Id: uint64(h.Id), Score: h.Score}
	}
	idx.metrics.SearchQueries.Inc()
	return out, nil
}

// HybridSearch implements hybrid_search(...): runs both the dense and
// sparse rankings and fuses them per mode. HybridAdaptive consults the
// memory monitor to pick the dense side's representation: BQ under high
// pressure, SQ8 under moderate pressure, full F32 otherwise.
func (idx *Index) HybridSearch(denseQuery []float32, sparseQuery sparse.Vector, k int, mode HybridMode, alpha float32, denseOpts SearchOptions) ([]SparseResult, error) {
	idx.mu.RLock()
	preferBQ := mode == HybridAdaptive && idx.cfg.EnableBQ && idx.mon.PreferBinaryQuantization()
	preferSQ8 := mode == HybridAdaptive && !preferBQ && idx.cfg.EnableSQ8 && idx.mon.PreferScalarQuantization()
	idx.mu.RUnlock()

	var denseHits []Result
	var err error
	switch {
	case preferBQ:
		denseHits, err = idx.SearchBQ(denseQuery, k)
	case preferSQ8:
		denseHits, err = idx.SearchSQ8(denseQuery, k)
	default:
		denseHits, _, err = idx.Search(denseQuery, k, denseOpts)
	}
	if err != nil {
		return nil, err
	}

	sparseHits, err := idx.SearchSparse(sparseQuery, k)
	if err != nil {
		return nil, err
	}

	sparseInternal := make([]sparse.Result, len(sparseHits))
	for i, h := range sparseHits {
		sparseInternal[i] = sparse.Result{Id: vecstoreID(h.Id), Score: h.Score}
	}

	var fused []sparse.Result
	switch mode {
	case HybridLinear:
		denseScored := denseToScored(denseHits, idx.cfg.Metric)
		fused = sparse.FuseLinear(denseScored, sparseInternal, alpha, k)
	default: // HybridRRF and HybridAdaptive both fuse by rank
		denseRanked := make([]sparse.DenseHit, len(denseHits))
		for i, h := range denseHits {
			denseRanked[i] = sparse.DenseHit{Id: vecstoreID(h.Id), Rank: i}
		}
		fused = sparse.FuseRRF(denseRanked, sparseInternal, k)
	}

	out := make([]SparseResult, len(fused))
	for i, f := range fused {
		out[i] = SparseResult{Id: uint64(f.Id), Score: f.Score}
	}
	return out, nil
}

// denseToScored converts dense Results (distance, lower is better) into
// similarity scores (higher is better) for linear fusion by applying
// 1/(1+distance) to every hit, whatever the metric. The util kernels all
// return distances (squared L2, 1-cos, or the negated dot product), so a
// negative dot distance can yield a score outside (0,1].
func denseToScored(hits []Result, _ Metric) []sparse.DenseScored {
	out := make([]sparse.DenseScored, len(hits))
	for i, h := range hits {
		out[i] = sparse.DenseScored{Id: vecstoreID(h.Id), Score: 1.0 / (1.0 + h.Distance)}
	}
	return out
}
