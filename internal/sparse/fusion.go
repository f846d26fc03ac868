package sparse

import (
	"github.com/edgevec/edgevec/internal/vecstore"
)

// rrfConstant is the smoothing constant C in RRF's 1/(C+rank) term. Spec.md
// §4.7 fixes this at the conventional value used throughout IR literature.
const rrfConstant = 60.0

// DenseHit is the minimal shape hybrid_search needs from a dense ranking:
// an id and its rank position (0-based, best first). Conversion from
// internal/hnsw.Result happens in the facade.
type DenseHit struct {
	Id   vecstore.VectorId
	Rank int
}

// FuseRRF implements hybrid_search's reciprocal-rank-fusion mode: for each
// id appearing in either the dense or sparse ranking, score =
// 1/(C+rank_dense) + 1/(C+rank_sparse), using 0 for a side an id is absent
// from. Results are returned sorted by descending fused score, ties broken
// by ascending VectorId.
func FuseRRF(dense []DenseHit, sparseHits []Result, k int) []Result {
	denseRank := make(map[vecstore.VectorId]int, len(dense))
	for _, d := range dense {
		denseRank[d.Id] = d.Rank
	}
	sparseRank := make(map[vecstore.VectorId]int, len(sparseHits))
	for i, s := range sparseHits {
		sparseRank[s.Id] = i
	}

	seen := make(map[vecstore.VectorId]bool)
	var fused []Result
	addScore := func(id vecstore.VectorId) {
		if seen[id] {
			return
		}
		seen[id] = true
		var score float32
		if r, ok := denseRank[id]; ok {
			score += float32(1.0 / (rrfConstant + float64(r)))
		}
		if r, ok := sparseRank[id]; ok {
			score += float32(1.0 / (rrfConstant + float64(r)))
		}
		fused = append(fused, Result{Id: id, Score: score})
	}
	for _, d := range dense {
		addScore(d.Id)
	}
	for _, s := range sparseHits {
		addScore(s.Id)
	}

	sortResultsDeterministic(fused)
	if k < len(fused) {
		fused = fused[:k]
	}
	return fused
}

// DenseScored is the shape hybrid_search's linear-fusion mode needs: an id
// and its raw dense similarity/distance-derived score (already converted so
// that higher means better by the caller).
type DenseScored struct {
	Id    vecstore.VectorId
	Score float32
}

// FuseLinear implements hybrid_search's weighted-linear mode: scores from
// each side are max-normalized independently (dividing by the largest score
// on that side, 1.0 if the side is empty or all-zero) then combined as
// alpha*dense_norm + (1-alpha)*sparse_norm, with 0 substituted for a side an
// id is absent from.
func FuseLinear(dense []DenseScored, sparseHits []Result, alpha float32, k int) []Result {
	denseMax := maxDenseScore(dense)
	sparseMax := maxSparseScore(sparseHits)

	denseNorm := make(map[vecstore.VectorId]float32, len(dense))
	for _, d := range dense {
		denseNorm[d.Id] = d.Score / denseMax
	}
	sparseNorm := make(map[vecstore.VectorId]float32, len(sparseHits))
	for _, s := range sparseHits {
		sparseNorm[s.Id] = s.Score / sparseMax
	}

	seen := make(map[vecstore.VectorId]bool)
	var fused []Result
	addScore := func(id vecstore.VectorId) {
		if seen[id] {
			return
		}
		seen[id] = true
		fused = append(fused, Result{Id: id, Score: alpha*denseNorm[id] + (1-alpha)*sparseNorm[id]})
	}
	for _, d := range dense {
		addScore(d.Id)
	}
	for _, s := range sparseHits {
		addScore(s.Id)
	}

	sortResultsDeterministic(fused)
	if k < len(fused) {
		fused = fused[:k]
	}
	return fused
}

func maxDenseScore(dense []DenseScored) float32 {
	max := float32(0)
	for _, d := range dense {
		if d.Score > max {
			max = d.Score
		}
	}
	if max == 0 {
		return 1
	}
	return max
}

func maxSparseScore(hits []Result) float32 {
	max := float32(0)
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}
	if max == 0 {
		return 1
	}
	return max
}
