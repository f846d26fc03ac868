package sparse

import "github.com/edgevec/edgevec/internal/vecstore"

// Result is one hit from a sparse or fused search: Score is similarity
// (higher is better), the inverse sense of the distance-based Result type
// internal/hnsw uses for dense search.
type Result struct {
	Id    vecstore.VectorId
	Score float32
}

// Search runs brute_force_sparse_search(query, k): scores every live row in
// store by Dot(query, row) and returns the top k by descending score,
// ties broken by ascending VectorId. There is no sparse index predecessor
// to ground this on directly, so it mirrors the dense fallback path
// internal/index/flat/flat.go uses for small or filtered candidate sets.
func Search(query Vector, store *Store, k int) []Result {
	results := make([]Result, 0, k+1)
	store.IterLive(func(id vecstore.VectorId, v Vector) bool {
		score := Dot(query, v)
		results = append(results, Result{Id: id, Score: score})
		return true
	})
	sortResultsDeterministic(results)
	if k < len(results) {
		results = results[:k]
	}
	return results
}
