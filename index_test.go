package edgevec

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/edgevec/edgevec/internal/metadata"
	"github.com/edgevec/edgevec/internal/sparse"
)

func randomVector(n int, seed int64) []float32 {
	r := rand.New(rand.NewSource(seed))
	v := make([]float32, n)
	for i := range v {
		v[i] = r.Float32()*2 - 1
	}
	return v
}

func newTestIndex(t *testing.T, opts ...Option) *Index {
	t.Helper()
	base := append([]Option{WithDimensions(16), WithSeed(1)}, opts...)
	idx, err := New(base...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestInsertAndSearchSmoke(t *testing.T) {
	idx := newTestIndex(t)
	var ids []uint64
	for i := 0; i < 50; i++ {
		id, err := idx.Insert(randomVector(16, int64(i)), nil)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	query := randomVector(16, 0)
	hits, _, err := idx.Search(query, 5, SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 5 {
		t.Fatalf("want 5 hits, got %d", len(hits))
	}
	// The vector inserted with the same seed as the query should come back
	// as the closest (distance 0) hit.
	if hits[0].Id != ids[0] || hits[0].Distance != 0 {
		t.Fatalf("expected exact match first, got %+v", hits[0])
	}
}

func TestInsertBatchEnforcesDimensionCap(t *testing.T) {
	idx := newTestIndex(t, WithDimensions(2000))
	vectors := make([][]float32, 100_001)
	for i := range vectors {
		vectors[i] = []float32{1, 2}
	}
	_, err := idx.InsertBatch(vectors, nil)
	if err == nil {
		t.Fatal("expected capacity error for an oversized 2000-dim batch")
	}
}

func TestSoftDeleteIsolatesResults(t *testing.T) {
	idx := newTestIndex(t)
	v := randomVector(16, 42)
	id, err := idx.Insert(v, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	for i := 1; i < 20; i++ {
		if _, err := idx.Insert(randomVector(16, int64(i)), nil); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	ok, err := idx.SoftDelete(id)
	if err != nil || !ok {
		t.Fatalf("soft delete: ok=%v err=%v", ok, err)
	}

	hits, _, err := idx.Search(v, 20, SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, h := range hits {
		if h.Id == id {
			t.Fatalf("deleted id %d still present in results", id)
		}
	}
	if idx.LiveCount() != 19 {
		t.Fatalf("want live count 19, got %d", idx.LiveCount())
	}
}

func TestMetadataFilteredSearch(t *testing.T) {
	idx := newTestIndex(t)
	for i := 0; i < 30; i++ {
		category := "a"
		if i%2 == 0 {
			category = "b"
		}
		if _, err := idx.Insert(randomVector(16, int64(i)), map[string]metadata.Value{"category": category}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	hits, _, err := idx.Search(randomVector(16, 0), 30, SearchOptions{Filter: `category = "a"`})
	if err != nil {
		t.Fatalf("filtered search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one match for category = a")
	}
	for _, h := range hits {
		meta := idx.meta.Get(vecstoreID(h.Id))
		if meta["category"] != "a" {
			t.Fatalf("got non-matching hit %+v with meta %+v", h, meta)
		}
	}
}

func TestCompactionWarningAndCompact(t *testing.T) {
	idx := newTestIndex(t)
	var ids []uint64
	for i := 0; i < 20; i++ {
		id, err := idx.Insert(randomVector(16, int64(i)), nil)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	for _, id := range ids[:6] {
		if _, err := idx.SoftDelete(id); err != nil {
			t.Fatalf("soft delete: %v", err)
		}
	}
	if !idx.CompactionWarning() {
		t.Fatal("expected compaction warning past 20% tombstone ratio")
	}
	if err := idx.Compact(); err != nil {
		t.Fatalf("compact: %v", err)
	}
	if idx.LiveCount() != 14 {
		t.Fatalf("want live count 14 after compact, got %d", idx.LiveCount())
	}
	if idx.TombstoneCount() != 0 {
		t.Fatalf("want 0 tombstones after compact, got %d", idx.TombstoneCount())
	}
}

func TestBinaryQuantizedSearch(t *testing.T) {
	idx := newTestIndex(t, WithBQ(true))
	for i := 0; i < 40; i++ {
		if _, err := idx.Insert(randomVector(16, int64(i)), nil); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	hits, err := idx.SearchBQ(randomVector(16, 0), 5)
	if err != nil {
		t.Fatalf("search bq: %v", err)
	}
	if len(hits) != 5 {
		t.Fatalf("want 5 bq hits, got %d", len(hits))
	}

	rescored, err := idx.SearchBQRescored(randomVector(16, 0), 5, 20)
	if err != nil {
		t.Fatalf("search bq rescored: %v", err)
	}
	if len(rescored) != 5 {
		t.Fatalf("want 5 rescored hits, got %d", len(rescored))
	}
}

func TestHammingOnlyCollectionRequiresBQ(t *testing.T) {
	_, err := New(WithDimensions(16), WithMetric(MetricHamming))
	if err == nil {
		t.Fatal("expected error constructing a hamming-only index without enable_bq")
	}

	idx, err := New(WithDimensions(16), WithMetric(MetricHamming), WithBQ(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer idx.Close()
	if idx.useGraph {
		t.Fatal("hamming-only collections must not build a graph")
	}
	for i := 0; i < 10; i++ {
		if _, err := idx.Insert(randomVector(16, int64(i)), nil); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	hits, _, err := idx.Search(randomVector(16, 0), 3, SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("want 3 hits, got %d", len(hits))
	}
}

func TestHybridSearchFusesBothSides(t *testing.T) {
	idx := newTestIndex(t, WithDimensions(8))
	sv := sparse.Vector{Indices: []uint32{1, 3, 5}, Values: []float32{1, 1, 1}, VocabSize: 10}
	for i := 0; i < 10; i++ {
		id, err := idx.Insert(randomVector(8, int64(i)), nil)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if err := idx.InsertSparse(id, sv); err != nil {
			t.Fatalf("insert sparse %d: %v", i, err)
		}
	}

	results, err := idx.HybridSearch(randomVector(8, 0), sv, 5, HybridRRF, 0.5, SearchOptions{})
	if err != nil {
		t.Fatalf("hybrid search: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("want 5 fused hits, got %d", len(results))
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storagePath := filepath.Join(dir, "collection")

	idx := newTestIndex(t, WithStoragePath(storagePath), WithDimensions(8))
	var ids []uint64
	for i := 0; i < 25; i++ {
		id, err := idx.Insert(randomVector(8, int64(i)), map[string]metadata.Value{"i": float64(i)})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	if _, err := idx.SoftDelete(ids[0]); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := idx.Save(storagePath); err != nil {
		t.Fatalf("save: %v", err)
	}
	// An insert after Save should survive via WAL replay on Load.
	lastId, err := idx.Insert(randomVector(8, 999), nil)
	if err != nil {
		t.Fatalf("post-save insert: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	loaded, err := Load(storagePath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer loaded.Close()

	if loaded.LiveCount() != 25 {
		t.Fatalf("want live count 25 (25 inserted, 1 deleted, 1 replayed), got %d", loaded.LiveCount())
	}
	if _, ok := loaded.store.Slot(vecstoreID(ids[0])); !ok {
		t.Fatalf("deleted id %d should still exist as a tombstoned slot", ids[0])
	}
	if loaded.store.IsDeleted(vecstoreID(ids[0])) != true {
		t.Fatalf("id %d should remain tombstoned after load", ids[0])
	}
	if _, ok := loaded.store.Slot(vecstoreID(lastId)); !ok {
		t.Fatalf("post-save insert %d should have been replayed from the WAL", lastId)
	}
}

func TestEstimateFilterSelectivity(t *testing.T) {
	idx := newTestIndex(t)
	for i := 0; i < 10; i++ {
		category := "a"
		if i == 0 {
			category = "b"
		}
		if _, err := idx.Insert(randomVector(16, int64(i)), map[string]metadata.Value{"category": category}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	sel, err := idx.EstimateFilterSelectivity(`category = "b"`)
	if err != nil {
		t.Fatalf("estimate selectivity: %v", err)
	}
	if sel <= 0 || sel >= 1 {
		t.Fatalf("expected a selectivity strictly between 0 and 1, got %f", sel)
	}
}

// TestFilteredSearchAgreesAcrossSelectivity inserts enough vectors that a
// rare category routes to the pre-filter brute-force path (low estimated
// selectivity) and a common category routes to the post-filter graph
// widening path. It checks that the rare search returns every rare vector
// and that every hit of either search matches its own filter.
func TestFilteredSearchAgreesAcrossSelectivity(t *testing.T) {
	idx := newTestIndex(t)
	const n = 200
	var wantRare []uint64
	for i := 0; i < n; i++ {
		category := "common"
		if i%50 == 0 {
			category = "rare"
		}
		id, err := idx.Insert(randomVector(16, int64(i)), map[string]metadata.Value{"category": category})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if category == "rare" {
			wantRare = append(wantRare, id)
		}
	}

	// Rare: s*N is small relative to k*theta, so this should take the
	// pre-filter brute-force path.
	hits, truncated, err := idx.Search(randomVector(16, 0), n, SearchOptions{Filter: `category = "rare"`})
	if err != nil {
		t.Fatalf("rare filtered search: %v", err)
	}
	if truncated {
		t.Fatal("unexpected truncation with no candidate budget set")
	}
	if len(hits) != len(wantRare) {
		t.Fatalf("want %d rare hits, got %d", len(wantRare), len(hits))
	}
	for _, h := range hits {
		if meta := idx.meta.Get(vecstoreID(h.Id)); meta["category"] != "rare" {
			t.Fatalf("got non-matching hit %+v with meta %+v", h, meta)
		}
	}

	// Common: s*N is large, so this should take the post-filter graph
	// widening path; every returned hit must still match the filter.
	hits, _, err = idx.Search(randomVector(16, 0), 10, SearchOptions{Filter: `category = "common"`})
	if err != nil {
		t.Fatalf("common filtered search: %v", err)
	}
	for _, h := range hits {
		if meta := idx.meta.Get(vecstoreID(h.Id)); meta["category"] != "common" {
			t.Fatalf("got non-matching hit %+v with meta %+v", h, meta)
		}
	}
}

// TestCandidateBudgetTruncates checks that a CandidateBudget tight enough to
// cut off the pre-filter brute-force scan before it covers every match
// reports truncated=true.
func TestCandidateBudgetTruncates(t *testing.T) {
	idx := newTestIndex(t)
	for i := 0; i < 50; i++ {
		if _, err := idx.Insert(randomVector(16, int64(i)), map[string]metadata.Value{"category": "x"}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	_, truncated, err := idx.Search(randomVector(16, 0), 50, SearchOptions{Filter: `category = "x"`, CandidateBudget: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !truncated {
		t.Fatal("expected truncated=true with a candidate budget smaller than the match count")
	}
}

func TestSearchSQ8(t *testing.T) {
	idx := newTestIndex(t, WithSQ8(true))
	var ids []uint64
	for i := 0; i < 20; i++ {
		id, err := idx.Insert(randomVector(16, int64(i)), nil)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	hits, err := idx.SearchSQ8(randomVector(16, 0), 5)
	if err != nil {
		t.Fatalf("search sq8: %v", err)
	}
	if len(hits) != 5 {
		t.Fatalf("want 5 hits, got %d", len(hits))
	}
}
