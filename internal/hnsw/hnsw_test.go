package hnsw

import (
	"math"
	"testing"

	"github.com/edgevec/edgevec/internal/util"
	"github.com/edgevec/edgevec/internal/vecstore"
)

func vec(d int, set map[int]float32) []float32 {
	v := make([]float32, d)
	for i, val := range set {
		v[i] = val
	}
	return v
}

func newTestGraph(t *testing.T, dim int) (*Graph, *vecstore.Store) {
	t.Helper()
	store, err := vecstore.New(dim, 1)
	if err != nil {
		t.Fatalf("vecstore.New: %v", err)
	}
	g, err := New(store, DefaultConfig(util.L2))
	if err != nil {
		t.Fatalf("hnsw.New: %v", err)
	}
	return g, store
}

func insertVec(t *testing.T, g *Graph, store *vecstore.Store, v []float32) vecstore.VectorId {
	t.Helper()
	id, err := store.Push(v)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := g.Insert(id, v); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return id
}

func TestSmokeSearch(t *testing.T) {
	const d = 128
	g, store := newTestGraph(t, d)

	a := vec(d, map[int]float32{0: 1})
	b := vec(d, map[int]float32{1: 1})
	c := vec(d, map[int]float32{0: 1, 1: 1})

	idA := insertVec(t, g, store, a)
	_ = insertVec(t, g, store, b)
	idC := insertVec(t, g, store, c)

	results, truncated, err := g.Search(a, 2, g.cfg.EfSearch, nil, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if truncated {
		t.Fatalf("unexpected truncation")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Id != idA || results[0].Distance > 1e-6 {
		t.Fatalf("first result = %+v, want id(a) at distance 0", results[0])
	}
	if results[1].Id != idC || math.Abs(float64(results[1].Distance)-1) > 1e-4 {
		t.Fatalf("second result = %+v, want id(c) at distance 1", results[1])
	}
}

func TestSoftDeleteIsolation(t *testing.T) {
	const d = 128
	g, store := newTestGraph(t, d)

	a := vec(d, map[int]float32{0: 1})
	b := vec(d, map[int]float32{1: 1})
	c := vec(d, map[int]float32{0: 1, 1: 1})

	idA := insertVec(t, g, store, a)
	idB := insertVec(t, g, store, b)
	idC := insertVec(t, g, store, c)

	slotA, ok := g.SlotFor(idA)
	if !ok {
		t.Fatalf("missing slot for a")
	}
	if !g.SoftDelete(slotA) {
		t.Fatalf("SoftDelete should succeed the first time")
	}
	if g.SoftDelete(slotA) {
		t.Fatalf("SoftDelete should report false the second time")
	}

	results, _, err := g.Search(a, 2, g.cfg.EfSearch, nil, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 live results after delete, got %d", len(results))
	}
	if results[0].Id != idC {
		t.Fatalf("expected id(c) first, got %+v", results[0])
	}
	if results[1].Id != idB {
		t.Fatalf("expected id(b) second, got %+v", results[1])
	}
	for _, r := range results {
		if r.Id == idA {
			t.Fatalf("tombstoned vector a must never appear in results")
		}
	}
	if g.TombstoneCount() != 1 {
		t.Fatalf("TombstoneCount() = %d, want 1", g.TombstoneCount())
	}
}

func TestCompactPreservesSearchEquivalence(t *testing.T) {
	const d = 16
	g, store := newTestGraph(t, d)

	var ids []vecstore.VectorId
	for i := 0; i < 40; i++ {
		v := vec(d, map[int]float32{i % d: float32(i)})
		ids = append(ids, insertVec(t, g, store, v))
	}

	// Delete every third vector.
	for i, id := range ids {
		if i%3 == 0 {
			slot, _ := g.SlotFor(id)
			g.SoftDelete(slot)
			store.MarkDeleted(id)
		}
	}

	query := vec(d, map[int]float32{5: 5})
	before, _, err := g.Search(query, 5, 50, nil, 0)
	if err != nil {
		t.Fatalf("Search before compact: %v", err)
	}

	g.Compact()

	after, _, err := g.Search(query, 5, 50, nil, 0)
	if err != nil {
		t.Fatalf("Search after compact: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("result count changed across compaction: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Id != after[i].Id {
			t.Fatalf("result order changed across compaction at %d: %v vs %v", i, before[i], after[i])
		}
	}
	if g.TombstoneCount() != 0 {
		t.Fatalf("TombstoneCount() after compact = %d, want 0", g.TombstoneCount())
	}
}

func TestCompactionWarning(t *testing.T) {
	const d = 4
	g, store := newTestGraph(t, d)
	for i := 0; i < 10; i++ {
		id := insertVec(t, g, store, vec(d, map[int]float32{0: float32(i)}))
		if i < 3 {
			slot, _ := g.SlotFor(id)
			g.SoftDelete(slot)
		}
	}
	if !g.CompactionWarning(0.2) {
		t.Fatalf("expected compaction warning at 30%% tombstoned with 20%% threshold")
	}
}
