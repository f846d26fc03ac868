package sparse

import (
	"testing"

	"github.com/edgevec/edgevec/internal/vecstore"
)

func vecOf(vocab uint32, idx []uint32, vals []float32) Vector {
	return Vector{Indices: idx, Values: vals, VocabSize: vocab}
}

func TestValidateRejectsUnsorted(t *testing.T) {
	v := vecOf(10, []uint32{3, 1}, []float32{1, 1})
	if err := v.Validate(); err == nil {
		t.Fatalf("expected error for unsorted indices")
	}
}

func TestValidateRejectsDuplicateIndex(t *testing.T) {
	v := vecOf(10, []uint32{1, 1}, []float32{1, 1})
	if err := v.Validate(); err == nil {
		t.Fatalf("expected error for duplicate index")
	}
}

func TestDotMergeIntersection(t *testing.T) {
	a := vecOf(10, []uint32{0, 2, 5}, []float32{1, 2, 3})
	b := vecOf(10, []uint32{1, 2, 5, 7}, []float32{9, 4, 2, 1})
	// overlap at index 2 (2*4=8) and index 5 (3*2=6) => 14
	if got := Dot(a, b); got != 14 {
		t.Fatalf("Dot = %v, want 14", got)
	}
}

func TestSearchRanksByDescendingScore(t *testing.T) {
	store := NewStore()
	must := func(err error) {
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	must(store.Put(1, vecOf(4, []uint32{0, 1}, []float32{1, 1})))
	must(store.Put(2, vecOf(4, []uint32{0, 1}, []float32{2, 2})))
	must(store.Put(3, vecOf(4, []uint32{2, 3}, []float32{5, 5})))
	store.MarkDeleted(3)

	query := vecOf(4, []uint32{0, 1}, []float32{1, 1})
	results := Search(query, store, 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 live results, got %d", len(results))
	}
	if results[0].Id != 2 || results[1].Id != 1 {
		t.Fatalf("expected id 2 ranked above id 1, got %+v", results)
	}
}

func TestFuseRRFCombinesBothSides(t *testing.T) {
	dense := []DenseHit{{Id: 1, Rank: 0}, {Id: 2, Rank: 1}}
	sparseHits := []Result{{Id: 2, Score: 9}, {Id: 3, Score: 1}}

	fused := FuseRRF(dense, sparseHits, 10)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused ids, got %d", len(fused))
	}
	// id 2 appears in both rankings (rank 1 dense, rank 0 sparse) so it
	// should score highest.
	if fused[0].Id != vecstore.VectorId(2) {
		t.Fatalf("expected id 2 to rank first, got %+v", fused)
	}
}

func TestFuseLinearWeightsSides(t *testing.T) {
	dense := []DenseScored{{Id: 1, Score: 10}, {Id: 2, Score: 5}}
	sparseHits := []Result{{Id: 2, Score: 20}, {Id: 3, Score: 2}}

	allDense := FuseLinear(dense, sparseHits, 1.0, 10)
	if allDense[0].Id != vecstore.VectorId(1) {
		t.Fatalf("alpha=1.0 should rank purely by dense score, got %+v", allDense)
	}

	allSparse := FuseLinear(dense, sparseHits, 0.0, 10)
	if allSparse[0].Id != vecstore.VectorId(2) {
		t.Fatalf("alpha=0.0 should rank purely by sparse score, got %+v", allSparse)
	}
}
