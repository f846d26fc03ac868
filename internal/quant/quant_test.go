package quant

import (
	"math"
	"testing"

	"github.com/edgevec/edgevec/internal/util"
)

func TestSQ8RoundTrip(t *testing.T) {
	v := []float32{-1, 0, 0.5, 1, 10}
	bytes, params, err := EncodeSQ8(v)
	if err != nil {
		t.Fatalf("EncodeSQ8: %v", err)
	}
	decoded := DecodeSQ8(bytes, params)
	for i := range v {
		if math.Abs(float64(v[i]-decoded[i])) > 0.1 {
			t.Fatalf("component %d: got %v, want ~%v", i, decoded[i], v[i])
		}
	}
}

func TestSQ8RejectsNonFinite(t *testing.T) {
	_, _, err := EncodeSQ8([]float32{1, float32(math.Inf(1))})
	if err == nil {
		t.Fatalf("expected error for non-finite input")
	}
}

func TestSQ8ConstantVector(t *testing.T) {
	v := []float32{3, 3, 3, 3}
	bytes, params, err := EncodeSQ8(v)
	if err != nil {
		t.Fatalf("EncodeSQ8: %v", err)
	}
	decoded := DecodeSQ8(bytes, params)
	for _, d := range decoded {
		if d != 3 {
			t.Fatalf("constant vector decode = %v, want 3", d)
		}
	}
}

func TestBQEncodeAndHamming(t *testing.T) {
	codec, err := NewBQCodec(16)
	if err != nil {
		t.Fatalf("NewBQCodec: %v", err)
	}
	codec.Retrain([][]float32{
		{1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1},
		{-1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1},
	})

	a := codec.Encode([]float32{1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1})
	b := codec.Encode([]float32{-1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1})

	if Hamming(a, a) != 0 {
		t.Fatalf("Hamming(a, a) = %d, want 0", Hamming(a, a))
	}
	if Hamming(a, b) != 16 {
		t.Fatalf("Hamming(a, b) = %d, want 16 (fully opposite signs)", Hamming(a, b))
	}
}

func TestBQRejectsBadDimension(t *testing.T) {
	if _, err := NewBQCodec(13); err == nil {
		t.Fatalf("expected error for dim not divisible by 8")
	}
}

func TestShouldRetrainDoublingThreshold(t *testing.T) {
	codec, _ := NewBQCodec(8)
	codec.Retrain(make([][]float32, 10))
	if codec.ShouldRetrain(15) {
		t.Fatalf("should not retrain before doubling")
	}
	if !codec.ShouldRetrain(20) {
		t.Fatalf("should retrain once live count doubles")
	}
}

type fakeBQSource struct {
	bq  map[uint32][]byte
	f32 map[uint32][]float32
}

func (f fakeBQSource) BQBytes(slot uint32) ([]byte, bool) { b, ok := f.bq[slot]; return b, ok }
func (f fakeBQSource) F32(slot uint32) []float32          { return f.f32[slot] }

func TestSearchBQRescoredSubsetOfUnrescored(t *testing.T) {
	codec, _ := NewBQCodec(8)
	codec.Retrain([][]float32{{0, 0, 0, 0, 0, 0, 0, 0}})

	vectors := map[uint32][]float32{
		0: {1, 1, 1, 1, 1, 1, 1, 1},
		1: {1, 1, 1, 1, 1, 1, 1, -1},
		2: {-1, -1, -1, -1, -1, -1, -1, -1},
		3: {1, -1, 1, -1, 1, -1, 1, -1},
	}
	src := fakeBQSource{bq: make(map[uint32][]byte), f32: vectors}
	for id, v := range vectors {
		src.bq[id] = codec.Encode(v)
	}
	query := []float32{1, 1, 1, 1, 1, 1, 1, 1}
	queryBQ := codec.Encode(query)
	candidates := []uint32{0, 1, 2, 3}

	l2, _ := util.ForMetric(util.L2)
	rescored := SearchBQRescored(query, queryBQ, candidates, src, 2, 3, l2)
	unrescored := SearchBQRescored(query, queryBQ, candidates, src, 2, 1, l2)

	expanded := SearchBQRescored(query, queryBQ, candidates, src, 2*3, 1, l2)

	rescoredSet := make(map[uint32]bool)
	for _, c := range rescored {
		rescoredSet[c.ID] = true
	}
	expandedSet := make(map[uint32]bool)
	for _, c := range expanded {
		expandedSet[c.ID] = true
	}
	// search_bq_rescored(k,rf) is expected to be a subset of
	// search_bq(k*rf); here we additionally check the unrescored,
	// unexpanded top-k stays plausible.
	for id := range rescoredSet {
		if !expandedSet[id] {
			t.Fatalf("rescored id %d not among search_bq(k*rf) results", id)
		}
	}
	if len(unrescored) != 2 {
		t.Fatalf("search_bq(k) returned %d results, want 2", len(unrescored))
	}
	if len(rescored) != 2 {
		t.Fatalf("search_bq_rescored returned %d results, want 2", len(rescored))
	}
}
