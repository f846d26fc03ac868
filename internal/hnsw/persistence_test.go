package hnsw

import (
	"testing"

	"github.com/edgevec/edgevec/internal/util"
	"github.com/edgevec/edgevec/internal/vecstore"
)

func TestExportLoadRoundTrip(t *testing.T) {
	g, store := newTestGraph(t, 4)
	for i := 0; i < 30; i++ {
		v := vec(4, map[int]float32{i % 4: float32(i)})
		insertVec(t, g, store, v)
	}

	nodes := g.ExportNodes()
	pool := g.ExportPool()
	entry, topLayer, hasEntry := g.EntryPoint()
	if !hasEntry {
		t.Fatal("expected an entry point after 30 inserts")
	}

	loaded, err := Load(store, g.cfg, nodes, pool, entry, topLayer, hasEntry)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Size() != g.Size() {
		t.Fatalf("want %d nodes, got %d", g.Size(), loaded.Size())
	}

	query := vec(4, map[int]float32{0: 1})
	want, _, err := g.Search(query, 5, 50, nil, 400)
	if err != nil {
		t.Fatalf("search original: %v", err)
	}
	got, _, err := loaded.Search(query, 5, 50, nil, 400)
	if err != nil {
		t.Fatalf("search loaded: %v", err)
	}
	if len(want) != len(got) {
		t.Fatalf("want %d results, got %d", len(want), len(got))
	}
	for i := range want {
		if want[i].Id != got[i].Id {
			t.Fatalf("result %d mismatch: want id %d, got id %d", i, want[i].Id, got[i].Id)
		}
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	store, err := vecstore.New(4, 1)
	if err != nil {
		t.Fatalf("vecstore.New: %v", err)
	}
	_, err = Load(store, Config{Metric: util.L2}, nil, nil, 0, 0, false)
	if err == nil {
		t.Fatal("expected validation error for zero M")
	}
}
