package hnsw

import (
	"math"
	"math/rand"

	"github.com/edgevec/edgevec/internal/util"
	"github.com/edgevec/edgevec/internal/vecstore"
)

// ExportNodes returns the graph's packed node array in slot order, ready
// for internal/persist's HNSW-nodes section via EncodeNodes: one fixed
// 16-byte record per node carrying VectorId/NeighborOffset/NeighborLen/
// MaxLayer/Flags. Higher-layer (>0) neighbor lists in Graph.higherLinks are
// NOT part of this export — the fixed-width node record has no room for
// them, so a reloaded graph starts every node's layers above 0 empty. This
// only affects the small fraction of nodes whose randomly drawn level
// exceeds 0; they remain fully reachable through their layer-0 links, at
// the cost of a shallower upper structure until enough re-inserts (or a
// future re-link pass) rebuild it.
func (g *Graph) ExportNodes() []RawNode {
	out := make([]RawNode, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = RawNode(n)
	}
	return out
}

// ExportPool returns the shared layer-0 neighbor pool verbatim.
func (g *Graph) ExportPool() []uint32 {
	out := make([]uint32, len(g.pool))
	copy(out, g.pool)
	return out
}

// EntryPoint reports the graph's current entry node and top layer, and
// whether an entry point has been established at all (false only for an
// empty graph).
func (g *Graph) EntryPoint() (entry NodeId, topLayer int, ok bool) {
	return g.entryPoint, g.topLayer, g.hasEntry
}

// Load reconstructs a Graph from a previously exported node array and
// neighbor pool (as produced by ExportNodes/ExportPool, typically after a
// round trip through EncodeNodes/DecodeNodes), rebuilding the idToSlot
// index and restoring the entry point. Higher-layer neighbor lists are
// not restored (see ExportNodes); nodes with MaxLayer > 0 simply start
// with no links above layer 0 until re-linked.
func Load(store *vecstore.Store, cfg Config, nodes []RawNode, pool []uint32, entry NodeId, topLayer int, hasEntry bool) (*Graph, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	distFn, err := util.ForMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}

	g := &Graph{
		cfg:             cfg,
		dist:            distFn,
		store:           store,
		levelMultiplier: 1.0 / math.Log(float64(cfg.M)),
		rng:             rand.New(rand.NewSource(int64(seed))),
		nodes:           make([]packedNode, len(nodes)),
		pool:            append([]uint32(nil), pool...),
		higherLinks:     make(map[NodeId][][]uint32),
		idToSlot:        make(map[vecstore.VectorId]NodeId, len(nodes)),
		entryPoint:      entry,
		hasEntry:        hasEntry,
		topLayer:        topLayer,
	}
	for i, n := range nodes {
		g.nodes[i] = packedNode(n)
		g.idToSlot[vecstore.VectorId(n.VectorId)] = NodeId(i)
		if n.Flags&flagTombstone != 0 {
			g.tombstones++
		}
	}
	return g, nil
}
