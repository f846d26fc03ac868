package hnsw

import "github.com/edgevec/edgevec/internal/vecstore"

// Insert links a freshly pushed vector (already present in the shared
// vecstore.Store under id) into the graph, returning its NodeId. Grounded
// on internal/index/hnsw/insert.go's insertNode: greedy-descend to the
// insertion layer with a 1-best search, then beam-search + heuristic-select
// + bidirectional-connect-with-pruning at every layer from the insertion
// layer down to 0.
func (g *Graph) Insert(id vecstore.VectorId, vector []float32) (NodeId, error) {
	level := g.randomLevel()
	slot := NodeId(len(g.nodes))

	g.nodes = append(g.nodes, packedNode{
		VectorId: uint64(id),
		MaxLayer: uint8(level),
	})
	g.idToSlot[id] = slot

	if !g.hasEntry {
		g.hasEntry = true
		g.entryPoint = slot
		g.topLayer = level
		return slot, nil
	}

	current := g.entryPoint
	for layer := g.topLayer; layer > level; layer-- {
		current = g.greedyDescend(vector, current, layer)
	}

	startLayer := level
	if startLayer > g.topLayer {
		startLayer = g.topLayer
	}
	for layer := startLayer; layer >= 0; layer-- {
		cands := g.searchLayer(vector, current, g.cfg.EfConstruction, layer)
		selected := g.selectNeighbors(cands, g.maxM(layer))
		g.setNeighborsAt(slot, layer, selected)
		for _, nb := range selected {
			g.connectBidirectional(slot, nb, layer)
		}
		if len(cands) > 0 {
			current = cands[0].ID
		}
	}

	if level > g.topLayer {
		g.entryPoint = slot
		g.topLayer = level
	}
	return slot, nil
}
