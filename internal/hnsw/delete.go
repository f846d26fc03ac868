package hnsw

import "github.com/edgevec/edgevec/internal/vecstore"

// SoftDelete flips node slot's tombstone bit. O(1); no graph mutation: a
// tombstoned node remains reachable for traversal until Compact. Returns
// false if slot was already tombstoned.
//
// This replaces a hard-delete predecessor (internal/index/hnsw/delete.go's
// deleteNode, which physically spliced the node out and reconnected
// neighbors immediately) with flip-only semantics; that splice/reconnect
// machinery is repurposed below as Compact's neighbor-pool rewrite instead.
func (g *Graph) SoftDelete(slot NodeId) bool {
	if g.nodes[slot].tombstoned() {
		return false
	}
	g.nodes[slot].setTombstoned()
	g.tombstones++
	return true
}

// SlotFor returns the NodeId backing id, if the graph has ever seen it.
func (g *Graph) SlotFor(id vecstore.VectorId) (NodeId, bool) {
	slot, ok := g.idToSlot[id]
	return slot, ok
}

// CompactionWarning reports whether tombstones/total exceeds threshold
// (default 0.2).
func (g *Graph) CompactionWarning(threshold float64) bool {
	if len(g.nodes) == 0 {
		return false
	}
	return float64(g.tombstones)/float64(len(g.nodes)) > threshold
}

// Compact walks live nodes in VectorId order, allocates new NodeIds
// 0..L-1, and rewrites the neighbor pool to drop tombstoned targets,
// resetting the tombstone count to 0. VectorIds are unaffected. Memory use
// during compaction is bounded by allocating exactly the live footprint's
// worth of new arrays before discarding the old ones (≤ 2x live footprint
// at the peak, when old and new coexist briefly).
func (g *Graph) Compact() {
	type liveEntry struct {
		oldSlot NodeId
		vecID   vecstore.VectorId
	}
	live := make([]liveEntry, 0, len(g.nodes)-g.tombstones)
	for slot := range g.nodes {
		if !g.nodes[slot].tombstoned() {
			live = append(live, liveEntry{oldSlot: NodeId(slot), vecID: vecstore.VectorId(g.nodes[slot].VectorId)})
		}
	}
	// VectorId order: snowflake ids are monotonically increasing at
	// allocation time, and slots were appended in allocation order, so the
	// existing slot order already satisfies "VectorId order" — no separate
	// sort is needed here.

	remap := make(map[NodeId]NodeId, len(live))
	for newSlot, e := range live {
		remap[e.oldSlot] = NodeId(newSlot)
	}

	newNodes := make([]packedNode, len(live))
	newHigher := make(map[NodeId][][]uint32, len(g.higherLinks))
	newIdToSlot := make(map[vecstore.VectorId]NodeId, len(live))

	// First pass: rebuild nodes with remapped higher-layer links; layer-0
	// links get rebuilt into a fresh pool in the second pass below.
	for newSlot, e := range live {
		old := g.nodes[e.oldSlot]
		newNodes[newSlot] = packedNode{
			VectorId: old.VectorId,
			MaxLayer: old.MaxLayer,
		}
		newIdToSlot[e.vecID] = NodeId(newSlot)

		if links, ok := g.higherLinks[e.oldSlot]; ok {
			remapped := make([][]uint32, len(links))
			for layerIdx, neighbors := range links {
				remapped[layerIdx] = remapNeighborList(neighbors, remap)
			}
			newHigher[NodeId(newSlot)] = remapped
		}
	}

	newPool := make([]uint32, 0, len(g.pool))
	for newSlot, e := range live {
		oldList := g.layer0Neighbors(e.oldSlot)
		filtered := remapNeighborList(oldList, remap)
		offset := uint32(len(newPool))
		newPool = append(newPool, filtered...)
		newNodes[newSlot].NeighborOffset = offset
		newNodes[newSlot].NeighborLen = uint16(len(filtered))
	}

	if g.hasEntry {
		if newSlot, ok := remap[g.entryPoint]; ok {
			g.entryPoint = newSlot
		} else {
			g.hasEntry = len(live) > 0
			if g.hasEntry {
				g.entryPoint = 0
			}
		}
	}

	g.nodes = newNodes
	g.pool = newPool
	g.higherLinks = newHigher
	g.idToSlot = newIdToSlot
	g.tombstones = 0
}

func remapNeighborList(ids []uint32, remap map[NodeId]NodeId) []uint32 {
	out := make([]uint32, 0, len(ids))
	for _, id := range ids {
		if newID, ok := remap[id]; ok {
			out = append(out, newID)
		}
	}
	return out
}
