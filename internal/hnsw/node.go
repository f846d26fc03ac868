// Package hnsw implements the layered proximity graph: insertion, search,
// soft delete, and compaction over a packed node array.
//
// Grounded throughout on internal/index/hnsw/{hnsw,insert,search,neighbors,
// delete,node,format}.go. The biggest departure from that code is that
// every node here is referred to purely by NodeId (a dense slot index),
// never by pointer — the predecessor states this principle but its Node is
// still a pointer with an O(n) findNodeID fallback; here there is no such
// fallback because nothing ever needs to recover a NodeId from anything
// but a direct lookup.
package hnsw

import (
	"encoding/binary"

	"github.com/edgevec/edgevec/internal/verrors"
)

// NodeId indexes the dense, per-graph node array. Renumbered by Compact();
// stable between compactions.
type NodeId = uint32

// packedNodeSize is the exact on-wire and in-memory size of packedNode, per
// the data model's HnswNode invariant (§3): VectorId:8 + neighbor_offset:4 +
// neighbor_len:2 + max_layer:1 + flags:1 = 16 bytes, 8-byte aligned.
const packedNodeSize = 16

const flagTombstone = uint8(1 << 0)

// packedNode is the fixed C-layout record persisted verbatim in the HNSW
// nodes section of a snapshot. NeighborOffset/NeighborLen address the
// node's layer-0 slice of the shared neighbor pool; neighbor lists for
// layers above 0 (only ever populated for the small fraction of nodes whose
// randomly drawn layer exceeds 0) live in Graph.higherLinks, which is not
// part of this fixed-size record.
type packedNode struct {
	VectorId       uint64
	NeighborOffset uint32
	NeighborLen    uint16
	MaxLayer       uint8
	Flags          uint8
}

func (n *packedNode) tombstoned() bool { return n.Flags&flagTombstone != 0 }
func (n *packedNode) setTombstoned()   { n.Flags |= flagTombstone }
func (n *packedNode) clearTombstoned() { n.Flags &^= flagTombstone }

// encode writes n's 16-byte little-endian representation into buf, which
// must have length >= packedNodeSize.
func (n *packedNode) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], n.VectorId)
	binary.LittleEndian.PutUint32(buf[8:12], n.NeighborOffset)
	binary.LittleEndian.PutUint16(buf[12:14], n.NeighborLen)
	buf[14] = n.MaxLayer
	buf[15] = n.Flags
}

// decodePackedNode reads one packedNode from buf, verifying alignment and
// length. Returns AlignmentError rather than trusting the buffer blindly,
// per the "manual byte casts" design note.
func decodePackedNode(buf []byte) (packedNode, error) {
	if len(buf) < packedNodeSize {
		return packedNode{}, verrors.AlignmentError("hnsw: short buffer for packedNode")
	}
	return packedNode{
		VectorId:       binary.LittleEndian.Uint64(buf[0:8]),
		NeighborOffset: binary.LittleEndian.Uint32(buf[8:12]),
		NeighborLen:    binary.LittleEndian.Uint16(buf[12:14]),
		MaxLayer:       buf[14],
		Flags:          buf[15],
	}, nil
}

// DecodeNodes decodes count consecutive packedNode records from buf,
// verifying buf is exactly count*packedNodeSize bytes (8-byte aligned by
// construction, since packedNodeSize is a multiple of 8).
func DecodeNodes(buf []byte, count int) ([]RawNode, error) {
	if len(buf) != count*packedNodeSize {
		return nil, verrors.AlignmentError("hnsw: node section length does not match count*16")
	}
	out := make([]RawNode, count)
	for i := 0; i < count; i++ {
		pn, err := decodePackedNode(buf[i*packedNodeSize : (i+1)*packedNodeSize])
		if err != nil {
			return nil, err
		}
		out[i] = RawNode(pn)
	}
	return out, nil
}

// EncodeNodes serializes nodes into their packed 16-byte-per-record form,
// in slot order.
func EncodeNodes(nodes []RawNode) []byte {
	buf := make([]byte, len(nodes)*packedNodeSize)
	for i, n := range nodes {
		pn := packedNode(n)
		pn.encode(buf[i*packedNodeSize : (i+1)*packedNodeSize])
	}
	return buf
}

// RawNode is the exported mirror of packedNode used by the persistence
// package, which must not depend on hnsw's unexported fields.
type RawNode struct {
	VectorId       uint64
	NeighborOffset uint32
	NeighborLen    uint16
	MaxLayer       uint8
	Flags          uint8
}
