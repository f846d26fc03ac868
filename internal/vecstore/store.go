// Package vecstore holds the packed F32/SQ8/BQ vector arrays and the
// VectorId lifecycle (allocation, tombstones, live/total counts). It has no
// internal locking: callers (the facade) serialize mutation per the
// shared-exclusive contract described in the top-level package doc.
//
// Grounded on internal/index/hnsw/node.go's Vector/CompressedVector split
// and hnsw.go's idToIndex map, generalized into a standalone package
// shared by the graph, quantization, and sparse search.
package vecstore

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bwmarrin/snowflake"

	"github.com/edgevec/edgevec/internal/verrors"
)

// VectorId is a process-local, monotonically assigned identifier stable
// across the vector's lifetime, including across compaction.
type VectorId uint64

// NodeId is a dense slot index into a parallel array. Distinct from
// VectorId: NodeId spaces are renumbered by compact(), VectorId never is.
type NodeId = uint32

// SQ8Params holds the per-vector reconstruction parameters for a
// scalar-quantized row: x ≈ min + b*scale.
type SQ8Params struct {
	Min   float32
	Scale float32
}

// Store owns the parallel F32/SQ8/BQ arrays and the VectorId→slot mapping
// for one collection's worth of vectors.
type Store struct {
	dim int

	idGen *snowflake.Node

	ids       []VectorId // slot -> VectorId, append-only between compactions
	idToSlot  map[VectorId]NodeId
	f32       [][]float32 // slot -> vector, always populated
	tomb      *roaring.Bitmap
	liveCount int

	sq8Enabled bool
	sq8Bytes   [][]byte
	sq8Params  []SQ8Params

	bqEnabled bool
	bqBytes   [][]byte // ceil(dim/8) bytes per slot, 1 bit per dimension
}

// New builds an empty store for dim-dimensional vectors. node identifies the
// snowflake worker/datacenter pair for this process; collections in the same
// process should use distinct small integers to avoid VectorId collisions if
// more than one index shares a process.
func New(dim int, node int64) (*Store, error) {
	gen, err := snowflake.NewNode(node)
	if err != nil {
		return nil, verrors.Internal("vecstore: failed to start id generator: " + err.Error())
	}
	return &Store{
		dim:      dim,
		idGen:    gen,
		idToSlot: make(map[VectorId]NodeId),
		tomb:     roaring.New(),
	}, nil
}

// Dim returns the fixed vector width for this store.
func (s *Store) Dim() int { return s.dim }

// Push validates and appends vector, returning its freshly-allocated
// VectorId. vector must have length Dim() and contain only finite values.
func (s *Store) Push(vector []float32) (VectorId, error) {
	if len(vector) != s.dim {
		return 0, verrors.DimensionMismatch(s.dim, len(vector))
	}
	for _, x := range vector {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return 0, verrors.InvalidVector("non-finite component")
		}
	}
	id := VectorId(s.idGen.Generate())
	slot := NodeId(len(s.ids))

	cp := make([]float32, len(vector))
	copy(cp, vector)

	s.ids = append(s.ids, id)
	s.f32 = append(s.f32, cp)
	s.idToSlot[id] = slot
	s.liveCount++

	if s.sq8Enabled {
		s.sq8Bytes = append(s.sq8Bytes, nil)
		s.sq8Params = append(s.sq8Params, SQ8Params{})
	}
	if s.bqEnabled {
		s.bqBytes = append(s.bqBytes, nil)
	}
	return id, nil
}

// Get returns the F32 vector for id, or ok=false if id is unknown or
// tombstoned.
func (s *Store) Get(id VectorId) (vector []float32, ok bool) {
	slot, exists := s.idToSlot[id]
	if !exists || s.isSlotDeleted(slot) {
		return nil, false
	}
	return s.f32[slot], true
}

// Slot returns the dense slot index backing id, for use by components (HNSW,
// quantizers) that key their own parallel arrays off the same slot space.
func (s *Store) Slot(id VectorId) (NodeId, bool) {
	slot, ok := s.idToSlot[id]
	return slot, ok
}

// IdAt returns the VectorId stored at slot.
func (s *Store) IdAt(slot NodeId) VectorId { return s.ids[slot] }

// VectorAt returns the raw F32 vector at slot without a liveness check,
// for internal callers (HNSW traversal) that must be able to read through
// tombstoned nodes.
func (s *Store) VectorAt(slot NodeId) []float32 { return s.f32[slot] }

func (s *Store) isSlotDeleted(slot NodeId) bool {
	return s.tomb.Contains(uint32(slot))
}

// MarkDeleted flips the tombstone bit for id. O(1). Returns UnknownId if id
// was never inserted or is already deleted.
func (s *Store) MarkDeleted(id VectorId) error {
	slot, exists := s.idToSlot[id]
	if !exists {
		return verrors.UnknownId(uint64(id))
	}
	if s.isSlotDeleted(slot) {
		return verrors.UnknownId(uint64(id))
	}
	s.tomb.Add(uint32(slot))
	s.liveCount--
	return nil
}

// IsDeleted reports whether id is tombstoned. Unknown ids are reported as
// not deleted; callers should check existence separately via Slot/Get.
func (s *Store) IsDeleted(id VectorId) bool {
	slot, exists := s.idToSlot[id]
	if !exists {
		return false
	}
	return s.isSlotDeleted(slot)
}

// IsSlotDeleted is the slot-indexed variant used by components that already
// resolved a NodeId/slot (HNSW graph traversal).
func (s *Store) IsSlotDeleted(slot NodeId) bool { return s.isSlotDeleted(slot) }

// LiveCount returns the number of non-tombstoned vectors.
func (s *Store) LiveCount() int { return s.liveCount }

// TotalCount returns the number of vectors ever pushed, including
// tombstoned ones, since the last compaction.
func (s *Store) TotalCount() int { return len(s.ids) }

// TombstoneCount returns TotalCount() - LiveCount().
func (s *Store) TombstoneCount() int { return len(s.ids) - s.liveCount }

// IterLive calls fn for every live (VectorId, vector) pair in stable slot
// order, stopping early if fn returns false.
func (s *Store) IterLive(fn func(id VectorId, vector []float32) bool) {
	for slot, id := range s.ids {
		if s.isSlotDeleted(NodeId(slot)) {
			continue
		}
		if !fn(id, s.f32[slot]) {
			return
		}
	}
}

// EnableSQ8 allocates (empty) SQ8 backing arrays; the quantizer fills them
// in lazily via SetSQ8.
func (s *Store) EnableSQ8() {
	if s.sq8Enabled {
		return
	}
	s.sq8Enabled = true
	s.sq8Bytes = make([][]byte, len(s.ids))
	s.sq8Params = make([]SQ8Params, len(s.ids))
}

// SQ8Enabled reports whether scalar quantization storage is active.
func (s *Store) SQ8Enabled() bool { return s.sq8Enabled }

// SetSQ8 stores the quantized bytes and reconstruction params for slot.
func (s *Store) SetSQ8(slot NodeId, bytes []byte, p SQ8Params) {
	s.sq8Bytes[slot] = bytes
	s.sq8Params[slot] = p
}

// SQ8At returns the quantized bytes and params for slot, or ok=false if
// never encoded.
func (s *Store) SQ8At(slot NodeId) (bytes []byte, p SQ8Params, ok bool) {
	if !s.sq8Enabled || int(slot) >= len(s.sq8Bytes) || s.sq8Bytes[slot] == nil {
		return nil, SQ8Params{}, false
	}
	return s.sq8Bytes[slot], s.sq8Params[slot], true
}

// EnableBQ allocates (empty) BQ backing arrays.
func (s *Store) EnableBQ() {
	if s.bqEnabled {
		return
	}
	s.bqEnabled = true
	s.bqBytes = make([][]byte, len(s.ids))
}

// BQEnabled reports whether binary quantization storage is active.
func (s *Store) BQEnabled() bool { return s.bqEnabled }

// SetBQ stores the packed bit vector for slot.
func (s *Store) SetBQ(slot NodeId, bits []byte) {
	s.bqBytes[slot] = bits
}

// BQAt returns the packed bit vector for slot, or ok=false if never encoded.
func (s *Store) BQAt(slot NodeId) (bits []byte, ok bool) {
	if !s.bqEnabled || int(slot) >= len(s.bqBytes) || s.bqBytes[slot] == nil {
		return nil, false
	}
	return s.bqBytes[slot], true
}

// Compact rebuilds every parallel array to contain only live slots, in
// VectorId order, and returns the old-slot->new-slot mapping (for HNSW to
// rewrite its own neighbor pool against). VectorIds are preserved; slots are
// renumbered 0..L-1.
func (s *Store) Compact() (remap map[NodeId]NodeId) {
	live := make([]NodeId, 0, s.liveCount)
	for slot := range s.ids {
		if !s.isSlotDeleted(NodeId(slot)) {
			live = append(live, NodeId(slot))
		}
	}

	remap = make(map[NodeId]NodeId, len(live))
	newIds := make([]VectorId, len(live))
	newF32 := make([][]float32, len(live))
	var newSQ8Bytes [][]byte
	var newSQ8Params []SQ8Params
	if s.sq8Enabled {
		newSQ8Bytes = make([][]byte, len(live))
		newSQ8Params = make([]SQ8Params, len(live))
	}
	var newBQ [][]byte
	if s.bqEnabled {
		newBQ = make([][]byte, len(live))
	}

	newIdToSlot := make(map[VectorId]NodeId, len(live))
	for newSlot, oldSlot := range live {
		remap[oldSlot] = NodeId(newSlot)
		newIds[newSlot] = s.ids[oldSlot]
		newF32[newSlot] = s.f32[oldSlot]
		newIdToSlot[s.ids[oldSlot]] = NodeId(newSlot)
		if s.sq8Enabled {
			newSQ8Bytes[newSlot] = s.sq8Bytes[oldSlot]
			newSQ8Params[newSlot] = s.sq8Params[oldSlot]
		}
		if s.bqEnabled {
			newBQ[newSlot] = s.bqBytes[oldSlot]
		}
	}

	s.ids = newIds
	s.f32 = newF32
	s.idToSlot = newIdToSlot
	s.tomb = roaring.New()
	s.liveCount = len(live)
	if s.sq8Enabled {
		s.sq8Bytes = newSQ8Bytes
		s.sq8Params = newSQ8Params
	}
	if s.bqEnabled {
		s.bqBytes = newBQ
	}
	return remap
}
