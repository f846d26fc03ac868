package vecstore

import "github.com/RoaringBitmap/roaring/v2"

// RawSlot is one fully-decoded slot, used by persistence.go to assemble and
// parse a snapshot without exposing Store's field layout.
type RawSlot struct {
	Id  VectorId
	F32 []float32

	SQ8       []byte
	SQ8Params SQ8Params
	HasSQ8    bool

	BQ    []byte
	HasBQ bool
}

// ExportSlots returns every slot (including tombstoned ones) in slot order,
// for the F32/SQ8/BQ snapshot sections.
func (s *Store) ExportSlots() []RawSlot {
	out := make([]RawSlot, len(s.ids))
	for slot := range s.ids {
		r := RawSlot{Id: s.ids[slot], F32: s.f32[slot]}
		if s.sq8Enabled && s.sq8Bytes[slot] != nil {
			r.SQ8, r.SQ8Params, r.HasSQ8 = s.sq8Bytes[slot], s.sq8Params[slot], true
		}
		if s.bqEnabled && s.bqBytes[slot] != nil {
			r.BQ, r.HasBQ = s.bqBytes[slot], true
		}
		out[slot] = r
	}
	return out
}

// ExportTombstones returns a snapshot copy of the tombstone bitmap.
func (s *Store) ExportTombstones() *roaring.Bitmap { return s.tomb.Clone() }

// PushWithId appends vector under an explicit, caller-supplied id rather
// than minting one from the generator, for WAL replay during Load where
// the id must match what was recorded at insert time. The caller is
// responsible for ensuring id is not already in use.
func (s *Store) PushWithId(id VectorId, vector []float32) (NodeId, error) {
	if len(vector) != s.dim {
		return 0, verrors.DimensionMismatch(s.dim, len(vector))
	}
	if _, exists := s.idToSlot[id]; exists {
		return 0, verrors.DuplicateId(uint64(id))
	}
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
	return slot, nil
}

// Restore rebuilds a Store from previously exported slots and tombstone
// bitmap, preserving VectorIds and slot order exactly (unlike Push, which
// always mints a fresh id from the live generator). The id generator keeps
// running for any future Push calls; snowflake ids are time-ordered so a
// freshly restored process will not mint ids that collide with ones
// generated in an earlier run against the same node id.
func Restore(dim int, node int64, slots []RawSlot, tomb *roaring.Bitmap, sq8Enabled, bqEnabled bool) (*Store, error) {
	s, err := New(dim, node)
	if err != nil {
		return nil, err
	}
	s.ids = make([]VectorId, len(slots))
	s.f32 = make([][]float32, len(slots))
	s.idToSlot = make(map[VectorId]NodeId, len(slots))
	if sq8Enabled {
		s.sq8Enabled = true
		s.sq8Bytes = make([][]byte, len(slots))
		s.sq8Params = make([]SQ8Params, len(slots))
	}
	if bqEnabled {
		s.bqEnabled = true
		s.bqBytes = make([][]byte, len(slots))
	}
	for slot, r := range slots {
		s.ids[slot] = r.Id
		s.f32[slot] = r.F32
		s.idToSlot[r.Id] = NodeId(slot)
		if sq8Enabled && r.HasSQ8 {
			s.sq8Bytes[slot] = r.SQ8
			s.sq8Params[slot] = r.SQ8Params
		}
		if bqEnabled && r.HasBQ {
			s.bqBytes[slot] = r.BQ
		}
	}
	s.tomb = tomb.Clone()
	s.liveCount = len(slots) - int(tomb.GetCardinality())
	return s, nil
}
