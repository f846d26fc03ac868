package edgevec

import (
	"encoding/binary"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/edgevec/edgevec/internal/persist"
	"github.com/edgevec/edgevec/internal/vecstore"
	"github.com/edgevec/edgevec/internal/verrors"
)

func mathFloat32bits(f float32) uint32 { return math.Float32bits(f) }
func mathFloat32frombits(b uint32) float32 { return math.Float32frombits(b) }

func wireMetricFor(m Metric) uint8 {
	switch m {
	case MetricL2:
		return persist.WireMetricL2
	case MetricCosine:
		return persist.WireMetricCosine
	case MetricDot:
		return persist.WireMetricDot
	default:
		return persist.WireMetricHamming
	}
}

func metricFromWire(b uint8) Metric {
	switch b {
	case persist.WireMetricL2:
		return MetricL2
	case persist.WireMetricCosine:
		return MetricCosine
	case persist.WireMetricDot:
		return MetricDot
	default:
		return MetricHamming
	}
}

// encodeF32Section lays out every slot (live and tombstoned) as
// {VectorId u64}{dims*4 bytes of float32}, so slot order and ids survive a
// round trip without depending on the HNSW nodes section (which only
// exists for graph-backed collections).
func encodeF32Section(slots []vecstore.RawSlot, dims int) []byte {
	recordSize := 8 + 4*dims
	out := make([]byte, len(slots)*recordSize)
	for i, s := range slots {
		off := i * recordSize
		binary.LittleEndian.PutUint64(out[off:off+8], uint64(s.Id))
		for j, v := range s.F32 {
			binary.LittleEndian.PutUint32(out[off+8+4*j:off+12+4*j], mathFloat32bits(v))
		}
	}
	return out
}

func decodeF32Section(buf []byte, dims int) ([]vecstore.RawSlot, error) {
	recordSize := 8 + 4*dims
	if recordSize == 0 || len(buf)%recordSize != 0 {
		return nil, verrors.Corruption("f32", "section length is not a multiple of the per-slot record size")
	}
	count := len(buf) / recordSize
	slots := make([]vecstore.RawSlot, count)
	for i := 0; i < count; i++ {
		off := i * recordSize
		id := vecstore.VectorId(binary.LittleEndian.Uint64(buf[off : off+8]))
		slots[i] = vecstore.RawSlot{Id: id, F32: decodeF32Vector(buf[off+8:off+recordSize], dims)}
	}
	return slots, nil
}

func decodeF32Vector(buf []byte, dims int) []float32 {
	out := make([]float32, dims)
	for j := 0; j < dims; j++ {
		out[j] = mathFloat32frombits(binary.LittleEndian.Uint32(buf[4*j : 4*j+4]))
	}
	return out
}

// encodeSQ8Section writes {VectorId u64}{present u8}[min f32][scale f32][dims bytes]
// per slot, skipping the quantized payload when a slot was never encoded
// (e.g. inserted the instant before a crash, before SQ8 encoding ran).
func encodeSQ8Section(slots []vecstore.RawSlot) []byte {
	var out []byte
	for _, s := range slots {
		rec := make([]byte, 9)
		binary.LittleEndian.PutUint64(rec[0:8], uint64(s.Id))
		if s.HasSQ8 {
			rec[8] = 1
			rec = append(rec, make([]byte, 8)...)
			binary.LittleEndian.PutUint32(rec[9:13], mathFloat32bits(s.SQ8Params.Min))
			binary.LittleEndian.PutUint32(rec[13:17], mathFloat32bits(s.SQ8Params.Scale))
			rec = append(rec, s.SQ8...)
		}
		out = append(out, rec...)
	}
	return out
}

func decodeSQ8SectionInto(slots []vecstore.RawSlot, buf []byte, dims int) error {
	byId := make(map[vecstore.VectorId]int, len(slots))
	for i, s := range slots {
		byId[s.Id] = i
	}
	pos := 0
	for pos < len(buf) {
		if pos+9 > len(buf) {
			return verrors.Corruption("sq8", "truncated record header")
		}
		id := vecstore.VectorId(binary.LittleEndian.Uint64(buf[pos : pos+8]))
		present := buf[pos+8]
		pos += 9
		if present == 0 {
			continue
		}
		if pos+8+dims > len(buf) {
			return verrors.Corruption("sq8", "truncated record payload")
		}
		minV := mathFloat32frombits(binary.LittleEndian.Uint32(buf[pos : pos+4]))
		scale := mathFloat32frombits(binary.LittleEndian.Uint32(buf[pos+4 : pos+8]))
		payload := append([]byte(nil), buf[pos+8:pos+8+dims]...)
		pos += 8 + dims
		if idx, ok := byId[id]; ok {
			slots[idx].HasSQ8 = true
			slots[idx].SQ8Params = vecstore.SQ8Params{Min: minV, Scale: scale}
			slots[idx].SQ8 = payload
		}
	}
	return nil
}

// encodeBQSection writes {VectorId u64}{len u32}{bytes}; len 0 means the
// slot was never BQ-encoded.
func encodeBQSection(slots []vecstore.RawSlot) []byte {
	var out []byte
	for _, s := range slots {
		rec := make([]byte, 12)
		binary.LittleEndian.PutUint64(rec[0:8], uint64(s.Id))
		if s.HasBQ {
			binary.LittleEndian.PutUint32(rec[8:12], uint32(len(s.BQ)))
			rec = append(rec, s.BQ...)
		}
		out = append(out, rec...)
	}
	return out
}

func decodeBQSectionInto(slots []vecstore.RawSlot, buf []byte) error {
	byId := make(map[vecstore.VectorId]int, len(slots))
	for i, s := range slots {
		byId[s.Id] = i
	}
	pos := 0
	for pos < len(buf) {
		if pos+12 > len(buf) {
			return verrors.Corruption("bq", "truncated record header")
		}
		id := vecstore.VectorId(binary.LittleEndian.Uint64(buf[pos : pos+8]))
		n := int(binary.LittleEndian.Uint32(buf[pos+8 : pos+12]))
		pos += 12
		if n == 0 {
			continue
		}
		if pos+n > len(buf) {
			return verrors.Corruption("bq", "truncated record payload")
		}
		payload := append([]byte(nil), buf[pos:pos+n]...)
		pos += n
		if idx, ok := byId[id]; ok {
			slots[idx].HasBQ = true
			slots[idx].BQ = payload
		}
	}
	return nil
}

func encodeTombstones(bm *roaring.Bitmap) ([]byte, error) {
	buf, err := bm.ToBytes()
	if err != nil {
		return nil, verrors.Internal("marshal tombstone bitmap: " + err.Error())
	}
	return buf, nil
}

func decodeTombstones(buf []byte) (*roaring.Bitmap, error) {
	bm := roaring.New()
	if len(buf) == 0 {
		return bm, nil
	}
	if _, err := bm.FromBuffer(buf); err != nil {
		return nil, verrors.Corruption("tombstones", "malformed roaring bitmap: "+err.Error())
	}
	return bm, nil
}

func encodeUint32Slice(vals []uint32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[4*i:4*i+4], v)
	}
	return out
}

func decodeUint32Slice(buf []byte) []uint32 {
	out := make([]uint32, len(buf)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[4*i : 4*i+4])
	}
	return out
}
