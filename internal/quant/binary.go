package quant

import (
	"math/bits"

	"github.com/bits-and-blooms/bitset"

	"github.com/edgevec/edgevec/internal/verrors"
)

// BQCodec tracks the per-dimension means used to center vectors before
// sign-encoding them, and the insert-count watermark at which those means
// were last computed (Open Question 1 in DESIGN.md: recompute once the
// live count has at least doubled since).
type BQCodec struct {
	dim              int
	means            []float32
	lastTrainedCount int
}

// NewBQCodec requires dim % 8 == 0 so encoded vectors pack into whole
// bytes with no wasted partial-byte tail.
func NewBQCodec(dim int) (*BQCodec, error) {
	if dim%8 != 0 {
		return nil, verrors.Internal("quant: binary quantization requires dimensions % 8 == 0")
	}
	return &BQCodec{dim: dim, means: make([]float32, dim)}, nil
}

// Retrain recomputes per-dimension means over the supplied live vectors.
// Call sites pass vecstore.Store.IterLive's stream; trivially cheap
// relative to a full re-encode since it is just a running sum pass.
func (c *BQCodec) Retrain(liveVectors [][]float32) {
	sums := make([]float64, c.dim)
	for _, v := range liveVectors {
		for i, x := range v {
			sums[i] += float64(x)
		}
	}
	n := float64(len(liveVectors))
	if n == 0 {
		n = 1
	}
	for i := range sums {
		c.means[i] = float32(sums[i] / n)
	}
	c.lastTrainedCount = len(liveVectors)
}

// ShouldRetrain reports whether liveCount has grown enough since the last
// Retrain to warrant recomputing the centering means (Open Question 1).
func (c *BQCodec) ShouldRetrain(liveCount int) bool {
	if c.lastTrainedCount == 0 {
		return liveCount > 0
	}
	return liveCount >= 2*c.lastTrainedCount
}

// Encode packs vector into ⌈dim/8⌉ bytes: bit i is set iff (x_i - mean_i) > 0.
// The intermediate bitset.BitSet is the authoritative in-memory
// representation of the sign pattern; Test() drains it into the plain byte
// slice vecstore stores, so the on-disk/packed layout never depends on the
// library's own (version-specific) serialization format.
func (c *BQCodec) Encode(vector []float32) []byte {
	bs := bitset.New(uint(c.dim))
	for i, x := range vector {
		if x-c.means[i] > 0 {
			bs.Set(uint(i))
		}
	}
	out := make([]byte, (c.dim+7)/8)
	for i := 0; i < c.dim; i++ {
		if bs.Test(uint(i)) {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// Hamming computes the Hamming distance (popcount of XOR) between two
// packed BQ byte payloads of equal length.
func Hamming(a, b []byte) uint32 {
	var total uint32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for ; i+8 <= n; i += 8 {
		var wa, wb uint64
		for j := 0; j < 8; j++ {
			wa |= uint64(a[i+j]) << (8 * j)
			wb |= uint64(b[i+j]) << (8 * j)
		}
		total += uint32(bits.OnesCount64(wa ^ wb))
	}
	for ; i < n; i++ {
		total += uint32(bits.OnesCount8(a[i] ^ b[i]))
	}
	return total
}
