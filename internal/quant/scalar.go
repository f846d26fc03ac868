// Package quant implements scalar (SQ8) and binary (BQ) vector
// quantization plus the BQ rescoring helper.
//
// SQ8 is grounded on internal/quant/scalar.go's ScalarQuantizer, changed
// from that predecessor's per-dimension corpus-wide training to a
// per-vector min/scale encoding — per-vector SQ8 needs no training pass at
// all, so Train/Configure collapse into the encode step itself.
package quant

import (
	"math"

	"github.com/edgevec/edgevec/internal/vecstore"
	"github.com/edgevec/edgevec/internal/verrors"
)

// EncodeSQ8 computes the per-vector min/max/scale and packs vector into one
// byte per dimension: byte_i = round((x_i - min) / scale). Fails on
// non-finite input.
func EncodeSQ8(vector []float32) ([]byte, vecstore.SQ8Params, error) {
	if len(vector) == 0 {
		return nil, vecstore.SQ8Params{}, verrors.InvalidVector("empty vector")
	}
	min, max := vector[0], vector[0]
	for _, x := range vector {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, vecstore.SQ8Params{}, verrors.InvalidVector("non-finite component")
		}
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	scale := (max - min) / 255.0
	if scale == 0 {
		// Constant vector: every byte is 0, min reconstructs exactly.
		scale = 1
	}

	out := make([]byte, len(vector))
	for i, x := range vector {
		b := int32(math.Round(float64((x - min) / scale)))
		if b < 0 {
			b = 0
		}
		if b > 255 {
			b = 255
		}
		out[i] = byte(b)
	}
	return out, vecstore.SQ8Params{Min: min, Scale: scale}, nil
}

// DecodeSQ8 reconstructs an approximate F32 vector from its SQ8 encoding:
// x ≈ min + b*scale.
func DecodeSQ8(bytes []byte, p vecstore.SQ8Params) []float32 {
	out := make([]float32, len(bytes))
	for i, b := range bytes {
		out[i] = p.Min + float32(b)*p.Scale
	}
	return out
}

// DistanceSQ8L2 computes an L2 distance between two SQ8-encoded vectors.
// Because per-vector min/scale generally differ between the two operands,
// this dequantizes both rows and applies the exact L2 formula rather than
// working in raw byte arithmetic (which is only exact when every vector
// shares one global scale, the per-dimension-training scheme this package
// deliberately does not use — see the package doc comment).
func DistanceSQ8L2(aBytes []byte, aParams vecstore.SQ8Params, bBytes []byte, bParams vecstore.SQ8Params) float32 {
	var sum float32
	for i := range aBytes {
		av := aParams.Min + float32(aBytes[i])*aParams.Scale
		bv := bParams.Min + float32(bBytes[i])*bParams.Scale
		d := av - bv
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

// DistanceSQ8ToQuery computes the L2 distance between a raw F32 query and
// an SQ8-encoded stored vector, decoding the stored side only.
func DistanceSQ8ToQuery(query []float32, bytes []byte, p vecstore.SQ8Params) float32 {
	var sum float32
	for i, b := range bytes {
		sv := p.Min + float32(b)*p.Scale
		d := query[i] - sv
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

// CompressionRatio reports the memory savings of SQ8 relative to F32 (4
// bytes/dimension): always 4x since one byte replaces one float32.
func CompressionRatio() float32 { return 4.0 }
