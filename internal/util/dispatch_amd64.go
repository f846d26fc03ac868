//go:build amd64

package util

import "golang.org/x/sys/cpu"

// selectKernels picks the fastest available kernel set for amd64 hosts. The
// "accelerated" variants are portable Go, loop-unrolled 8-wide rather than
// hand-written assembly: without a way to assemble and exercise real SIMD in
// this environment, an unverified .s file is worse than an honest pure-Go
// unrolled loop. The AVX2/FMA feature check still gates which path runs, so
// the dispatch contract (detect once, cache, never branch per-call) holds.
func selectKernels() kernelSet {
	if cpu.X86.HasAVX2 && cpu.X86.HasFMA {
		return kernelSet{l2: l2Unrolled8, dot: dotUnrolled8, cosine: cosineScalar, label: "amd64/avx2-unrolled"}
	}
	return kernelSet{l2: l2Scalar, dot: dotScalar, cosine: cosineScalar, label: "amd64/scalar"}
}
