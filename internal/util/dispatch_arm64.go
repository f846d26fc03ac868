//go:build arm64

package util

import "golang.org/x/sys/cpu"

// selectKernels picks the fastest available kernel set for arm64 hosts.
// ASIMD (NEON) is mandatory on all arm64 implementations, so the unrolled
// path is always eligible; we still gate on the feature flag for
// consistency with the amd64 dispatcher and to document the intent.
func selectKernels() kernelSet {
	if cpu.ARM64.HasASIMD {
		return kernelSet{l2: l2Unrolled8, dot: dotUnrolled8, cosine: cosineScalar, label: "arm64/neon-unrolled"}
	}
	return kernelSet{l2: l2Scalar, dot: dotScalar, cosine: cosineScalar, label: "arm64/scalar"}
}
