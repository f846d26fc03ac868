//go:build !amd64 && !arm64

package util

// selectKernels falls back to the portable scalar kernels on platforms with
// no dedicated dispatcher.
func selectKernels() kernelSet {
	return kernelSet{l2: l2Scalar, dot: dotScalar, cosine: cosineScalar, label: "generic/scalar"}
}
