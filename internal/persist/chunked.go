package persist

import "io"

// MinChunkSize is the default chunk size for snapshot reads and writes:
// 1 MiB. Larger chunk sizes are allowed; callers default to this.
const MinChunkSize = 1 << 20

// copyChunked copies src to dst in chunkSize pieces. When fewer than
// chunkSize bytes remain, it writes exactly what remains rather than
// padding or over-reading: a chunk_size larger than the remaining input
// degrades to the remaining input's size. Grounded on
// internal/index/hnsw/format.go's StreamChunkSize constant and
// persistence.go's chunked node-section writer, generalized into a
// standalone helper since this package serializes more section kinds than
// that single HNSW-only format.
func copyChunked(dst io.Writer, src []byte, chunkSize int) error {
	if chunkSize < 1 {
		chunkSize = MinChunkSize
	}
	for offset := 0; offset < len(src); offset += chunkSize {
		end := offset + chunkSize
		if end > len(src) {
			end = len(src)
		}
		if _, err := dst.Write(src[offset:end]); err != nil {
			return err
		}
	}
	return nil
}

// readChunked reads exactly n bytes from src in chunkSize pieces.
func readChunked(src io.Reader, n int, chunkSize int) ([]byte, error) {
	if chunkSize < 1 {
		chunkSize = MinChunkSize
	}
	out := make([]byte, n)
	for offset := 0; offset < n; offset += chunkSize {
		end := offset + chunkSize
		if end > n {
			end = n
		}
		if _, err := io.ReadFull(src, out[offset:end]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
