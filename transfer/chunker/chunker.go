// Package chunker partitions a payload into bounded-size slices.
package chunker

const (
	// DefaultChunkSizeBytes is the server-agreed raw chunk size used when
	// the caller does not configure one.
	DefaultChunkSizeBytes = 250_000

	// MaxChunkSizeBytes caps configured chunk sizes. Raw chunks grow by
	// 4/3 when text-encoded and gain envelope overhead on top, so this
	// ceiling keeps the final request body under a 1 MB front door limit.
	MaxChunkSizeBytes = 750_000
)

// ClampChunkSize returns size constrained to (0, MaxChunkSizeBytes],
// substituting the default for absent or non-positive values.
func ClampChunkSize(size int) int {
	if size <= 0 {
		return DefaultChunkSizeBytes
	}
	if size > MaxChunkSizeBytes {
		return MaxChunkSizeBytes
	}
	return size
}

// Count returns the number of chunks a payload of the given length
// splits into. A transfer always contains at least one chunk, so the
// receiver sees a terminal envelope even for an empty payload.
func Count(length, chunkSize int) int {
	if length <= 0 {
		return 1
	}
	return (length + chunkSize - 1) / chunkSize
}

// Split divides data into Count(len(data), chunkSize) ordered slices.
// The returned slices are views into data, not copies. The last slice
// may be shorter than chunkSize; a zero-length input yields a single
// empty chunk.
func Split(data []byte, chunkSize int) [][]byte {
	count := Count(len(data), chunkSize)
	chunks := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if start > len(data) {
			start = len(data)
		}
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}
	return chunks
}
