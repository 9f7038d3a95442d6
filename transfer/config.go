package transfer

import (
	"time"

	"github.com/voxlane/chunkstream/transfer/chunker"
)

const (
	defaultPacingEveryChunks = 10
	defaultPacingDelay       = 500 * time.Millisecond
)

// Config tunes a transfer. The zero value selects all defaults.
type Config struct {
	// MaxChunkSizeBytes is the raw (pre-encoding) chunk size. Values
	// outside (0, chunker.MaxChunkSizeBytes] are clamped.
	MaxChunkSizeBytes int

	// PacingEveryChunks inserts PacingDelay after this many chunks when
	// the transfer is larger than PacingEveryChunks chunks.
	// Default: 10
	PacingEveryChunks int

	// PacingDelay is the pause applied by PacingEveryChunks. Advisory
	// backpressure only; the receiver has no flow control.
	// Default: 500ms
	PacingDelay time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxChunkSizeBytes: chunker.DefaultChunkSizeBytes,
		PacingEveryChunks: defaultPacingEveryChunks,
		PacingDelay:       defaultPacingDelay,
	}
}

func (c Config) withDefaults() Config {
	c.MaxChunkSizeBytes = chunker.ClampChunkSize(c.MaxChunkSizeBytes)
	if c.PacingEveryChunks <= 0 {
		c.PacingEveryChunks = defaultPacingEveryChunks
	}
	if c.PacingDelay <= 0 {
		c.PacingDelay = defaultPacingDelay
	}
	return c
}
