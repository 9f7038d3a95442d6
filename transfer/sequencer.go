package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"github.com/segmentio/ksuid"

	"github.com/voxlane/chunkstream/transfer/chunker"
	"github.com/voxlane/chunkstream/transfer/textenc"
	"github.com/voxlane/chunkstream/transfer/wire"
)

// Sequencer drives one chunked transfer. Each instance owns all of its
// mutable state, so independent transfers can run concurrently without
// any cross-transfer coordination.
type Sequencer struct {
	client  apiClient
	config  Config
	logger  log.Logger
	chunkID string
}

func newSequencer(client apiClient, config Config, logger log.Logger) *Sequencer {
	return &Sequencer{
		client: client,
		config: config.withDefaults(),
		logger: logger,
		// A ksuid carries a timestamp plus 128 bits of entropy, so IDs
		// minted by independent callers cannot collide in practice.
		chunkID: ksuid.New().String(),
	}
}

// ChunkID returns the correlation identifier shared by every envelope
// of this transfer.
func (s *Sequencer) ChunkID() string {
	return s.chunkID
}

// Run splits data into chunks and sends them strictly in index order,
// waiting for each response before the next chunk goes out. Every
// response but the last must be a chunk_received acknowledgment; the
// final chunk's response body is returned verbatim.
func (s *Sequencer) Run(ctx context.Context, destination string, data []byte, isBinary bool) ([]byte, error) {
	chunks := chunker.Split(data, s.config.MaxChunkSizeBytes)
	totalChunks := len(chunks)

	s.logger.Debugf("Transfer %s to %s: %s in %d chunks",
		s.chunkID, destination, units.BytesSize(float64(len(data))), totalChunks)

	for chunkIndex, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("transfer cancelled before chunk %d of %d: %w", chunkIndex+1, totalChunks, err)
		}

		envelope := wire.Envelope{
			Chunked:     true,
			ChunkID:     s.chunkID,
			ChunkIndex:  chunkIndex,
			TotalChunks: totalChunks,
			ChunkData:   textenc.Encode(chunk),
			IsBinary:    isBinary,
		}

		status, body, err := s.client.sendChunk(ctx, destination, envelope)
		if err != nil {
			return nil, &ChunkTransmissionError{ChunkIndex: chunkIndex, TotalChunks: totalChunks, Err: err}
		}
		if status < 200 || status >= 300 {
			return nil, &ChunkTransmissionError{
				ChunkIndex:  chunkIndex,
				TotalChunks: totalChunks,
				StatusCode:  status,
				Detail:      errorDetail(body),
			}
		}

		if chunkIndex == totalChunks-1 {
			// The response to the terminal chunk is the transfer result,
			// passed through without interpretation.
			return body, nil
		}

		var ack wire.Ack
		if err := json.Unmarshal(body, &ack); err != nil || ack.Status != wire.AckStatusReceived {
			return nil, &AcknowledgmentError{ChunkIndex: chunkIndex, TotalChunks: totalChunks, Body: string(body)}
		}
		s.logger.Debugf("Chunk %d of %d acknowledged, receiver buffered %d of %d",
			chunkIndex+1, totalChunks, ack.Received, ack.Total)

		if err := s.pace(ctx, chunkIndex, totalChunks); err != nil {
			return nil, err
		}
	}

	return nil, &IncompleteTransferError{TotalChunks: totalChunks}
}

// pace pauses after every PacingEveryChunks chunks on large transfers
// so a burst of envelopes does not saturate the receiver.
func (s *Sequencer) pace(ctx context.Context, chunkIndex, totalChunks int) error {
	if totalChunks <= s.config.PacingEveryChunks {
		return nil
	}
	if (chunkIndex+1)%s.config.PacingEveryChunks != 0 {
		return nil
	}

	timer := time.NewTimer(s.config.PacingDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("transfer cancelled while pacing after chunk %d of %d: %w", chunkIndex+1, totalChunks, ctx.Err())
	case <-timer.C:
		return nil
	}
}
