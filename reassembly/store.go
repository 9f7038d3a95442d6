// Package reassembly buffers chunked transfer envelopes on the
// receiver side and rebuilds the original payload once the final chunk
// of a transfer arrives.
package reassembly

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"
)

// Store buffers decoded chunk payloads by transfer ID until a transfer
// is complete.
type Store interface {
	// Append records one decoded chunk and returns how many chunks of
	// the transfer have been buffered so far.
	Append(ctx context.Context, transferID string, chunkIndex, totalChunks int, data []byte) (int, error)

	// Assemble concatenates all buffered chunks of a transfer in index
	// order and removes them from the store.
	Assemble(ctx context.Context, transferID string) ([]byte, error)

	// PruneStale drops partial transfers that have not seen a chunk for
	// longer than maxAge and returns how many were dropped. Senders
	// never signal an abort, so abandoned transfers are only ever
	// cleaned up here.
	PruneStale(ctx context.Context, maxAge time.Duration) (int, error)
}

func validateChunk(transferID string, chunkIndex, totalChunks int) error {
	if transferID == "" {
		return fmt.Errorf("empty transfer ID")
	}
	if totalChunks < 1 {
		return fmt.Errorf("transfer %s: totalChunks must be positive, got %d", transferID, totalChunks)
	}
	if chunkIndex < 0 || chunkIndex >= totalChunks {
		return fmt.Errorf("transfer %s: chunk index %d out of range [0, %d)", transferID, chunkIndex, totalChunks)
	}
	return nil
}

type partialTransfer struct {
	totalChunks int
	parts       map[int][]byte
	lastSeen    time.Time
}

// MemoryStore keeps partial transfers in process memory. Suitable for
// single-instance receivers; buffered chunks are lost on restart.
type MemoryStore struct {
	mu        sync.Mutex
	transfers map[string]*partialTransfer
}

// NewMemoryStore ...
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transfers: map[string]*partialTransfer{},
	}
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, transferID string, chunkIndex, totalChunks int, data []byte) (int, error) {
	if err := validateChunk(transferID, chunkIndex, totalChunks); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[transferID]
	if !ok {
		t = &partialTransfer{totalChunks: totalChunks, parts: map[int][]byte{}}
		s.transfers[transferID] = t
	}
	if t.totalChunks != totalChunks {
		return 0, fmt.Errorf("transfer %s: totalChunks changed from %d to %d", transferID, t.totalChunks, totalChunks)
	}

	t.parts[chunkIndex] = data
	t.lastSeen = time.Now()
	return len(t.parts), nil
}

// Assemble implements Store.
func (s *MemoryStore) Assemble(_ context.Context, transferID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[transferID]
	if !ok {
		return nil, fmt.Errorf("transfer %s: no buffered chunks", transferID)
	}
	if len(t.parts) != t.totalChunks {
		return nil, fmt.Errorf("transfer %s: only %d of %d chunks buffered", transferID, len(t.parts), t.totalChunks)
	}

	var buf bytes.Buffer
	for i := 0; i < t.totalChunks; i++ {
		part, ok := t.parts[i]
		if !ok {
			return nil, fmt.Errorf("transfer %s: chunk %d missing", transferID, i)
		}
		buf.Write(part)
	}

	delete(s.transfers, transferID)
	return buf.Bytes(), nil
}

// PruneStale implements Store.
func (s *MemoryStore) PruneStale(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, t := range s.transfers {
		if t.lastSeen.Before(cutoff) {
			delete(s.transfers, id)
			dropped++
		}
	}
	return dropped, nil
}
