package transfer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/voxlane/chunkstream/transfer/wire"
)

// fakeReceiver implements the receiver side of the protocol for tests:
// it records every envelope, acknowledges intermediate chunks and
// answers the terminal chunk with a fixed body.
type fakeReceiver struct {
	mu        sync.Mutex
	envelopes []wire.Envelope
	headers   []http.Header

	finalResponse []byte

	// failAtIndex returns failStatus with a structured error body for
	// the envelope at that index. -1 disables.
	failAtIndex int
	failStatus  int

	// badAckAtIndex answers the envelope at that index with HTTP 200 but
	// a body that is not a chunk_received acknowledgment. -1 disables.
	badAckAtIndex int
}

func newFakeReceiver(finalResponse []byte) *fakeReceiver {
	return &fakeReceiver{
		finalResponse: finalResponse,
		failAtIndex:   -1,
		failStatus:    http.StatusInternalServerError,
		badAckAtIndex: -1,
	}
}

func (r *fakeReceiver) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var envelope wire.Envelope
		if err := json.NewDecoder(req.Body).Decode(&envelope); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		r.mu.Lock()
		r.envelopes = append(r.envelopes, envelope)
		r.headers = append(r.headers, req.Header.Clone())
		r.mu.Unlock()

		switch {
		case envelope.ChunkIndex == r.failAtIndex:
			w.WriteHeader(r.failStatus)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "receiver exploded"})
		case envelope.ChunkIndex == r.badAckAtIndex:
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "uploaded"})
		case envelope.ChunkIndex == envelope.TotalChunks-1:
			_, _ = w.Write(r.finalResponse)
		default:
			_ = json.NewEncoder(w).Encode(wire.Ack{
				Status:   wire.AckStatusReceived,
				Received: envelope.ChunkIndex + 1,
				Total:    envelope.TotalChunks,
			})
		}
	}))
}

func (r *fakeReceiver) recorded() []wire.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]wire.Envelope(nil), r.envelopes...)
}

func (r *fakeReceiver) recordedHeaders() []http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]http.Header(nil), r.headers...)
}
