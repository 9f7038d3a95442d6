// Package wire defines the JSON shapes exchanged during a chunked
// transfer. Both the sending sequencer and the receiving reassembler
// use these types.
package wire

// AckStatusReceived is the status an intermediate chunk acknowledgment
// must carry for the transfer to continue.
const AckStatusReceived = "chunk_received"

// Envelope is the wire-level wrapper around one chunk. Every envelope
// of a transfer carries the same ChunkID and TotalChunks; decoding and
// concatenating ChunkData in ChunkIndex order reproduces the original
// payload exactly.
type Envelope struct {
	Chunked     bool   `json:"chunked"`
	ChunkID     string `json:"chunkId"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	ChunkData   string `json:"chunkData"`
	IsBinary    bool   `json:"isBinary"`
}

// Ack acknowledges one intermediate chunk.
type Ack struct {
	Status   string `json:"status"`
	Received int    `json:"received"`
	Total    int    `json:"total"`
}
