package transfer

import "fmt"

// ChunkTransmissionError reports a failed HTTP exchange for one chunk.
// The whole transfer is abandoned when it occurs; nothing is retried.
type ChunkTransmissionError struct {
	ChunkIndex  int
	TotalChunks int
	StatusCode  int    // zero when the exchange never completed
	Detail      string // receiver-provided error detail, if any
	Err         error
}

func (e *ChunkTransmissionError) Error() string {
	msg := fmt.Sprintf("chunk %d of %d failed", e.ChunkIndex+1, e.TotalChunks)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s with HTTP %d", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *ChunkTransmissionError) Unwrap() error {
	return e.Err
}

// AcknowledgmentError reports an intermediate chunk response that did
// not carry the expected received marker. Body holds the raw response
// for diagnosis.
type AcknowledgmentError struct {
	ChunkIndex  int
	TotalChunks int
	Body        string
}

func (e *AcknowledgmentError) Error() string {
	return fmt.Sprintf("chunk %d of %d was not acknowledged, receiver replied: %s", e.ChunkIndex+1, e.TotalChunks, e.Body)
}

// IncompleteTransferError reports a send loop that finished without
// producing a final response. The loop invariants make this
// unreachable; it exists so that path surfaces as a reported condition
// instead of a nil result.
type IncompleteTransferError struct {
	TotalChunks int
}

func (e *IncompleteTransferError) Error() string {
	return fmt.Sprintf("transfer ended after %d chunks without a final response", e.TotalChunks)
}
