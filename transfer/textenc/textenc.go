// Package textenc converts raw byte sequences to and from the
// transport-safe text representation carried in chunk envelopes.
package textenc

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// encodeBlockSize is the number of raw bytes encoded per sub-block.
// Must stay a multiple of 3 so block outputs concatenate into a single
// valid base64 stream without intermediate padding.
const encodeBlockSize = 3 * 1024

const (
	dataURIPrefix = "data:"
	dataURIMarker = ";base64,"
)

// DecodingError reports text that could not be converted back to bytes.
type DecodingError struct {
	Reason string
	Err    error
}

func (e *DecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode text payload: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode text payload: %s", e.Reason)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// Encode converts raw bytes to base64 text. Large inputs are processed
// in fixed-size sub-blocks appended to a builder, which keeps peak
// allocations bounded instead of materializing intermediate strings for
// the whole payload at once.
func Encode(data []byte) string {
	if len(data) <= encodeBlockSize {
		return base64.StdEncoding.EncodeToString(data)
	}

	var sb strings.Builder
	sb.Grow(base64.StdEncoding.EncodedLen(len(data)))
	for start := 0; start < len(data); start += encodeBlockSize {
		end := start + encodeBlockSize
		if end > len(data) {
			end = len(data)
		}
		sb.WriteString(base64.StdEncoding.EncodeToString(data[start:end]))
	}
	return sb.String()
}

// Decode is the inverse of Encode. The text may carry a data URI header
// ("data:<media type>;base64,<payload>"), which is stripped before
// decoding. A declared header without the base64 marker, or text
// outside the base64 alphabet, yields a DecodingError.
func Decode(text string) ([]byte, error) {
	encoded := text
	if strings.HasPrefix(text, dataURIPrefix) {
		marker := strings.Index(text, dataURIMarker)
		if marker < 0 {
			return nil, &DecodingError{Reason: "data URI header without base64 marker"}
		}
		encoded = text[marker+len(dataURIMarker):]
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &DecodingError{Reason: "text is not valid base64", Err: err}
	}
	return raw, nil
}
