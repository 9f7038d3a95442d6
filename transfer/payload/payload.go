// Package payload normalizes a logical request into the single byte
// sequence a chunked transfer carries.
package payload

import (
	"encoding/json"
	"fmt"

	"github.com/voxlane/chunkstream/transfer/textenc"
)

// BinaryField is the request field FromRequest reads in binary mode.
const BinaryField = "audioData"

// Payload is the closed set of request shapes a transfer accepts.
type Payload interface {
	isPayload()
}

// Binary is a raw byte payload, e.g. recorded audio. MIMEHint is
// advisory and never inspected by the transfer itself.
type Binary struct {
	Data     []byte
	MIMEHint string
}

// Structured is an arbitrary request object serialized as JSON.
type Structured struct {
	Value interface{}
}

func (Binary) isPayload()     {}
func (Structured) isPayload() {}

// UnsupportedPayloadError reports a request that could not be framed
// for transfer.
type UnsupportedPayloadError struct {
	Reason string
}

func (e *UnsupportedPayloadError) Error() string {
	return fmt.Sprintf("unsupported payload: %s", e.Reason)
}

// Normalize produces the canonical byte sequence for p and reports
// whether it is raw binary content. The result is created once per
// transfer and never mutated afterwards.
func Normalize(p Payload) ([]byte, bool, error) {
	switch v := p.(type) {
	case Binary:
		return v.Data, true, nil
	case Structured:
		data, err := json.Marshal(v.Value)
		if err != nil {
			return nil, false, fmt.Errorf("serialize structured payload: %w", err)
		}
		return data, false, nil
	case nil:
		return nil, false, &UnsupportedPayloadError{Reason: "nil payload"}
	default:
		return nil, false, &UnsupportedPayloadError{Reason: fmt.Sprintf("unknown payload variant %T", p)}
	}
}

// FromRequest adapts a loosely structured request object into a
// Payload. When binary is true, the BinaryField entry must hold the
// text-encoded content (bare base64 or a full data URI); otherwise the
// whole object is treated as a structured document.
func FromRequest(fields map[string]interface{}, binary bool) (Payload, error) {
	if !binary {
		return Structured{Value: fields}, nil
	}

	raw, ok := fields[BinaryField]
	if !ok {
		return nil, &UnsupportedPayloadError{Reason: fmt.Sprintf("binary transfer without %q field", BinaryField)}
	}
	text, ok := raw.(string)
	if !ok {
		return nil, &UnsupportedPayloadError{Reason: fmt.Sprintf("%q field is %T, expected text-encoded content", BinaryField, raw)}
	}

	data, err := textenc.Decode(text)
	if err != nil {
		return nil, &UnsupportedPayloadError{Reason: fmt.Sprintf("%q field is not decodable: %s", BinaryField, err)}
	}

	mimeHint := ""
	if hint, ok := fields["mimeType"].(string); ok {
		mimeHint = hint
	}
	return Binary{Data: data, MIMEHint: mimeHint}, nil
}
