package textenc

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	allBytes := make([]byte, 256)
	for i := range allBytes {
		allBytes[i] = byte(i)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: []byte{}},
		{name: "single byte", data: []byte{0x42}},
		{name: "short text", data: []byte("hello, transfer")},
		{name: "all byte values", data: allBytes},
		{name: "one below block boundary", data: patternBytes(3*1024 - 1)},
		{name: "exactly one block", data: patternBytes(3 * 1024)},
		{name: "one above block boundary", data: patternBytes(3*1024 + 1)},
		{name: "several blocks", data: patternBytes(100_000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(Encode(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.data, decoded)
		})
	}
}

func TestEncodeMatchesSingleShotEncoding(t *testing.T) {
	// Block-wise encoding must produce the same stream as encoding the
	// whole input at once.
	data := patternBytes(50_000)
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), Encode(data))
}

func TestDecodeStripsDataURIHeader(t *testing.T) {
	raw := []byte("RIFF....WAVEfmt")
	text := "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(raw)

	decoded, err := Decode(text)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "data URI header without marker", text: "data:audio/wav"},
		{name: "text outside base64 alphabet", text: "!!!not-base64!!!"},
		{name: "truncated base64", text: "QUJ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.text)
			require.Error(t, err)

			var decodingErr *DecodingError
			assert.True(t, errors.As(err, &decodingErr))
		})
	}
}

func patternBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 31)
	}
	return data
}
