package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_errorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "structured error field",
			body: `{"error":"payload too large"}`,
			want: "payload too large",
		},
		{
			name: "structured message field",
			body: `{"message":"unknown destination"}`,
			want: "unknown destination",
		},
		{
			name: "error field wins over message",
			body: `{"error":"boom","message":"ignored"}`,
			want: "boom",
		},
		{
			name: "plain text body",
			body: "internal server error",
			want: "internal server error",
		},
		{
			name: "whitespace is trimmed",
			body: "  gateway timeout \n",
			want: "gateway timeout",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorDetail([]byte(tt.body)))
		})
	}
}
