package reassembly

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/chunkstream/transfer"
	"github.com/voxlane/chunkstream/transfer/payload"
)

// startReceiver runs an echo server whose terminal handler echoes the
// reassembled body back together with the content type it saw.
func startReceiver(t *testing.T) *httptest.Server {
	t.Helper()

	e := echo.New()
	e.Use(Middleware(NewMemoryStore(), log.NewLogger()))
	e.POST("/:destination", func(c *echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "read request body")
		}
		sum := sha256.Sum256(body)
		return c.JSON(http.StatusOK, map[string]interface{}{
			"destination": c.Param("destination"),
			"bytes":       len(body),
			"sha256":      hex.EncodeToString(sum[:]),
			"body":        string(body),
			"contentType": c.Request().Header.Get(echo.HeaderContentType),
		})
	})

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server
}

func TestMiddlewareReassemblesBinaryTransfer(t *testing.T) {
	server := startReceiver(t)

	data := make([]byte, 2500)
	for i := range data {
		data[i] = byte(i % 251)
	}

	config := transfer.DefaultConfig()
	config.MaxChunkSizeBytes = 1000

	result, err := transfer.Send(context.Background(), transfer.SendParams{
		APIBaseURL:  server.URL,
		Token:       "test-token",
		Destination: "transcribe",
		Payload:     payload.Binary{Data: data, MIMEHint: "audio/wav"},
	}, config, log.NewLogger())
	require.NoError(t, err)

	var response struct {
		Destination string `json:"destination"`
		Bytes       int    `json:"bytes"`
		SHA256      string `json:"sha256"`
		ContentType string `json:"contentType"`
	}
	require.NoError(t, json.Unmarshal(result, &response))

	sum := sha256.Sum256(data)
	assert.Equal(t, "transcribe", response.Destination)
	assert.Equal(t, len(data), response.Bytes)
	assert.Equal(t, hex.EncodeToString(sum[:]), response.SHA256)
	assert.Equal(t, echo.MIMEOctetStream, response.ContentType)
}

func TestMiddlewareReassemblesStructuredTransfer(t *testing.T) {
	server := startReceiver(t)

	request := map[string]interface{}{"action": "list_jobs", "limit": 20}

	result, err := transfer.Send(context.Background(), transfer.SendParams{
		APIBaseURL:  server.URL,
		Token:       "test-token",
		Destination: "jobs",
		Payload:     payload.Structured{Value: request},
	}, transfer.DefaultConfig(), log.NewLogger())
	require.NoError(t, err)

	var response struct {
		Body        string `json:"body"`
		ContentType string `json:"contentType"`
	}
	require.NoError(t, json.Unmarshal(result, &response))

	expected, err := json.Marshal(request)
	require.NoError(t, err)
	assert.JSONEq(t, string(expected), response.Body)
	assert.Contains(t, response.ContentType, echo.MIMEApplicationJSON)
}

func TestMiddlewarePassesThroughUnchunkedRequests(t *testing.T) {
	server := startReceiver(t)

	body := `{"action":"ping"}`
	resp, err := http.Post(server.URL+"/status", echo.MIMEApplicationJSON, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response struct {
		Body string `json:"body"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.JSONEq(t, body, response.Body)
}

func TestMiddlewareRejectsUndecodableChunk(t *testing.T) {
	server := startReceiver(t)

	envelope := `{"chunked":true,"chunkId":"t-1","chunkIndex":0,"totalChunks":2,"chunkData":"!!!","isBinary":true}`
	resp, err := http.Post(server.URL+"/transcribe", echo.MIMEApplicationJSON, bytes.NewReader([]byte(envelope)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
