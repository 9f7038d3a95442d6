package reassembly

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/labstack/echo/v5"

	"github.com/voxlane/chunkstream/transfer/textenc"
	"github.com/voxlane/chunkstream/transfer/wire"
)

// Middleware returns an echo middleware that reassembles chunked
// transfers. Requests without a chunk envelope pass through untouched,
// so chunked and single-shot requests share one endpoint. Intermediate
// chunks are answered directly with an acknowledgment; once the final
// chunk arrives the terminal handler runs against the reassembled body.
func Middleware(store Store, logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
				return next(c)
			}

			body, err := io.ReadAll(req.Body)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "read request body")
			}

			var envelope wire.Envelope
			if err := json.Unmarshal(body, &envelope); err != nil || !envelope.Chunked {
				// Not part of a chunked transfer; hand the body back untouched.
				req.Body = io.NopCloser(bytes.NewReader(body))
				return next(c)
			}

			ctx := req.Context()

			data, err := textenc.Decode(envelope.ChunkData)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest,
					fmt.Sprintf("transfer %s chunk %d: %s", envelope.ChunkID, envelope.ChunkIndex, err))
			}

			received, err := store.Append(ctx, envelope.ChunkID, envelope.ChunkIndex, envelope.TotalChunks, data)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}

			if envelope.ChunkIndex < envelope.TotalChunks-1 {
				return c.JSON(http.StatusOK, wire.Ack{
					Status:   wire.AckStatusReceived,
					Received: received,
					Total:    envelope.TotalChunks,
				})
			}

			assembled, err := store.Assemble(ctx, envelope.ChunkID)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}

			logger.Debugf("Transfer %s reassembled from %d chunks, %d bytes", envelope.ChunkID, envelope.TotalChunks, len(assembled))

			req.Body = io.NopCloser(bytes.NewReader(assembled))
			req.ContentLength = int64(len(assembled))
			if envelope.IsBinary {
				req.Header.Set(echo.HeaderContentType, echo.MIMEOctetStream)
			}
			return next(c)
		}
	}
}
