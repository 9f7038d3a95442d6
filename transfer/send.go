// Package transfer sends oversized payloads across a transport with a
// maximum request body size by splitting them into bounded, correlated,
// sequentially transmitted chunks and collecting the response to the
// reassembled request.
package transfer

import (
	"context"
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"

	"github.com/voxlane/chunkstream/transfer/payload"
)

// SendParams ...
type SendParams struct {
	// APIBaseURL is the front door base URL; Destination is appended to
	// it as the route of the receiving endpoint.
	APIBaseURL  string
	Token       string
	Destination string
	Payload     payload.Payload
}

// Send normalizes the payload and transfers it to the destination as a
// sequence of bounded-size chunks. The returned bytes are whatever the
// destination handler produced for the reassembled request, exactly as
// received. Any failure aborts the transfer; callers retry the whole
// transfer from scratch if they want another attempt.
func Send(ctx context.Context, params SendParams, config Config, logger log.Logger) ([]byte, error) {
	if params.APIBaseURL == "" {
		return nil, fmt.Errorf("API base URL is empty")
	}
	if params.Token == "" {
		return nil, fmt.Errorf("API token is empty")
	}
	if params.Destination == "" {
		return nil, fmt.Errorf("destination is empty")
	}

	data, isBinary, err := payload.Normalize(params.Payload)
	if err != nil {
		return nil, fmt.Errorf("normalize payload: %w", err)
	}

	retryableHTTPClient := retryhttp.NewClient(logger)
	// Each chunk is sent exactly once; the receiver cannot deduplicate
	// replayed envelopes, so transport-level retries stay off.
	retryableHTTPClient.RetryMax = 0
	client := newAPIClient(retryableHTTPClient, params.APIBaseURL, params.Token, logger)

	sequencer := newSequencer(client, config, logger)
	result, err := sequencer.Run(ctx, params.Destination, data, isBinary)
	if err != nil {
		return nil, fmt.Errorf("transfer %s: %w", sequencer.ChunkID(), err)
	}
	return result, nil
}
