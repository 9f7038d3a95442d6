package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/voxlane/chunkstream/transfer/wire"
)

type apiClient struct {
	httpClient  *retryablehttp.Client
	baseURL     string
	accessToken string
	logger      log.Logger
}

func newAPIClient(client *retryablehttp.Client, baseURL string, accessToken string, logger log.Logger) apiClient {
	return apiClient{
		httpClient:  client,
		baseURL:     baseURL,
		accessToken: accessToken,
		logger:      logger,
	}
}

// sendChunk performs one HTTP exchange and returns the response status
// and body. Non-success statuses are returned to the caller rather than
// turned into errors here; the sequencer owns failure semantics.
func (c apiClient) sendChunk(ctx context.Context, destination string, envelope wire.Envelope) (int, []byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, destination)

	body, err := json.Marshal(envelope)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal chunk envelope: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	req.Header.Set("Content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			c.logger.Printf(err.Error())
		}
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read chunk response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// errorDetail extracts a structured error message from a failure
// response body, falling back to the raw text.
func errorDetail(body []byte) string {
	var structured struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		if structured.Error != "" {
			return structured.Error
		}
		if structured.Message != "" {
			return structured.Message
		}
	}
	return string(bytes.TrimSpace(body))
}
