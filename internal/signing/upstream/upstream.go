// Package upstream holds the clients for services the signing flow hands
// work to once a request completes: the document sealing service and the
// notification bus.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUpstream wraps every failure talking to a downstream service. Callers
// treat it as retryable.
var ErrUpstream = errors.New("upstream: request failed")

const maxErrorBody = 4 << 10

type client struct {
	baseURL    string
	httpClient *http.Client
}

func newClient(baseURL string, timeout time.Duration) client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// post sends body to path and returns the response body of a 2xx reply.
func (c client) post(ctx context.Context, path string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrUpstream, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	return data, nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return data, nil
}
