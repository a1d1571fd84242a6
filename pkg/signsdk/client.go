package signsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Header names understood by the service.
const (
	HeaderGatewayKey     = "X-Gateway-Key"
	HeaderCompanyID      = "X-Company-ID"
	HeaderUserID         = "X-User-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// SDKClient calls the public, token-authenticated endpoints. Use BackOffice
// for the gateway-credentialed ones.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// UserAgent is sent on every request and recorded in signer audits.
	UserAgent string
}

// NewSDKClient creates a client with a 10 second timeout.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: "signsdk-go",
	}
}

// BackOffice is a client acting for one company user behind the edge.
type BackOffice struct {
	client  *SDKClient
	headers map[string]string
}

// BackOffice returns a client that presents the gateway credential and acts
// for companyID/userID.
func (c *SDKClient) BackOffice(gatewayKey, companyID, userID string) *BackOffice {
	return &BackOffice{
		client: c,
		headers: map[string]string{
			HeaderGatewayKey: gatewayKey,
			HeaderCompanyID:  companyID,
			HeaderUserID:     userID,
		},
	}
}

func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

func (c *SDKClient) doRequest(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for key, value := range headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a JSON response into target, or returns an *APIError
// when the status is not expectedStatus.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func call[T any](ctx context.Context, c *SDKClient, method, path string, body any, headers map[string]string, expected int) (*T, error) {
	resp, err := c.doRequest(ctx, method, path, body, headers)
	if err != nil {
		return nil, err
	}
	var out T
	if err := decodeJSON(resp, &out, expected); err != nil {
		return nil, err
	}
	return &out, nil
}
