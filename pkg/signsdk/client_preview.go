package signsdk

import (
	"context"
	"net/http"
	"net/url"
)

// PreviewAvailable polls whether a signer's preview is ready. It never
// consumes an access.
func (c *SDKClient) PreviewAvailable(ctx context.Context, signerID string) (*PreviewAvailability, error) {
	return call[PreviewAvailability](ctx, c, http.MethodGet, "/preview/available/"+url.PathEscape(signerID), nil, nil, http.StatusOK)
}

func sessionQuery(accessToken, sessionID string) string {
	q := url.Values{}
	q.Set("access_token", accessToken)
	q.Set("session_id", sessionID)
	return "?" + q.Encode()
}

func (c *SDKClient) PreviewInfo(ctx context.Context, accessToken, sessionID string) (*PreviewInfo, error) {
	return call[PreviewInfo](ctx, c, http.MethodGet, "/preview/info"+sessionQuery(accessToken, sessionID), nil, nil, http.StatusOK)
}

func (c *SDKClient) PreviewStatus(ctx context.Context, accessToken, sessionID string) (*PreviewStatus, error) {
	return call[PreviewStatus](ctx, c, http.MethodGet, "/preview/status"+sessionQuery(accessToken, sessionID), nil, nil, http.StatusOK)
}

// AccessPreview redeems one view.
func (c *SDKClient) AccessPreview(ctx context.Context, req PreviewAccessRequest) (*PreviewAccessResponse, error) {
	return call[PreviewAccessResponse](ctx, c, http.MethodPost, "/preview/access", req, nil, http.StatusOK)
}

func (c *SDKClient) JWKS(ctx context.Context) (*JWKSResponse, error) {
	return call[JWKSResponse](ctx, c, http.MethodGet, "/.well-known/jwks.json", nil, nil, http.StatusOK)
}

func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return call[HealthResponse](ctx, c, http.MethodGet, "/livez", nil, nil, http.StatusOK)
}

func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return call[HealthResponse](ctx, c, http.MethodGet, "/readyz", nil, nil, http.StatusOK)
}
