package signsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Summary resolves a capability token to the signer's view of the request.
func (c *SDKClient) Summary(ctx context.Context, token string) (*SignerSummary, error) {
	return call[SignerSummary](ctx, c, http.MethodGet, "/signature-requests/"+url.PathEscape(token), nil, nil, http.StatusOK)
}

// Layout returns where the signer's signature goes.
func (c *SDKClient) Layout(ctx context.Context, token string) (*LayoutResponse, error) {
	return call[LayoutResponse](ctx, c, http.MethodGet, "/signature-requests/layout/"+url.PathEscape(token), nil, nil, http.StatusOK)
}

// Consent registers the signer's agreement to sign electronically.
func (c *SDKClient) Consent(ctx context.Context, token string) (*ConsentResponse, error) {
	return call[ConsentResponse](ctx, c, http.MethodPost, "/signature-requests/consent", TokenRequest{Token: token}, nil, http.StatusOK)
}

// Submit signs. When the submission completes the request and sealing
// finishes in time, the response carries this signer's preview credentials.
func (c *SDKClient) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	return call[SubmitResponse](ctx, c, http.MethodPost, "/signature-requests/submit", req, nil, http.StatusOK)
}

// Reject declines to sign, which ends the request for everyone.
func (c *SDKClient) Reject(ctx context.Context, token, reason string) (*RejectResponse, error) {
	return call[RejectResponse](ctx, c, http.MethodPost, "/signature-requests/reject", RejectRequest{Token: token, Reason: reason}, nil, http.StatusOK)
}
