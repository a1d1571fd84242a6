package signsdk

import (
	"context"
	"maps"
	"net/http"
	"net/url"
	"strconv"
)

// CreateSignatureRequest creates a request. A non-empty idempotencyKey makes
// retries return the original response instead of creating a duplicate.
func (b *BackOffice) CreateSignatureRequest(ctx context.Context, req CreateSignatureRequestRequest, idempotencyKey string) (*CreateSignatureRequestResponse, error) {
	headers := maps.Clone(b.headers)
	headers[HeaderIdempotencyKey] = idempotencyKey
	return call[CreateSignatureRequestResponse](ctx, b.client, http.MethodPost, "/signature-requests", req, headers, http.StatusCreated)
}

type ListOptions struct {
	Status string
	Limit  int
	Offset int
}

func (b *BackOffice) ListSignatureRequests(ctx context.Context, opts ListOptions) (*ListSignatureRequestsResponse, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	path := "/signature-requests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return call[ListSignatureRequestsResponse](ctx, b.client, http.MethodGet, path, nil, b.headers, http.StatusOK)
}

func (b *BackOffice) GetSignatureRequest(ctx context.Context, id string) (*SignatureRequest, error) {
	return call[SignatureRequest](ctx, b.client, http.MethodGet, "/signature-requests/"+url.PathEscape(id), nil, b.headers, http.StatusOK)
}

func (b *BackOffice) ListSigners(ctx context.Context, id string) (*ListSignersResponse, error) {
	return call[ListSignersResponse](ctx, b.client, http.MethodGet, "/signature-requests/"+url.PathEscape(id)+"/signers", nil, b.headers, http.StatusOK)
}

// ReissuePreview rotates a signer's preview credentials. The old ones stop
// working; the access count and expiry carry over.
func (b *BackOffice) ReissuePreview(ctx context.Context, signerID string) (*PreviewCredentials, error) {
	return call[PreviewCredentials](ctx, b.client, http.MethodPost, "/preview/reissue", ReissuePreviewRequest{SignerID: signerID}, b.headers, http.StatusOK)
}

// InvalidateGrant deactivates a preview grant by grant id or signer id.
func (b *BackOffice) InvalidateGrant(ctx context.Context, req InvalidateGrantRequest) (*InvalidateGrantResponse, error) {
	return call[InvalidateGrantResponse](ctx, b.client, http.MethodPost, "/preview/invalidate", req, b.headers, http.StatusOK)
}
