package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
)

// Sealer turns a fully signed request into a sealed, tamper-evident
// document and returns that document's id.
type Sealer interface {
	Seal(ctx context.Context, req SealRequest) (SealResult, error)
}

type SealRequest struct {
	SignatureRequestID string       `json:"signature_request_id"`
	DocumentID         string       `json:"document_id"`
	Title              string       `json:"title,omitempty"`
	Signers            []SealSigner `json:"signers"`
}

type SealSigner struct {
	SignerID    string          `json:"signer_id"`
	Name        string          `json:"name,omitempty"`
	Email       string          `json:"email"`
	Page        int             `json:"page"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	Initials    bool            `json:"initials,omitempty"`
	DateMarker  bool            `json:"date_marker,omitempty"`
	Image       []byte          `json:"signature_image"`
	Certificate json.RawMessage `json:"certificate,omitempty"`
	SignedAt    time.Time       `json:"signed_at"`
	ClientIP    string          `json:"client_ip,omitempty"`
}

type SealResult struct {
	SealedDocumentID string `json:"sealed_document_id"`
}

// NewSealRequest projects a completed request onto the sealing payload.
func NewSealRequest(r *domain.SignatureRequest) SealRequest {
	out := SealRequest{
		SignatureRequestID: r.ID,
		DocumentID:         r.DocumentID,
		Title:              r.Title,
		Signers:            make([]SealSigner, 0, len(r.Signers)),
	}
	for _, s := range r.Signers {
		ss := SealSigner{
			SignerID:    s.ID,
			Name:        s.Name,
			Email:       s.Email,
			Page:        s.Placement.Page,
			X:           s.Placement.X,
			Y:           s.Placement.Y,
			Width:       s.Placement.Width,
			Height:      s.Placement.Height,
			Initials:    s.Placement.Initials,
			DateMarker:  s.Placement.DateMarker,
			Image:       s.SignatureImage,
			Certificate: s.Certificate,
			ClientIP:    s.ClientIP,
		}
		if s.SignedAt != nil {
			ss.SignedAt = *s.SignedAt
		}
		out.Signers = append(out.Signers, ss)
	}
	return out
}

// HTTPSealer calls POST {base}/seal on the sealing service.
type HTTPSealer struct {
	c client
}

func NewHTTPSealer(baseURL string, timeout time.Duration) *HTTPSealer {
	return &HTTPSealer{c: newClient(baseURL, timeout)}
}

func (s *HTTPSealer) Seal(ctx context.Context, req SealRequest) (SealResult, error) {
	body, err := marshal(req)
	if err != nil {
		return SealResult{}, err
	}

	// The request id doubles as the idempotency key so a retried job never
	// produces two sealed copies.
	data, err := s.c.post(ctx, "/seal", body, map[string]string{"Idempotency-Key": req.SignatureRequestID})
	if err != nil {
		return SealResult{}, err
	}

	var res SealResult
	if err := json.Unmarshal(data, &res); err != nil {
		return SealResult{}, fmt.Errorf("%w: decode seal response: %v", ErrUpstream, err)
	}
	if res.SealedDocumentID == "" {
		return SealResult{}, fmt.Errorf("%w: seal response has no sealed_document_id", ErrUpstream)
	}
	return res, nil
}

// NoopSealer stands in when no sealing service is configured: the sealed
// document id is derived from the request id.
type NoopSealer struct{}

func (NoopSealer) Seal(_ context.Context, req SealRequest) (SealResult, error) {
	return SealResult{SealedDocumentID: "unsealed-" + req.SignatureRequestID}, nil
}
