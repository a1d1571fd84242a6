package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/idx"
	"github.com/aussiebroadwan/quill/pkg/slogx"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// RequestService serves the back-office side: authoring and inspecting
// signature requests on behalf of a company.
type RequestService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *RequestService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return utcNow()
}

// Create validates the slots, persists the new request and returns it with
// the raw signer tokens. The tokens are never retrievable again.
func (s *RequestService) Create(ctx context.Context, in domain.CreateRequestInput) (*domain.SignatureRequest, []domain.IssuedToken, error) {
	req, tokens, err := domain.NewSignatureRequest(in, s.now())
	if err != nil {
		return nil, nil, err
	}

	if err := s.Store.SignatureRequests().Create(ctx, req); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, nil, fmt.Errorf("%w: signature request collides with an existing one", domain.ErrInvalidInput)
		}
		return nil, nil, err
	}

	slogx.FromContext(ctx).Info("signature request created",
		"signature_request_id", req.ID,
		"document_id", req.DocumentID,
		"company_id", req.CompanyID,
		"signers", len(req.Signers),
	)
	return req, tokens, nil
}

// List pages through a company's requests, newest first.
func (s *RequestService) List(ctx context.Context, f store.ListFilter) ([]domain.SignatureRequest, int, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultPageSize
	case f.Limit > MaxPageSize:
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Status != "" && f.Status != domain.RequestPending && f.Status != domain.RequestCompleted {
		var v domain.ValidationError
		v.Add("status", "must be pending or completed")
		return nil, 0, v.Err()
	}
	return s.Store.SignatureRequests().List(ctx, f)
}

// Get loads one request. A request owned by another company is reported as
// not found.
func (s *RequestService) Get(ctx context.Context, companyID, id string) (*domain.SignatureRequest, error) {
	id, err := idx.ParseEntity(id)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}

	req, err := s.Store.SignatureRequests().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if companyID != "" && req.CompanyID != companyID {
		return nil, domain.ErrRequestNotFound
	}
	return req, nil
}
