package http

import (
	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/pkg/signsdk"
)

func toBox(b domain.BoxTemplate) signsdk.BoxTemplate {
	return signsdk.BoxTemplate{
		Page:       b.Page,
		X:          b.X,
		Y:          b.Y,
		Width:      b.Width,
		Height:     b.Height,
		Initials:   b.Initials,
		DateMarker: b.DateMarker,
	}
}

func fromBox(b signsdk.BoxTemplate) domain.BoxTemplate {
	return domain.BoxTemplate{
		Page:       b.Page,
		X:          b.X,
		Y:          b.Y,
		Width:      b.Width,
		Height:     b.Height,
		Initials:   b.Initials,
		DateMarker: b.DateMarker,
	}
}

func toSigner(s *domain.Signer) signsdk.Signer {
	return signsdk.Signer{
		ID:              s.ID,
		CustomerID:      s.CustomerID,
		Email:           s.Email,
		Name:            s.Name,
		Order:           s.Order,
		Status:          string(s.Status),
		Placement:       toBox(s.Placement),
		ConsentAgreedAt: s.ConsentAgreedAt,
		SignedAt:        s.SignedAt,
		RejectedAt:      s.RejectedAt,
		RejectionReason: s.RejectionReason,
	}
}

func toSigners(req *domain.SignatureRequest) []signsdk.Signer {
	out := make([]signsdk.Signer, len(req.Signers))
	for i := range req.Signers {
		out[i] = toSigner(&req.Signers[i])
	}
	return out
}

func toRequest(req *domain.SignatureRequest) signsdk.SignatureRequest {
	return signsdk.SignatureRequest{
		ID:               req.ID,
		DocumentID:       req.DocumentID,
		Title:            req.Title,
		CompanyID:        req.CompanyID,
		CreatedBy:        req.CreatedBy,
		Status:           string(req.Status),
		Rejected:         req.Rejected(),
		Version:          req.Version,
		SealedDocumentID: req.SealedDocumentID,
		CompletedAt:      req.CompletedAt,
		SealedAt:         req.SealedAt,
		CreatedAt:        req.CreatedAt,
		UpdatedAt:        req.UpdatedAt,
		Signers:          toSigners(req),
	}
}

func toCredentials(c domain.PreviewCredentials) signsdk.PreviewCredentials {
	return signsdk.PreviewCredentials{
		GrantID:        c.GrantID,
		AccessToken:    c.AccessToken,
		SessionID:      c.SessionID,
		Fingerprint:    c.Fingerprint,
		ExpiresAt:      c.ExpiresAt,
		MaxAccessCount: c.MaxAccessCount,
	}
}
