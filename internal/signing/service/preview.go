package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/internal/signing/telemetry"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/idx"
	"github.com/aussiebroadwan/quill/pkg/slogx"
	"github.com/aussiebroadwan/quill/pkg/viewticket"
)

// PreviewService manages the grants that let signers view the sealed
// document. Every public denial is the same ErrAccessDenied; the precise
// reason only reaches the log.
type PreviewService struct {
	Store      store.Store
	Tickets    *viewticket.Issuer
	Metrics    *telemetry.Metrics
	TTL        time.Duration
	MaxAccess  int
	MaxRetries int
	Now        func() time.Time
}

func (s *PreviewService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return utcNow()
}

func (s *PreviewService) onRetry() { s.Metrics.ConflictRetry("preview_grant") }

type Availability struct {
	Available bool
	ExpiresAt *time.Time
}

type GrantInfo struct {
	GrantID            string
	SignatureRequestID string
	SignerID           string
	SealedDocumentID   string
	ExpiresAt          time.Time
	Active             bool
	AccessCount        int
	MaxAccessCount     int
	RemainingAccesses  int
	LastAccessedAt     *time.Time
}

type GrantStatus struct {
	CanAccess         bool
	ExpiresAt         time.Time
	RemainingAccesses int
}

type AccessInput struct {
	AccessToken string
	SessionID   string
	Fingerprint string
	ClientIP    string
	UserAgent   string
}

type AccessResult struct {
	GrantID           string
	SealedDocumentID  string
	AccessCount       int
	RemainingAccesses int
	ViewTicket        string
	TicketExpiresAt   time.Time
}

type InvalidateInput struct {
	GrantID  string
	SignerID string
}

// issueAll creates or rotates one grant per signed signer of a sealed
// request. It runs inside the sealing transaction.
func (s *PreviewService) issueAll(ctx context.Context, grants store.PreviewGrants, req *domain.SignatureRequest, now time.Time) (map[string]domain.PreviewCredentials, error) {
	if !req.Sealed() {
		return nil, domain.ErrNotSealed
	}
	out := make(map[string]domain.PreviewCredentials, len(req.Signers))
	for i := range req.Signers {
		signer := &req.Signers[i]
		if signer.Status != domain.SignerSigned {
			continue
		}
		creds, err := s.issue(ctx, grants, req, signer, now)
		if err != nil {
			return nil, err
		}
		out[signer.ID] = creds
	}
	return out, nil
}

// issue is the single-signer form of issueAll: an existing grant is rotated,
// which invalidates its old credentials and resets the counter.
func (s *PreviewService) issue(ctx context.Context, grants store.PreviewGrants, req *domain.SignatureRequest, signer *domain.Signer, now time.Time) (domain.PreviewCredentials, error) {
	g, err := grants.GetBySignerID(ctx, signer.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		g, creds, err := domain.NewPreviewGrant(domain.IssueGrantInput{
			SignatureRequestID: req.ID,
			SignerID:           signer.ID,
			OriginalDocumentID: req.DocumentID,
			SealedDocumentID:   req.SealedDocumentID,
			TTL:                s.TTL,
			MaxAccessCount:     s.MaxAccess,
		}, now)
		if err != nil {
			return domain.PreviewCredentials{}, err
		}
		if err := grants.Create(ctx, g); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.PreviewCredentials{}, store.ErrVersionConflict
			}
			return domain.PreviewCredentials{}, err
		}
		return creds, nil
	case err != nil:
		return domain.PreviewCredentials{}, err
	}

	expected := g.Version
	creds, err := g.Rotate(req.SealedDocumentID, s.TTL, s.MaxAccess, now)
	if err != nil {
		return domain.PreviewCredentials{}, err
	}
	if err := grants.Update(ctx, g, expected); err != nil {
		return domain.PreviewCredentials{}, err
	}
	return creds, nil
}

// Available reports whether the signer has a grant that can be redeemed
// right now. It never consumes an access.
func (s *PreviewService) Available(ctx context.Context, signerID string) (Availability, error) {
	signerID, err := idx.ParseEntity(signerID)
	if err != nil {
		return Availability{}, nil
	}
	g, err := s.Store.PreviewGrants().GetBySignerID(ctx, signerID)
	if errors.Is(err, store.ErrNotFound) {
		return Availability{}, nil
	}
	if err != nil {
		return Availability{}, err
	}
	if !g.CanAccess(s.now()) {
		return Availability{}, nil
	}
	exp := g.ExpiresAt
	return Availability{Available: true, ExpiresAt: &exp}, nil
}

// lookupSession loads the grant for an access token and checks the session
// id against it.
func (s *PreviewService) lookupSession(ctx context.Context, accessToken, sessionID string) (*domain.PreviewGrant, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, domain.ErrAccessDenied
	}
	g, err := s.Store.PreviewGrants().GetByAccessTokenHash(ctx, cryptox.FingerprintToken(accessToken))
	if errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Info("preview denied", "reason", "unknown_token")
		return nil, domain.ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	if !g.MatchesSession(accessToken, sessionID) {
		slogx.FromContext(ctx).Info("preview denied", "reason", "credential_mismatch", "grant_id", g.ID)
		return nil, domain.ErrAccessDenied
	}
	return g, nil
}

// Info returns grant metadata to a holder of the token and session pair.
func (s *PreviewService) Info(ctx context.Context, accessToken, sessionID string) (GrantInfo, error) {
	g, err := s.lookupSession(ctx, accessToken, sessionID)
	if err != nil {
		return GrantInfo{}, err
	}
	return GrantInfo{
		GrantID:            g.ID,
		SignatureRequestID: g.SignatureRequestID,
		SignerID:           g.SignerID,
		SealedDocumentID:   g.SealedDocumentID,
		ExpiresAt:          g.ExpiresAt,
		Active:             g.IsActive,
		AccessCount:        g.AccessCount,
		MaxAccessCount:     g.MaxAccessCount,
		RemainingAccesses:  g.RemainingAccesses(),
		LastAccessedAt:     g.LastAccessedAt,
	}, nil
}

// Status validates the pair without recording an access.
func (s *PreviewService) Status(ctx context.Context, accessToken, sessionID string) (GrantStatus, error) {
	g, err := s.lookupSession(ctx, accessToken, sessionID)
	if err != nil {
		return GrantStatus{}, err
	}
	now := s.now()
	st := GrantStatus{CanAccess: g.CanAccess(now), ExpiresAt: g.ExpiresAt}
	if st.CanAccess {
		st.RemainingAccesses = g.RemainingAccesses()
	}
	return st, nil
}

// Access validates all three credentials and records one access. The count
// is a compare-and-set on the grant version, so concurrent redemptions can
// never exceed the maximum.
func (s *PreviewService) Access(ctx context.Context, in AccessInput) (*AccessResult, error) {
	var g *domain.PreviewGrant
	l := slogx.FromContext(ctx)

	err := retryOnConflict(ctx, s.MaxRetries, s.onRetry, func(int) error {
		token := strings.TrimSpace(in.AccessToken)
		if token == "" {
			return domain.ErrAccessDenied
		}
		cur, err := s.Store.PreviewGrants().GetByAccessTokenHash(ctx, cryptox.FingerprintToken(token))
		if errors.Is(err, store.ErrNotFound) {
			l.Info("preview denied", "reason", "unknown_token")
			return domain.ErrAccessDenied
		}
		if err != nil {
			return err
		}

		now := s.now()
		if err := cur.Validate(token, in.SessionID, in.Fingerprint, now); err != nil {
			reason := cur.DenialReason(now)
			if reason == "" {
				reason = "credential_mismatch"
			}
			l.Info("preview denied", "reason", reason, "grant_id", cur.ID)
			return err
		}

		expected := cur.Version
		if err := cur.RecordAccess(in.ClientIP, in.UserAgent, now); err != nil {
			return err
		}
		if err := s.Store.PreviewGrants().Update(ctx, cur, expected); err != nil {
			return err
		}
		g = cur
		return nil
	})

	s.Metrics.PreviewAccess(outcome(err))
	if err != nil {
		return nil, err
	}

	res := &AccessResult{
		GrantID:           g.ID,
		SealedDocumentID:  g.SealedDocumentID,
		AccessCount:       g.AccessCount,
		RemainingAccesses: g.RemainingAccesses(),
	}
	if s.Tickets != nil {
		raw, exp, err := s.Tickets.Issue(viewticket.Ticket{
			SignerID:           g.SignerID,
			SignatureRequestID: g.SignatureRequestID,
			SealedDocumentID:   g.SealedDocumentID,
			GrantID:            g.ID,
			Access:             g.AccessCount,
		})
		if err != nil {
			return nil, fmt.Errorf("issue view ticket: %w", err)
		}
		res.ViewTicket, res.TicketExpiresAt = raw, exp
	}

	l.Info("preview access recorded",
		"grant_id", g.ID,
		"access_count", g.AccessCount,
		"remaining", res.RemainingAccesses,
	)
	return res, nil
}

// Reissue rotates the credentials of a signer's grant, for when the original
// delivery was lost. Only the secrets change: the grant keeps its access
// count and expiry, and invalidated or exhausted grants stay that way.
func (s *PreviewService) Reissue(ctx context.Context, signerID string) (domain.PreviewCredentials, error) {
	if _, err := idx.ParseEntity(signerID); err != nil {
		var v domain.ValidationError
		v.Add("signer_id", "must be a signer id")
		return domain.PreviewCredentials{}, v.Err()
	}

	var creds domain.PreviewCredentials
	err := retryOnConflict(ctx, s.MaxRetries, s.onRetry, func(int) error {
		g, err := s.Store.PreviewGrants().GetBySignerID(ctx, signerID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrGrantNotFound
		}
		if err != nil {
			return err
		}

		expected := g.Version
		creds, err = g.RotateCredentials(s.now())
		if err != nil {
			return err
		}
		return s.Store.PreviewGrants().Update(ctx, g, expected)
	})
	if err != nil {
		return domain.PreviewCredentials{}, err
	}

	slogx.FromContext(ctx).Info("preview grant reissued", "grant_id", creds.GrantID, "signer_id", signerID)
	return creds, nil
}

// Invalidate deactivates a grant by id or by signer id.
func (s *PreviewService) Invalidate(ctx context.Context, in InvalidateInput) (*domain.PreviewGrant, error) {
	if (in.GrantID == "") == (in.SignerID == "") {
		var v domain.ValidationError
		v.Add("grant_id", "exactly one of grant_id or signer_id is required")
		return nil, v.Err()
	}

	var g *domain.PreviewGrant
	err := retryOnConflict(ctx, s.MaxRetries, s.onRetry, func(int) error {
		var (
			cur *domain.PreviewGrant
			err error
		)
		if in.GrantID != "" {
			cur, err = s.Store.PreviewGrants().Get(ctx, in.GrantID)
		} else {
			cur, err = s.Store.PreviewGrants().GetBySignerID(ctx, in.SignerID)
		}
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrGrantNotFound
		}
		if err != nil {
			return err
		}

		expected := cur.Version
		cur.Invalidate(s.now())
		if err := s.Store.PreviewGrants().Update(ctx, cur, expected); err != nil {
			return err
		}
		g = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("preview grant invalidated", "grant_id", g.ID, "signer_id", g.SignerID)
	return g, nil
}
