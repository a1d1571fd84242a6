package domain

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/idx"
)

const (
	DefaultMaxAccessCount = 3
	DefaultPreviewTTL     = 24 * time.Hour
)

// PreviewGrant lets one signer view the sealed document a bounded number of
// times before it expires. There is at most one grant per (request, signer);
// re-issuing rotates it in place.
type PreviewGrant struct {
	ID                 string
	SignatureRequestID string
	SignerID           string
	OriginalDocumentID string
	SealedDocumentID   string

	// Fingerprints of the three independent credentials.
	AccessTokenHash string
	SessionIDHash   string
	FingerprintHash string

	ExpiresAt      time.Time
	IsActive       bool
	AccessCount    int
	MaxAccessCount int

	LastAccessedAt      *time.Time
	LastAccessIP        string
	LastAccessUserAgent string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PreviewCredentials are the raw secrets for a grant. They exist only in the
// response that issued them and in the notification sent to the signer.
type PreviewCredentials struct {
	GrantID        string    `json:"grant_id"`
	AccessToken    string    `json:"access_token"`
	SessionID      string    `json:"session_id"`
	Fingerprint    string    `json:"fingerprint"`
	ExpiresAt      time.Time `json:"expires_at"`
	MaxAccessCount int       `json:"max_access_count"`
}

type IssueGrantInput struct {
	SignatureRequestID string
	SignerID           string
	OriginalDocumentID string
	SealedDocumentID   string
	TTL                time.Duration
	MaxAccessCount     int
}

// NewPreviewGrant builds an active grant with fresh credentials.
func NewPreviewGrant(in IssueGrantInput, now time.Time) (*PreviewGrant, PreviewCredentials, error) {
	if in.SignatureRequestID == "" || in.SignerID == "" || in.SealedDocumentID == "" {
		return nil, PreviewCredentials{}, fmt.Errorf("%w: grant needs request, signer and sealed document", ErrInvalidInput)
	}
	now = now.UTC()
	g := &PreviewGrant{
		ID:                 idx.NewEntity(),
		SignatureRequestID: in.SignatureRequestID,
		SignerID:           in.SignerID,
		OriginalDocumentID: in.OriginalDocumentID,
		SealedDocumentID:   in.SealedDocumentID,
		CreatedAt:          now,
	}
	creds, err := g.Rotate(in.SealedDocumentID, in.TTL, in.MaxAccessCount, now)
	if err != nil {
		return nil, PreviewCredentials{}, err
	}
	return g, creds, nil
}

// Rotate replaces all three credentials, resets the counters and reactivates
// the grant. Previously issued credentials stop matching immediately.
func (g *PreviewGrant) Rotate(sealedDocumentID string, ttl time.Duration, maxAccess int, now time.Time) (PreviewCredentials, error) {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	if maxAccess <= 0 {
		maxAccess = DefaultMaxAccessCount
	}

	secrets, err := newPreviewSecrets()
	if err != nil {
		return PreviewCredentials{}, err
	}

	now = now.UTC()
	if sealedDocumentID != "" {
		g.SealedDocumentID = sealedDocumentID
	}
	g.setSecrets(secrets)
	g.ExpiresAt = now.Add(ttl)
	g.IsActive = true
	g.AccessCount = 0
	g.MaxAccessCount = maxAccess
	g.LastAccessedAt = nil
	g.LastAccessIP = ""
	g.LastAccessUserAgent = ""
	g.UpdatedAt = now
	g.Version++

	return g.credentials(secrets), nil
}

// RotateCredentials replaces the three credentials of a usable grant and
// nothing else: the access count, expiry and limit carry over. Inactive,
// expired and exhausted grants are refused with ErrGrantInactive.
func (g *PreviewGrant) RotateCredentials(now time.Time) (PreviewCredentials, error) {
	if !g.CanAccess(now) {
		return PreviewCredentials{}, ErrGrantInactive
	}
	secrets, err := newPreviewSecrets()
	if err != nil {
		return PreviewCredentials{}, err
	}
	g.setSecrets(secrets)
	g.UpdatedAt = now.UTC()
	g.Version++
	return g.credentials(secrets), nil
}

func newPreviewSecrets() ([3]cryptox.Secret, error) {
	var secrets [3]cryptox.Secret
	for i := range secrets {
		s, err := cryptox.NewSecret()
		if err != nil {
			return secrets, fmt.Errorf("generate preview credential: %w", err)
		}
		secrets[i] = s
	}
	return secrets, nil
}

func (g *PreviewGrant) setSecrets(secrets [3]cryptox.Secret) {
	g.AccessTokenHash = secrets[0].Fingerprint
	g.SessionIDHash = secrets[1].Fingerprint
	g.FingerprintHash = secrets[2].Fingerprint
}

func (g *PreviewGrant) credentials(secrets [3]cryptox.Secret) PreviewCredentials {
	return PreviewCredentials{
		GrantID:        g.ID,
		AccessToken:    secrets[0].Raw,
		SessionID:      secrets[1].Raw,
		Fingerprint:    secrets[2].Raw,
		ExpiresAt:      g.ExpiresAt,
		MaxAccessCount: g.MaxAccessCount,
	}
}

// CanAccess holds iff the grant is active, unexpired and not exhausted.
func (g *PreviewGrant) CanAccess(now time.Time) bool {
	return g.IsActive && now.Before(g.ExpiresAt) && g.AccessCount < g.MaxAccessCount
}

// MatchesSession checks the token and session pair used by the read-only
// endpoints. Both comparisons always run.
func (g *PreviewGrant) MatchesSession(accessToken, sessionID string) bool {
	tok := cryptox.MatchFingerprint(accessToken, g.AccessTokenHash)
	sess := cryptox.MatchFingerprint(sessionID, g.SessionIDHash)
	return tok && sess
}

// Matches checks all three credentials. All comparisons always run so the
// timing does not reveal which one failed.
func (g *PreviewGrant) Matches(accessToken, sessionID, fingerprint string) bool {
	pair := g.MatchesSession(accessToken, sessionID)
	fp := cryptox.MatchFingerprint(fingerprint, g.FingerprintHash)
	return pair && fp
}

// Validate is Matches plus CanAccess, collapsed into ErrAccessDenied.
func (g *PreviewGrant) Validate(accessToken, sessionID, fingerprint string, now time.Time) error {
	if !g.Matches(accessToken, sessionID, fingerprint) || !g.CanAccess(now) {
		return ErrAccessDenied
	}
	return nil
}

// RecordAccess consumes one access. Reaching the limit deactivates the grant
// in the same mutation.
func (g *PreviewGrant) RecordAccess(clientIP, userAgent string, now time.Time) error {
	if !g.CanAccess(now) {
		return ErrAccessDenied
	}
	now = now.UTC()
	g.AccessCount++
	g.LastAccessedAt = &now
	g.LastAccessIP = clientIP
	g.LastAccessUserAgent = userAgent
	if g.AccessCount >= g.MaxAccessCount {
		g.IsActive = false
	}
	g.UpdatedAt = now
	g.Version++
	return nil
}

// Invalidate deactivates the grant. Grants are never deleted.
func (g *PreviewGrant) Invalidate(now time.Time) {
	g.IsActive = false
	g.UpdatedAt = now.UTC()
	g.Version++
}

// RemainingAccesses never goes below zero.
func (g *PreviewGrant) RemainingAccesses() int {
	return max(g.MaxAccessCount-g.AccessCount, 0)
}

// DenialReason names why CanAccess fails. For logs only.
func (g *PreviewGrant) DenialReason(now time.Time) string {
	switch {
	case !g.IsActive && g.AccessCount >= g.MaxAccessCount:
		return "exhausted"
	case !g.IsActive:
		return "inactive"
	case !now.Before(g.ExpiresAt):
		return "expired"
	case g.AccessCount >= g.MaxAccessCount:
		return "exhausted"
	}
	return ""
}
