package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/stretchr/testify/require"
)

func issueGrant(t *testing.T, ttl time.Duration, maxAccess int) (*domain.PreviewGrant, domain.PreviewCredentials) {
	t.Helper()
	g, creds, err := domain.NewPreviewGrant(domain.IssueGrantInput{
		SignatureRequestID: "req-1",
		SignerID:           "signer-1",
		OriginalDocumentID: "doc-1",
		SealedDocumentID:   "sealed-1",
		TTL:                ttl,
		MaxAccessCount:     maxAccess,
	}, t0)
	require.NoError(t, err)
	return g, creds
}

func TestNewPreviewGrant(t *testing.T) {
	g, creds := issueGrant(t, 0, 0)

	require.True(t, g.IsActive)
	require.Equal(t, domain.DefaultMaxAccessCount, g.MaxAccessCount)
	require.Equal(t, t0.Add(domain.DefaultPreviewTTL), g.ExpiresAt)
	require.EqualValues(t, 1, g.Version)
	require.Equal(t, g.ID, creds.GrantID)

	require.NotEqual(t, creds.AccessToken, creds.SessionID)
	require.NotEqual(t, creds.SessionID, creds.Fingerprint)
	require.GreaterOrEqual(t, len(creds.AccessToken), 22, "at least 128 bits of entropy")
	require.NotEqual(t, creds.AccessToken, g.AccessTokenHash)
}

func TestNewPreviewGrant_RequiresReferences(t *testing.T) {
	_, _, err := domain.NewPreviewGrant(domain.IssueGrantInput{SignerID: "s"}, t0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidateNeedsAllThreeSecrets(t *testing.T) {
	g, c := issueGrant(t, time.Hour, 3)

	require.NoError(t, g.Validate(c.AccessToken, c.SessionID, c.Fingerprint, t0))
	require.ErrorIs(t, g.Validate(c.SessionID, c.AccessToken, c.Fingerprint, t0), domain.ErrAccessDenied)
	require.ErrorIs(t, g.Validate(c.AccessToken, c.SessionID, "", t0), domain.ErrAccessDenied)
	require.ErrorIs(t, g.Validate(c.AccessToken, "x", c.Fingerprint, t0), domain.ErrAccessDenied)
	require.ErrorIs(t, g.Validate("", "", "", t0), domain.ErrAccessDenied)
}

func TestRecordAccessExhaustsAtMax(t *testing.T) {
	g, c := issueGrant(t, time.Hour, 3)

	for i := 1; i <= 3; i++ {
		require.NoError(t, g.Validate(c.AccessToken, c.SessionID, c.Fingerprint, t0))
		require.NoError(t, g.RecordAccess("198.51.100.1", "viewer", t0))
		require.Equal(t, i, g.AccessCount)
	}

	require.False(t, g.IsActive, "reaching the limit deactivates in the same step")
	require.Equal(t, 0, g.RemainingAccesses())
	require.ErrorIs(t, g.Validate(c.AccessToken, c.SessionID, c.Fingerprint, t0), domain.ErrAccessDenied)
	require.ErrorIs(t, g.RecordAccess("198.51.100.1", "viewer", t0), domain.ErrAccessDenied)
	require.Equal(t, 3, g.AccessCount)
	require.Equal(t, "exhausted", g.DenialReason(t0))
	require.Equal(t, "198.51.100.1", g.LastAccessIP)
}

func TestExpiredGrantIsNeverAccessible(t *testing.T) {
	g, c := issueGrant(t, time.Hour, 3)

	later := t0.Add(time.Hour)
	require.Equal(t, 0, g.AccessCount)
	require.False(t, g.CanAccess(later), "expiry is exclusive")
	require.ErrorIs(t, g.Validate(c.AccessToken, c.SessionID, c.Fingerprint, later), domain.ErrAccessDenied)
	require.Equal(t, "expired", g.DenialReason(later))
}

func TestRotateInvalidatesPreviousCredentials(t *testing.T) {
	g, old := issueGrant(t, time.Hour, 3)
	require.NoError(t, g.RecordAccess("", "", t0))
	g.Invalidate(t0)

	fresh, err := g.Rotate("", 2*time.Hour, 3, t0.Add(time.Minute))
	require.NoError(t, err)

	require.ErrorIs(t, g.Validate(old.AccessToken, old.SessionID, old.Fingerprint, t0.Add(time.Minute)), domain.ErrAccessDenied)
	require.False(t, g.MatchesSession(old.AccessToken, old.SessionID))
	require.NoError(t, g.Validate(fresh.AccessToken, fresh.SessionID, fresh.Fingerprint, t0.Add(time.Minute)))
	require.True(t, g.IsActive)
	require.Equal(t, 0, g.AccessCount)
	require.Nil(t, g.LastAccessedAt)
	require.Equal(t, g.ID, fresh.GrantID, "rotation keeps the grant identity")
	require.Equal(t, "sealed-1", g.SealedDocumentID)
}

func TestInvalidate(t *testing.T) {
	g, c := issueGrant(t, time.Hour, 3)
	v := g.Version
	g.Invalidate(t0)

	require.False(t, g.IsActive)
	require.Greater(t, g.Version, v)
	require.ErrorIs(t, g.Validate(c.AccessToken, c.SessionID, c.Fingerprint, t0), domain.ErrAccessDenied)
	require.Equal(t, "inactive", g.DenialReason(t0))
}

func TestRotateCredentialsKeepsUsage(t *testing.T) {
	g, old := issueGrant(t, time.Hour, 3)
	require.NoError(t, g.RecordAccess("", "", t0))
	expires := g.ExpiresAt
	v := g.Version

	fresh, err := g.RotateCredentials(t0.Add(time.Minute))
	require.NoError(t, err)

	require.Equal(t, 1, g.AccessCount)
	require.Equal(t, expires, g.ExpiresAt)
	require.Equal(t, expires, fresh.ExpiresAt)
	require.Equal(t, 3, fresh.MaxAccessCount)
	require.Greater(t, g.Version, v)
	require.False(t, g.MatchesSession(old.AccessToken, old.SessionID))
	require.NoError(t, g.Validate(fresh.AccessToken, fresh.SessionID, fresh.Fingerprint, t0.Add(time.Minute)))
}

func TestRotateCredentialsRefusesUnusableGrant(t *testing.T) {
	invalidated, _ := issueGrant(t, time.Hour, 3)
	invalidated.Invalidate(t0)

	exhausted, _ := issueGrant(t, time.Hour, 1)
	require.NoError(t, exhausted.RecordAccess("", "", t0))

	expired, _ := issueGrant(t, time.Hour, 3)

	for name, tc := range map[string]struct {
		g   *domain.PreviewGrant
		now time.Time
	}{
		"invalidated": {invalidated, t0},
		"exhausted":   {exhausted, t0},
		"expired":     {expired, t0.Add(2 * time.Hour)},
	} {
		t.Run(name, func(t *testing.T) {
			v := tc.g.Version
			hash := tc.g.AccessTokenHash
			_, err := tc.g.RotateCredentials(tc.now)
			require.ErrorIs(t, err, domain.ErrGrantInactive)
			require.Equal(t, v, tc.g.Version)
			require.Equal(t, hash, tc.g.AccessTokenHash)
			require.False(t, tc.g.CanAccess(tc.now))
		})
	}
}
