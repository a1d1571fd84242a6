package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func box() domain.BoxTemplate {
	return domain.BoxTemplate{Page: 1, X: 72, Y: 96, Width: 180, Height: 48}
}

func slots(emails ...string) []domain.SignerSlot {
	out := make([]domain.SignerSlot, len(emails))
	for i, e := range emails {
		out[i] = domain.SignerSlot{CustomerID: "cust-" + e, Email: e, Placement: box()}
	}
	return out
}

func newRequest(t *testing.T, emails ...string) (*domain.SignatureRequest, []domain.IssuedToken) {
	t.Helper()
	req, tokens, err := domain.NewSignatureRequest(domain.CreateRequestInput{
		DocumentID: "doc-1",
		Title:      "Lease",
		Signers:    slots(emails...),
	}, t0)
	require.NoError(t, err)
	return req, tokens
}

func sig() domain.Signature {
	return domain.Signature{Image: []byte("png"), Certificate: json.RawMessage(`{"serial":"01"}`)}
}

func audit(at time.Time) domain.Audit {
	return domain.Audit{ClientIP: "203.0.113.9", UserAgent: "test", At: at}
}

func sign(t *testing.T, req *domain.SignatureRequest, signerID string) bool {
	t.Helper()
	_, err := req.Consent(signerID, audit(t0))
	require.NoError(t, err)
	completed, err := req.Submit(signerID, sig(), audit(t0.Add(time.Minute)), domain.SubmitOptions{})
	require.NoError(t, err)
	return completed
}

func TestNewSignatureRequest(t *testing.T) {
	req, tokens := newRequest(t, "a@example.com", "B@Example.com")

	require.Equal(t, domain.RequestPending, req.Status)
	require.EqualValues(t, 1, req.Version)
	require.Len(t, req.Signers, 2)
	require.Len(t, tokens, 2)

	for i, s := range req.Signers {
		require.Equal(t, req.ID, s.RequestID)
		require.Equal(t, domain.SignerPending, s.Status)
		require.Equal(t, i+1, s.Order, "zero order defaults to list position")
		require.Equal(t, tokens[i].SignerID, s.ID)
		require.True(t, cryptox.MatchFingerprint(tokens[i].Token, s.TokenHash))
		require.NotEqual(t, tokens[i].Token, s.TokenHash, "raw token is never stored")
	}
	require.Equal(t, "b@example.com", req.Signers[1].Email)
	require.NotEqual(t, tokens[0].Token, tokens[1].Token)
}

func TestNewSignatureRequest_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    domain.CreateRequestInput
		field string
	}{
		{"no signers", domain.CreateRequestInput{DocumentID: "d"}, "signers"},
		{"missing document", domain.CreateRequestInput{Signers: slots("a@example.com")}, "document_id"},
		{"duplicate email ignoring case", domain.CreateRequestInput{
			DocumentID: "d", Signers: slots("a@example.com", "A@example.com"),
		}, "signers[1].email"},
		{"bad email", domain.CreateRequestInput{DocumentID: "d", Signers: slots("not-an-email")}, "signers[0].email"},
		{"display name email", domain.CreateRequestInput{DocumentID: "d", Signers: slots("Bob <b@example.com>")}, "signers[0].email"},
		{"bad placement", domain.CreateRequestInput{DocumentID: "d", Signers: []domain.SignerSlot{
			{CustomerID: "c", Email: "a@example.com", Placement: domain.BoxTemplate{Page: 0, Width: 1, Height: 1}},
		}}, "signers[0].placement.page"},
		{"negative order", domain.CreateRequestInput{DocumentID: "d", Signers: []domain.SignerSlot{
			{CustomerID: "c", Email: "a@example.com", Order: -1, Placement: box()},
		}}, "signers[0].order"},
		{"missing customer", domain.CreateRequestInput{DocumentID: "d", Signers: []domain.SignerSlot{
			{Email: "a@example.com", Placement: box()},
		}}, "signers[0].customer_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := domain.NewSignatureRequest(tt.in, t0)
			require.ErrorIs(t, err, domain.ErrInvalidInput)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestCompletesOnlyWhenAllSigned(t *testing.T) {
	req, _ := newRequest(t, "a@example.com", "b@example.com", "c@example.com")

	require.False(t, sign(t, req, req.Signers[0].ID))
	require.Equal(t, domain.RequestPending, req.Status)
	require.False(t, sign(t, req, req.Signers[2].ID))
	require.Equal(t, domain.RequestPending, req.Status)

	require.True(t, sign(t, req, req.Signers[1].ID))
	require.Equal(t, domain.RequestCompleted, req.Status)
	require.NotNil(t, req.CompletedAt)
	require.Equal(t, 3, req.SignedCount())

	// Completed is terminal.
	_, err := req.Consent(req.Signers[0].ID, audit(t0))
	require.ErrorIs(t, err, domain.ErrRequestNotPending)
	_, err = req.Submit(req.Signers[0].ID, sig(), audit(t0), domain.SubmitOptions{})
	require.ErrorIs(t, err, domain.ErrRequestNotPending)
	require.Equal(t, domain.RequestCompleted, req.Status)
}

func TestSubmitRequiresConsent(t *testing.T) {
	req, _ := newRequest(t, "a@example.com")

	_, err := req.Submit(req.Signers[0].ID, sig(), audit(t0), domain.SubmitOptions{})
	require.ErrorIs(t, err, domain.ErrConsentRequired)
	require.Equal(t, domain.SignerPending, req.Signers[0].Status)
}

func TestSubmitRejectsEmptySignature(t *testing.T) {
	req, _ := newRequest(t, "a@example.com")
	_, err := req.Consent(req.Signers[0].ID, audit(t0))
	require.NoError(t, err)

	_, err = req.Submit(req.Signers[0].ID, domain.Signature{}, audit(t0), domain.SubmitOptions{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.Equal(t, domain.SignerConsented, req.Signers[0].Status)

	_, err = req.Submit(req.Signers[0].ID, domain.Signature{Image: []byte("x"), Certificate: json.RawMessage("{")},
		audit(t0), domain.SubmitOptions{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuditFieldsAreWriteOnce(t *testing.T) {
	req, _ := newRequest(t, "a@example.com", "b@example.com")
	id := req.Signers[0].ID

	changed, err := req.Consent(id, domain.Audit{ClientIP: "1.1.1.1", UserAgent: "first", At: t0})
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = req.Consent(id, domain.Audit{ClientIP: "2.2.2.2", UserAgent: "second", At: t0.Add(time.Hour)})
	require.NoError(t, err)
	require.False(t, changed)

	s, _ := req.SignerByID(id)
	require.Equal(t, "1.1.1.1", s.ConsentClientIP)
	require.Equal(t, "first", s.ConsentUserAgent)
	require.True(t, s.ConsentAgreedAt.Equal(t0))

	_, err = req.Submit(id, sig(), domain.Audit{ClientIP: "3.3.3.3", UserAgent: "signing", At: t0.Add(time.Minute)}, domain.SubmitOptions{})
	require.NoError(t, err)

	_, err = req.Submit(id, sig(), audit(t0.Add(time.Hour)), domain.SubmitOptions{})
	require.ErrorIs(t, err, domain.ErrAlreadySigned)
	_, err = req.Consent(id, audit(t0.Add(time.Hour)))
	require.ErrorIs(t, err, domain.ErrAlreadySigned)

	require.Equal(t, "3.3.3.3", s.ClientIP)
	require.True(t, s.SignedAt.Equal(t0.Add(time.Minute)))
}

func TestRejectIsFatalForTheRequest(t *testing.T) {
	req, _ := newRequest(t, "a@example.com", "b@example.com", "c@example.com")
	a, b, c := req.Signers[0].ID, req.Signers[1].ID, req.Signers[2].ID

	sign(t, req, a)

	first, err := req.Reject(b, "  wrong address  ", t0)
	require.NoError(t, err)
	require.True(t, first)
	require.True(t, req.Rejected())
	require.Equal(t, domain.RequestPending, req.Status, "a rejected request never completes but stays pending")

	sb, _ := req.SignerByID(b)
	require.Equal(t, "wrong address", sb.RejectionReason)

	_, err = req.Reject(b, "again", t0)
	require.ErrorIs(t, err, domain.ErrSignerRejected)
	_, err = req.Submit(b, sig(), audit(t0), domain.SubmitOptions{})
	require.ErrorIs(t, err, domain.ErrSignerRejected)

	_, err = req.Consent(c, audit(t0))
	require.ErrorIs(t, err, domain.ErrRequestRejected)

	_, err = req.Reject(a, "", t0)
	require.ErrorIs(t, err, domain.ErrAlreadySigned)

	first, err = req.Reject(c, "", t0)
	require.NoError(t, err)
	require.False(t, first, "only the first rejection terminates the request")
}

func TestEnforcedOrder(t *testing.T) {
	req, _ := newRequest(t, "a@example.com", "b@example.com")
	a, b := req.Signers[0].ID, req.Signers[1].ID
	enforce := domain.SubmitOptions{EnforceOrder: true}

	_, err := req.Consent(b, audit(t0))
	require.NoError(t, err)
	_, err = req.Submit(b, sig(), audit(t0), enforce)
	require.ErrorIs(t, err, domain.ErrOutOfOrder)

	// Advisory by default.
	clone, _ := newRequest(t, "a@example.com", "b@example.com")
	require.False(t, sign(t, clone, clone.Signers[1].ID))

	_, err = req.Consent(a, audit(t0))
	require.NoError(t, err)
	_, err = req.Submit(a, sig(), audit(t0), enforce)
	require.NoError(t, err)
	completed, err := req.Submit(b, sig(), audit(t0), enforce)
	require.NoError(t, err)
	require.True(t, completed)
}

func TestLayout(t *testing.T) {
	req, _ := newRequest(t, "a@example.com", "b@example.com")
	a, b := req.Signers[0].ID, req.Signers[1].ID

	l, err := req.Layout(a)
	require.NoError(t, err)
	require.Equal(t, box(), l.Placement)
	require.Equal(t, "doc-1", l.DocumentID)

	_, err = req.Layout("missing")
	require.ErrorIs(t, err, domain.ErrSignerNotFound)

	sign(t, req, a)
	sign(t, req, b)
	_, err = req.Layout(a)
	require.ErrorIs(t, err, domain.ErrTokenExpiredOrInvalid)
}

func TestLayoutAfterRejection(t *testing.T) {
	req, _ := newRequest(t, "a@example.com", "b@example.com")
	_, err := req.Reject(req.Signers[0].ID, "", t0)
	require.NoError(t, err)

	_, err = req.Layout(req.Signers[0].ID)
	require.ErrorIs(t, err, domain.ErrTokenExpiredOrInvalid)

	_, err = req.Layout(req.Signers[1].ID)
	require.NoError(t, err)
}

func TestMarkSealed(t *testing.T) {
	req, _ := newRequest(t, "a@example.com")
	require.ErrorIs(t, req.MarkSealed("sealed-1", t0), domain.ErrRequestNotPending)

	sign(t, req, req.Signers[0].ID)
	require.False(t, req.Sealed())
	require.NoError(t, req.MarkSealed("sealed-1", t0))
	require.True(t, req.Sealed())
	require.ErrorIs(t, req.MarkSealed("", t0), domain.ErrInvalidInput)
}

func TestSummary(t *testing.T) {
	req, _ := newRequest(t, "a@example.com", "b@example.com")
	sign(t, req, req.Signers[0].ID)

	s, err := req.Summary(req.Signers[1].ID)
	require.NoError(t, err)
	require.Equal(t, 2, s.SignerCount)
	require.Equal(t, 1, s.SignedCount)
	require.Equal(t, domain.SignerPending, s.SignerStatus)
	require.False(t, s.Rejected)
}

func TestSignerByTokenHash(t *testing.T) {
	req, tokens := newRequest(t, "a@example.com", "b@example.com")

	s, err := req.SignerByTokenHash(cryptox.FingerprintToken(tokens[1].Token))
	require.NoError(t, err)
	require.Equal(t, tokens[1].SignerID, s.ID)

	_, err = req.SignerByTokenHash(cryptox.FingerprintToken("nope"))
	require.ErrorIs(t, err, domain.ErrSignerNotFound)
}
