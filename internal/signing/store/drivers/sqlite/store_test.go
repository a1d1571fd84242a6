package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(DSN(filepath.Join(t.TempDir(), "signing.db")))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newRequest(t *testing.T, company string, emails ...string) (*domain.SignatureRequest, []domain.IssuedToken) {
	t.Helper()
	slots := make([]domain.SignerSlot, len(emails))
	for i, e := range emails {
		slots[i] = domain.SignerSlot{
			CustomerID: "cust-" + e,
			Email:      e,
			Name:       e,
			Placement:  domain.BoxTemplate{Page: 1, X: 10, Y: 20, Width: 100, Height: 40},
		}
	}
	req, tokens, err := domain.NewSignatureRequest(domain.CreateRequestInput{
		DocumentID: "doc-1",
		Title:      "Lease",
		CompanyID:  company,
		CreatedBy:  "user-1",
		Signers:    slots,
	}, time.Now())
	require.NoError(t, err)
	return req, tokens
}

func TestSignatureRequests_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	req, tokens := newRequest(t, "acme", "a@example.com", "b@example.com")
	require.NoError(t, s.SignatureRequests().Create(ctx, req))

	got, err := s.SignatureRequests().Get(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, req.ID, got.ID)
	require.Equal(t, int64(1), got.Version)
	require.Len(t, got.Signers, 2)
	require.Equal(t, "a@example.com", got.Signers[0].Email)
	require.Equal(t, req.Signers[0].Placement, got.Signers[0].Placement)

	byToken, err := s.SignatureRequests().GetBySignerTokenHash(ctx, req.Signers[1].TokenHash)
	require.NoError(t, err)
	require.Equal(t, req.ID, byToken.ID)
	require.NotEqual(t, tokens[1].Token, req.Signers[1].TokenHash, "raw token is never stored")

	bySigner, err := s.SignatureRequests().GetBySignerID(ctx, req.Signers[0].ID)
	require.NoError(t, err)
	require.Equal(t, req.ID, bySigner.ID)

	_, err = s.SignatureRequests().Get(ctx, idx.NewEntity())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSignatureRequests_UpdateIsVersionChecked(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	req, _ := newRequest(t, "acme", "a@example.com")
	require.NoError(t, s.SignatureRequests().Create(ctx, req))

	signerID := req.Signers[0].ID
	now := time.Now()
	_, err := req.Consent(signerID, domain.Audit{ClientIP: "10.0.0.1", UserAgent: "test", At: now})
	require.NoError(t, err)
	completed, err := req.Submit(signerID, domain.Signature{
		Image:       []byte("png-bytes"),
		Certificate: json.RawMessage(`{"serial":"01"}`),
	}, domain.Audit{ClientIP: "10.0.0.1", UserAgent: "test", At: now}, domain.SubmitOptions{})
	require.NoError(t, err)
	require.True(t, completed)

	require.NoError(t, s.SignatureRequests().Update(ctx, req, 1))
	require.Equal(t, int64(2), req.Version)

	// A writer still holding version 1 loses.
	err = s.SignatureRequests().Update(ctx, req, 1)
	require.ErrorIs(t, err, store.ErrVersionConflict)

	got, err := s.SignatureRequests().Get(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RequestCompleted, got.Status)
	require.Equal(t, domain.SignerSigned, got.Signers[0].Status)
	require.Equal(t, []byte("png-bytes"), got.Signers[0].SignatureImage)
	require.JSONEq(t, `{"serial":"01"}`, string(got.Signers[0].Certificate))
	require.NotNil(t, got.Signers[0].ConsentAgreedAt)

	missing := *req
	missing.ID = idx.NewEntity()
	require.ErrorIs(t, s.SignatureRequests().Update(ctx, &missing, 2), store.ErrNotFound)
}

func TestSignatureImageIsSealedAtRest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	req, _ := newRequest(t, "acme", "a@example.com")
	req.Signers[0].SignatureImage = []byte("plain-signature")
	require.NoError(t, s.SignatureRequests().Create(ctx, req))

	var raw []byte
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT signature_image FROM signers WHERE id = ?`, req.Signers[0].ID).Scan(&raw))
	require.NotEmpty(t, raw)
	require.NotContains(t, string(raw), "plain-signature")
}

func TestSignatureRequests_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for range 3 {
		req, _ := newRequest(t, "acme", "a@example.com")
		require.NoError(t, s.SignatureRequests().Create(ctx, req))
	}
	other, _ := newRequest(t, "globex", "a@example.com")
	require.NoError(t, s.SignatureRequests().Create(ctx, other))

	page, total, err := s.SignatureRequests().List(ctx, store.ListFilter{CompanyID: "acme", Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, page, 2)
	for _, r := range page {
		require.Equal(t, "acme", r.CompanyID)
		require.Len(t, r.Signers, 1)
	}

	rest, _, err := s.SignatureRequests().List(ctx, store.ListFilter{CompanyID: "acme", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)

	completed, total, err := s.SignatureRequests().List(ctx, store.ListFilter{Status: domain.RequestCompleted, Limit: 10})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, completed)
}

func TestPreviewGrants_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	req, _ := newRequest(t, "acme", "a@example.com")
	require.NoError(t, s.SignatureRequests().Create(ctx, req))

	now := time.Now()
	g, creds, err := domain.NewPreviewGrant(domain.IssueGrantInput{
		SignatureRequestID: req.ID,
		SignerID:           req.Signers[0].ID,
		OriginalDocumentID: req.DocumentID,
		SealedDocumentID:   "sealed-1",
		TTL:                time.Hour,
		MaxAccessCount:     3,
	}, now)
	require.NoError(t, err)
	require.NoError(t, s.PreviewGrants().Create(ctx, g))

	dup := *g
	dup.ID = idx.NewEntity()
	require.ErrorIs(t, s.PreviewGrants().Create(ctx, &dup), store.ErrAlreadyExists)

	got, err := s.PreviewGrants().GetByAccessTokenHash(ctx, g.AccessTokenHash)
	require.NoError(t, err)
	require.Equal(t, g.ID, got.ID)
	require.NoError(t, got.Validate(creds.AccessToken, creds.SessionID, creds.Fingerprint, now))

	expected := got.Version
	require.NoError(t, got.RecordAccess("10.0.0.1", "ua", now))
	require.NoError(t, s.PreviewGrants().Update(ctx, got, expected))
	require.ErrorIs(t, s.PreviewGrants().Update(ctx, got, expected), store.ErrVersionConflict)

	bySigner, err := s.PreviewGrants().GetBySignerID(ctx, req.Signers[0].ID)
	require.NoError(t, err)
	require.Equal(t, 1, bySigner.AccessCount)
	require.NotNil(t, bySigner.LastAccessedAt)

	list, err := s.PreviewGrants().ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	n, err := s.PreviewGrants().DeactivateExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	after, err := s.PreviewGrants().Get(ctx, g.ID)
	require.NoError(t, err)
	require.False(t, after.IsActive)
}

func TestOutbox_EnqueueDedupesAndClaimsOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	job := domain.OutboxJob{
		ID:          idx.New().String(),
		Kind:        domain.JobSealDocument,
		DedupeKey:   "req-1",
		Payload:     []byte(`{"signature_request_id":"req-1"}`),
		AvailableAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	inserted, err := s.Outbox().Enqueue(ctx, job)
	require.NoError(t, err)
	require.True(t, inserted)

	again := job
	again.ID = idx.New().String()
	inserted, err = s.Outbox().Enqueue(ctx, again)
	require.NoError(t, err)
	require.False(t, inserted, "same kind and dedupe key must not enqueue twice")

	claimed, ok, err := s.Outbox().Claim(ctx, now, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, job.ID, claimed.ID)
	require.Equal(t, domain.JobRunning, claimed.Status)
	require.Equal(t, 1, claimed.Attempts)
	require.JSONEq(t, string(job.Payload), string(claimed.Payload))

	_, ok, err = s.Outbox().Claim(ctx, now, time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "a leased job is not handed out twice")

	// Lease expiry makes it claimable again.
	reclaimed, ok, err := s.Outbox().Claim(ctx, now.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, reclaimed.Attempts)

	require.NoError(t, s.Outbox().Complete(ctx, job.ID, now))
	counts, err := s.Outbox().CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[domain.JobCompleted])

	deleted, err := s.Outbox().DeleteCompletedBefore(ctx, now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}

func TestOutbox_FailRequeuesOrParks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	job := domain.OutboxJob{
		ID:          idx.New().String(),
		Kind:        domain.JobNotifyEvent,
		Payload:     []byte(`{}`),
		AvailableAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.Outbox().Enqueue(ctx, job)
	require.NoError(t, err)

	_, ok, err := s.Outbox().ClaimByID(ctx, job.ID, now, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	retryAt := now.Add(10 * time.Second)
	require.NoError(t, s.Outbox().Fail(ctx, job.ID, "boom", retryAt, false, now))

	_, ok, err = s.Outbox().Claim(ctx, now, time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "not due before retryAt")

	_, ok, err = s.Outbox().Claim(ctx, retryAt, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Outbox().Fail(ctx, job.ID, "boom again", retryAt, true, now))
	got, err := s.Outbox().Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobDead, got.Status)
	require.Equal(t, "boom again", got.LastError)

	_, ok, err = s.Outbox().Claim(ctx, retryAt.Add(time.Hour), time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "dead jobs are never claimed")
}

func TestIdempotencyRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().Truncate(time.Millisecond)
	repo := s.Idempotency()

	rec := domain.IdempotencyRecord{
		Actor:       "acme/user-1",
		Key:         "k1",
		Endpoint:    "POST /signature-requests",
		RequestHash: "h",
		CreatedAt:   now,
	}
	require.NoError(t, repo.Claim(ctx, rec))
	require.ErrorIs(t, repo.Claim(ctx, rec), store.ErrAlreadyExists)

	got, err := repo.Get(ctx, rec.Actor, rec.Key)
	require.NoError(t, err)
	require.True(t, got.Pending())
	require.Empty(t, got.Body)

	require.ErrorIs(t, repo.Complete(ctx, rec.Actor, rec.Key, now.Add(time.Second), 201, []byte(`{}`)), store.ErrNotFound,
		"only the claim made at that instant can complete")
	require.NoError(t, repo.Complete(ctx, rec.Actor, rec.Key, now, 201, []byte(`{"id":"x"}`)))
	require.ErrorIs(t, repo.Complete(ctx, rec.Actor, rec.Key, now, 500, nil), store.ErrNotFound)

	got, err = repo.Get(ctx, rec.Actor, rec.Key)
	require.NoError(t, err)
	require.False(t, got.Pending())
	require.Equal(t, 201, got.StatusCode)
	require.Equal(t, []byte(`{"id":"x"}`), got.Body)
	require.True(t, now.Equal(got.CreatedAt))

	_, err = repo.Get(ctx, "globex/user-1", rec.Key)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.Release(ctx, rec.Actor, rec.Key, now.Add(time.Second)))
	_, err = repo.Get(ctx, rec.Actor, rec.Key)
	require.NoError(t, err, "release needs the matching creation time")
	require.NoError(t, repo.Release(ctx, rec.Actor, rec.Key, now))
	_, err = repo.Get(ctx, rec.Actor, rec.Key)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.Claim(ctx, rec))
	n, err := repo.DeleteBefore(ctx, now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestIdempotencyBodyIsSealedAtRest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	const token = "q2V8x0bK3nGmT7yR1cLpZa9eWf4sHdJuNiOoPtQvXwY"
	body := []byte(`{"signer_tokens":[{"token":"` + token + `"}]}`)

	rec := domain.IdempotencyRecord{Actor: "acme/user-1", Key: "k1", Endpoint: "create", RequestHash: "h", CreatedAt: now}
	require.NoError(t, s.Idempotency().Claim(ctx, rec))
	require.NoError(t, s.Idempotency().Complete(ctx, rec.Actor, rec.Key, now, 201, body))

	var raw []byte
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT body FROM idempotency_records WHERE actor = ? AND key = ?`, rec.Actor, rec.Key).Scan(&raw))
	require.NotEmpty(t, raw)
	require.NotContains(t, string(raw), token)

	got, err := s.Idempotency().Get(ctx, rec.Actor, rec.Key)
	require.NoError(t, err)
	require.Equal(t, body, got.Body)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	req, _ := newRequest(t, "acme", "a@example.com")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.SignatureRequests().Create(ctx, req))
		return store.ErrVersionConflict
	})
	require.ErrorIs(t, err, store.ErrVersionConflict)

	_, err = s.SignatureRequests().Get(ctx, req.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
