package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store/drivers/sqlite"
	"github.com/aussiebroadwan/quill/internal/signing/telemetry"
	"github.com/aussiebroadwan/quill/internal/signing/upstream"
	"github.com/aussiebroadwan/quill/pkg/viewticket"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingSealer fails the first failures calls, then succeeds.
type countingSealer struct {
	calls    atomic.Int32
	failures int32
}

func (s *countingSealer) Seal(_ context.Context, req upstream.SealRequest) (upstream.SealResult, error) {
	n := s.calls.Add(1)
	if n <= s.failures {
		return upstream.SealResult{}, errors.Join(upstream.ErrUpstream, errors.New("sealing service unavailable"))
	}
	return upstream.SealResult{SealedDocumentID: "sealed-" + req.SignatureRequestID}, nil
}

type harness struct {
	store      *sqlite.Store
	clock      *clock
	sealer     *countingSealer
	metrics    *telemetry.Metrics
	requests   *RequestService
	signing    *SigningService
	completion *CompletionService
	previews   *PreviewService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "signing.db")))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	tickets, err := viewticket.NewEphemeralIssuer("quill-test", 5*time.Minute)
	require.NoError(t, err)

	h := &harness{store: st, clock: newClock(), sealer: &countingSealer{}, metrics: telemetry.New()}
	h.previews = &PreviewService{
		Store:      st,
		Tickets:    tickets,
		Metrics:    h.metrics,
		TTL:        time.Hour,
		MaxAccess:  3,
		MaxRetries: 10,
		Now:        h.clock.Now,
	}
	h.completion = &CompletionService{
		Store:       st,
		Sealer:      h.sealer,
		Notifier:    upstream.LogNotifier{},
		Previews:    h.previews,
		Metrics:     h.metrics,
		MaxAttempts: 3,
		Now:         h.clock.Now,
	}
	h.signing = &SigningService{
		Store:      st,
		Completion: h.completion,
		Metrics:    h.metrics,
		MaxRetries: 10,
		Now:        h.clock.Now,
	}
	h.requests = &RequestService{Store: st, Now: h.clock.Now}
	return h
}

func (h *harness) create(t *testing.T, emails ...string) (*domain.SignatureRequest, []domain.IssuedToken) {
	t.Helper()
	slots := make([]domain.SignerSlot, len(emails))
	for i, e := range emails {
		slots[i] = domain.SignerSlot{
			CustomerID: "cust-" + e,
			Email:      e,
			Name:       e,
			Placement:  domain.BoxTemplate{Page: 1, X: 50, Y: 60, Width: 120, Height: 40},
		}
	}
	req, tokens, err := h.requests.Create(context.Background(), domain.CreateRequestInput{
		DocumentID: "doc-42",
		Title:      "Tenancy agreement",
		CompanyID:  "company-1",
		CreatedBy:  "user-1",
		Signers:    slots,
	})
	require.NoError(t, err)
	return req, tokens
}

func (h *harness) consent(t *testing.T, token string) {
	t.Helper()
	_, err := h.signing.Consent(context.Background(), SignerContext{Token: token, ClientIP: "203.0.113.7", UserAgent: "test"})
	require.NoError(t, err)
}

func submitInput(token string) SubmitInput {
	return SubmitInput{
		SignerContext: SignerContext{Token: token, ClientIP: "203.0.113.7", UserAgent: "test"},
		Image:         []byte("\x89PNG signature"),
		Certificate:   []byte(`{"issuer":"test-ca"}`),
	}
}

// drain runs due outbox jobs until none are left.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	for range 100 {
		found, _ := h.completion.RunOnce(context.Background())
		if !found {
			return
		}
	}
	t.Fatal("outbox did not drain")
}

func (h *harness) jobCounts(t *testing.T) map[domain.JobStatus]int {
	t.Helper()
	counts, err := h.store.Outbox().CountByStatus(context.Background())
	require.NoError(t, err)
	return counts
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }
