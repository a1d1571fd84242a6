package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/internal/signing/telemetry"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/slogx"
)

// DefaultInlineTimeout caps how long a completing submit waits for sealing
// before answering with downstream_pending.
const DefaultInlineTimeout = 10 * time.Second

// SigningService runs the token-authenticated signer operations. Every
// mutation re-reads the aggregate, re-applies the change and writes it back
// conditionally on the version it read.
type SigningService struct {
	Store         store.Store
	Completion    *CompletionService // nil leaves sealing to the outbox worker
	Metrics       *telemetry.Metrics
	MaxRetries    int
	EnforceOrder  bool
	InlineTimeout time.Duration
	Now           func() time.Time
}

func (s *SigningService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return utcNow()
}

// SignerContext is what the caller knows about the signer's client.
type SignerContext struct {
	Token     string
	ClientIP  string
	UserAgent string
}

type ConsentResult struct {
	SignatureRequestID string
	SignerID           string
	Status             domain.SignerStatus
	ConsentedAt        time.Time
}

type SubmitInput struct {
	SignerContext
	Image       []byte
	Certificate json.RawMessage
}

type SubmitResult struct {
	SignatureRequestID string
	SignerID           string
	RequestStatus      domain.RequestStatus
	SignedAt           time.Time

	// Completed is true only for the submission that completed the request.
	Completed bool

	// Preview carries this signer's own credentials when sealing finished
	// inline.
	Preview *domain.PreviewCredentials

	// DownstreamPending reports that signing is durable but sealing or
	// grant issuance has not happened yet.
	DownstreamPending bool
}

type RejectResult struct {
	SignatureRequestID string
	SignerID           string
	RejectedAt         time.Time
}

// resolve finds the request and signer owning a raw capability token.
func resolve(ctx context.Context, repo store.SignatureRequests, token string) (*domain.SignatureRequest, *domain.Signer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, domain.ErrSignerNotFound
	}
	hash := cryptox.FingerprintToken(token)

	req, err := repo.GetBySignerTokenHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, domain.ErrSignerNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	signer, err := req.SignerByTokenHash(hash)
	if err != nil {
		return nil, nil, err
	}
	return req, signer, nil
}

func (s *SigningService) onRetry() { s.Metrics.ConflictRetry("signature_request") }

// Consent records the signer's agreement to sign electronically. Consenting
// twice keeps the first audit record.
func (s *SigningService) Consent(ctx context.Context, in SignerContext) (*ConsentResult, error) {
	var res ConsentResult

	err := retryOnConflict(ctx, s.MaxRetries, s.onRetry, func(int) error {
		req, signer, err := resolve(ctx, s.Store.SignatureRequests(), in.Token)
		if err != nil {
			return err
		}

		expected := req.Version
		changed, err := req.Consent(signer.ID, domain.Audit{ClientIP: in.ClientIP, UserAgent: in.UserAgent, At: s.now()})
		if err != nil {
			return err
		}
		if changed {
			if err := s.Store.SignatureRequests().Update(ctx, req, expected); err != nil {
				return err
			}
		}

		res = ConsentResult{
			SignatureRequestID: req.ID,
			SignerID:           signer.ID,
			Status:             signer.Status,
			ConsentedAt:        *signer.ConsentAgreedAt,
		}
		return nil
	})

	s.Metrics.SigningAction("consent", outcome(err))
	if err != nil {
		return nil, err
	}
	slogx.FromContext(ctx).Info("consent registered",
		"signature_request_id", res.SignatureRequestID,
		"signer_id", res.SignerID,
	)
	return &res, nil
}

// Submit signs for the token's signer. The write that signs the last slot
// also moves the request to completed and queues exactly one seal job.
func (s *SigningService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	var (
		res       SubmitResult
		sealJobID string
	)

	err := retryOnConflict(ctx, s.MaxRetries, s.onRetry, func(attempt int) error {
		res, sealJobID = SubmitResult{}, ""

		req, signer, err := resolve(ctx, s.Store.SignatureRequests(), in.Token)
		if err != nil {
			return err
		}

		// Our earlier attempt lost the race to a duplicate submit from the
		// same signer, which did the work.
		if attempt > 0 && signer.Status == domain.SignerSigned {
			res = SubmitResult{
				SignatureRequestID: req.ID,
				SignerID:           signer.ID,
				RequestStatus:      req.Status,
				SignedAt:           *signer.SignedAt,
			}
			return nil
		}

		now := s.now()
		expected := req.Version
		completed, err := req.Submit(signer.ID,
			domain.Signature{Image: in.Image, Certificate: in.Certificate},
			domain.Audit{ClientIP: in.ClientIP, UserAgent: in.UserAgent, At: now},
			domain.SubmitOptions{EnforceOrder: s.EnforceOrder},
		)
		if err != nil {
			return err
		}

		return s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.SignatureRequests().Update(ctx, req, expected); err != nil {
				return err
			}

			signed := domain.Event{
				Type:               domain.EventSignerSigned,
				OccurredAt:         now,
				SignatureRequestID: req.ID,
				DocumentID:         req.DocumentID,
				CompanyID:          req.CompanyID,
				SignerID:           signer.ID,
			}
			if _, err := enqueueEvent(ctx, tx.Outbox(), signed, "signed/"+signer.ID, now); err != nil {
				return err
			}

			if completed {
				job, err := newSealJob(req.ID, now)
				if err != nil {
					return err
				}
				inserted, err := tx.Outbox().Enqueue(ctx, job)
				if err != nil {
					return err
				}
				if inserted {
					sealJobID = job.ID
				}
			}

			res = SubmitResult{
				SignatureRequestID: req.ID,
				SignerID:           signer.ID,
				RequestStatus:      req.Status,
				SignedAt:           now,
				Completed:          completed,
			}
			return nil
		})
	})

	s.Metrics.SigningAction("submit", outcome(err))
	if err != nil {
		return nil, err
	}

	l := slogx.FromContext(ctx)
	l.Info("signature submitted",
		"signature_request_id", res.SignatureRequestID,
		"signer_id", res.SignerID,
		"completed", res.Completed,
	)

	if !res.Completed {
		return &res, nil
	}
	s.Metrics.RequestCompleted()

	res.DownstreamPending = true
	if s.Completion == nil || sealJobID == "" {
		return &res, nil
	}

	timeout := s.InlineTimeout
	if timeout <= 0 {
		timeout = DefaultInlineTimeout
	}
	inlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	creds, err := s.Completion.ProcessInline(inlineCtx, sealJobID)
	if err != nil {
		l.Warn("sealing deferred to outbox worker",
			"signature_request_id", res.SignatureRequestID,
			"job_id", sealJobID,
			"error", err,
		)
		return &res, nil
	}
	if c, ok := creds[res.SignerID]; ok {
		res.Preview = &c
		res.DownstreamPending = false
	}
	return &res, nil
}

// Reject ends the request for the token's signer. Only the first rejection
// on a request emits the rejected event.
func (s *SigningService) Reject(ctx context.Context, in SignerContext, reason string) (*RejectResult, error) {
	var res RejectResult

	err := retryOnConflict(ctx, s.MaxRetries, s.onRetry, func(attempt int) error {
		req, signer, err := resolve(ctx, s.Store.SignatureRequests(), in.Token)
		if err != nil {
			return err
		}
		if attempt > 0 && signer.Status == domain.SignerRejected {
			res = RejectResult{SignatureRequestID: req.ID, SignerID: signer.ID, RejectedAt: *signer.RejectedAt}
			return nil
		}

		now := s.now()
		expected := req.Version
		first, err := req.Reject(signer.ID, reason, now)
		if err != nil {
			return err
		}

		return s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.SignatureRequests().Update(ctx, req, expected); err != nil {
				return err
			}
			if first {
				ev := domain.Event{
					Type:               domain.EventRequestRejected,
					OccurredAt:         now,
					SignatureRequestID: req.ID,
					DocumentID:         req.DocumentID,
					CompanyID:          req.CompanyID,
					SignerID:           signer.ID,
					Reason:             signer.RejectionReason,
				}
				if _, err := enqueueEvent(ctx, tx.Outbox(), ev, "rejected/"+req.ID, now); err != nil {
					return err
				}
			}
			res = RejectResult{SignatureRequestID: req.ID, SignerID: signer.ID, RejectedAt: now}
			return nil
		})
	})

	s.Metrics.SigningAction("reject", outcome(err))
	if err != nil {
		return nil, err
	}
	slogx.FromContext(ctx).Info("signer rejected request",
		"signature_request_id", res.SignatureRequestID,
		"signer_id", res.SignerID,
	)
	return &res, nil
}

// Layout returns what the signing surface needs to place the signature.
func (s *SigningService) Layout(ctx context.Context, token string) (domain.Layout, error) {
	req, signer, err := resolve(ctx, s.Store.SignatureRequests(), token)
	if err != nil {
		return domain.Layout{}, err
	}
	return req.Layout(signer.ID)
}

// Resolve summarises the request as seen by the token's signer.
func (s *SigningService) Resolve(ctx context.Context, token string) (domain.Summary, error) {
	req, signer, err := resolve(ctx, s.Store.SignatureRequests(), token)
	if err != nil {
		return domain.Summary{}, err
	}
	return req.Summary(signer.ID)
}
