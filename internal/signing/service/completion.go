package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/internal/signing/telemetry"
	"github.com/aussiebroadwan/quill/internal/signing/upstream"
	"github.com/aussiebroadwan/quill/pkg/idx"
	"github.com/aussiebroadwan/quill/pkg/slogx"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 8
	DefaultLease       = time.Minute
)

// ErrJobUnavailable means the job is finished or leased by another worker.
var ErrJobUnavailable = errors.New("outbox job is not claimable")

// CompletionService executes outbox jobs: sealing a completed request and
// delivering notifications. Failures are recorded on the job and retried
// by the worker; they never touch the signing state.
type CompletionService struct {
	Store       store.Store
	Sealer      upstream.Sealer
	Notifier    upstream.Notifier
	Previews    *PreviewService
	Metrics     *telemetry.Metrics
	MaxAttempts int
	Lease       time.Duration
	Now         func() time.Time
}

func (c *CompletionService) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return utcNow()
}

func (c *CompletionService) lease() time.Duration {
	if c.Lease > 0 {
		return c.Lease
	}
	return DefaultLease
}

// ProcessInline claims and runs one specific job, returning the preview
// credentials a seal job issued, keyed by signer id.
func (c *CompletionService) ProcessInline(ctx context.Context, jobID string) (map[string]domain.PreviewCredentials, error) {
	job, ok, err := c.Store.Outbox().ClaimByID(ctx, jobID, c.now(), c.lease())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobUnavailable
	}
	return c.run(ctx, job)
}

// RunOnce claims the next due job and runs it. It reports whether a job was
// found.
func (c *CompletionService) RunOnce(ctx context.Context) (bool, error) {
	job, ok, err := c.Store.Outbox().Claim(ctx, c.now(), c.lease())
	if err != nil || !ok {
		return false, err
	}
	_, err = c.run(ctx, job)
	return true, err
}

func (c *CompletionService) run(ctx context.Context, job domain.OutboxJob) (map[string]domain.PreviewCredentials, error) {
	ctx = slogx.With(ctx, "job_id", job.ID, "job_kind", job.Kind, "attempt", job.Attempts)

	var (
		creds map[string]domain.PreviewCredentials
		err   error
	)
	switch job.Kind {
	case domain.JobSealDocument:
		creds, err = c.sealDocument(ctx, job)
	case domain.JobNotifyEvent:
		err = c.notifyEvent(ctx, job)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	if err != nil {
		c.fail(ctx, job, err)
		return nil, err
	}
	c.Metrics.OutboxJob(job.Kind, "completed")
	return creds, nil
}

// fail records the error and schedules a retry, or parks the job once its
// attempts are spent. It runs detached from ctx so a cancelled caller still
// leaves the job consistent.
func (c *CompletionService) fail(ctx context.Context, job domain.OutboxJob, cause error) {
	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	dead := job.Attempts >= maxAttempts
	now := c.now()
	retryAt := now.Add(RetryDelay(job.Attempts))

	l := slogx.FromContext(ctx)
	bg := context.WithoutCancel(ctx)
	if err := c.Store.Outbox().Fail(bg, job.ID, cause.Error(), retryAt, dead, now); err != nil {
		l.Error("failed to record outbox job failure", "error", err)
	}

	if dead {
		c.Metrics.OutboxJob(job.Kind, "dead")
		l.Error("outbox job exhausted its attempts", "error", cause)
		return
	}
	c.Metrics.OutboxJob(job.Kind, "retry")
	l.Warn("outbox job failed, will retry", "error", cause, "retry_at", retryAt)
}

// RetryDelay is the wait before the next attempt of a job that has failed
// attempts times: exponential from 2s, capped at 5m.
func RetryDelay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 5 * time.Minute
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.InitialInterval
	for range max(attempts, 1) {
		d = b.NextBackOff()
	}
	return d
}

func (c *CompletionService) sealDocument(ctx context.Context, job domain.OutboxJob) (map[string]domain.PreviewCredentials, error) {
	var p domain.SealPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode seal payload: %w", err)
	}

	req, err := c.Store.SignatureRequests().Get(ctx, p.SignatureRequestID)
	if err != nil {
		return nil, fmt.Errorf("load signature request %s: %w", p.SignatureRequestID, err)
	}
	if !req.Completed() {
		return nil, fmt.Errorf("signature request %s: %w", req.ID, domain.ErrRequestNotPending)
	}

	sealedID := req.SealedDocumentID
	if !req.Sealed() {
		sealer := c.Sealer
		if sealer == nil {
			sealer = upstream.NoopSealer{}
		}
		res, err := sealer.Seal(ctx, upstream.NewSealRequest(req))
		if err != nil {
			return nil, err
		}
		sealedID = res.SealedDocumentID
	}

	var creds map[string]domain.PreviewCredentials
	err = c.Store.WithTx(ctx, func(tx store.Tx) error {
		now := c.now()

		// Re-read inside the transaction so the version we write against is
		// current.
		cur, err := tx.SignatureRequests().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		if !cur.Sealed() {
			expected := cur.Version
			if err := cur.MarkSealed(sealedID, now); err != nil {
				return err
			}
			if err := tx.SignatureRequests().Update(ctx, cur, expected); err != nil {
				return err
			}
		}

		creds, err = c.Previews.issueAll(ctx, tx.PreviewGrants(), cur, now)
		if err != nil {
			return err
		}

		ev := domain.Event{
			Type:               domain.EventRequestCompleted,
			OccurredAt:         now,
			SignatureRequestID: cur.ID,
			DocumentID:         cur.DocumentID,
			CompanyID:          cur.CompanyID,
			SealedDocumentID:   cur.SealedDocumentID,
		}
		for _, s := range cur.Signers {
			r := domain.EventRecipient{SignerID: s.ID, Email: s.Email, Name: s.Name}
			if pc, ok := creds[s.ID]; ok {
				r.Preview = &pc
			}
			ev.Recipients = append(ev.Recipients, r)
		}
		if _, err := enqueueEvent(ctx, tx.Outbox(), ev, "completed/"+cur.ID, now); err != nil {
			return err
		}

		return tx.Outbox().Complete(ctx, job.ID, now)
	})
	if err != nil {
		return nil, err
	}

	c.Metrics.GrantsIssued(len(creds))
	slogx.FromContext(ctx).Info("signature request sealed",
		"signature_request_id", req.ID,
		"sealed_document_id", sealedID,
		"grants", len(creds),
	)
	return creds, nil
}

func (c *CompletionService) notifyEvent(ctx context.Context, job domain.OutboxJob) error {
	var ev domain.Event
	if err := json.Unmarshal(job.Payload, &ev); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}

	notifier := c.Notifier
	if notifier == nil {
		notifier = upstream.LogNotifier{}
	}
	if err := notifier.Notify(ctx, ev); err != nil {
		return err
	}

	slogx.FromContext(ctx).Debug("event delivered", slog.String("event_id", ev.ID), slog.String("event_type", string(ev.Type)))
	return c.Store.Outbox().Complete(ctx, job.ID, c.now())
}

func newSealJob(requestID string, now time.Time) (domain.OutboxJob, error) {
	payload, err := json.Marshal(domain.SealPayload{SignatureRequestID: requestID})
	if err != nil {
		return domain.OutboxJob{}, err
	}
	return domain.OutboxJob{
		ID:          idx.NewAt(now).String(),
		Kind:        domain.JobSealDocument,
		DedupeKey:   requestID,
		Payload:     payload,
		Status:      domain.JobQueued,
		AvailableAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// enqueueEvent queues ev for delivery. The dedupe key keeps a retried
// operation from announcing the same fact twice.
func enqueueEvent(ctx context.Context, outbox store.Outbox, ev domain.Event, dedupe string, now time.Time) (bool, error) {
	if ev.ID == "" {
		ev.ID = idx.NewAt(now).String()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("encode event: %w", err)
	}
	return outbox.Enqueue(ctx, domain.OutboxJob{
		ID:          idx.NewAt(now).String(),
		Kind:        domain.JobNotifyEvent,
		DedupeKey:   dedupe,
		Payload:     payload,
		Status:      domain.JobQueued,
		AvailableAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
