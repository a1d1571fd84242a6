// Package service implements the signing use cases on top of the domain
// aggregate and the store: request authoring, the per-signer consent,
// submit and reject operations, preview access, and the outbox that drives
// sealing and notifications after completion.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxRetries bounds the optimistic concurrency loop.
const DefaultMaxRetries = 3

func utcNow() time.Time { return time.Now().UTC() }

// retryOnConflict runs fn until it succeeds, fails with anything other than
// a version conflict, or maxAttempts is spent. fn receives the zero-based
// attempt number and must re-read everything it writes. Running out of
// attempts yields domain.ErrConcurrencyConflict.
func retryOnConflict(ctx context.Context, maxAttempts int, onRetry func(), fn func(attempt int) error) error {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxRetries
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 20 * time.Millisecond
	eb.MaxInterval = 200 * time.Millisecond
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxAttempts-1)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		err := fn(attempt)
		attempt++
		if err == nil || errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(error, time.Duration) {
		if onRetry != nil {
			onRetry()
		}
	})

	if errors.Is(err, store.ErrVersionConflict) {
		return domain.ErrConcurrencyConflict
	}
	return err
}

// outcome buckets an error into a metrics label.
func outcome(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr), errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrSignerNotFound),
		errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrGrantNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAccessDenied):
		return "denied"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, domain.ErrAlreadySigned),
		errors.Is(err, domain.ErrRequestNotPending),
		errors.Is(err, domain.ErrConsentRequired),
		errors.Is(err, domain.ErrSignerRejected),
		errors.Is(err, domain.ErrRequestRejected),
		errors.Is(err, domain.ErrOutOfOrder),
		errors.Is(err, domain.ErrTokenExpiredOrInvalid),
		errors.Is(err, domain.ErrNotSealed),
		errors.Is(err, domain.ErrGrantInactive):
		return "state"
	default:
		return "error"
	}
}
