package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/slogx"
)

// DefaultIdempotencyTTL is how long a recorded response is replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

// DefaultClaimTimeout is how long a pending claim blocks other callers
// before it is presumed abandoned.
const DefaultClaimTimeout = time.Minute

var (
	// ErrIdempotencyKeyReused means the key was already used for a different
	// endpoint or request body.
	ErrIdempotencyKeyReused = errors.New("idempotency key reused with a different request")

	// ErrIdempotencyInProgress means the first request with this key has
	// not finished yet.
	ErrIdempotencyInProgress = errors.New("a request with this idempotency key is still in progress")
)

// Response is the recorded outcome of an idempotent call.
type Response struct {
	StatusCode int
	Body       []byte
}

// IdempotencyService replays the first response recorded for an
// (actor, Idempotency-Key) pair.
type IdempotencyService struct {
	Store        store.Store
	TTL          time.Duration
	ClaimTimeout time.Duration
	Now          func() time.Time
}

func (s *IdempotencyService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return utcNow()
}

func (s *IdempotencyService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultIdempotencyTTL
	}
	return s.TTL
}

func (s *IdempotencyService) claimTimeout() time.Duration {
	if s.ClaimTimeout <= 0 {
		return DefaultClaimTimeout
	}
	return s.ClaimTimeout
}

// Do runs fn at most once per key. The key is claimed before fn runs, so a
// concurrent caller with the same key gets ErrIdempotencyInProgress instead
// of a second execution. A repeat after completion gets the stored response
// and replayed=true. An empty key always runs fn and records nothing. Errors
// from fn release the claim and are returned as is.
func (s *IdempotencyService) Do(ctx context.Context, actor, key, endpoint string, body []byte, fn func() (Response, error)) (resp Response, replayed bool, err error) {
	if key == "" {
		resp, err = fn()
		return resp, false, err
	}

	hash := cryptox.FingerprintToken(string(body))
	repo := s.Store.Idempotency()
	// Stored at millisecond precision by every driver.
	claimedAt := s.now().Truncate(time.Millisecond)
	claim := domain.IdempotencyRecord{
		Actor:       actor,
		Key:         key,
		Endpoint:    endpoint,
		RequestHash: hash,
		CreatedAt:   claimedAt,
	}

	// One takeover of an expired record or abandoned claim, then give up.
	for attempt := 0; ; attempt++ {
		err := repo.Claim(ctx, claim)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return Response{}, false, err
		}

		rec, err := repo.Get(ctx, actor, key)
		if errors.Is(err, store.ErrNotFound) {
			if attempt == 0 {
				continue
			}
			return Response{}, false, ErrIdempotencyInProgress
		}
		if err != nil {
			return Response{}, false, err
		}
		r, ok, err := s.replay(rec, endpoint, hash)
		if ok || err != nil {
			return r, ok, err
		}
		if attempt > 0 {
			return Response{}, false, ErrIdempotencyInProgress
		}
		if err := repo.Release(ctx, actor, key, rec.CreatedAt); err != nil {
			return Response{}, false, err
		}
	}

	// The claim must be settled even if the caller goes away mid-request.
	settle := context.WithoutCancel(ctx)
	l := slogx.FromContext(ctx)

	resp, err = fn()
	if err != nil {
		if rerr := repo.Release(settle, actor, key, claimedAt); rerr != nil {
			l.Error("failed to release idempotency key", "endpoint", endpoint, "error", rerr)
		}
		return Response{}, false, err
	}

	err = repo.Complete(settle, actor, key, claimedAt, resp.StatusCode, resp.Body)
	if errors.Is(err, store.ErrNotFound) {
		l.Warn("idempotency claim taken over before completion", "endpoint", endpoint)
	} else if err != nil {
		l.Error("failed to record idempotent response", "endpoint", endpoint, "error", err)
	}
	return resp, false, nil
}

// replay decides what an existing record means for this call: a stored
// response (ok), a conflict (err), or a stale record that may be taken over
// (neither). A live pending claim is ErrIdempotencyInProgress.
func (s *IdempotencyService) replay(rec domain.IdempotencyRecord, endpoint, hash string) (Response, bool, error) {
	age := s.now().Sub(rec.CreatedAt)
	if rec.Pending() {
		if age > s.claimTimeout() {
			return Response{}, false, nil
		}
		if rec.Endpoint != endpoint || rec.RequestHash != hash {
			return Response{}, false, ErrIdempotencyKeyReused
		}
		return Response{}, false, ErrIdempotencyInProgress
	}
	if age > s.ttl() {
		return Response{}, false, nil
	}
	if rec.Endpoint != endpoint || rec.RequestHash != hash {
		return Response{}, false, ErrIdempotencyKeyReused
	}
	return Response{StatusCode: rec.StatusCode, Body: rec.Body}, true, nil
}
