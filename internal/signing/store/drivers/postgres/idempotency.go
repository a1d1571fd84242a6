package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
)

type idempotencyRepo struct {
	q querier
}

func (r *idempotencyRepo) Get(ctx context.Context, actor, key string) (domain.IdempotencyRecord, error) {
	var (
		rec    domain.IdempotencyRecord
		sealed []byte
	)
	err := r.q.QueryRow(ctx, `
		SELECT actor, key, endpoint, request_hash, status_code, body, created_at
		FROM idempotency_records WHERE actor = $1 AND key = $2`,
		actor, key,
	).Scan(&rec.Actor, &rec.Key, &rec.Endpoint, &rec.RequestHash, &rec.StatusCode, &sealed, &rec.CreatedAt)
	if err != nil {
		return domain.IdempotencyRecord{}, mapNotFound(err)
	}
	rec.Body, err = cryptox.Open(sealed)
	if err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("open idempotency body: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (r *idempotencyRepo) Claim(ctx context.Context, rec domain.IdempotencyRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO idempotency_records (actor, key, endpoint, request_hash, status_code, body, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6)`,
		rec.Actor, rec.Key, rec.Endpoint, rec.RequestHash, []byte{}, rec.CreatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("claim idempotency key: %w", err)
	}
	return nil
}

func (r *idempotencyRepo) Complete(ctx context.Context, actor, key string, claimedAt time.Time, statusCode int, body []byte) error {
	sealed, err := cryptox.Seal(body)
	if err != nil {
		return fmt.Errorf("seal idempotency body: %w", err)
	}
	if sealed == nil {
		sealed = []byte{}
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE idempotency_records SET status_code = $1, body = $2
		WHERE actor = $3 AND key = $4 AND created_at = $5 AND status_code = 0`,
		statusCode, sealed, actor, key, claimedAt,
	)
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *idempotencyRepo) Release(ctx context.Context, actor, key string, createdAt time.Time) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM idempotency_records WHERE actor = $1 AND key = $2 AND created_at = $3`,
		actor, key, createdAt,
	)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (r *idempotencyRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM idempotency_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete idempotency records: %w", err)
	}
	return tag.RowsAffected(), nil
}
