package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
)

type idempotencyRepo struct {
	q dbtx
}

func (r *idempotencyRepo) Get(ctx context.Context, actor, key string) (domain.IdempotencyRecord, error) {
	var (
		rec       domain.IdempotencyRecord
		sealed    []byte
		createdAt int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT actor, key, endpoint, request_hash, status_code, body, created_at
		FROM idempotency_records WHERE actor = ? AND key = ?`,
		actor, key,
	).Scan(&rec.Actor, &rec.Key, &rec.Endpoint, &rec.RequestHash, &rec.StatusCode, &sealed, &createdAt)
	if err != nil {
		return domain.IdempotencyRecord{}, mapNotFound(err)
	}
	rec.Body, err = cryptox.Open(sealed)
	if err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("open idempotency body: %w", err)
	}
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}

func (r *idempotencyRepo) Claim(ctx context.Context, rec domain.IdempotencyRecord) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO idempotency_records (actor, key, endpoint, request_hash, status_code, body, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		rec.Actor, rec.Key, rec.Endpoint, rec.RequestHash, []byte{}, toMillis(rec.CreatedAt),
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

	res, err := r.q.ExecContext(ctx, `
		UPDATE idempotency_records SET status_code = ?, body = ?
		WHERE actor = ? AND key = ? AND created_at = ? AND status_code = 0`,
		statusCode, sealed, actor, key, toMillis(claimedAt),
	)
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *idempotencyRepo) Release(ctx context.Context, actor, key string, createdAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM idempotency_records WHERE actor = ? AND key = ? AND created_at = ?`,
		actor, key, toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (r *idempotencyRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM idempotency_records WHERE created_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete idempotency records: %w", err)
	}
	return res.RowsAffected()
}
