package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/jackc/pgx/v5"
)

type outboxRepo struct {
	q querier
}

const jobColumns = `id, kind, dedupe_key, payload, status, attempts, available_at,
	locked_until, last_error, created_at, updated_at`

func (r *outboxRepo) Enqueue(ctx context.Context, job domain.OutboxJob) (bool, error) {
	payload, err := cryptox.Seal(job.Payload)
	if err != nil {
		return false, fmt.Errorf("seal outbox payload: %w", err)
	}
	if payload == nil {
		payload = []byte{}
	}
	if job.Status == "" {
		job.Status = domain.JobQueued
	}

	tag, err := r.q.Exec(ctx, `
		INSERT INTO outbox_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (kind, dedupe_key) DO NOTHING`,
		job.ID, string(job.Kind), nullString(job.DedupeKey), payload, string(job.Status), job.Attempts,
		job.AvailableAt, job.LockedUntil, job.LastError, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("enqueue outbox job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *outboxRepo) Get(ctx context.Context, id string) (domain.OutboxJob, error) {
	job, err := scanJob(r.q.QueryRow(ctx, `SELECT `+jobColumns+` FROM outbox_jobs WHERE id = $1`, id))
	if err != nil {
		return domain.OutboxJob{}, mapNotFound(err)
	}
	return job, nil
}

// Claim locks the next due row with SKIP LOCKED so concurrent workers on
// other replicas pass over it instead of blocking.
func (r *outboxRepo) Claim(ctx context.Context, now time.Time, lease time.Duration) (domain.OutboxJob, bool, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE outbox_jobs
		SET status = 'running', attempts = attempts + 1, locked_until = $1, updated_at = $2
		WHERE id = (
			SELECT id FROM outbox_jobs
			WHERE (status = 'queued' AND available_at <= $2)
			   OR (status = 'running' AND locked_until <= $2)
			ORDER BY available_at, id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+jobColumns,
		now.Add(lease), now,
	)
	return claimed(row)
}

func (r *outboxRepo) ClaimByID(ctx context.Context, id string, now time.Time, lease time.Duration) (domain.OutboxJob, bool, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE outbox_jobs
		SET status = 'running', attempts = attempts + 1, locked_until = $1, updated_at = $2
		WHERE id = (
			SELECT id FROM outbox_jobs
			WHERE id = $3
			  AND (status = 'queued' OR (status = 'running' AND locked_until <= $2))
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		now.Add(lease), now, id,
	)
	return claimed(row)
}

func claimed(row pgx.Row) (domain.OutboxJob, bool, error) {
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OutboxJob{}, false, nil
	}
	if err != nil {
		return domain.OutboxJob{}, false, fmt.Errorf("claim outbox job: %w", err)
	}
	return job, true, nil
}

func (r *outboxRepo) Complete(ctx context.Context, id string, now time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE outbox_jobs
		SET status = 'completed', locked_until = NULL, last_error = '', updated_at = $1
		WHERE id = $2`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("complete outbox job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *outboxRepo) Fail(ctx context.Context, id, lastError string, retryAt time.Time, dead bool, now time.Time) error {
	status := domain.JobQueued
	if dead {
		status = domain.JobDead
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE outbox_jobs
		SET status = $1, available_at = $2, locked_until = NULL, last_error = $3, updated_at = $4
		WHERE id = $5`,
		string(status), retryAt, lastError, now, id,
	)
	if err != nil {
		return fmt.Errorf("fail outbox job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *outboxRepo) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM outbox_jobs WHERE status = 'completed' AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete completed outbox jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *outboxRepo) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := r.q.Query(ctx, `SELECT status, COUNT(*) FROM outbox_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count outbox jobs: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.JobStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[domain.JobStatus(status)] = n
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (domain.OutboxJob, error) {
	var (
		job          domain.OutboxJob
		kind, status string
		dedupe       *string
		payload      []byte
	)
	if err := row.Scan(
		&job.ID, &kind, &dedupe, &payload, &status, &job.Attempts, &job.AvailableAt,
		&job.LockedUntil, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return domain.OutboxJob{}, err
	}

	plain, err := cryptox.Open(payload)
	if err != nil {
		return domain.OutboxJob{}, fmt.Errorf("open outbox payload %s: %w", job.ID, err)
	}

	job.Kind = domain.JobKind(kind)
	job.DedupeKey = derefString(dedupe)
	job.Payload = plain
	job.Status = domain.JobStatus(status)
	job.AvailableAt = job.AvailableAt.UTC()
	job.LockedUntil = utcPtr(job.LockedUntil)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return job, nil
}
