package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
)

type outboxRepo struct {
	q dbtx
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

	res, err := r.q.ExecContext(ctx, `
		INSERT INTO outbox_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, dedupe_key) DO NOTHING`,
		job.ID, string(job.Kind), mapStringNull(job.DedupeKey), payload, string(job.Status), job.Attempts,
		toMillis(job.AvailableAt), toNullMillis(job.LockedUntil), job.LastError,
		toMillis(job.CreatedAt), toMillis(job.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("enqueue outbox job: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *outboxRepo) Get(ctx context.Context, id string) (domain.OutboxJob, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM outbox_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return domain.OutboxJob{}, mapNotFound(err)
	}
	return job, nil
}

// Claim is a single UPDATE … RETURNING; SQLite serialises writers, so two
// workers can never take the same row.
func (r *outboxRepo) Claim(ctx context.Context, now time.Time, lease time.Duration) (domain.OutboxJob, bool, error) {
	row := r.q.QueryRowContext(ctx, `
		UPDATE outbox_jobs
		SET status = 'running', attempts = attempts + 1, locked_until = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM outbox_jobs
			WHERE (status = 'queued' AND available_at <= ?)
			   OR (status = 'running' AND locked_until <= ?)
			ORDER BY available_at, id
			LIMIT 1
		)
		RETURNING `+jobColumns,
		toMillis(now.Add(lease)), toMillis(now), toMillis(now), toMillis(now),
	)
	return claimed(row)
}

func (r *outboxRepo) ClaimByID(ctx context.Context, id string, now time.Time, lease time.Duration) (domain.OutboxJob, bool, error) {
	row := r.q.QueryRowContext(ctx, `
		UPDATE outbox_jobs
		SET status = 'running', attempts = attempts + 1, locked_until = ?, updated_at = ?
		WHERE id = ?
		  AND (status = 'queued' OR (status = 'running' AND locked_until <= ?))
		RETURNING `+jobColumns,
		toMillis(now.Add(lease)), toMillis(now), id, toMillis(now),
	)
	return claimed(row)
}

func claimed(row *sql.Row) (domain.OutboxJob, bool, error) {
	job, err := scanJob(row)
	if err != nil {
		if err := mapNotFound(err); err == store.ErrNotFound {
			return domain.OutboxJob{}, false, nil
		}
		return domain.OutboxJob{}, false, fmt.Errorf("claim outbox job: %w", err)
	}
	return job, true, nil
}

func (r *outboxRepo) Complete(ctx context.Context, id string, now time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE outbox_jobs
		SET status = 'completed', locked_until = NULL, last_error = '', updated_at = ?
		WHERE id = ?`,
		toMillis(now), id,
	)
	if err != nil {
		return fmt.Errorf("complete outbox job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *outboxRepo) Fail(ctx context.Context, id, lastError string, retryAt time.Time, dead bool, now time.Time) error {
	status := domain.JobQueued
	if dead {
		status = domain.JobDead
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE outbox_jobs
		SET status = ?, available_at = ?, locked_until = NULL, last_error = ?, updated_at = ?
		WHERE id = ?`,
		string(status), toMillis(retryAt), lastError, toMillis(now), id,
	)
	if err != nil {
		return fmt.Errorf("fail outbox job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *outboxRepo) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM outbox_jobs WHERE status = 'completed' AND updated_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete completed outbox jobs: %w", err)
	}
	return res.RowsAffected()
}

func (r *outboxRepo) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox_jobs GROUP BY status`)
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

func scanJob(row scanner) (domain.OutboxJob, error) {
	var (
		job                  domain.OutboxJob
		kind, status         string
		dedupe               sql.NullString
		payload              []byte
		availableAt          int64
		lockedUntil          sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&job.ID, &kind, &dedupe, &payload, &status, &job.Attempts, &availableAt,
		&lockedUntil, &job.LastError, &createdAt, &updatedAt,
	); err != nil {
		return domain.OutboxJob{}, err
	}

	plain, err := cryptox.Open(payload)
	if err != nil {
		return domain.OutboxJob{}, fmt.Errorf("open outbox payload %s: %w", job.ID, err)
	}

	job.Kind = domain.JobKind(kind)
	job.DedupeKey = mapNullString(dedupe)
	job.Payload = plain
	job.Status = domain.JobStatus(status)
	job.AvailableAt = fromMillis(availableAt)
	job.LockedUntil = fromNullMillis(lockedUntil)
	job.CreatedAt = fromMillis(createdAt)
	job.UpdatedAt = fromMillis(updatedAt)
	return job, nil
}
