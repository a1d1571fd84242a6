package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrVersionConflict means the row changed since it was read.
	ErrVersionConflict = errors.New("store: version conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. Sub-repositories obtained from a Tx run inside
// that transaction; always use them, never the outer Store, inside WithTx.
type Store interface {
	SignatureRequests() SignatureRequests
	PreviewGrants() PreviewGrants
	Outbox() Outbox
	Idempotency() IdempotencyRecords

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// ListFilter narrows SignatureRequests.List.
type ListFilter struct {
	CompanyID string               // empty means all companies
	Status    domain.RequestStatus // empty means any
	Limit     int
	Offset    int
}

type SignatureRequests interface {
	// Create inserts the request and all of its signers.
	Create(ctx context.Context, req *domain.SignatureRequest) error

	// Get loads the aggregate with its signers.
	Get(ctx context.Context, id string) (*domain.SignatureRequest, error)

	// GetBySignerTokenHash loads the aggregate owning a capability token.
	GetBySignerTokenHash(ctx context.Context, tokenHash string) (*domain.SignatureRequest, error)

	// GetBySignerID loads the aggregate owning a signer.
	GetBySignerID(ctx context.Context, signerID string) (*domain.SignatureRequest, error)

	// List returns a page of requests with signers, newest first, and the
	// total number matching the filter.
	List(ctx context.Context, f ListFilter) ([]domain.SignatureRequest, int, error)

	// Update writes the request and its signers if the stored version still
	// equals expectedVersion, then sets req.Version to the new version.
	// Returns ErrVersionConflict when another writer got there first.
	Update(ctx context.Context, req *domain.SignatureRequest, expectedVersion int64) error
}

type PreviewGrants interface {
	// Create inserts a grant; ErrAlreadyExists if the signer already has one.
	Create(ctx context.Context, g *domain.PreviewGrant) error

	Get(ctx context.Context, id string) (*domain.PreviewGrant, error)
	GetByAccessTokenHash(ctx context.Context, tokenHash string) (*domain.PreviewGrant, error)
	GetBySignerID(ctx context.Context, signerID string) (*domain.PreviewGrant, error)
	ListByRequest(ctx context.Context, requestID string) ([]domain.PreviewGrant, error)

	// Update is a compare-and-set on Version, like SignatureRequests.Update.
	Update(ctx context.Context, g *domain.PreviewGrant, expectedVersion int64) error

	// DeactivateExpired flips IsActive on grants past their expiry.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type Outbox interface {
	// Enqueue inserts a job. A job whose (kind, dedupe key) already exists is
	// skipped and inserted=false.
	Enqueue(ctx context.Context, job domain.OutboxJob) (inserted bool, err error)

	Get(ctx context.Context, id string) (domain.OutboxJob, error)

	// Claim takes the next due job, or a running job whose lease lapsed,
	// marks it running until now+lease and bumps Attempts.
	Claim(ctx context.Context, now time.Time, lease time.Duration) (domain.OutboxJob, bool, error)

	// ClaimByID is Claim for one specific job.
	ClaimByID(ctx context.Context, id string, now time.Time, lease time.Duration) (domain.OutboxJob, bool, error)

	Complete(ctx context.Context, id string, now time.Time) error

	// Fail records an error and either requeues the job at retryAt or, when
	// dead is true, parks it for operators.
	Fail(ctx context.Context, id, lastError string, retryAt time.Time, dead bool, now time.Time) error

	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error)
}

// IdempotencyRecords stores one row per (actor, key). A row starts as a
// pending claim and is completed with the response. Bodies are sealed at rest.
type IdempotencyRecords interface {
	Get(ctx context.Context, actor, key string) (domain.IdempotencyRecord, error)

	// Claim inserts a pending record. ErrAlreadyExists means another caller
	// holds the key.
	Claim(ctx context.Context, rec domain.IdempotencyRecord) error

	// Complete stores the response on the pending claim made at claimedAt.
	// ErrNotFound means the claim is gone or was taken over.
	Complete(ctx context.Context, actor, key string, claimedAt time.Time, statusCode int, body []byte) error

	// Release deletes the record created at createdAt, pending or not.
	// Deleting nothing is not an error.
	Release(ctx context.Context, actor, key string, createdAt time.Time) error

	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
