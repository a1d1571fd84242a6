// Package postgres is the PostgreSQL store driver, built on a pgx connection
// pool. It is selected with SIGNING_DATABASE_DRIVER=postgres.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against url and pings it.
func Connect(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &txStore{ctx: ctx, tx: tx}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) SignatureRequests() store.SignatureRequests {
	return &requestsRepo{q: s.pool, pool: s.pool}
}
func (s *Store) PreviewGrants() store.PreviewGrants    { return &grantsRepo{q: s.pool} }
func (s *Store) Outbox() store.Outbox                  { return &outboxRepo{q: s.pool} }
func (s *Store) Idempotency() store.IdempotencyRecords { return &idempotencyRepo{q: s.pool} }

type txStore struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *txStore) Rollback() error { return t.tx.Rollback(t.ctx) }

func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error         { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, pgx.ErrTxClosed
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return pgx.ErrTxClosed
}

func (t *txStore) SignatureRequests() store.SignatureRequests { return &requestsRepo{q: t.tx} }
func (t *txStore) PreviewGrants() store.PreviewGrants         { return &grantsRepo{q: t.tx} }
func (t *txStore) Outbox() store.Outbox                       { return &outboxRepo{q: t.tx} }
func (t *txStore) Idempotency() store.IdempotencyRecords      { return &idempotencyRepo{q: t.tx} }

// atomic runs fn in the caller's transaction, or in a fresh one when the
// repo was obtained from the root Store.
func atomic(ctx context.Context, q querier, pool *pgxpool.Pool, fn func(q querier) error) error {
	if pool == nil {
		return fn(q)
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error { return fn(tx) })
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
