package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/jackc/pgx/v5"
)

type grantsRepo struct {
	q querier
}

const grantColumns = `id, signature_request_id, signer_id, original_document_id, sealed_document_id,
	access_token_hash, session_id_hash, fingerprint_hash, expires_at, is_active,
	access_count, max_access_count, last_accessed_at, last_access_ip, last_access_user_agent,
	version, created_at, updated_at`

func (r *grantsRepo) Create(ctx context.Context, g *domain.PreviewGrant) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO preview_grants (`+grantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		g.ID, g.SignatureRequestID, g.SignerID, g.OriginalDocumentID, g.SealedDocumentID,
		g.AccessTokenHash, g.SessionIDHash, g.FingerprintHash, g.ExpiresAt, g.IsActive,
		g.AccessCount, g.MaxAccessCount, g.LastAccessedAt, g.LastAccessIP, g.LastAccessUserAgent,
		g.Version, g.CreatedAt, g.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert preview grant: %w", err)
	}
	return nil
}

func (r *grantsRepo) Get(ctx context.Context, id string) (*domain.PreviewGrant, error) {
	return r.getWhere(ctx, `id = $1`, id)
}

func (r *grantsRepo) GetByAccessTokenHash(ctx context.Context, tokenHash string) (*domain.PreviewGrant, error) {
	return r.getWhere(ctx, `access_token_hash = $1`, tokenHash)
}

func (r *grantsRepo) GetBySignerID(ctx context.Context, signerID string) (*domain.PreviewGrant, error) {
	return r.getWhere(ctx, `signer_id = $1`, signerID)
}

func (r *grantsRepo) getWhere(ctx context.Context, where string, arg any) (*domain.PreviewGrant, error) {
	g, err := scanGrant(r.q.QueryRow(ctx, `SELECT `+grantColumns+` FROM preview_grants WHERE `+where, arg))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return g, nil
}

func (r *grantsRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.PreviewGrant, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+grantColumns+` FROM preview_grants WHERE signature_request_id = $1 ORDER BY created_at, id`,
		requestID)
	if err != nil {
		return nil, fmt.Errorf("list preview grants: %w", err)
	}
	defer rows.Close()

	var out []domain.PreviewGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *grantsRepo) Update(ctx context.Context, g *domain.PreviewGrant, expectedVersion int64) error {
	next := expectedVersion + 1
	tag, err := r.q.Exec(ctx, `
		UPDATE preview_grants
		SET sealed_document_id = $1, access_token_hash = $2, session_id_hash = $3, fingerprint_hash = $4,
		    expires_at = $5, is_active = $6, access_count = $7, max_access_count = $8,
		    last_accessed_at = $9, last_access_ip = $10, last_access_user_agent = $11,
		    version = $12, updated_at = $13
		WHERE id = $14 AND version = $15`,
		g.SealedDocumentID, g.AccessTokenHash, g.SessionIDHash, g.FingerprintHash,
		g.ExpiresAt, g.IsActive, g.AccessCount, g.MaxAccessCount,
		g.LastAccessedAt, g.LastAccessIP, g.LastAccessUserAgent,
		next, g.UpdatedAt,
		g.ID, expectedVersion,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update preview grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return versionMiss(ctx, r.q, `SELECT 1 FROM preview_grants WHERE id = $1`, g.ID)
	}
	g.Version = next
	return nil
}

func (r *grantsRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE preview_grants
		SET is_active = FALSE, version = version + 1, updated_at = $1
		WHERE is_active AND expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired grants: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanGrant(row pgx.Row) (*domain.PreviewGrant, error) {
	var g domain.PreviewGrant
	if err := row.Scan(
		&g.ID, &g.SignatureRequestID, &g.SignerID, &g.OriginalDocumentID, &g.SealedDocumentID,
		&g.AccessTokenHash, &g.SessionIDHash, &g.FingerprintHash, &g.ExpiresAt, &g.IsActive,
		&g.AccessCount, &g.MaxAccessCount, &g.LastAccessedAt, &g.LastAccessIP, &g.LastAccessUserAgent,
		&g.Version, &g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	g.ExpiresAt = g.ExpiresAt.UTC()
	g.LastAccessedAt = utcPtr(g.LastAccessedAt)
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return &g, nil
}
