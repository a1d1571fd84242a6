package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
)

type grantsRepo struct {
	q dbtx
}

const grantColumns = `id, signature_request_id, signer_id, original_document_id, sealed_document_id,
	access_token_hash, session_id_hash, fingerprint_hash, expires_at, is_active,
	access_count, max_access_count, last_accessed_at, last_access_ip, last_access_user_agent,
	version, created_at, updated_at`

func (r *grantsRepo) Create(ctx context.Context, g *domain.PreviewGrant) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO preview_grants (`+grantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.SignatureRequestID, g.SignerID, g.OriginalDocumentID, g.SealedDocumentID,
		g.AccessTokenHash, g.SessionIDHash, g.FingerprintHash, toMillis(g.ExpiresAt), boolToInt(g.IsActive),
		g.AccessCount, g.MaxAccessCount, toNullMillis(g.LastAccessedAt), g.LastAccessIP, g.LastAccessUserAgent,
		g.Version, toMillis(g.CreatedAt), toMillis(g.UpdatedAt),
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
	return r.getWhere(ctx, `id = ?`, id)
}

func (r *grantsRepo) GetByAccessTokenHash(ctx context.Context, tokenHash string) (*domain.PreviewGrant, error) {
	return r.getWhere(ctx, `access_token_hash = ?`, tokenHash)
}

func (r *grantsRepo) GetBySignerID(ctx context.Context, signerID string) (*domain.PreviewGrant, error) {
	return r.getWhere(ctx, `signer_id = ?`, signerID)
}

func (r *grantsRepo) getWhere(ctx context.Context, where string, arg any) (*domain.PreviewGrant, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+grantColumns+` FROM preview_grants WHERE `+where, arg)
	g, err := scanGrant(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return g, nil
}

func (r *grantsRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.PreviewGrant, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+grantColumns+` FROM preview_grants WHERE signature_request_id = ? ORDER BY created_at, id`,
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
	res, err := r.q.ExecContext(ctx, `
		UPDATE preview_grants
		SET sealed_document_id = ?, access_token_hash = ?, session_id_hash = ?, fingerprint_hash = ?,
		    expires_at = ?, is_active = ?, access_count = ?, max_access_count = ?,
		    last_accessed_at = ?, last_access_ip = ?, last_access_user_agent = ?,
		    version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		g.SealedDocumentID, g.AccessTokenHash, g.SessionIDHash, g.FingerprintHash,
		toMillis(g.ExpiresAt), boolToInt(g.IsActive), g.AccessCount, g.MaxAccessCount,
		toNullMillis(g.LastAccessedAt), g.LastAccessIP, g.LastAccessUserAgent,
		next, toMillis(g.UpdatedAt),
		g.ID, expectedVersion,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update preview grant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return versionMiss(ctx, r.q, `SELECT 1 FROM preview_grants WHERE id = ?`, g.ID)
	}
	g.Version = next
	return nil
}

func (r *grantsRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE preview_grants
		SET is_active = 0, version = version + 1, updated_at = ?
		WHERE is_active = 1 AND expires_at <= ?`,
		toMillis(now), toMillis(now),
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired grants: %w", err)
	}
	return res.RowsAffected()
}

func scanGrant(row scanner) (*domain.PreviewGrant, error) {
	var (
		g                    domain.PreviewGrant
		expiresAt            int64
		active               int
		lastAccessed         sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&g.ID, &g.SignatureRequestID, &g.SignerID, &g.OriginalDocumentID, &g.SealedDocumentID,
		&g.AccessTokenHash, &g.SessionIDHash, &g.FingerprintHash, &expiresAt, &active,
		&g.AccessCount, &g.MaxAccessCount, &lastAccessed, &g.LastAccessIP, &g.LastAccessUserAgent,
		&g.Version, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	g.ExpiresAt = fromMillis(expiresAt)
	g.IsActive = active != 0
	g.LastAccessedAt = fromNullMillis(lastAccessed)
	g.CreatedAt = fromMillis(createdAt)
	g.UpdatedAt = fromMillis(updatedAt)
	return &g, nil
}
