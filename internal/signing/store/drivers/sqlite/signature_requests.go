package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
)

type requestsRepo struct {
	q  dbtx
	db *sql.DB // set only outside a transaction
}

const requestColumns = `id, document_id, title, company_id, created_by, status, version,
	sealed_document_id, completed_at, sealed_at, created_at, updated_at`

const signerColumns = `id, request_id, customer_id, email, name, sort_order, status,
	page, box_x, box_y, box_width, box_height, initials, date_marker, token_hash,
	signature_image, certificate,
	consent_agreed_at, consent_client_ip, consent_user_agent,
	signed_at, client_ip, user_agent, rejected_at, rejection_reason, created_at`

func (r *requestsRepo) Create(ctx context.Context, req *domain.SignatureRequest) error {
	return atomic(ctx, r.q, r.db, func(q dbtx) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO signature_requests (`+requestColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			req.ID, req.DocumentID, req.Title, req.CompanyID, req.CreatedBy, string(req.Status), req.Version,
			mapStringNull(req.SealedDocumentID), toNullMillis(req.CompletedAt), toNullMillis(req.SealedAt),
			toMillis(req.CreatedAt), toMillis(req.UpdatedAt),
		)
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("insert signature request: %w", err)
		}

		for i := range req.Signers {
			if err := insertSigner(ctx, q, &req.Signers[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertSigner(ctx context.Context, q dbtx, s *domain.Signer) error {
	image, err := cryptox.Seal(s.SignatureImage)
	if err != nil {
		return fmt.Errorf("seal signature image: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO signers (`+signerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.RequestID, s.CustomerID, s.Email, s.Name, s.Order, string(s.Status),
		s.Placement.Page, s.Placement.X, s.Placement.Y, s.Placement.Width, s.Placement.Height,
		boolToInt(s.Placement.Initials), boolToInt(s.Placement.DateMarker), s.TokenHash,
		image, mapStringNull(string(s.Certificate)),
		toNullMillis(s.ConsentAgreedAt), s.ConsentClientIP, s.ConsentUserAgent,
		toNullMillis(s.SignedAt), s.ClientIP, s.UserAgent,
		toNullMillis(s.RejectedAt), s.RejectionReason, toMillis(s.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert signer: %w", err)
	}
	return nil
}

func (r *requestsRepo) Get(ctx context.Context, id string) (*domain.SignatureRequest, error) {
	return r.getWhere(ctx, `id = ?`, id)
}

func (r *requestsRepo) GetBySignerTokenHash(ctx context.Context, tokenHash string) (*domain.SignatureRequest, error) {
	return r.getWhere(ctx, `id = (SELECT request_id FROM signers WHERE token_hash = ?)`, tokenHash)
}

func (r *requestsRepo) GetBySignerID(ctx context.Context, signerID string) (*domain.SignatureRequest, error) {
	return r.getWhere(ctx, `id = (SELECT request_id FROM signers WHERE id = ?)`, signerID)
}

func (r *requestsRepo) getWhere(ctx context.Context, where string, arg any) (*domain.SignatureRequest, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM signature_requests WHERE `+where, arg)
	req, err := scanRequest(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	signers, err := r.loadSigners(ctx, []string{req.ID})
	if err != nil {
		return nil, err
	}
	req.Signers = signers[req.ID]
	return req, nil
}

func (r *requestsRepo) List(ctx context.Context, f store.ListFilter) ([]domain.SignatureRequest, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.CompanyID != "" {
		conds = append(conds, "company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM signature_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count signature requests: %w", err)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM signature_requests`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list signature requests: %w", err)
	}
	defer rows.Close()

	var (
		out []domain.SignatureRequest
		ids []string
	)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *req)
		ids = append(ids, req.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	_ = rows.Close()

	signers, err := r.loadSigners(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Signers = signers[out[i].ID]
	}
	return out, total, nil
}

func (r *requestsRepo) loadSigners(ctx context.Context, requestIDs []string) (map[string][]domain.Signer, error) {
	out := make(map[string][]domain.Signer, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(requestIDs)), ",")
	args := make([]any, len(requestIDs))
	for i, id := range requestIDs {
		args[i] = id
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+signerColumns+` FROM signers WHERE request_id IN (`+placeholders+`)
		 ORDER BY request_id, sort_order, created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("load signers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSigner(rows)
		if err != nil {
			return nil, err
		}
		out[s.RequestID] = append(out[s.RequestID], s)
	}
	return out, rows.Err()
}

func (r *requestsRepo) Update(ctx context.Context, req *domain.SignatureRequest, expectedVersion int64) error {
	next := expectedVersion + 1
	err := atomic(ctx, r.q, r.db, func(q dbtx) error {
		res, err := q.ExecContext(ctx, `
			UPDATE signature_requests
			SET status = ?, version = ?, sealed_document_id = ?, completed_at = ?, sealed_at = ?, updated_at = ?
			WHERE id = ? AND version = ?`,
			string(req.Status), next, mapStringNull(req.SealedDocumentID),
			toNullMillis(req.CompletedAt), toNullMillis(req.SealedAt), toMillis(req.UpdatedAt),
			req.ID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update signature request: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return versionMiss(ctx, q, `SELECT 1 FROM signature_requests WHERE id = ?`, req.ID)
		}

		for i := range req.Signers {
			if err := updateSigner(ctx, q, &req.Signers[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	req.Version = next
	return nil
}

func updateSigner(ctx context.Context, q dbtx, s *domain.Signer) error {
	image, err := cryptox.Seal(s.SignatureImage)
	if err != nil {
		return fmt.Errorf("seal signature image: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		UPDATE signers
		SET status = ?, signature_image = ?, certificate = ?,
		    consent_agreed_at = ?, consent_client_ip = ?, consent_user_agent = ?,
		    signed_at = ?, client_ip = ?, user_agent = ?,
		    rejected_at = ?, rejection_reason = ?
		WHERE id = ? AND request_id = ?`,
		string(s.Status), image, mapStringNull(string(s.Certificate)),
		toNullMillis(s.ConsentAgreedAt), s.ConsentClientIP, s.ConsentUserAgent,
		toNullMillis(s.SignedAt), s.ClientIP, s.UserAgent,
		toNullMillis(s.RejectedAt), s.RejectionReason,
		s.ID, s.RequestID,
	)
	if err != nil {
		return fmt.Errorf("update signer: %w", err)
	}
	return nil
}

// versionMiss tells a missing row apart from a stale version.
func versionMiss(ctx context.Context, q dbtx, query, id string) error {
	var one int
	if err := q.QueryRowContext(ctx, query, id).Scan(&one); err != nil {
		return mapNotFound(err)
	}
	return store.ErrVersionConflict
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*domain.SignatureRequest, error) {
	var (
		req                   domain.SignatureRequest
		status                string
		sealed                sql.NullString
		completedAt, sealedAt sql.NullInt64
		createdAt, updatedAt  int64
	)
	if err := row.Scan(
		&req.ID, &req.DocumentID, &req.Title, &req.CompanyID, &req.CreatedBy, &status, &req.Version,
		&sealed, &completedAt, &sealedAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	req.SealedDocumentID = mapNullString(sealed)
	req.CompletedAt = fromNullMillis(completedAt)
	req.SealedAt = fromNullMillis(sealedAt)
	req.CreatedAt = fromMillis(createdAt)
	req.UpdatedAt = fromMillis(updatedAt)
	return &req, nil
}

func scanSigner(row scanner) (domain.Signer, error) {
	var (
		s                               domain.Signer
		status                          string
		initials, dateMarker            int
		image                           []byte
		certificate                     sql.NullString
		consentAt, signedAt, rejectedAt sql.NullInt64
		createdAt                       int64
	)
	if err := row.Scan(
		&s.ID, &s.RequestID, &s.CustomerID, &s.Email, &s.Name, &s.Order, &status,
		&s.Placement.Page, &s.Placement.X, &s.Placement.Y, &s.Placement.Width, &s.Placement.Height,
		&initials, &dateMarker, &s.TokenHash,
		&image, &certificate,
		&consentAt, &s.ConsentClientIP, &s.ConsentUserAgent,
		&signedAt, &s.ClientIP, &s.UserAgent,
		&rejectedAt, &s.RejectionReason, &createdAt,
	); err != nil {
		return domain.Signer{}, err
	}

	plain, err := cryptox.Open(image)
	if err != nil {
		return domain.Signer{}, fmt.Errorf("open signature image for signer %s: %w", s.ID, err)
	}

	s.Status = domain.SignerStatus(status)
	s.Placement.Initials = initials != 0
	s.Placement.DateMarker = dateMarker != 0
	s.SignatureImage = plain
	if certificate.Valid {
		s.Certificate = json.RawMessage(certificate.String)
	}
	s.ConsentAgreedAt = fromNullMillis(consentAt)
	s.SignedAt = fromNullMillis(signedAt)
	s.RejectedAt = fromNullMillis(rejectedAt)
	s.CreatedAt = fromMillis(createdAt)
	return s, nil
}
