package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type requestsRepo struct {
	q    querier
	pool *pgxpool.Pool // set only outside a transaction
}

const requestColumns = `id, document_id, title, company_id, created_by, status, version,
	sealed_document_id, completed_at, sealed_at, created_at, updated_at`

const signerColumns = `id, request_id, customer_id, email, name, sort_order, status,
	page, box_x, box_y, box_width, box_height, initials, date_marker, token_hash,
	signature_image, certificate,
	consent_agreed_at, consent_client_ip, consent_user_agent,
	signed_at, client_ip, user_agent, rejected_at, rejection_reason, created_at`

func (r *requestsRepo) Create(ctx context.Context, req *domain.SignatureRequest) error {
	return atomic(ctx, r.q, r.pool, func(q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO signature_requests (`+requestColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			req.ID, req.DocumentID, req.Title, req.CompanyID, req.CreatedBy, string(req.Status), req.Version,
			nullString(req.SealedDocumentID), req.CompletedAt, req.SealedAt, req.CreatedAt, req.UpdatedAt,
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

func certificateArg(s *domain.Signer) any {
	if len(s.Certificate) == 0 {
		return nil
	}
	return string(s.Certificate)
}

func insertSigner(ctx context.Context, q querier, s *domain.Signer) error {
	image, err := cryptox.Seal(s.SignatureImage)
	if err != nil {
		return fmt.Errorf("seal signature image: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO signers (`+signerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		s.ID, s.RequestID, s.CustomerID, s.Email, s.Name, s.Order, string(s.Status),
		s.Placement.Page, s.Placement.X, s.Placement.Y, s.Placement.Width, s.Placement.Height,
		s.Placement.Initials, s.Placement.DateMarker, s.TokenHash,
		image, certificateArg(s),
		s.ConsentAgreedAt, s.ConsentClientIP, s.ConsentUserAgent,
		s.SignedAt, s.ClientIP, s.UserAgent,
		s.RejectedAt, s.RejectionReason, s.CreatedAt,
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
	return r.getWhere(ctx, `id = $1`, id)
}

func (r *requestsRepo) GetBySignerTokenHash(ctx context.Context, tokenHash string) (*domain.SignatureRequest, error) {
	return r.getWhere(ctx, `id = (SELECT request_id FROM signers WHERE token_hash = $1)`, tokenHash)
}

func (r *requestsRepo) GetBySignerID(ctx context.Context, signerID string) (*domain.SignatureRequest, error) {
	return r.getWhere(ctx, `id = (SELECT request_id FROM signers WHERE id = $1)`, signerID)
}

func (r *requestsRepo) getWhere(ctx context.Context, where string, arg any) (*domain.SignatureRequest, error) {
	row := r.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM signature_requests WHERE `+where, arg)
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
		args = append(args, f.CompanyID)
		conds = append(conds, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM signature_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count signature requests: %w", err)
	}

	page := fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.q.Query(ctx, `SELECT `+requestColumns+` FROM signature_requests`+where+page,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list signature requests: %w", err)
	}

	var (
		out []domain.SignatureRequest
		ids []string
	)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, *req)
		ids = append(ids, req.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

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

	rows, err := r.q.Query(ctx,
		`SELECT `+signerColumns+` FROM signers WHERE request_id = ANY($1)
		 ORDER BY request_id, sort_order, created_at, id`, requestIDs)
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
	err := atomic(ctx, r.q, r.pool, func(q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE signature_requests
			SET status = $1, version = $2, sealed_document_id = $3, completed_at = $4, sealed_at = $5, updated_at = $6
			WHERE id = $7 AND version = $8`,
			string(req.Status), next, nullString(req.SealedDocumentID),
			req.CompletedAt, req.SealedAt, req.UpdatedAt,
			req.ID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update signature request: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return versionMiss(ctx, q, `SELECT 1 FROM signature_requests WHERE id = $1`, req.ID)
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

func updateSigner(ctx context.Context, q querier, s *domain.Signer) error {
	image, err := cryptox.Seal(s.SignatureImage)
	if err != nil {
		return fmt.Errorf("seal signature image: %w", err)
	}
	_, err = q.Exec(ctx, `
		UPDATE signers
		SET status = $1, signature_image = $2, certificate = $3,
		    consent_agreed_at = $4, consent_client_ip = $5, consent_user_agent = $6,
		    signed_at = $7, client_ip = $8, user_agent = $9,
		    rejected_at = $10, rejection_reason = $11
		WHERE id = $12 AND request_id = $13`,
		string(s.Status), image, certificateArg(s),
		s.ConsentAgreedAt, s.ConsentClientIP, s.ConsentUserAgent,
		s.SignedAt, s.ClientIP, s.UserAgent,
		s.RejectedAt, s.RejectionReason,
		s.ID, s.RequestID,
	)
	if err != nil {
		return fmt.Errorf("update signer: %w", err)
	}
	return nil
}

// versionMiss tells a missing row apart from a stale version.
func versionMiss(ctx context.Context, q querier, query, id string) error {
	var one int
	if err := q.QueryRow(ctx, query, id).Scan(&one); err != nil {
		return mapNotFound(err)
	}
	return store.ErrVersionConflict
}

func scanRequest(row pgx.Row) (*domain.SignatureRequest, error) {
	var (
		req    domain.SignatureRequest
		status string
		sealed *string
	)
	if err := row.Scan(
		&req.ID, &req.DocumentID, &req.Title, &req.CompanyID, &req.CreatedBy, &status, &req.Version,
		&sealed, &req.CompletedAt, &req.SealedAt, &req.CreatedAt, &req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	req.SealedDocumentID = derefString(sealed)
	req.CompletedAt = utcPtr(req.CompletedAt)
	req.SealedAt = utcPtr(req.SealedAt)
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	return &req, nil
}

func scanSigner(row pgx.Row) (domain.Signer, error) {
	var (
		s           domain.Signer
		status      string
		image       []byte
		certificate []byte
	)
	if err := row.Scan(
		&s.ID, &s.RequestID, &s.CustomerID, &s.Email, &s.Name, &s.Order, &status,
		&s.Placement.Page, &s.Placement.X, &s.Placement.Y, &s.Placement.Width, &s.Placement.Height,
		&s.Placement.Initials, &s.Placement.DateMarker, &s.TokenHash,
		&image, &certificate,
		&s.ConsentAgreedAt, &s.ConsentClientIP, &s.ConsentUserAgent,
		&s.SignedAt, &s.ClientIP, &s.UserAgent,
		&s.RejectedAt, &s.RejectionReason, &s.CreatedAt,
	); err != nil {
		return domain.Signer{}, err
	}

	plain, err := cryptox.Open(image)
	if err != nil {
		return domain.Signer{}, fmt.Errorf("open signature image for signer %s: %w", s.ID, err)
	}

	s.Status = domain.SignerStatus(status)
	s.SignatureImage = plain
	if len(certificate) > 0 {
		s.Certificate = certificate
	}
	s.ConsentAgreedAt = utcPtr(s.ConsentAgreedAt)
	s.SignedAt = utcPtr(s.SignedAt)
	s.RejectedAt = utcPtr(s.RejectedAt)
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}
