package domain

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/idx"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestCompleted RequestStatus = "completed"
)

// MaxSigners bounds the size of one request.
const MaxSigners = 50

// SignatureRequest is the aggregate root. Its signers are only mutated
// through the methods below, and every persisted change bumps Version.
type SignatureRequest struct {
	ID               string
	DocumentID       string
	Title            string
	CompanyID        string
	CreatedBy        string
	Status           RequestStatus
	Version          int64
	SealedDocumentID string
	CompletedAt      *time.Time
	SealedAt         *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Signers []Signer // ordered by Order, then creation
}

// SignerSlot describes one signer when authoring a request.
type SignerSlot struct {
	CustomerID string
	Email      string
	Name       string
	Order      int // 0 means "position in the list"
	Placement  BoxTemplate
}

type CreateRequestInput struct {
	DocumentID string
	Title      string
	CompanyID  string
	CreatedBy  string
	Signers    []SignerSlot
}

// IssuedToken is a signer's capability token, handed back exactly once.
type IssuedToken struct {
	SignerID string
	Email    string
	Token    string
}

// NewSignatureRequest validates the input and builds a pending request with
// a fresh capability token per signer.
func NewSignatureRequest(in CreateRequestInput, now time.Time) (*SignatureRequest, []IssuedToken, error) {
	var v ValidationError

	in.DocumentID = strings.TrimSpace(in.DocumentID)
	in.Title = strings.TrimSpace(in.Title)

	if in.DocumentID == "" {
		v.Add("document_id", "is required")
	} else if len(in.DocumentID) > 128 {
		v.Add("document_id", "must be at most 128 characters")
	}
	if len(in.Title) > 200 {
		v.Add("title", "must be at most 200 characters")
	}

	switch {
	case len(in.Signers) == 0:
		v.Add("signers", "at least one signer is required")
	case len(in.Signers) > MaxSigners:
		v.Add("signers", fmt.Sprintf("at most %d signers are allowed", MaxSigners))
	}

	seen := make(map[string]int, len(in.Signers))
	for i, slot := range in.Signers {
		field := fmt.Sprintf("signers[%d]", i)

		email := strings.ToLower(strings.TrimSpace(slot.Email))
		if email == "" {
			v.Add(field+".email", "is required")
		} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			v.Add(field+".email", "is not a valid address")
		} else if j, dup := seen[email]; dup {
			v.Add(field+".email", fmt.Sprintf("duplicates signers[%d]", j))
		} else {
			seen[email] = i
		}

		if strings.TrimSpace(slot.CustomerID) == "" {
			v.Add(field+".customer_id", "is required")
		}
		if slot.Order < 0 {
			v.Add(field+".order", "must not be negative")
		}
		slot.Placement.validate(field+".placement", &v)
	}

	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	now = now.UTC()
	req := &SignatureRequest{
		ID:         idx.NewEntity(),
		DocumentID: in.DocumentID,
		Title:      in.Title,
		CompanyID:  in.CompanyID,
		CreatedBy:  in.CreatedBy,
		Status:     RequestPending,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
		Signers:    make([]Signer, 0, len(in.Signers)),
	}

	tokens := make([]IssuedToken, 0, len(in.Signers))
	for i, slot := range in.Signers {
		secret, err := cryptox.NewSecret()
		if err != nil {
			return nil, nil, fmt.Errorf("generate signer token: %w", err)
		}

		order := slot.Order
		if order == 0 {
			order = i + 1
		}

		s := Signer{
			ID:         idx.NewEntity(),
			RequestID:  req.ID,
			CustomerID: strings.TrimSpace(slot.CustomerID),
			Email:      strings.ToLower(strings.TrimSpace(slot.Email)),
			Name:       strings.TrimSpace(slot.Name),
			Order:      order,
			Status:     SignerPending,
			Placement:  slot.Placement,
			TokenHash:  secret.Fingerprint,
			CreatedAt:  now,
		}
		req.Signers = append(req.Signers, s)
		tokens = append(tokens, IssuedToken{SignerID: s.ID, Email: s.Email, Token: secret.Raw})
	}

	return req, tokens, nil
}

// SignerByTokenHash finds the signer owning a capability token fingerprint.
func (r *SignatureRequest) SignerByTokenHash(hash string) (*Signer, error) {
	for i := range r.Signers {
		if r.Signers[i].TokenHash == hash {
			return &r.Signers[i], nil
		}
	}
	return nil, ErrSignerNotFound
}

// SignerByID finds a signer in this request.
func (r *SignatureRequest) SignerByID(id string) (*Signer, error) {
	for i := range r.Signers {
		if r.Signers[i].ID == id {
			return &r.Signers[i], nil
		}
	}
	return nil, ErrSignerNotFound
}

// Completed reports whether every signer has signed.
func (r *SignatureRequest) Completed() bool {
	return r.Status == RequestCompleted
}

// Rejected reports whether any signer rejected. A rejected request stays
// pending but can never complete.
func (r *SignatureRequest) Rejected() bool {
	for i := range r.Signers {
		if r.Signers[i].Status == SignerRejected {
			return true
		}
	}
	return false
}

// SignedCount is the number of signers in SignerSigned.
func (r *SignatureRequest) SignedCount() int {
	n := 0
	for i := range r.Signers {
		if r.Signers[i].Status == SignerSigned {
			n++
		}
	}
	return n
}

func (r *SignatureRequest) allSigned() bool {
	return len(r.Signers) > 0 && r.SignedCount() == len(r.Signers)
}

// checkActionable applies the checks shared by consent and submit.
func (r *SignatureRequest) checkActionable(s *Signer) error {
	switch {
	case r.Completed():
		return ErrRequestNotPending
	case s.Status == SignerSigned:
		return ErrAlreadySigned
	case s.Status == SignerRejected:
		return ErrSignerRejected
	case r.Rejected():
		return ErrRequestRejected
	}
	return nil
}

// Consent records the signer's agreement to sign electronically. Consent is
// write-once; a repeat returns changed=false and keeps the original audit.
func (r *SignatureRequest) Consent(signerID string, a Audit) (changed bool, err error) {
	s, err := r.SignerByID(signerID)
	if err != nil {
		return false, err
	}
	if err := r.checkActionable(s); err != nil {
		return false, err
	}
	if s.Status == SignerConsented {
		return false, nil
	}

	at := a.At.UTC()
	s.Status = SignerConsented
	s.ConsentAgreedAt = &at
	s.ConsentClientIP = a.ClientIP
	s.ConsentUserAgent = a.UserAgent
	r.UpdatedAt = at
	return true, nil
}

// Signature is what a signer submits.
type Signature struct {
	Image       []byte
	Certificate json.RawMessage
}

// SubmitOptions tunes Submit policy.
type SubmitOptions struct {
	// EnforceOrder rejects a submit while a signer with a lower Order has
	// not signed yet.
	EnforceOrder bool
}

// Submit signs for one signer. When it was the last outstanding signature
// the request moves to completed in the same mutation and completed is true.
func (r *SignatureRequest) Submit(signerID string, sig Signature, a Audit, opts SubmitOptions) (completed bool, err error) {
	s, err := r.SignerByID(signerID)
	if err != nil {
		return false, err
	}
	if err := r.checkActionable(s); err != nil {
		return false, err
	}
	if s.Status != SignerConsented || s.ConsentAgreedAt == nil {
		return false, ErrConsentRequired
	}
	if opts.EnforceOrder {
		for i := range r.Signers {
			o := &r.Signers[i]
			if o.ID != s.ID && o.Order < s.Order && o.Status != SignerSigned {
				return false, ErrOutOfOrder
			}
		}
	}
	if len(sig.Image) == 0 {
		var v ValidationError
		v.Add("signature_image", "is required")
		return false, v.Err()
	}
	if len(sig.Certificate) > 0 && !json.Valid(sig.Certificate) {
		var v ValidationError
		v.Add("certificate", "must be valid JSON")
		return false, v.Err()
	}

	at := a.At.UTC()
	s.Status = SignerSigned
	s.SignatureImage = sig.Image
	s.Certificate = sig.Certificate
	s.SignedAt = &at
	s.ClientIP = a.ClientIP
	s.UserAgent = a.UserAgent
	r.UpdatedAt = at

	if r.allSigned() {
		r.Status = RequestCompleted
		r.CompletedAt = &at
		return true, nil
	}
	return false, nil
}

// Reject records a signer's refusal. firstRejection reports whether this
// rejection terminated the request.
func (r *SignatureRequest) Reject(signerID, reason string, at time.Time) (firstRejection bool, err error) {
	s, err := r.SignerByID(signerID)
	if err != nil {
		return false, err
	}
	switch s.Status {
	case SignerSigned:
		return false, ErrAlreadySigned
	case SignerRejected:
		return false, ErrSignerRejected
	}
	if r.Completed() {
		return false, ErrRequestNotPending
	}

	reason = strings.TrimSpace(reason)
	if len(reason) > 1000 {
		var v ValidationError
		v.Add("reason", "must be at most 1000 characters")
		return false, v.Err()
	}

	wasRejected := r.Rejected()
	at = at.UTC()
	s.Status = SignerRejected
	s.RejectedAt = &at
	s.RejectionReason = reason
	r.UpdatedAt = at
	return !wasRejected, nil
}

// MarkSealed records the sealed artifact produced after completion.
func (r *SignatureRequest) MarkSealed(sealedDocumentID string, at time.Time) error {
	if !r.Completed() {
		return ErrRequestNotPending
	}
	if sealedDocumentID == "" {
		return fmt.Errorf("%w: empty sealed document id", ErrInvalidInput)
	}
	at = at.UTC()
	r.SealedDocumentID = sealedDocumentID
	r.SealedAt = &at
	r.UpdatedAt = at
	return nil
}

// Sealed reports whether the sealed artifact is known.
func (r *SignatureRequest) Sealed() bool {
	return r.SealedDocumentID != ""
}

// Layout is what a signing surface needs to render one signer's box.
type Layout struct {
	RequestID  string
	DocumentID string
	Title      string
	SignerID   string
	SignerName string
	Order      int
	Status     SignerStatus
	Placement  BoxTemplate
}

// Layout projects a signer's placement. It stops answering once the request
// completed or the signer rejected, so placement data does not outlive the
// signing window.
func (r *SignatureRequest) Layout(signerID string) (Layout, error) {
	s, err := r.SignerByID(signerID)
	if err != nil {
		return Layout{}, err
	}
	if r.Completed() || s.Status == SignerRejected {
		return Layout{}, ErrTokenExpiredOrInvalid
	}
	return Layout{
		RequestID:  r.ID,
		DocumentID: r.DocumentID,
		Title:      r.Title,
		SignerID:   s.ID,
		SignerName: s.Name,
		Order:      s.Order,
		Status:     s.Status,
		Placement:  s.Placement,
	}, nil
}

// Summary is the signer-facing view of a request.
type Summary struct {
	RequestID    string
	DocumentID   string
	Title        string
	Status       RequestStatus
	Rejected     bool
	SignerID     string
	SignerStatus SignerStatus
	SignerOrder  int
	SignerCount  int
	SignedCount  int
}

func (r *SignatureRequest) Summary(signerID string) (Summary, error) {
	s, err := r.SignerByID(signerID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		RequestID:    r.ID,
		DocumentID:   r.DocumentID,
		Title:        r.Title,
		Status:       r.Status,
		Rejected:     r.Rejected(),
		SignerID:     s.ID,
		SignerStatus: s.Status,
		SignerOrder:  s.Order,
		SignerCount:  len(r.Signers),
		SignedCount:  r.SignedCount(),
	}, nil
}
