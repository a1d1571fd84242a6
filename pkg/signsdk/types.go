package signsdk

import (
	"encoding/json"
	"time"

	"github.com/aussiebroadwan/quill/pkg/viewticket"
)

// ErrorResponse is the error envelope every endpoint returns.
type ErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description,omitempty"`
	Details          map[string]string `json:"details,omitempty"`
}

// ============================================================================
// Signature requests
// ============================================================================

// BoxTemplate places a signature on the document, in PDF points from the
// bottom-left corner of the page.
type BoxTemplate struct {
	Page       int     `json:"page"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Initials   bool    `json:"initials,omitempty"`
	DateMarker bool    `json:"date_marker,omitempty"`
}

type SignerSlot struct {
	CustomerID string      `json:"customer_id"`
	Email      string      `json:"email"`
	Name       string      `json:"name,omitempty"`
	Order      int         `json:"order,omitempty"`
	Placement  BoxTemplate `json:"placement"`
}

type CreateSignatureRequestRequest struct {
	DocumentID string       `json:"document_id"`
	Title      string       `json:"title,omitempty"`
	Signers    []SignerSlot `json:"signers"`
}

// SignerToken is a signer's capability token. It is only ever returned by
// the create call.
type SignerToken struct {
	SignerID string `json:"signer_id"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

type CreateSignatureRequestResponse struct {
	SignatureRequest SignatureRequest `json:"signature_request"`
	SignerTokens     []SignerToken    `json:"signer_tokens"`
}

// Signer is the back-office view of a signer. It never carries the token or
// the signature image.
type Signer struct {
	ID              string      `json:"id"`
	CustomerID      string      `json:"customer_id"`
	Email           string      `json:"email"`
	Name            string      `json:"name,omitempty"`
	Order           int         `json:"order"`
	Status          string      `json:"status"`
	Placement       BoxTemplate `json:"placement"`
	ConsentAgreedAt *time.Time  `json:"consent_agreed_at,omitempty"`
	SignedAt        *time.Time  `json:"signed_at,omitempty"`
	RejectedAt      *time.Time  `json:"rejected_at,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
}

type SignatureRequest struct {
	ID               string     `json:"id"`
	DocumentID       string     `json:"document_id"`
	Title            string     `json:"title,omitempty"`
	CompanyID        string     `json:"company_id"`
	CreatedBy        string     `json:"created_by"`
	Status           string     `json:"status"`
	Rejected         bool       `json:"rejected"`
	Version          int64      `json:"version"`
	SealedDocumentID string     `json:"sealed_document_id,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	SealedAt         *time.Time `json:"sealed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Signers          []Signer   `json:"signers"`
}

type ListSignatureRequestsResponse struct {
	Items  []SignatureRequest `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

type ListSignersResponse struct {
	Signers []Signer `json:"signers"`
}

// ============================================================================
// Signer (token-authenticated) operations
// ============================================================================

// SignerSummary is what a capability token holder may see of the request.
type SignerSummary struct {
	SignatureRequestID string `json:"signature_request_id"`
	DocumentID         string `json:"document_id"`
	Title              string `json:"title,omitempty"`
	Status             string `json:"status"`
	Rejected           bool   `json:"rejected"`
	SignerID           string `json:"signer_id"`
	SignerStatus       string `json:"signer_status"`
	SignerOrder        int    `json:"signer_order"`
	SignerCount        int    `json:"signer_count"`
	SignedCount        int    `json:"signed_count"`
}

type LayoutResponse struct {
	SignatureRequestID string      `json:"signature_request_id"`
	DocumentID         string      `json:"document_id"`
	Title              string      `json:"title,omitempty"`
	SignerID           string      `json:"signer_id"`
	SignerName         string      `json:"signer_name,omitempty"`
	Order              int         `json:"order"`
	Status             string      `json:"status"`
	Placement          BoxTemplate `json:"placement"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type ConsentResponse struct {
	SignatureRequestID string    `json:"signature_request_id"`
	SignerID           string    `json:"signer_id"`
	Status             string    `json:"status"`
	ConsentedAt        time.Time `json:"consented_at"`
}

type SubmitRequest struct {
	Token          string          `json:"token"`
	SignatureImage []byte          `json:"signature_image" swaggertype:"string" format:"base64"`
	Certificate    json.RawMessage `json:"certificate,omitempty" swaggertype:"object"`
}

type SubmitResponse struct {
	SignatureRequestID string    `json:"signature_request_id"`
	SignerID           string    `json:"signer_id"`
	RequestStatus      string    `json:"request_status"`
	SignedAt           time.Time `json:"signed_at"`
	Completed          bool      `json:"completed"`

	// DownstreamPending means the signature is recorded but sealing or
	// preview issuance will finish in the background.
	DownstreamPending bool                `json:"downstream_pending"`
	Preview           *PreviewCredentials `json:"preview,omitempty"`
}

type RejectRequest struct {
	Token  string `json:"token"`
	Reason string `json:"reason,omitempty"`
}

type RejectResponse struct {
	SignatureRequestID string    `json:"signature_request_id"`
	SignerID           string    `json:"signer_id"`
	RejectedAt         time.Time `json:"rejected_at"`
}

// ============================================================================
// Preview
// ============================================================================

// PreviewCredentials are the three secrets needed to view the sealed
// document. They are shown once; lost credentials must be re-issued.
type PreviewCredentials struct {
	GrantID        string    `json:"grant_id"`
	AccessToken    string    `json:"access_token"`
	SessionID      string    `json:"session_id"`
	Fingerprint    string    `json:"fingerprint"`
	ExpiresAt      time.Time `json:"expires_at"`
	MaxAccessCount int       `json:"max_access_count"`
}

type PreviewAvailability struct {
	Available bool       `json:"available"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type PreviewInfo struct {
	GrantID            string     `json:"grant_id"`
	SignatureRequestID string     `json:"signature_request_id"`
	SignerID           string     `json:"signer_id"`
	SealedDocumentID   string     `json:"sealed_document_id"`
	ExpiresAt          time.Time  `json:"expires_at"`
	Active             bool       `json:"active"`
	AccessCount        int        `json:"access_count"`
	MaxAccessCount     int        `json:"max_access_count"`
	RemainingAccesses  int        `json:"remaining_accesses"`
	LastAccessedAt     *time.Time `json:"last_accessed_at,omitempty"`
}

type PreviewStatus struct {
	CanAccess         bool      `json:"can_access"`
	ExpiresAt         time.Time `json:"expires_at"`
	RemainingAccesses int       `json:"remaining_accesses"`
}

type PreviewAccessRequest struct {
	AccessToken string `json:"access_token"`
	SessionID   string `json:"session_id"`
	Fingerprint string `json:"fingerprint"`
	UserAgent   string `json:"user_agent,omitempty"`
}

type PreviewAccessResponse struct {
	GrantID           string `json:"grant_id"`
	SealedDocumentID  string `json:"sealed_document_id"`
	AccessCount       int    `json:"access_count"`
	RemainingAccesses int    `json:"remaining_accesses"`

	// ViewTicket is a short-lived EdDSA JWT the document store accepts
	// for this one view. Verify it against /.well-known/jwks.json.
	ViewTicket      string    `json:"view_ticket,omitempty"`
	TicketExpiresAt time.Time `json:"ticket_expires_at,omitzero"`
}

type ReissuePreviewRequest struct {
	SignerID string `json:"signer_id"`
}

type InvalidateGrantRequest struct {
	GrantID  string `json:"grant_id,omitempty"`
	SignerID string `json:"signer_id,omitempty"`
}

type InvalidateGrantResponse struct {
	GrantID  string `json:"grant_id"`
	SignerID string `json:"signer_id"`
	Active   bool   `json:"active"`
}

// ============================================================================
// System
// ============================================================================

type HealthChecks struct {
	Database string `json:"database"`
	Outbox   string `json:"outbox,omitempty"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// JWKSResponse is the view-ticket key set.
type JWKSResponse = viewticket.JWKS
