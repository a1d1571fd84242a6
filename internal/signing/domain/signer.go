package domain

import (
	"encoding/json"
	"time"
)

type SignerStatus string

const (
	SignerPending   SignerStatus = "pending"
	SignerConsented SignerStatus = "consented"
	SignerSigned    SignerStatus = "signed"
	SignerRejected  SignerStatus = "rejected"
)

// Signer is one party's slot in a SignatureRequest. It only exists inside its
// parent request.
type Signer struct {
	ID         string
	RequestID  string
	CustomerID string
	Email      string
	Name       string
	Order      int
	Status     SignerStatus
	Placement  BoxTemplate

	// TokenHash is the fingerprint of the signer's capability token. The raw
	// token is only ever returned from Create.
	TokenHash string

	SignatureImage []byte          // plaintext in memory, sealed at rest
	Certificate    json.RawMessage // opaque metadata from the certificate provider

	ConsentAgreedAt  *time.Time
	ConsentClientIP  string
	ConsentUserAgent string

	SignedAt  *time.Time
	ClientIP  string
	UserAgent string

	RejectedAt      *time.Time
	RejectionReason string

	CreatedAt time.Time
}

// Audit is the client context recorded with consent and signing.
type Audit struct {
	ClientIP  string
	UserAgent string
	At        time.Time
}

// Terminal reports whether the signer can no longer act.
func (s *Signer) Terminal() bool {
	return s.Status == SignerSigned || s.Status == SignerRejected
}
