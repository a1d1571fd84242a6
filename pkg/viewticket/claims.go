package viewticket

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audience is the only audience tickets are minted for: the external
// document viewer that serves sealed documents.
const Audience = "document-viewer"

// DefaultTTL is deliberately short; a ticket authorises one viewing session.
const DefaultTTL = 5 * time.Minute

// Claims carried by a view ticket.
type Claims struct {
	jwt.RegisteredClaims

	// Signature request the sealed document belongs to.
	SignatureRequestID string `json:"srq"`

	// Sealed document the holder may view.
	SealedDocumentID string `json:"doc"`

	// Preview grant that was redeemed.
	GrantID string `json:"gid"`

	// Which access (1..max) this ticket was minted for.
	Access int `json:"acc"`
}

// Ticket is the input to Issue.
type Ticket struct {
	SignerID           string
	SignatureRequestID string
	SealedDocumentID   string
	GrantID            string
	Access             int
}
