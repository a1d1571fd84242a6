package domain

import "time"

type EventType string

const (
	EventSignerSigned     EventType = "signer.signed"
	EventRequestCompleted EventType = "signature_request.completed"
	EventRequestRejected  EventType = "signature_request.rejected"
)

// Event is published to the notification bus.
type Event struct {
	ID                 string           `json:"id"`
	Type               EventType        `json:"type"`
	OccurredAt         time.Time        `json:"occurred_at"`
	SignatureRequestID string           `json:"signature_request_id"`
	DocumentID         string           `json:"document_id"`
	CompanyID          string           `json:"company_id,omitempty"`
	SignerID           string           `json:"signer_id,omitempty"`
	Reason             string           `json:"reason,omitempty"`
	SealedDocumentID   string           `json:"sealed_document_id,omitempty"`
	Recipients         []EventRecipient `json:"recipients,omitempty"`
}

// EventRecipient tells the notification service who to contact and, on
// completion, which preview credentials to deliver.
type EventRecipient struct {
	SignerID string              `json:"signer_id"`
	Email    string              `json:"email"`
	Name     string              `json:"name,omitempty"`
	Preview  *PreviewCredentials `json:"preview,omitempty"`
}
