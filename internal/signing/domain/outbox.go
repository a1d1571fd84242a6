package domain

import "time"

type JobKind string

const (
	// JobSealDocument asks the sealing service for the final artifact and
	// issues preview grants. Enqueued by the write that completes a request.
	JobSealDocument JobKind = "seal_document"

	// JobNotifyEvent delivers one Event to the notification bus.
	JobNotifyEvent JobKind = "notify_event"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobDead      JobStatus = "dead"
)

// OutboxJob is a side effect committed in the same transaction as the state
// change that caused it.
type OutboxJob struct {
	ID          string
	Kind        JobKind
	DedupeKey   string // unique per kind; empty means no dedupe
	Payload     []byte // sealed at rest, may carry credentials
	Status      JobStatus
	Attempts    int
	AvailableAt time.Time
	LockedUntil *time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SealPayload is the payload of a JobSealDocument job.
type SealPayload struct {
	SignatureRequestID string `json:"signature_request_id"`
}
