package domain

import "time"

// IdempotencyRecord stores the first response for a client-supplied
// Idempotency-Key so repeats get the same answer.
type IdempotencyRecord struct {
	Actor       string // company/user the key is scoped to
	Key         string
	Endpoint    string
	RequestHash string // fingerprint of the request body
	StatusCode  int    // zero while the first request is still running
	Body        []byte
	CreatedAt   time.Time
}

// Pending reports a claim whose response has not been recorded yet.
func (r IdempotencyRecord) Pending() bool {
	return r.StatusCode == 0
}
