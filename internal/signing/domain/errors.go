package domain

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

// Not found.
var (
	ErrRequestNotFound = errors.New("signature request not found")
	ErrSignerNotFound  = errors.New("signer not found")
	ErrGrantNotFound   = errors.New("preview grant not found")
)

// State conflicts. Callers should not retry these.
var (
	ErrAlreadySigned         = errors.New("signer has already signed")
	ErrRequestNotPending     = errors.New("signature request is not pending")
	ErrConsentRequired       = errors.New("consent must be registered before signing")
	ErrSignerRejected        = errors.New("signer has rejected the request")
	ErrRequestRejected       = errors.New("signature request was rejected by a signer")
	ErrOutOfOrder            = errors.New("an earlier signer has not signed yet")
	ErrTokenExpiredOrInvalid = errors.New("signing link is no longer valid")
	ErrNotSealed             = errors.New("signed document has not been sealed yet")
	ErrGrantInactive         = errors.New("preview grant is no longer active")
)

var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrAccessDenied is deliberately uninformative; log the reason instead.
	ErrAccessDenied = errors.New("access denied")

	// ErrConcurrencyConflict is returned once optimistic retries are exhausted.
	ErrConcurrencyConflict = errors.New("concurrent modification, retry later")
)

// ValidationError carries per-field messages. It matches ErrInvalidInput
// under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
