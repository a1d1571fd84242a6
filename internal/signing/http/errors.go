package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/service"
	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/aussiebroadwan/quill/pkg/signsdk"
	"github.com/aussiebroadwan/quill/pkg/slogx"
)

// writeError maps service and domain errors onto the wire. Unknown errors
// are logged and reported as a bare server_error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		httpx.WriteJSON(w, http.StatusBadRequest, signsdk.ErrorResponse{
			Error:            signsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "request validation failed",
			Details:          verr.Fields,
		})

	case errors.Is(err, domain.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, signsdk.ErrorCodeInvalidRequest, err.Error())

	case errors.Is(err, domain.ErrSignerNotFound),
		errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrGrantNotFound):
		httpx.WriteError(w, http.StatusNotFound, signsdk.ErrorCodeNotFound, rootMessage(err))

	case errors.Is(err, domain.ErrTokenExpiredOrInvalid):
		httpx.WriteError(w, http.StatusGone, signsdk.ErrorCodeTokenExpired, domain.ErrTokenExpiredOrInvalid.Error())

	case errors.Is(err, domain.ErrAlreadySigned),
		errors.Is(err, domain.ErrRequestNotPending),
		errors.Is(err, domain.ErrConsentRequired),
		errors.Is(err, domain.ErrSignerRejected),
		errors.Is(err, domain.ErrRequestRejected),
		errors.Is(err, domain.ErrOutOfOrder),
		errors.Is(err, domain.ErrNotSealed),
		errors.Is(err, domain.ErrGrantInactive):
		httpx.WriteError(w, http.StatusConflict, signsdk.ErrorCodeConflict, rootMessage(err))

	case errors.Is(err, domain.ErrAccessDenied):
		httpx.WriteAccessDenied(w)

	case errors.Is(err, domain.ErrConcurrencyConflict):
		w.Header().Set("Retry-After", "1")
		httpx.WriteError(w, http.StatusServiceUnavailable, signsdk.ErrorCodeTemporarilyUnavailable, domain.ErrConcurrencyConflict.Error())

	case errors.Is(err, service.ErrIdempotencyInProgress):
		w.Header().Set("Retry-After", "1")
		httpx.WriteError(w, http.StatusConflict, signsdk.ErrorCodeConflict, service.ErrIdempotencyInProgress.Error())

	case errors.Is(err, service.ErrIdempotencyKeyReused):
		httpx.WriteError(w, http.StatusUnprocessableEntity, signsdk.ErrorCodeIdempotencyKeyReused, service.ErrIdempotencyKeyReused.Error())

	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, signsdk.ErrorCodeServerError, "internal error")
	}
}

// rootMessage returns the sentinel text without any wrapping context, which
// may name internal ids.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func badRequest(w http.ResponseWriter, description string) {
	httpx.WriteError(w, http.StatusBadRequest, signsdk.ErrorCodeInvalidRequest, description)
}
