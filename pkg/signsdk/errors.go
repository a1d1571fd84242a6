package signsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Error codes carried in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest         = "invalid_request"
	ErrorCodeNotFound               = "not_found"
	ErrorCodeConflict               = "conflict"
	ErrorCodeTokenExpired           = "token_expired"
	ErrorCodeAccessDenied           = "access_denied"
	ErrorCodeTemporarilyUnavailable = "temporarily_unavailable"
	ErrorCodeIdempotencyKeyReused   = "idempotency_key_reused"
	ErrorCodeRateLimited            = "rate_limit_exceeded"
	ErrorCodeServerError            = "server_error"
)

// APIError is a non-2xx response from the signing service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Details     map[string]string

	// RetryAfter is set from the Retry-After header on 429 and 503.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("signing service: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("signing service: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		apiErr.Code = er.Error
		apiErr.Description = er.ErrorDescription
		apiErr.Details = er.Details
	} else {
		apiErr.Code = ErrorCodeServerError
		apiErr.Description = http.StatusText(resp.StatusCode)
	}

	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

func code(err error) (string, int) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.StatusCode
	}
	return "", 0
}

// IsNotFound reports an unknown request, signer or grant.
func IsNotFound(err error) bool {
	c, _ := code(err)
	return c == ErrorCodeNotFound
}

// IsConflict reports a state conflict such as signing twice. Retrying the
// same call will not help.
func IsConflict(err error) bool {
	c, _ := code(err)
	return c == ErrorCodeConflict || c == ErrorCodeTokenExpired
}

// IsAccessDenied reports a rejected credential.
func IsAccessDenied(err error) bool {
	c, _ := code(err)
	return c == ErrorCodeAccessDenied
}

// IsTemporary reports an error worth retrying after APIError.RetryAfter.
func IsTemporary(err error) bool {
	c, status := code(err)
	return c == ErrorCodeTemporarilyUnavailable || status == http.StatusTooManyRequests
}

// IsValidation reports malformed input; Details names the offending fields.
func IsValidation(err error) bool {
	c, _ := code(err)
	return c == ErrorCodeInvalidRequest
}
