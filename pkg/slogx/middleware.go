package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/quill/pkg/idx"
)

// RequestIDHeader is echoed back on every response so callers can correlate
// their own logs with ours.
const RequestIDHeader = "X-Request-ID"

// HTTPMiddleware logs requests and attaches a contextual logger into request context.
// route names the matched route for the access log; nil means DefaultRoutePattern.
func HTTPMiddleware(base *slog.Logger, route func(*http.Request) string) func(http.Handler) http.Handler {
	if route == nil {
		route = DefaultRoutePattern
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			reqID := r.Header.Get(RequestIDHeader)
			if _, err := idx.Parse(reqID); err != nil {
				reqID = idx.New().String()
			}
			rw.Header().Set(RequestIDHeader, reqID)

			// Paths may carry capability tokens; log the route shape instead.
			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)

			r = r.WithContext(WithContext(r.Context(), logger))
			next.ServeHTTP(rw, r)

			logger.Info("http_request",
				"route", route(r),
				"status", rw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// DefaultRoutePattern returns the net/http route template when there is one,
// falling back to a fixed placeholder so raw tokens never reach logs.
func DefaultRoutePattern(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

type responseWriter struct {
	http.ResponseWriter

	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
