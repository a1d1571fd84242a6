package httpx

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const (
	CtxKeyCompanyID ctxKey = "company_id"
	CtxKeyUserID    ctxKey = "user_id"
)

// Headers set by the trusted edge on gateway-credentialed requests. The edge
// has already authenticated the caller; this service only reads the result.
const (
	HeaderCompanyID = "X-Company-ID"
	HeaderUserID    = "X-User-ID"
)

// Actor identifies the back-office caller of a gateway-credentialed request.
type Actor struct {
	CompanyID string
	UserID    string
}

// Key scopes per-actor records such as idempotency keys.
func (a Actor) Key() string {
	return a.CompanyID + "/" + a.UserID
}

// ActorMiddleware copies the edge-provided company/user headers into the
// request context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if v := strings.TrimSpace(r.Header.Get(HeaderCompanyID)); v != "" {
			ctx = context.WithValue(ctx, CtxKeyCompanyID, v)
		}
		if v := strings.TrimSpace(r.Header.Get(HeaderUserID)); v != "" {
			ctx = context.WithValue(ctx, CtxKeyUserID, v)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromContext returns the caller recorded by ActorMiddleware.
func ActorFromContext(ctx context.Context) Actor {
	var a Actor
	a.CompanyID, _ = ctx.Value(CtxKeyCompanyID).(string)
	a.UserID, _ = ctx.Value(CtxKeyUserID).(string)
	return a
}
