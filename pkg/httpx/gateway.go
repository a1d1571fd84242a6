package httpx

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/quill/pkg/slogx"
)

// DefaultGatewayHeader carries the shared credential asserting a request
// came through the trusted edge.
const DefaultGatewayHeader = "X-Gateway-Key"

// PathClassifier decides whether a path is reachable without the gateway
// credential. It is given the escaped request path.
type PathClassifier interface {
	IsPublic(path string, isRealtimeUpgrade bool) bool
}

// GatewayConfig configures GatewayMiddleware.
type GatewayConfig struct {
	Header     string
	Key        string
	Classifier PathClassifier

	// OnDenied is called for every rejected request. Optional.
	OnDenied func(r *http.Request)
}

// accessDeniedBody is written verbatim so a denial never varies by cause.
var accessDeniedBody = []byte(`{"error":"access_denied","error_description":"access denied"}` + "\n")

// WriteAccessDenied writes the fixed 403 denial body.
func WriteAccessDenied(w http.ResponseWriter) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write(accessDeniedBody)
}

// IsRealtimeUpgrade reports whether r asks to switch to a streaming protocol.
func IsRealtimeUpgrade(r *http.Request) bool {
	if r.Header.Get("Upgrade") == "" {
		return false
	}
	for _, v := range strings.Split(r.Header.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(v), "upgrade") {
			return true
		}
	}
	return false
}

// GatewayMiddleware admits public paths as-is and requires an exact match of
// the gateway credential on every other path. An empty configured key denies
// all protected paths.
func GatewayMiddleware(cfg GatewayConfig) Middleware {
	header := cfg.Header
	if header == "" {
		header = DefaultGatewayHeader
	}
	want := []byte(cfg.Key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The escaped form keeps %2F distinct from a real separator.
			if cfg.Classifier.IsPublic(r.URL.EscapedPath(), IsRealtimeUpgrade(r)) {
				next.ServeHTTP(w, r)
				return
			}

			got := []byte(r.Header.Get(header))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				slogx.FromContext(r.Context()).Warn("gateway credential rejected",
					"method", r.Method,
					"credential_present", len(got) > 0,
				)
				if cfg.OnDenied != nil {
					cfg.OnDenied(r)
				}
				WriteAccessDenied(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
