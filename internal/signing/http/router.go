package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/service"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/internal/signing/telemetry"
	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/aussiebroadwan/quill/pkg/routeclass"
	"github.com/aussiebroadwan/quill/pkg/slogx"
	"github.com/aussiebroadwan/quill/pkg/viewticket"
	"github.com/go-chi/chi/v5"

	_ "github.com/aussiebroadwan/quill/api/signing" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux *chi.Mux

	gatewayKey   string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *telemetry.Metrics
	tickets      *viewticket.Issuer
	classifier   *routeclass.Classifier

	store              store.Store
	RequestService     *service.RequestService
	SigningService     *service.SigningService
	PreviewService     *service.PreviewService
	IdempotencyService *service.IdempotencyService
}

func NewRouter(
	gatewayKey, buildVersion string,
	st store.Store,
	tickets *viewticket.Issuer,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:          chi.NewRouter(),
		gatewayKey:   gatewayKey,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		tickets:      tickets,
		metrics:      metrics,
		logger:       logger,
		classifier:   routeclass.Default(),
	}
}

// routePattern reports the chi route template, which never contains the
// capability token a path may carry.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// ApplyRoutes installs the middleware chain and every endpoint. Middleware
// registered here sees the chi route context, so access logs and metrics
// are labelled by route template.
func (r *Router) ApplyRoutes() {
	r.Mux.Use(
		slogx.HTTPMiddleware(r.logger, routePattern),
		r.metrics.HTTPMiddleware(routePattern),
		httpx.GatewayMiddleware(httpx.GatewayConfig{
			Key:        r.gatewayKey,
			Classifier: r.classifier,
			OnDenied:   r.metrics.GatewayDenied,
		}),
		httpx.ActorMiddleware,
	)

	r.registerSignatureRequests()
	r.registerSigning()
	r.registerPreview()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router.
//
//	@title			Quill Signing Service API
//	@version		0.1.0
//	@description	Electronic signature workflow: signature requests, token-authenticated signing, and bounded previews of the sealed document.
//	@description
//	@description	Back-office endpoints require the gateway credential set by the trusted edge. Signer endpoints authenticate with the capability token.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/quill
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	GatewayKey
//	@in							header
//	@name						X-Gateway-Key
//	@description				Shared credential asserted by the edge gateway.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Mux.ServeHTTP(w, req)
}

func (r *Router) registerSignatureRequests() {
	h := &RequestsHandler{
		Requests:    r.RequestService,
		Signing:     r.SigningService,
		Idempotency: r.IdempotencyService,
	}
	backOffice := httpx.RateLimitByActor(httpx.BackOfficeLimit)

	r.Mux.With(backOffice).Post("/signature-requests", h.HandleCreate)
	r.Mux.With(backOffice).Get("/signature-requests", h.HandleList)
	r.Mux.With(backOffice).Get("/signature-requests/{id}/signers", h.HandleListSigners)

	// Shared by the back-office detail (gateway) and the signer summary
	// (token, public); the gateway already told them apart.
	r.Mux.With(httpx.RateLimitByIP(httpx.LookupLimit)).Get("/signature-requests/{ref}", h.HandleGet)
}

func (r *Router) registerSigning() {
	h := &SignerHandler{Signing: r.SigningService}

	r.Mux.With(httpx.RateLimitByIP(httpx.LookupLimit)).Get("/signature-requests/layout/{token}", h.HandleLayout)

	// Token-bearing mutations - strict limit to slow token guessing
	signing := httpx.RateLimitByIP(httpx.SigningLimit)
	r.Mux.With(signing).Post("/signature-requests/consent", h.HandleConsent)
	r.Mux.With(signing).Post("/signature-requests/submit", h.HandleSubmit)
	r.Mux.With(signing).Post("/signature-requests/reject", h.HandleReject)
}

func (r *Router) registerPreview() {
	h := &PreviewHandler{Previews: r.PreviewService}

	r.Mux.With(httpx.RateLimitByIP(httpx.LookupLimit)).Get("/preview/available/{signerId}", h.HandleAvailable)

	preview := httpx.RateLimitByIP(httpx.PreviewLimit)
	r.Mux.With(preview).Get("/preview/info", h.HandleInfo)
	r.Mux.With(preview).Get("/preview/status", h.HandleStatus)
	r.Mux.With(preview).Post("/preview/access", h.HandleAccess)

	backOffice := httpx.RateLimitByActor(httpx.BackOfficeLimit)
	r.Mux.With(backOffice).Post("/preview/reissue", h.HandleReissue)
	r.Mux.With(backOffice).Post("/preview/invalidate", h.HandleInvalidate)
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently
	health := httpx.RateLimitByIP(httpx.LookupLimit)
	r.Mux.With(health).Get("/livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.With(health).Get("/readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.With(health).Get("/.well-known/jwks.json", JWKSHandler(r.tickets))

	r.Mux.Handle("/metrics", r.metrics.Handler())
	r.Mux.Get("/swagger/*", httpSwagger.Handler())
}
