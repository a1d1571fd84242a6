package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/aussiebroadwan/quill/pkg/signsdk"
	"github.com/aussiebroadwan/quill/pkg/viewticket"
)

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness probe returning uptime and version. Always 200 while the process runs.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	signsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get]
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, signsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe checking database connectivity. Dead outbox jobs are reported but do not fail readiness.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	signsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	signsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get]
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &signsdk.HealthChecks{Database: "ok", Outbox: "ok"}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else if counts, err := st.Outbox().CountByStatus(r.Context()); err != nil {
			checks.Outbox = "error: " + err.Error()
		} else if dead := counts[domain.JobDead]; dead > 0 {
			checks.Outbox = fmt.Sprintf("%d dead jobs", dead)
		}

		httpx.WriteJSON(w, statusCode, signsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// JWKSHandler exposes the keys that verify preview view tickets.
//
//	@Summary		Get JWKS
//	@Description	Returns the Ed25519 keys that sign preview view tickets.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	signsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get]
func JWKSHandler(tickets *viewticket.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, tickets.JWKS())
	}
}
