package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/quill/internal/signing/service"
	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/aussiebroadwan/quill/pkg/signsdk"
	"github.com/go-chi/chi/v5"
)

type PreviewHandler struct {
	Previews *service.PreviewService
}

// HandleAvailable handles GET /preview/available/{signerId}
//
//	@Summary		Check preview availability
//	@Description	Reports whether the signer has a redeemable preview. Never consumes an access.
//	@Tags			Preview
//	@Produce		json
//	@Param			signerId	path		string	true	"Signer id"
//	@Success		200			{object}	signsdk.PreviewAvailability
//	@Failure		429			{object}	signsdk.ErrorResponse
//	@Router			/preview/available/{signerId} [get]
func (h *PreviewHandler) HandleAvailable(w http.ResponseWriter, r *http.Request) {
	a, err := h.Previews.Available(r.Context(), chi.URLParam(r, "signerId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signsdk.PreviewAvailability{Available: a.Available, ExpiresAt: a.ExpiresAt})
}

func sessionParams(r *http.Request) (string, string) {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get("access_token")), strings.TrimSpace(q.Get("session_id"))
}

// HandleInfo handles GET /preview/info
//
//	@Summary		Get preview grant metadata
//	@Tags			Preview
//	@Produce		json
//	@Param			access_token	query		string	true	"Preview access token"
//	@Param			session_id		query		string	true	"Preview session id"
//	@Success		200				{object}	signsdk.PreviewInfo
//	@Failure		403				{object}	signsdk.ErrorResponse
//	@Router			/preview/info [get]
func (h *PreviewHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	token, session := sessionParams(r)
	info, err := h.Previews.Info(r.Context(), token, session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signsdk.PreviewInfo{
		GrantID:            info.GrantID,
		SignatureRequestID: info.SignatureRequestID,
		SignerID:           info.SignerID,
		SealedDocumentID:   info.SealedDocumentID,
		ExpiresAt:          info.ExpiresAt,
		Active:             info.Active,
		AccessCount:        info.AccessCount,
		MaxAccessCount:     info.MaxAccessCount,
		RemainingAccesses:  info.RemainingAccesses,
		LastAccessedAt:     info.LastAccessedAt,
	})
}

// HandleStatus handles GET /preview/status
//
//	@Summary		Validate preview credentials
//	@Description	Checks the token and session pair without recording an access.
//	@Tags			Preview
//	@Produce		json
//	@Param			access_token	query		string	true	"Preview access token"
//	@Param			session_id		query		string	true	"Preview session id"
//	@Success		200				{object}	signsdk.PreviewStatus
//	@Failure		403				{object}	signsdk.ErrorResponse
//	@Router			/preview/status [get]
func (h *PreviewHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	token, session := sessionParams(r)
	st, err := h.Previews.Status(r.Context(), token, session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signsdk.PreviewStatus{
		CanAccess:         st.CanAccess,
		ExpiresAt:         st.ExpiresAt,
		RemainingAccesses: st.RemainingAccesses,
	})
}

// HandleAccess handles POST /preview/access
//
//	@Summary		Redeem a preview access
//	@Description	Validates all three credentials and consumes one access. Every failure is the same 403.
//	@Tags			Preview
//	@Accept			json
//	@Produce		json
//	@Param			request	body		signsdk.PreviewAccessRequest	true	"Preview credentials"
//	@Success		200		{object}	signsdk.PreviewAccessResponse
//	@Failure		400		{object}	signsdk.ErrorResponse
//	@Failure		403		{object}	signsdk.ErrorResponse
//	@Failure		503		{object}	signsdk.ErrorResponse
//	@Router			/preview/access [post]
func (h *PreviewHandler) HandleAccess(w http.ResponseWriter, r *http.Request) {
	var body signsdk.PreviewAccessRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}

	ua := body.UserAgent
	if ua == "" {
		ua = r.UserAgent()
	}
	res, err := h.Previews.Access(r.Context(), service.AccessInput{
		AccessToken: body.AccessToken,
		SessionID:   body.SessionID,
		Fingerprint: body.Fingerprint,
		ClientIP:    httpx.ClientIP(r),
		UserAgent:   ua,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signsdk.PreviewAccessResponse{
		GrantID:           res.GrantID,
		SealedDocumentID:  res.SealedDocumentID,
		AccessCount:       res.AccessCount,
		RemainingAccesses: res.RemainingAccesses,
		ViewTicket:        res.ViewTicket,
		TicketExpiresAt:   res.TicketExpiresAt,
	})
}

// HandleReissue handles POST /preview/reissue
//
//	@Summary		Re-issue preview credentials
//	@Description	Rotates the credentials of a signer's active grant. Previously issued credentials stop working; the access count and expiry carry over.
//	@Tags			Preview
//	@Accept			json
//	@Produce		json
//	@Security		GatewayKey
//	@Param			request	body		signsdk.ReissuePreviewRequest	true	"Signer id"
//	@Success		200		{object}	signsdk.PreviewCredentials
//	@Failure		400		{object}	signsdk.ErrorResponse
//	@Failure		403		{object}	signsdk.ErrorResponse
//	@Failure		404		{object}	signsdk.ErrorResponse
//	@Failure		409		{object}	signsdk.ErrorResponse
//	@Router			/preview/reissue [post]
func (h *PreviewHandler) HandleReissue(w http.ResponseWriter, r *http.Request) {
	var body signsdk.ReissuePreviewRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	creds, err := h.Previews.Reissue(r.Context(), body.SignerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCredentials(creds))
}

// HandleInvalidate handles POST /preview/invalidate
//
//	@Summary		Invalidate a preview grant
//	@Description	Deactivates a grant by grant_id or signer_id. Grants are kept for audit.
//	@Tags			Preview
//	@Accept			json
//	@Produce		json
//	@Security		GatewayKey
//	@Param			request	body		signsdk.InvalidateGrantRequest	true	"grant_id or signer_id"
//	@Success		200		{object}	signsdk.InvalidateGrantResponse
//	@Failure		400		{object}	signsdk.ErrorResponse
//	@Failure		403		{object}	signsdk.ErrorResponse
//	@Failure		404		{object}	signsdk.ErrorResponse
//	@Router			/preview/invalidate [post]
func (h *PreviewHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	var body signsdk.InvalidateGrantRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	g, err := h.Previews.Invalidate(r.Context(), service.InvalidateInput{GrantID: body.GrantID, SignerID: body.SignerID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signsdk.InvalidateGrantResponse{GrantID: g.ID, SignerID: g.SignerID, Active: g.IsActive})
}
