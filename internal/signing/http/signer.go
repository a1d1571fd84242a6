package http

import (
	"net/http"

	"github.com/aussiebroadwan/quill/internal/signing/service"
	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/aussiebroadwan/quill/pkg/signsdk"
	"github.com/go-chi/chi/v5"
)

// SignerHandler serves the public, capability-token endpoints.
type SignerHandler struct {
	Signing *service.SigningService
}

func signerContext(r *http.Request, token string) service.SignerContext {
	return service.SignerContext{
		Token:     token,
		ClientIP:  httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// HandleLayout handles GET /signature-requests/layout/{token}
//
//	@Summary		Get signature placement
//	@Description	Returns where the token's signer places their signature. Answers 410 once the request completed or the signer rejected.
//	@Tags			Signing
//	@Produce		json
//	@Param			token	path		string	true	"Signer capability token"
//	@Success		200		{object}	signsdk.LayoutResponse
//	@Failure		404		{object}	signsdk.ErrorResponse
//	@Failure		410		{object}	signsdk.ErrorResponse
//	@Failure		429		{object}	signsdk.ErrorResponse
//	@Router			/signature-requests/layout/{token} [get]
func (h *SignerHandler) HandleLayout(w http.ResponseWriter, r *http.Request) {
	l, err := h.Signing.Layout(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signsdk.LayoutResponse{
		SignatureRequestID: l.RequestID,
		DocumentID:         l.DocumentID,
		Title:              l.Title,
		SignerID:           l.SignerID,
		SignerName:         l.SignerName,
		Order:              l.Order,
		Status:             string(l.Status),
		Placement:          toBox(l.Placement),
	})
}

// HandleConsent handles POST /signature-requests/consent
//
//	@Summary		Register consent
//	@Description	Records the signer's agreement to sign electronically, with client IP and user agent. Repeating it keeps the first record.
//	@Tags			Signing
//	@Accept			json
//	@Produce		json
//	@Param			request	body		signsdk.TokenRequest	true	"Signer token"
//	@Success		200		{object}	signsdk.ConsentResponse
//	@Failure		400		{object}	signsdk.ErrorResponse
//	@Failure		404		{object}	signsdk.ErrorResponse
//	@Failure		409		{object}	signsdk.ErrorResponse
//	@Failure		503		{object}	signsdk.ErrorResponse
//	@Router			/signature-requests/consent [post]
func (h *SignerHandler) HandleConsent(w http.ResponseWriter, r *http.Request) {
	var body signsdk.TokenRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := h.Signing.Consent(r.Context(), signerContext(r, body.Token))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signsdk.ConsentResponse{
		SignatureRequestID: res.SignatureRequestID,
		SignerID:           res.SignerID,
		Status:             string(res.Status),
		ConsentedAt:        res.ConsentedAt,
	})
}

// HandleSubmit handles POST /signature-requests/submit
//
//	@Summary		Submit signature
//	@Description	Signs for the token's signer. The submission that completes the request also seals the document and, when that finishes in time, returns this signer's preview credentials.
//	@Description	downstream_pending=true means the signature is recorded and sealing continues in the background.
//	@Tags			Signing
//	@Accept			json
//	@Produce		json
//	@Param			request	body		signsdk.SubmitRequest	true	"Signer token, signature image (base64) and certificate metadata"
//	@Success		200		{object}	signsdk.SubmitResponse
//	@Failure		400		{object}	signsdk.ErrorResponse
//	@Failure		404		{object}	signsdk.ErrorResponse
//	@Failure		409		{object}	signsdk.ErrorResponse
//	@Failure		503		{object}	signsdk.ErrorResponse
//	@Router			/signature-requests/submit [post]
func (h *SignerHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var body signsdk.SubmitRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := h.Signing.Submit(r.Context(), service.SubmitInput{
		SignerContext: signerContext(r, body.Token),
		Image:         body.SignatureImage,
		Certificate:   body.Certificate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := signsdk.SubmitResponse{
		SignatureRequestID: res.SignatureRequestID,
		SignerID:           res.SignerID,
		RequestStatus:      string(res.RequestStatus),
		SignedAt:           res.SignedAt,
		Completed:          res.Completed,
		DownstreamPending:  res.DownstreamPending,
	}
	if res.Preview != nil {
		c := toCredentials(*res.Preview)
		out.Preview = &c
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleReject handles POST /signature-requests/reject
//
//	@Summary		Reject signature request
//	@Description	Declines to sign. A rejection ends the request for every signer.
//	@Tags			Signing
//	@Accept			json
//	@Produce		json
//	@Param			request	body		signsdk.RejectRequest	true	"Signer token and optional reason"
//	@Success		200		{object}	signsdk.RejectResponse
//	@Failure		400		{object}	signsdk.ErrorResponse
//	@Failure		404		{object}	signsdk.ErrorResponse
//	@Failure		409		{object}	signsdk.ErrorResponse
//	@Failure		503		{object}	signsdk.ErrorResponse
//	@Router			/signature-requests/reject [post]
func (h *SignerHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var body signsdk.RejectRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := h.Signing.Reject(r.Context(), signerContext(r, body.Token), body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signsdk.RejectResponse{
		SignatureRequestID: res.SignatureRequestID,
		SignerID:           res.SignerID,
		RejectedAt:         res.RejectedAt,
	})
}
