package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/service"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/aussiebroadwan/quill/pkg/idx"
	"github.com/aussiebroadwan/quill/pkg/signsdk"
	"github.com/go-chi/chi/v5"
)

// ReplayedHeader marks a response served from the idempotency record.
const ReplayedHeader = "Idempotent-Replayed"

// RequestsHandler serves the back-office signature request endpoints and
// the public token summary that shares their path.
type RequestsHandler struct {
	Requests    *service.RequestService
	Signing     *service.SigningService
	Idempotency *service.IdempotencyService
}

// actor returns the edge-asserted caller, or writes a 400 when the company
// is missing.
func actor(w http.ResponseWriter, r *http.Request) (httpx.Actor, bool) {
	a := httpx.ActorFromContext(r.Context())
	if a.CompanyID == "" {
		badRequest(w, httpx.HeaderCompanyID+" header is required")
		return a, false
	}
	return a, true
}

// HandleCreate handles POST /signature-requests
//
//	@Summary		Create signature request
//	@Description	Creates a pending request with one capability token per signer. The tokens are only ever returned here.
//	@Description	Repeating a call with the same Idempotency-Key and body replays the first response.
//	@Tags			Signature Requests
//	@Accept			json
//	@Produce		json
//	@Security		GatewayKey
//	@Param			X-Company-ID	header		string									true	"Acting company"
//	@Param			X-User-ID		header		string									false	"Acting user"
//	@Param			Idempotency-Key	header		string									false	"Client-chosen retry key"
//	@Param			request			body		signsdk.CreateSignatureRequestRequest	true	"Document and signer slots"
//	@Success		201				{object}	signsdk.CreateSignatureRequestResponse
//	@Failure		400				{object}	signsdk.ErrorResponse
//	@Failure		403				{object}	signsdk.ErrorResponse
//	@Failure		409				{object}	signsdk.ErrorResponse	"first request with this key still running"
//	@Failure		422				{object}	signsdk.ErrorResponse	"idempotency key reused with another body"
//	@Router			/signature-requests [post]
func (h *RequestsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, httpx.MaxBodyBytes))
	if err != nil {
		badRequest(w, "request body too large")
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var body signsdk.CreateSignatureRequestRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}

	key := strings.TrimSpace(r.Header.Get(signsdk.HeaderIdempotencyKey))
	resp, replayed, err := h.Idempotency.Do(r.Context(), a.Key(), key, "create_signature_request", raw, func() (service.Response, error) {
		return h.create(r, a, body)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	if replayed {
		w.Header().Set(ReplayedHeader, "true")
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (h *RequestsHandler) create(r *http.Request, a httpx.Actor, body signsdk.CreateSignatureRequestRequest) (service.Response, error) {
	in := domain.CreateRequestInput{
		DocumentID: body.DocumentID,
		Title:      body.Title,
		CompanyID:  a.CompanyID,
		CreatedBy:  a.UserID,
		Signers:    make([]domain.SignerSlot, len(body.Signers)),
	}
	for i, s := range body.Signers {
		in.Signers[i] = domain.SignerSlot{
			CustomerID: s.CustomerID,
			Email:      s.Email,
			Name:       s.Name,
			Order:      s.Order,
			Placement:  fromBox(s.Placement),
		}
	}

	req, tokens, err := h.Requests.Create(r.Context(), in)
	if err != nil {
		return service.Response{}, err
	}

	out := signsdk.CreateSignatureRequestResponse{
		SignatureRequest: toRequest(req),
		SignerTokens:     make([]signsdk.SignerToken, len(tokens)),
	}
	for i, t := range tokens {
		out.SignerTokens[i] = signsdk.SignerToken{SignerID: t.SignerID, Email: t.Email, Token: t.Token}
	}

	buf, err := json.Marshal(out)
	if err != nil {
		return service.Response{}, err
	}
	return service.Response{StatusCode: http.StatusCreated, Body: append(buf, '\n')}, nil
}

// HandleList handles GET /signature-requests
//
//	@Summary		List signature requests
//	@Description	Pages through the acting company's requests, newest first.
//	@Tags			Signature Requests
//	@Produce		json
//	@Security		GatewayKey
//	@Param			X-Company-ID	header		string	true	"Acting company"
//	@Param			status			query		string	false	"pending or completed"
//	@Param			limit			query		int		false	"Page size (default 20, max 100)"
//	@Param			offset			query		int		false	"Items to skip"
//	@Success		200				{object}	signsdk.ListSignatureRequestsResponse
//	@Failure		400				{object}	signsdk.ErrorResponse
//	@Failure		403				{object}	signsdk.ErrorResponse
//	@Router			/signature-requests [get]
func (h *RequestsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	f := store.ListFilter{CompanyID: a.CompanyID, Status: domain.RequestStatus(q.Get("status"))}
	var err error
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		badRequest(w, "limit must be an integer")
		return
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		badRequest(w, "offset must be an integer")
		return
	}

	items, total, err := h.Requests.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := signsdk.ListSignatureRequestsResponse{
		Items:  make([]signsdk.SignatureRequest, len(items)),
		Total:  total,
		Limit:  clampLimit(f.Limit),
		Offset: max(f.Offset, 0),
	}
	for i := range items {
		resp.Items[i] = toRequest(&items[i])
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return service.DefaultPageSize
	case n > service.MaxPageSize:
		return service.MaxPageSize
	}
	return n
}

// HandleGet handles GET /signature-requests/{ref}
//
//	@Summary		Get signature request
//	@Description	With a request id (UUID) and the gateway credential, returns the back-office detail.
//	@Description	With a signer capability token, returns that signer's public summary instead.
//	@Tags			Signature Requests
//	@Produce		json
//	@Param			ref	path		string	true	"Request id or signer token"
//	@Success		200	{object}	signsdk.SignatureRequest	"detail (request id)"
//	@Success		200	{object}	signsdk.SignerSummary		"summary (signer token)"
//	@Failure		403	{object}	signsdk.ErrorResponse
//	@Failure		404	{object}	signsdk.ErrorResponse
//	@Router			/signature-requests/{ref} [get]
func (h *RequestsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	// Same predicate the gateway classifies with: anything shaped like an
	// identifier is a back-office lookup.
	if !idx.IsStructured(ref) {
		h.summary(w, r, ref)
		return
	}

	a, ok := actor(w, r)
	if !ok {
		return
	}
	req, err := h.Requests.Get(r.Context(), a.CompanyID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRequest(req))
}

func (h *RequestsHandler) summary(w http.ResponseWriter, r *http.Request, token string) {
	s, err := h.Signing.Resolve(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signsdk.SignerSummary{
		SignatureRequestID: s.RequestID,
		DocumentID:         s.DocumentID,
		Title:              s.Title,
		Status:             string(s.Status),
		Rejected:           s.Rejected,
		SignerID:           s.SignerID,
		SignerStatus:       string(s.SignerStatus),
		SignerOrder:        s.SignerOrder,
		SignerCount:        s.SignerCount,
		SignedCount:        s.SignedCount,
	})
}

// HandleListSigners handles GET /signature-requests/{id}/signers
//
//	@Summary		List signers
//	@Description	Returns the signers of a request without tokens or signature images.
//	@Tags			Signature Requests
//	@Produce		json
//	@Security		GatewayKey
//	@Param			X-Company-ID	header		string	true	"Acting company"
//	@Param			id				path		string	true	"Request id"
//	@Success		200				{object}	signsdk.ListSignersResponse
//	@Failure		403				{object}	signsdk.ErrorResponse
//	@Failure		404				{object}	signsdk.ErrorResponse
//	@Router			/signature-requests/{id}/signers [get]
func (h *RequestsHandler) HandleListSigners(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	req, err := h.Requests.Get(r.Context(), a.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signsdk.ListSignersResponse{Signers: toSigners(req)})
}
