package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/stretchr/testify/require"
)

func TestRequests_CreateValidates(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.requests.Create(context.Background(), domain.CreateRequestInput{DocumentID: "doc", CompanyID: "c"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRequests_GetIsCompanyScoped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req, tokens := h.create(t, "a@example.com")

	got, err := h.requests.Get(ctx, "company-1", req.ID)
	require.NoError(t, err)
	require.Len(t, got.Signers, 1)
	require.Equal(t, tokens[0].SignerID, got.Signers[0].ID)

	_, err = h.requests.Get(ctx, "company-2", req.ID)
	require.ErrorIs(t, err, domain.ErrRequestNotFound)

	_, err = h.requests.Get(ctx, "company-1", "not-a-uuid")
	require.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestRequests_List(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for range 3 {
		h.create(t, "a@example.com")
	}

	page, total, err := h.requests.List(ctx, store.ListFilter{CompanyID: "company-1", Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, page, 2)

	_, _, err = h.requests.List(ctx, store.ListFilter{Status: "archived"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	page, _, err = h.requests.List(ctx, store.ListFilter{Status: domain.RequestCompleted})
	require.NoError(t, err)
	require.Empty(t, page)
}
