//go:build e2e

package signing_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/quill/pkg/signsdk"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	client := signsdk.NewSDKClient(setupSigningContainer(t, nil))

	live, err := client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
}

func TestGateway_ProtectsBackOffice(t *testing.T) {
	baseURL := setupSigningContainer(t, nil)
	client := signsdk.NewSDKClient(baseURL)

	_, err := client.BackOffice("wrong-key", companyID, userID).ListSignatureRequests(t.Context(), signsdk.ListOptions{})
	require.True(t, signsdk.IsAccessDenied(err))

	created := createRequest(t, backOffice(client), "a@example.com")

	// The same path template serves the public summary and the protected
	// detail; only the reference decides.
	resp, err := http.Get(baseURL + "/signature-requests/" + created.SignatureRequest.ID)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	summary, err := client.Summary(t.Context(), created.SignerTokens[0].Token)
	require.NoError(t, err)
	require.Equal(t, created.SignatureRequest.ID, summary.SignatureRequestID)
}

func TestRateLimit_SignerMutations(t *testing.T) {
	client := signsdk.NewSDKClient(setupSigningContainer(t, map[string]string{
		"RATELIMIT_SIGNING_REQUESTS": "10",
		"RATELIMIT_SIGNING_BURST":    "10",
	}))

	var limited bool
	for range 20 {
		_, err := client.Consent(t.Context(), "guessed-token")
		var apiErr *signsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		if apiErr.StatusCode == http.StatusTooManyRequests {
			limited = true
			require.Positive(t, apiErr.RetryAfter)
			break
		}
	}
	require.True(t, limited, "token guessing should be rate limited")
}
