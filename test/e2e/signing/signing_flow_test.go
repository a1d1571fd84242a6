//go:build e2e

package signing_test

import (
	"sync"
	"testing"

	"github.com/aussiebroadwan/quill/pkg/signsdk"
	"github.com/stretchr/testify/require"
)

func TestSigningFlow_CompletesAndPreviews(t *testing.T) {
	client := signsdk.NewSDKClient(setupSigningContainer(t, nil))
	office := backOffice(client)

	created := createRequest(t, office, "alice@example.com", "bob@example.com")

	first := sign(t, client, created.SignerTokens[0].Token)
	require.False(t, first.Completed)
	require.Equal(t, "pending", first.RequestStatus)
	require.Nil(t, first.Preview)

	last := sign(t, client, created.SignerTokens[1].Token)
	require.True(t, last.Completed)
	require.NotNil(t, last.Preview, "the no-op sealer seals inline")

	jwks, err := client.JWKS(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, jwks.Keys)

	creds := last.Preview
	access := signsdk.PreviewAccessRequest{AccessToken: creds.AccessToken, SessionID: creds.SessionID, Fingerprint: creds.Fingerprint}
	for range 3 {
		res, err := client.AccessPreview(t.Context(), access)
		require.NoError(t, err)
		require.NotEmpty(t, res.ViewTicket)
	}
	_, err = client.AccessPreview(t.Context(), access)
	require.True(t, signsdk.IsAccessDenied(err), "fourth access is over the limit")

	detail, err := office.GetSignatureRequest(t.Context(), created.SignatureRequest.ID)
	require.NoError(t, err)
	require.Equal(t, "completed", detail.Status)
	require.NotEmpty(t, detail.SealedDocumentID)
}

func TestSigningFlow_ConcurrentPreviewAccess(t *testing.T) {
	client := signsdk.NewSDKClient(setupSigningContainer(t, nil))
	created := createRequest(t, backOffice(client), "solo@example.com")
	creds := sign(t, client, created.SignerTokens[0].Token).Preview
	require.NotNil(t, creds)

	access := signsdk.PreviewAccessRequest{AccessToken: creds.AccessToken, SessionID: creds.SessionID, Fingerprint: creds.Fingerprint}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
		other   []error
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.AccessPreview(t.Context(), access)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted++
			case signsdk.IsAccessDenied(err), signsdk.IsTemporary(err):
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	require.LessOrEqual(t, granted, 3)

	info, err := client.PreviewInfo(t.Context(), creds.AccessToken, creds.SessionID)
	require.NoError(t, err)
	require.Equal(t, granted, info.AccessCount)
}

func TestSigningFlow_EnforcedOrder(t *testing.T) {
	client := signsdk.NewSDKClient(setupSigningContainer(t, map[string]string{"SIGNING_ENFORCE_ORDER": "true"}))
	created := createRequest(t, backOffice(client), "first@example.com", "second@example.com")

	second := created.SignerTokens[1].Token
	_, err := client.Consent(t.Context(), second)
	require.NoError(t, err)
	_, err = client.Submit(t.Context(), signsdk.SubmitRequest{Token: second, SignatureImage: []byte("png")})
	require.True(t, signsdk.IsConflict(err), "second signer must wait for the first")

	sign(t, client, created.SignerTokens[0].Token)
	_, err = client.Submit(t.Context(), signsdk.SubmitRequest{Token: second, SignatureImage: []byte("png")})
	require.NoError(t, err)
}

func TestSigningFlow_Rejection(t *testing.T) {
	client := signsdk.NewSDKClient(setupSigningContainer(t, nil))
	office := backOffice(client)
	created := createRequest(t, office, "a@example.com", "b@example.com")

	_, err := client.Reject(t.Context(), created.SignerTokens[0].Token, "not my document")
	require.NoError(t, err)

	_, err = client.Layout(t.Context(), created.SignerTokens[0].Token)
	require.True(t, signsdk.IsConflict(err))

	detail, err := office.GetSignatureRequest(t.Context(), created.SignatureRequest.ID)
	require.NoError(t, err)
	require.True(t, detail.Rejected)
}
