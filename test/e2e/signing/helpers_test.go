//go:build e2e

package signing_test

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/pkg/signsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup and shared steps for the signing service end-to-end tests.
 */

const (
	testImageName = "quill-signing-test:latest"

	gatewayKey = "test-gateway-key-12345"
	companyID  = "company-e2e"
	userID     = "user-e2e"
)

// TestMain builds the Docker image once before all tests and removes it
// afterwards.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Signing Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Signing Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/signing/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

// baseEnv relaxes the per-IP limits: every request in a test comes from
// the same address.
func baseEnv() map[string]string {
	return map[string]string{
		"SIGNING_GATEWAY_KEY":          gatewayKey,
		"SIGNING_MASTER_KEY":           "e2e-master-key-material",
		"ENV":                          "test",
		"LOG_LEVEL":                    "info",
		"LOG_FORMAT":                   "json",
		"PREVIEW_MAX_ACCESS":           "3",
		"OUTBOX_POLL_INTERVAL":         "200ms",
		"RATELIMIT_SIGNING_REQUESTS":   "1000",
		"RATELIMIT_SIGNING_BURST":      "1000",
		"RATELIMIT_PREVIEW_REQUESTS":   "1000",
		"RATELIMIT_PREVIEW_BURST":      "1000",
		"RATELIMIT_LOOKUP_REQUESTS":    "1000",
		"RATELIMIT_LOOKUP_BURST":       "1000",
		"RATELIMIT_SIGNING_WINDOW_SEC": "60",
	}
}

// setupSigningContainer starts the service with env layered over baseEnv
// and returns the base URL.
func setupSigningContainer(t *testing.T, env map[string]string) string {
	t.Helper()
	ctx := context.Background()

	merged := baseEnv()
	maps.Copy(merged, env)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          merged,
			WaitingFor: wait.ForHTTP("/livez").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func backOffice(client *signsdk.SDKClient) *signsdk.BackOffice {
	return client.BackOffice(gatewayKey, companyID, userID)
}

// createRequest creates a request with one signer per email.
func createRequest(t *testing.T, office *signsdk.BackOffice, emails ...string) *signsdk.CreateSignatureRequestResponse {
	t.Helper()

	req := signsdk.CreateSignatureRequestRequest{DocumentID: "doc-e2e", Title: "End-to-end agreement"}
	for _, e := range emails {
		req.Signers = append(req.Signers, signsdk.SignerSlot{
			CustomerID: "cust-" + e,
			Email:      e,
			Name:       e,
			Placement:  signsdk.BoxTemplate{Page: 1, X: 40, Y: 40, Width: 160, Height: 50},
		})
	}

	resp, err := office.CreateSignatureRequest(t.Context(), req, "")
	require.NoError(t, err)
	require.Len(t, resp.SignerTokens, len(emails))
	return resp
}

// sign runs consent and submit for one signer.
func sign(t *testing.T, client *signsdk.SDKClient, token string) *signsdk.SubmitResponse {
	t.Helper()

	_, err := client.Consent(t.Context(), token)
	require.NoError(t, err, "consent should succeed")

	resp, err := client.Submit(t.Context(), signsdk.SubmitRequest{
		Token:          token,
		SignatureImage: []byte("\x89PNG e2e signature"),
	})
	require.NoError(t, err, "submit should succeed")
	return resp
}
