package viewticket_test

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/aussiebroadwan/quill/pkg/viewticket"
	"github.com/stretchr/testify/require"
)

func oldPublicKey(t *testing.T, j viewticket.JWK) ed25519.PublicKey {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(j.X)
	require.NoError(t, err)
	require.Len(t, raw, ed25519.PublicKeySize)
	return ed25519.PublicKey(raw)
}
