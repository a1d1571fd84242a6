package cryptox_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseEd25519Key(t *testing.T) {
	pemBytes, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	block, _ := pem.Decode(pemBytes)
	require.NotNil(t, block)
	require.Equal(t, "PRIVATE KEY", block.Type)

	key, err := cryptox.ParseEd25519PrivateKey(pemBytes)
	require.NoError(t, err)
	require.Len(t, key, ed25519.PrivateKeySize)
}

func TestParseEd25519PrivateKey_Rejects(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := cryptox.ParseEd25519PrivateKey([]byte("not pem"))
		require.Error(t, err)
	})

	t.Run("wrong block type", func(t *testing.T) {
		raw := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte{1, 2, 3}})
		_, err := cryptox.ParseEd25519PrivateKey(raw)
		require.Error(t, err)
	})

	t.Run("non-Ed25519 PKCS8 key", func(t *testing.T) {
		ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		der, err := x509.MarshalPKCS8PrivateKey(ec)
		require.NoError(t, err)

		raw := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
		_, err = cryptox.ParseEd25519PrivateKey(raw)
		require.Error(t, err)
	})
}
