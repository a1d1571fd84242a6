package viewticket_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/viewticket"
	"github.com/stretchr/testify/require"
)

func sampleTicket() viewticket.Ticket {
	return viewticket.Ticket{
		SignerID:           "0190b3c5-8f0e-7c3a-9d59-1a2b3c4d5e6f",
		SignatureRequestID: "0190b3c5-8f0e-7c3a-9d59-000000000001",
		SealedDocumentID:   "sealed-42",
		GrantID:            "0190b3c5-8f0e-7c3a-9d59-000000000002",
		Access:             1,
	}
}

func TestIssueAndVerify(t *testing.T) {
	iss, err := viewticket.NewEphemeralIssuer("quill-signing", time.Minute)
	require.NoError(t, err)

	raw, exp, err := iss.Issue(sampleTicket())
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	claims, err := iss.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "sealed-42", claims.SealedDocumentID)
	require.Equal(t, sampleTicket().SignerID, claims.Subject)
	require.Equal(t, 1, claims.Access)
	require.NotEmpty(t, claims.ID)
}

func TestVerifyRejectsExpired(t *testing.T) {
	iss, err := viewticket.NewEphemeralIssuer("quill-signing", time.Minute)
	require.NoError(t, err)

	base := time.Now()
	iss.Now = func() time.Time { return base }
	raw, _, err := iss.Issue(sampleTicket())
	require.NoError(t, err)

	iss.Now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = iss.Verify(raw)
	require.Error(t, err)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	a, err := viewticket.NewEphemeralIssuer("quill-signing", time.Minute)
	require.NoError(t, err)
	b, err := viewticket.NewEphemeralIssuer("quill-signing", time.Minute)
	require.NoError(t, err)

	raw, _, err := a.Issue(sampleTicket())
	require.NoError(t, err)

	_, err = b.Verify(raw)
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	a, err := viewticket.NewIssuer(key, "issuer-a", time.Minute)
	require.NoError(t, err)
	b, err := viewticket.NewIssuer(key, "issuer-b", time.Minute)
	require.NoError(t, err)

	raw, _, err := a.Issue(sampleTicket())
	require.NoError(t, err)

	_, err = b.Verify(raw)
	require.Error(t, err)
}

func TestVerifyRejectsTampering(t *testing.T) {
	iss, err := viewticket.NewEphemeralIssuer("quill-signing", time.Minute)
	require.NoError(t, err)

	raw, _, err := iss.Issue(sampleTicket())
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	_, err = iss.Verify(parts[0] + "." + parts[1] + "." + string(sig))
	require.Error(t, err)
}

func TestKeyIDIsStableAcrossRestarts(t *testing.T) {
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	key, err := cryptox.ParseEd25519PrivateKey(pemKey)
	require.NoError(t, err)

	a, err := viewticket.NewIssuer(key, "quill-signing", 0)
	require.NoError(t, err)
	b, err := viewticket.NewIssuer(key, "quill-signing", 0)
	require.NoError(t, err)

	require.Equal(t, a.KID(), b.KID())
	require.Equal(t, viewticket.DefaultTTL, a.TTL())

	raw, _, err := a.Issue(sampleTicket())
	require.NoError(t, err)
	_, err = b.Verify(raw)
	require.NoError(t, err)
}

func TestJWKSAndTrustKey(t *testing.T) {
	iss, err := viewticket.NewEphemeralIssuer("quill-signing", time.Minute)
	require.NoError(t, err)

	jwks := iss.JWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)
	require.Equal(t, iss.KID(), jwks.Keys[0].Kid)

	old, err := viewticket.NewEphemeralIssuer("quill-signing", time.Minute)
	require.NoError(t, err)
	oldPub := old.JWKS().Keys[0]
	raw, _, err := old.Issue(sampleTicket())
	require.NoError(t, err)

	_, err = iss.Verify(raw)
	require.Error(t, err)

	pubKey := oldPublicKey(t, oldPub)
	iss.TrustKey(pubKey)
	require.Len(t, iss.JWKS().Keys, 2)

	_, err = iss.Verify(raw)
	require.NoError(t, err)
}

func TestIssueRequiresSubjectAndDocument(t *testing.T) {
	iss, err := viewticket.NewEphemeralIssuer("quill-signing", time.Minute)
	require.NoError(t, err)

	_, _, err = iss.Issue(viewticket.Ticket{SignerID: "x"})
	require.Error(t, err)
}
