// Package viewticket mints and verifies the short-lived EdDSA tickets handed
// out after a successful preview access. The external document viewer
// verifies them against the published JWKS before serving a sealed document.
package viewticket

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

type Issuer struct {
	kid    string
	key    ed25519.PrivateKey
	issuer string
	ttl    time.Duration
	keys   *keySet

	// Now is overridable for tests.
	Now func() time.Time
}

// NewIssuer builds an Issuer around an Ed25519 private key.
func NewIssuer(key ed25519.PrivateKey, issuer string, ttl time.Duration) (*Issuer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("viewticket: invalid Ed25519 private key size")
	}
	if issuer == "" {
		return nil, errors.New("viewticket: issuer is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	pub := key.Public().(ed25519.PublicKey)
	kid := KeyID(pub)

	ks := newKeySet()
	ks.add(kid, pub)

	return &Issuer{
		kid:    kid,
		key:    key,
		issuer: issuer,
		ttl:    ttl,
		keys:   ks,
		Now:    time.Now,
	}, nil
}

// NewEphemeralIssuer generates a throwaway key. Tickets minted before a
// restart stop verifying, which is acceptable given their lifetime.
func NewEphemeralIssuer(issuer string, ttl time.Duration) (*Issuer, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("viewticket: generate key: %w", err)
	}
	return NewIssuer(key, issuer, ttl)
}

func (i *Issuer) KID() string        { return i.kid }
func (i *Issuer) TTL() time.Duration { return i.ttl }

// TrustKey publishes an additional verification key, e.g. the previous key
// during a rotation window.
func (i *Issuer) TrustKey(pub ed25519.PublicKey) {
	i.keys.add(KeyID(pub), pub)
}

// JWKS returns the published verification keys.
func (i *Issuer) JWKS() JWKS {
	return i.keys.snapshot()
}

// Issue mints a ticket and returns it with its expiry.
func (i *Issuer) Issue(t Ticket) (string, time.Time, error) {
	if t.SignerID == "" || t.SealedDocumentID == "" {
		return "", time.Time{}, errors.New("viewticket: signer and sealed document are required")
	}

	now := i.Now().UTC().Truncate(time.Second)
	exp := now.Add(i.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   t.SignerID,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        idx.New().String(),
		},
		SignatureRequestID: t.SignatureRequestID,
		SealedDocumentID:   t.SealedDocumentID,
		GrantID:            t.GrantID,
		Access:             t.Access,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = i.kid
	signed, err := tok.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("viewticket: sign: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, issuer, audience and expiry.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.Now),
	)

	token, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("viewticket: missing kid")
		}
		pub, err := i.keys.get(kid)
		if err != nil {
			return nil, fmt.Errorf("viewticket: unknown kid %q: %w", kid, err)
		}
		return pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("viewticket: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("viewticket: invalid ticket claims")
	}
	return claims, nil
}
