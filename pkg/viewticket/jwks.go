package viewticket

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"
)

var ErrNoKey = errors.New("viewticket: key not found")

// JWK represents an Ed25519 public key in JSON Web Key format (RFC 8037).
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// NewEd25519JWK builds a JWK for an Ed25519 public key.
func NewEd25519JWK(kid string, pub ed25519.PublicKey) JWK {
	return JWK{
		Kty: "OKP",
		Use: "sig",
		Alg: "EdDSA",
		Kid: kid,
		Crv: "Ed25519",
		X:   base64.RawURLEncoding.EncodeToString(pub),
	}
}

// KeyID derives a stable kid from the public key, so restarting with the
// same key file keeps the same kid.
func KeyID(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}

// keySet holds the public keys tickets are verified against.
type keySet struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey
	jwks JWKS
}

func newKeySet() *keySet {
	return &keySet{keys: make(map[string]ed25519.PublicKey)}
}

func (k *keySet) add(kid string, pub ed25519.PublicKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[kid]; ok {
		return
	}
	k.keys[kid] = pub
	k.jwks.Keys = append(k.jwks.Keys, NewEd25519JWK(kid, pub))
}

func (k *keySet) get(kid string) (ed25519.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pub, ok := k.keys[kid]; ok {
		return pub, nil
	}
	return nil, ErrNoKey
}

func (k *keySet) snapshot() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := JWKS{Keys: make([]JWK, len(k.jwks.Keys))}
	copy(out.Keys, k.jwks.Keys)
	return out
}
