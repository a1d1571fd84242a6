package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// GenerateToken creates a cryptographically secure random token of the specified byte length.
// The token is returned as a base64url-encoded string (URL-safe, no padding).
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token.
// Capability tokens and preview credentials are persisted only as
// fingerprints so a database read never yields a usable secret.
//
// The fingerprint is returned as a base64url-encoded string (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// MatchFingerprint reports, in constant time, whether token fingerprints to
// the stored value. An empty token or fingerprint never matches.
func MatchFingerprint(token, fingerprint string) bool {
	if token == "" || fingerprint == "" {
		return false
	}
	computed := FingerprintToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(fingerprint)) == 1
}

// Secret is a freshly generated credential together with the fingerprint
// that gets stored.
type Secret struct {
	Raw         string
	Fingerprint string
}

// NewSecret generates a 256-bit secret and its fingerprint.
func NewSecret() (Secret, error) {
	raw, err := GenerateToken(TokenSize256)
	if err != nil {
		return Secret{}, err
	}
	return Secret{Raw: raw, Fingerprint: FingerprintToken(raw)}, nil
}
