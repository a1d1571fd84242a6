package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// sealInfo binds the derived key to at-rest sealing of signature images,
// queued job payloads and recorded idempotent responses.
const sealInfo = "quill/at-rest/v1"

var (
	masterKeyOnce sync.Once
	masterKey     []byte
	masterKeyErr  error
	masterKeyPath string
)

// ErrCiphertextTooShort is returned by Open for truncated input.
var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

// SetMasterKeyPath configures where to load the master key material from.
// This must be called before the first Seal/Open. If not set, the material is
// read from the SIGNING_MASTER_KEY environment variable.
func SetMasterKeyPath(path string) {
	masterKeyPath = path
}

// loadMasterKey derives a 32-byte AES-256 key with HKDF-SHA256 from either:
// 1. the file at masterKeyPath (if set)
// 2. the SIGNING_MASTER_KEY environment variable
// 3. an ephemeral random key (development only; sealed data will not survive restart)
func loadMasterKey() ([]byte, error) {
	var material []byte

	switch {
	case masterKeyPath != "":
		data, err := os.ReadFile(masterKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		material = data
	case os.Getenv("SIGNING_MASTER_KEY") != "":
		material = []byte(os.Getenv("SIGNING_MASTER_KEY"))
	default:
		material = make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral master key: %w", err)
		}
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, material, nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}
	return key, nil
}

func getMasterKey() ([]byte, error) {
	masterKeyOnce.Do(func() {
		masterKey, masterKeyErr = loadMasterKey()
	})
	return masterKey, masterKeyErr
}

func newGCM() (cipher.AEAD, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-256-GCM. Output: [nonce][ciphertext+tag].
// A nil or empty plaintext seals to nil so optional columns stay NULL.
func Seal(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, nil
	}
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. A nil or empty input opens to nil.
func Open(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// ResetMasterKeyForTesting resets the master key singleton for testing purposes.
func ResetMasterKeyForTesting() {
	masterKeyOnce = sync.Once{}
	masterKey = nil
	masterKeyErr = nil
}
