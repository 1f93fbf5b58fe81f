package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	// Key sizes
	KeySize   = 32 // AES-256
	NonceSize = 12 // GCM standard
	TagSize   = 16 // GCM tag

	// MinBlobSize is the smallest well-formed blob: nonce and tag around empty ciphertext.
	MinBlobSize = NonceSize + TagSize
)

// Errors
var (
	ErrInvalidKey           = errors.New("invalid key size")
	ErrInvalidNonce         = errors.New("invalid nonce size")
	ErrInvalidBlob          = errors.New("invalid blob: too short")
	ErrAuthenticationFailed = errors.New("message authentication failed")
)

// AESGCMProvider handles all cryptographic operations.
type AESGCMProvider struct {
	random io.Reader
}

// NewProvider creates a crypto provider that draws nonces from crypto/rand.
func NewProvider() *AESGCMProvider {
	return &AESGCMProvider{random: rand.Reader}
}

// NewProviderWithRandom creates a provider with a custom nonce source.
// Only useful for exercising failure paths; r must be cryptographically secure otherwise.
func NewProviderWithRandom(r io.Reader) *AESGCMProvider {
	return &AESGCMProvider{random: r}
}

// Seal encrypts plaintext using AES-256-GCM.
func (p *AESGCMProvider) Seal(plaintext, key []byte) ([]byte, []byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	// Every call gets its own nonce; nothing is derived from content or counters
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(p.random, nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)

	return nonce, sealed, nil
}

// Open decrypts sealed ciphertext using AES-256-GCM.
func (p *AESGCMProvider) Open(nonce, sealed, key []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonce
	}

	if len(sealed) < TagSize {
		return nil, ErrInvalidBlob
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if err := ValidateKeySize(key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return aead, nil
}

// ValidateKeySize checks if the key is the correct size.
func ValidateKeySize(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return nil
}
