package crypto

// Provider defines the interface for cryptographic operations.
type Provider interface {
	// Seal encrypts plaintext under key with a fresh random nonce.
	// The returned sealed slice is ciphertext followed by the GCM tag.
	Seal(plaintext, key []byte) (nonce, sealed []byte, err error)

	// Open authenticates and decrypts sealed under key and nonce.
	Open(nonce, sealed, key []byte) ([]byte, error)
}

// KeyDeriver produces the symmetric vault key.
type KeyDeriver interface {
	// DeriveKey returns a KeySize-byte key.
	DeriveKey() ([]byte, error)
}
