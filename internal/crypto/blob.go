package crypto

// EncodeBlob lays out a stored blob: nonce || ciphertext || tag.
func EncodeBlob(nonce, sealed []byte) []byte {
	blob := make([]byte, 0, len(nonce)+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)
	return blob
}

// DecodeBlob splits a stored blob into nonce and sealed ciphertext.
// The returned slices alias blob.
func DecodeBlob(blob []byte) ([]byte, []byte, error) {
	if len(blob) < MinBlobSize {
		return nil, nil, ErrInvalidBlob
	}
	return blob[:NonceSize], blob[NonceSize:], nil
}

// EncryptBlob seals plaintext and returns it in on-disk layout.
func EncryptBlob(p Provider, plaintext, key []byte) ([]byte, error) {
	nonce, sealed, err := p.Seal(plaintext, key)
	if err != nil {
		return nil, err
	}
	return EncodeBlob(nonce, sealed), nil
}

// DecryptBlob opens a blob in on-disk layout.
func DecryptBlob(p Provider, blob, key []byte) ([]byte, error) {
	nonce, sealed, err := DecodeBlob(blob)
	if err != nil {
		return nil, err
	}
	return p.Open(nonce, sealed, key)
}
