package crypto_test

import (
	"fmt"

	"github.com/TheMichaelB/calcvault/internal/crypto"
)

func ExampleDeriveKey() {
	key := crypto.DeriveKey()

	fmt.Printf("Key length: %d bytes\n", len(key))
	// Output: Key length: 32 bytes
}

func ExampleEncryptBlob() {
	provider := crypto.NewProvider()
	key := crypto.DeriveKey()

	blob, err := crypto.EncryptBlob(provider, []byte("Hello, World!"), key)
	if err != nil {
		panic(err)
	}

	plaintext, err := crypto.DecryptBlob(provider, blob, key)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Blob length: %d bytes\n", len(blob))
	fmt.Printf("Decrypted: %s\n", plaintext)
	// Output:
	// Blob length: 41 bytes
	// Decrypted: Hello, World!
}
