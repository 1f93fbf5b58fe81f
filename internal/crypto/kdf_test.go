package crypto_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/calcvault/internal/config"
	"github.com/TheMichaelB/calcvault/internal/crypto"
	"github.com/TheMichaelB/calcvault/internal/crypto/testdata"
)

func TestDeriveKey_Static(t *testing.T) {
	key := crypto.DeriveKey()

	assert.Equal(t, testdata.StaticKey, hex.EncodeToString(key))
	assert.Equal(t, key, crypto.DeriveKey(), "derivation must be deterministic")

	fromDeriver, err := crypto.StaticKeyDeriver{}.DeriveKey()
	require.NoError(t, err)
	assert.Equal(t, key, fromDeriver)
}

func TestPassphraseDeriver(t *testing.T) {
	for _, v := range testdata.KDFVectors {
		t.Run(v.Name, func(t *testing.T) {
			d := crypto.PassphraseDeriver{
				Passphrase: v.Passphrase,
				Salt:       []byte(v.Salt),
				Iterations: v.Iterations,
			}

			key, err := d.DeriveKey()
			require.NoError(t, err)
			assert.Len(t, key, crypto.KeySize)
			assert.Equal(t, v.Key, hex.EncodeToString(key))
		})
	}
}

func TestPassphraseDeriver_Invalid(t *testing.T) {
	tests := []struct {
		name string
		d    crypto.PassphraseDeriver
	}{
		{"no passphrase", crypto.PassphraseDeriver{Salt: []byte("s"), Iterations: 1}},
		{"no salt", crypto.PassphraseDeriver{Passphrase: "p", Iterations: 1}},
		{"no iterations", crypto.PassphraseDeriver{Passphrase: "p", Salt: []byte("s")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.d.DeriveKey()
			assert.Error(t, err)
		})
	}
}

func TestNewKeyDeriver(t *testing.T) {
	d, err := crypto.NewKeyDeriver(config.CryptoConfig{KDF: config.KDFStatic})
	require.NoError(t, err)
	assert.IsType(t, crypto.StaticKeyDeriver{}, d)

	d, err = crypto.NewKeyDeriver(config.CryptoConfig{
		KDF:        config.KDFPBKDF2,
		Passphrase: "correct horse",
		Salt:       "calcvault-salt",
		Iterations: 1000,
	})
	require.NoError(t, err)
	key, err := d.DeriveKey()
	require.NoError(t, err)
	assert.Equal(t, testdata.KDFVectors[0].Key, hex.EncodeToString(key))

	_, err = crypto.NewKeyDeriver(config.CryptoConfig{KDF: "argon2"})
	assert.Error(t, err)
}
