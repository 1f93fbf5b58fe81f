package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"

	"github.com/TheMichaelB/calcvault/internal/config"
)

// embeddedPassphrase is the application secret behind the static key.
// Changing it makes every existing blob unreadable.
const embeddedPassphrase = "calcvault/hidden-drawer/v1"

// DeriveKey returns the static vault key: SHA-256 of the embedded passphrase.
func DeriveKey() []byte {
	sum := sha256.Sum256([]byte(embeddedPassphrase))
	return sum[:]
}

// StaticKeyDeriver yields DeriveKey. It has no salt and never fails.
type StaticKeyDeriver struct{}

// DeriveKey implements KeyDeriver.
func (StaticKeyDeriver) DeriveKey() ([]byte, error) {
	return DeriveKey(), nil
}

// PassphraseDeriver stretches a passphrase with PBKDF2-SHA256.
type PassphraseDeriver struct {
	Passphrase string
	Salt       []byte
	Iterations int
}

// DeriveKey implements KeyDeriver.
func (d PassphraseDeriver) DeriveKey() ([]byte, error) {
	if d.Passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	if len(d.Salt) == 0 {
		return nil, errors.New("empty salt")
	}
	if d.Iterations <= 0 {
		return nil, fmt.Errorf("invalid iteration count: %d", d.Iterations)
	}

	// Same passphrase typed on different keyboards must give the same key
	normalized := norm.NFKC.String(d.Passphrase)

	return pbkdf2.Key([]byte(normalized), d.Salt, d.Iterations, KeySize, sha256.New), nil
}

// NewKeyDeriver selects the derivation configured for this installation.
func NewKeyDeriver(cfg config.CryptoConfig) (KeyDeriver, error) {
	switch cfg.KDF {
	case "", config.KDFStatic:
		return StaticKeyDeriver{}, nil
	case config.KDFPBKDF2:
		return PassphraseDeriver{
			Passphrase: cfg.Passphrase,
			Salt:       []byte(cfg.Salt),
			Iterations: cfg.Iterations,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported kdf: %s", cfg.KDF)
	}
}
