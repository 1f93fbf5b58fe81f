package models_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/calcvault/internal/models"
)

func TestVaultError(t *testing.T) {
	tests := []struct {
		name string
		err  *models.VaultError
		want string
	}{
		{
			name: "with path",
			err:  models.NewCryptoError("retrieve", "/vault/ab12.secure", errors.New("message authentication failed")),
			want: "retrieve [CRYPTO_ERROR]: /vault/ab12.secure: message authentication failed",
		},
		{
			name: "without path",
			err:  models.NewIOError("save index", "", errors.New("disk full")),
			want: "save index [IO_ERROR]: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestVaultErrorIs(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("ingest: %w", models.NewCryptoError("seal", "a.txt", cause))

	assert.ErrorIs(t, err, models.ErrCrypto)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, models.ErrIO)
	assert.Equal(t, models.ErrCodeCrypto, models.Code(err))

	assert.ErrorIs(t, models.NewNotFoundError("lookup", "", cause), models.ErrNotFound)
	assert.ErrorIs(t, models.NewIndexCorruptError("load", "", cause), models.ErrIndexCorrupt)
	assert.Empty(t, models.Code(cause))
}

func TestNewRecord(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	rec := models.NewRecord("Photo.JPG", "/v/x.secure", 42, created)

	assert.Equal(t, "Photo.JPG", rec.DisplayName)
	assert.Equal(t, "jpg", rec.OriginalExtension)
	assert.Equal(t, int64(42), rec.Size)
	assert.Equal(t, "2026-03-04 05:06:07", rec.CreatedAt)
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"hello.txt":      "txt",
		"archive.tar.GZ": "gz",
		"README":         "",
		".bashrc":        "bashrc",
		"trailing.":      "",
	}

	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, models.Extension(name))
		})
	}
}

func TestCloneRecords(t *testing.T) {
	orig := []models.EncryptedRecord{{DisplayName: "a"}}
	clone := models.CloneRecords(orig)
	clone[0].DisplayName = "b"

	assert.Equal(t, "a", orig[0].DisplayName)
	assert.Empty(t, models.CloneRecords(nil))
}
