package vault

import (
	"os"
	"path/filepath"

	"github.com/TheMichaelB/calcvault/internal/crypto"
	"github.com/TheMichaelB/calcvault/internal/models"
)

// Retrieve decrypts record i into a fresh private temp directory and
// returns the plaintext path. Nothing is written when decryption fails.
func (v *Vault) Retrieve(i int) (string, error) {
	_, path, err := v.retrieve(i)
	return path, err
}

// retrieve resolves position i once and decrypts that record. The record is
// returned whenever the lookup succeeded, even if decryption failed.
func (v *Vault) retrieve(i int) (models.EncryptedRecord, string, error) {
	if err := v.checkReady(); err != nil {
		return models.EncryptedRecord{}, "", err
	}

	record, err := v.Record(i)
	if err != nil {
		return models.EncryptedRecord{}, "", err
	}

	logger := v.logger.WithFields(map[string]interface{}{
		"name": record.DisplayName,
		"blob": record.EncryptedPath,
	})

	blob, err := v.store.ReadBlob(record.EncryptedPath)
	if err != nil {
		logger.WithError(err).Warn("Failed to read blob")
		return record, "", err
	}

	plaintext, err := crypto.DecryptBlob(v.crypto, blob, v.key)
	if err != nil {
		logger.WithError(err).Warn("Failed to decrypt blob")
		return record, "", models.NewCryptoError("decrypt", record.EncryptedPath, err)
	}

	dir, err := os.MkdirTemp(v.tempDir, "calcvault-")
	if err != nil {
		return record, "", models.NewIOError("create temp dir", v.tempDir, err)
	}

	path := filepath.Join(dir, plainName(record.DisplayName))
	if err := os.WriteFile(path, plaintext, 0600); err != nil {
		_ = os.RemoveAll(dir)
		return record, "", models.NewIOError("write plaintext", path, err)
	}

	logger.WithField("path", path).Debug("Record decrypted")
	return record, path, nil
}

// Open retrieves record i and hands it to the configured viewer. It
// returns the record it resolved, so callers never look position i up a
// second time. The plaintext path is returned even when the viewer fails
// to launch.
func (v *Vault) Open(i int) (models.EncryptedRecord, string, error) {
	record, path, err := v.retrieve(i)
	if err != nil {
		return record, "", err
	}

	if err := v.opener.Open(path); err != nil {
		v.logger.WithError(err).WithField("path", path).Warn("Failed to launch viewer")
		return record, path, err
	}

	return record, path, nil
}

// plainName keeps only the final element of a display name so a crafted
// index cannot write outside the temp directory.
func plainName(displayName string) string {
	name := filepath.Base(filepath.Clean("/" + filepath.FromSlash(displayName)))
	if name == "/" || name == "." || name == string(filepath.Separator) {
		return "file"
	}
	return name
}
