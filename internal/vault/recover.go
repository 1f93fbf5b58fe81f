package vault

import (
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/TheMichaelB/calcvault/internal/crypto"
	"github.com/TheMichaelB/calcvault/internal/models"
	"github.com/TheMichaelB/calcvault/internal/storage"
)

// RecoveredPrefix starts the display name of every adopted orphan.
const RecoveredPrefix = "recovered-"

// Orphans lists blobs that no record references. It waits for any running
// ingest, whose freshly written blob is not indexed yet.
func (v *Vault) Orphans() ([]storage.FileInfo, error) {
	v.ingestMu.Lock()
	defer v.ingestMu.Unlock()
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ensureLoaded(); err != nil {
		return nil, err
	}
	return v.orphans()
}

// Recover adopts every orphan that decrypts with the vault key as a new
// record. Orphans that fail to decrypt are left in place and reported in
// the returned error alongside any records that were adopted.
func (v *Vault) Recover() ([]models.EncryptedRecord, error) {
	v.ingestMu.Lock()
	defer v.ingestMu.Unlock()
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ensureLoaded(); err != nil {
		return nil, err
	}

	orphans, err := v.orphans()
	if err != nil {
		return nil, err
	}

	var (
		adopted []models.EncryptedRecord
		errs    error
	)

	for _, orphan := range orphans {
		blob, err := v.store.ReadBlob(orphan.Path)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		plaintext, err := crypto.DecryptBlob(v.crypto, blob, v.key)
		if err != nil {
			errs = multierr.Append(errs, models.NewCryptoError("recover", orphan.Path, err))
			continue
		}

		id := strings.TrimSuffix(filepath.Base(orphan.Path), storage.BlobSuffix)
		adopted = append(adopted, models.NewRecord(RecoveredPrefix+id, orphan.Path, int64(len(plaintext)), orphan.ModTime))
	}

	if len(adopted) > 0 {
		next := make([]models.EncryptedRecord, 0, len(v.records)+len(adopted))
		next = append(next, v.records...)
		next = append(next, adopted...)

		if err := v.commit(next); err != nil {
			return nil, multierr.Append(errs, err)
		}

		v.logger.WithField("adopted", len(adopted)).Info("Recovered orphaned blobs")
	}

	return adopted, errs
}

// Prune deletes every orphaned blob and returns how many were removed.
func (v *Vault) Prune() (int, error) {
	v.ingestMu.Lock()
	defer v.ingestMu.Unlock()
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ensureLoaded(); err != nil {
		return 0, err
	}

	orphans, err := v.orphans()
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs error
	for _, orphan := range orphans {
		if err := v.store.RemoveBlob(orphan.Path); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		v.logger.WithField("removed", removed).Info("Pruned orphaned blobs")
	}

	return removed, errs
}

// orphans must be called with ingestMu and mu held.
func (v *Vault) orphans() ([]storage.FileInfo, error) {
	blobs, err := v.store.ListBlobs()
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]struct{}, len(v.records))
	for _, r := range v.records {
		referenced[filepath.Clean(r.EncryptedPath)] = struct{}{}
	}

	var out []storage.FileInfo
	for _, blob := range blobs {
		if _, ok := referenced[filepath.Clean(blob.Path)]; !ok {
			out = append(out, blob)
		}
	}
	return out, nil
}
