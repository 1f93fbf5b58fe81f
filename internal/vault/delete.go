package vault

import (
	"fmt"

	"github.com/TheMichaelB/calcvault/internal/models"
)

// Delete removes record i. The index is saved before the blob is removed,
// so a failure can leave an orphaned blob but never a record without one.
func (v *Vault) Delete(i int) (models.EncryptedRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ensureLoaded(); err != nil {
		return models.EncryptedRecord{}, err
	}

	if i < 0 || i >= len(v.records) {
		return models.EncryptedRecord{}, models.NewNotFoundError("delete record", "",
			fmt.Errorf("%w: %d not in [0,%d)", models.ErrInvalidIndex, i, len(v.records)))
	}

	record := v.records[i]
	logger := v.logger.WithFields(map[string]interface{}{
		"name": record.DisplayName,
		"blob": record.EncryptedPath,
	})

	next := make([]models.EncryptedRecord, 0, len(v.records)-1)
	next = append(next, v.records[:i]...)
	next = append(next, v.records[i+1:]...)

	if err := v.commit(next); err != nil {
		logger.WithError(err).Warn("Failed to save index; record kept")
		return models.EncryptedRecord{}, err
	}

	if err := v.store.RemoveBlob(record.EncryptedPath); err != nil {
		logger.WithError(err).Warn("Record deleted but blob remains as an orphan")
		return record, err
	}

	logger.Info("Record deleted")
	return record, nil
}
