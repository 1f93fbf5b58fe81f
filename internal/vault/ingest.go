package vault

import (
	"context"
	"fmt"

	"github.com/TheMichaelB/calcvault/internal/crypto"
	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/models"
)

// IngestResult is the outcome for one staged file.
type IngestResult struct {
	Name   string
	Record *models.EncryptedRecord
	Err    error
}

// Status renders the result as a user-facing line.
func (r IngestResult) Status() string {
	if r.Err != nil {
		return fmt.Sprintf("Failed to encrypt %s: %v", r.Name, r.Err)
	}
	return fmt.Sprintf("Encrypted %s", r.Name)
}

// IngestReport summarizes one pass over the staging directory.
type IngestReport struct {
	Results []IngestResult
}

// Succeeded returns the number of files that were vaulted.
func (r IngestReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of files left in staging because of an error.
func (r IngestReport) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Summary renders the report as a single status line.
func (r IngestReport) Summary() string {
	switch {
	case len(r.Results) == 0:
		return "No files to encrypt"
	case r.Failed() == 0:
		return fmt.Sprintf("Encrypted %d file(s)", r.Succeeded())
	default:
		return fmt.Sprintf("Encrypted %d file(s), %d failed", r.Succeeded(), r.Failed())
	}
}

// Ingest encrypts every staged file into the vault, in name order. A
// failure on one file is reported in its result and leaves that file in
// staging; the batch continues. The returned error is set only when
// staging cannot be listed or ctx is cancelled.
func (v *Vault) Ingest(ctx context.Context, progress func(IngestResult)) (IngestReport, error) {
	v.ingestMu.Lock()
	defer v.ingestMu.Unlock()

	var report IngestReport

	logger := v.logger
	if taskID := events.GetTaskID(ctx); taskID != "" {
		logger = logger.WithField("task_id", taskID)
	}

	if err := v.checkReady(); err != nil {
		return report, err
	}

	staged, err := v.store.ListStaging()
	if err != nil {
		return report, err
	}

	logger.WithField("files", len(staged)).Info("Ingesting staged files")

	for _, file := range staged {
		if err := ctx.Err(); err != nil {
			logger.WithField("remaining", len(staged)-len(report.Results)).Info("Ingest cancelled")
			return report, err
		}

		record, err := v.ingestOne(file.Name)
		result := IngestResult{Name: file.Name, Err: err}
		if err == nil {
			result.Record = &record
			logger.WithFields(map[string]interface{}{
				"name": file.Name,
				"blob": record.EncryptedPath,
				"size": record.Size,
			}).Debug("File ingested")
		} else {
			logger.WithError(err).WithField("name", file.Name).Warn("Failed to ingest file")
		}

		report.Results = append(report.Results, result)
		if progress != nil {
			progress(result)
		}
	}

	logger.WithFields(map[string]interface{}{
		"succeeded": report.Succeeded(),
		"failed":    report.Failed(),
	}).Info("Ingest complete")

	return report, nil
}

// IngestFile vaults a single staged file by name.
func (v *Vault) IngestFile(name string) (models.EncryptedRecord, error) {
	v.ingestMu.Lock()
	defer v.ingestMu.Unlock()

	if err := v.checkReady(); err != nil {
		return models.EncryptedRecord{}, err
	}
	return v.ingestOne(name)
}

func (v *Vault) ingestOne(name string) (models.EncryptedRecord, error) {
	plaintext, err := v.store.ReadStaging(name)
	if err != nil {
		return models.EncryptedRecord{}, err
	}

	blob, err := crypto.EncryptBlob(v.crypto, plaintext, v.key)
	if err != nil {
		return models.EncryptedRecord{}, models.NewCryptoError("encrypt", name, err)
	}

	blobPath, err := v.store.WriteBlob(blob)
	if err != nil {
		return models.EncryptedRecord{}, err
	}

	record := models.NewRecord(name, blobPath, int64(len(plaintext)), v.now())

	if err := v.appendRecord(record); err != nil {
		if rmErr := v.store.RemoveBlob(blobPath); rmErr != nil {
			v.logger.WithError(rmErr).WithField("blob", blobPath).Error("Failed to roll back blob")
		}
		return models.EncryptedRecord{}, err
	}

	// A crash before this point leaves the original in staging and it is
	// ingested again on the next pass.
	if err := v.store.RemoveStaging(name); err != nil {
		v.logger.WithError(err).WithField("name", name).Warn("Encrypted but could not remove staged original")
	}

	return record, nil
}

func (v *Vault) appendRecord(record models.EncryptedRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ensureLoaded(); err != nil {
		return err
	}

	next := make([]models.EncryptedRecord, 0, len(v.records)+1)
	next = append(next, v.records...)
	next = append(next, record)

	return v.commit(next)
}

func (v *Vault) checkReady() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ensureLoaded()
}
