package state

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/TheMichaelB/calcvault/internal/config"
	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/models"
)

// Store persists the vault index as one ordered snapshot.
type Store interface {
	// Load returns the saved records in insertion order. A store that has
	// never been saved yields an empty slice and no error. An unreadable
	// snapshot yields an error matching models.ErrIndexCorrupt.
	Load() ([]models.EncryptedRecord, error)

	// Save replaces the snapshot with records.
	Save(records []models.EncryptedRecord) error

	// Close releases resources.
	Close() error
}

// Open creates the index store selected by cfg.IndexBackend.
func Open(cfg config.VaultConfig, logger *events.Logger) (Store, error) {
	switch cfg.IndexBackend {
	case "", config.BackendJSON:
		store, err := NewJSONStore(cfg.IndexFile, logger)
		if err != nil {
			return nil, err
		}
		store.SetQuarantine(cfg.OnCorruptIndex != config.CorruptFail)
		return store, nil
	case config.BackendSQLite:
		store, err := NewSQLiteStore(SQLitePath(cfg.IndexFile), logger)
		if err != nil {
			return nil, err
		}
		store.SetQuarantine(cfg.OnCorruptIndex != config.CorruptFail)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.IndexBackend)
	}
}

// SQLitePath maps the configured index file to its database file.
func SQLitePath(indexFile string) string {
	return strings.TrimSuffix(indexFile, filepath.Ext(indexFile)) + ".db"
}
