package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/models"
)

// JSONStore keeps the index in a pretty-printed JSON array, rewritten whole on every save.
type JSONStore struct {
	path       string
	logger     *events.Logger
	quarantine bool

	mu sync.Mutex
}

// NewJSONStore creates a JSON snapshot store at path.
func NewJSONStore(path string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	return &JSONStore{
		path:       path,
		logger:     logger.WithField("component", "json_index_store"),
		quarantine: true,
	}, nil
}

// SetQuarantine controls whether an unreadable snapshot is moved aside on
// load. When disabled the file stays put and every load keeps failing.
func (s *JSONStore) SetQuarantine(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarantine = enabled
}

// Path returns the snapshot file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the snapshot.
func (s *JSONStore) Load() ([]models.EncryptedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.WithField("path", s.path).Debug("Loading index")

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.EncryptedRecord{}, nil
		}
		return nil, models.NewIOError("read index", s.path, err)
	}

	var records []models.EncryptedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log := s.logger.WithError(err)
		if s.quarantine {
			log = log.WithField("quarantine", s.moveAside())
		}
		log.Warn("Index snapshot is corrupt")
		return nil, models.NewIndexCorruptError("load index", s.path, err)
	}

	if records == nil {
		records = []models.EncryptedRecord{}
	}

	return records, nil
}

// Save writes the snapshot atomically.
func (s *JSONStore) Save(records []models.EncryptedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.WithField("records", len(records)).Debug("Saving index")

	if records == nil {
		records = []models.EncryptedRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return models.NewIOError("create temp index", s.path, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return models.NewIOError("write index", s.path, err)
	}

	if err := tmp.Sync(); err != nil {
		return models.NewIOError("sync index", s.path, err)
	}

	if err := tmp.Close(); err != nil {
		return models.NewIOError("close index", s.path, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return models.NewIOError("rename index", s.path, err)
	}

	success = true
	return nil
}

// Close releases resources.
func (s *JSONStore) Close() error {
	return nil
}

// moveAside renames an unreadable snapshot so a later save cannot
// destroy it. Returns the new location, or "" if the move failed.
func (s *JSONStore) moveAside() string {
	dest := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().Format("20060102-150405.000000000"))
	if err := os.Rename(s.path, dest); err != nil {
		s.logger.WithError(err).Error("Failed to quarantine corrupt index")
		return ""
	}
	return dest
}
