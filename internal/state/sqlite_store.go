package state

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/models"
)

// SQLiteStore keeps the index in a SQLite database, one row per record.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	logger     *events.Logger
	quarantine bool

	// broken is the corruption found when the database was opened. Load
	// reports it and, with quarantine on, replaces the database.
	broken error

	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the index database at dbPath. A corrupt
// database is not an error here; it surfaces from Load.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	store := &SQLiteStore{
		path:       dbPath,
		logger:     logger.WithField("component", "sqlite_index_store"),
		quarantine: true,
	}

	if err := store.open(); err != nil {
		if !isCorrupt(err) {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		store.broken = models.NewIndexCorruptError("open index", dbPath, err)
	}

	return store, nil
}

// SetQuarantine controls whether a corrupt database is moved aside on
// load. When disabled the file stays put and every load keeps failing.
func (s *SQLiteStore) SetQuarantine(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarantine = enabled
}

func (s *SQLiteStore) open() error {
	db, err := sql.Open("sqlite3", s.path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	s.db = db
	if err := s.initialize(); err != nil {
		db.Close()
		s.db = nil
		return err
	}
	return nil
}

// initialize creates tables.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS records (
        position INTEGER PRIMARY KEY,
        name TEXT NOT NULL,
        original_extension TEXT NOT NULL,
        encrypted_path TEXT NOT NULL UNIQUE,
        size INTEGER NOT NULL,
        created_at TEXT NOT NULL
    );
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Load reads all records in position order.
func (s *SQLiteStore) Load() ([]models.EncryptedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken != nil {
		if errors.Is(s.broken, models.ErrIndexCorrupt) {
			return nil, s.corrupted(s.broken)
		}
		return nil, s.broken
	}

	s.logger.Debug("Loading index from SQLite")

	rows, err := s.db.Query(`
        SELECT name, original_extension, encrypted_path, size, created_at
        FROM records
        ORDER BY position
    `)
	if err != nil {
		if isCorrupt(err) {
			return nil, s.corrupted(models.NewIndexCorruptError("load index", s.path, err))
		}
		return nil, models.NewIOError("query index", s.path, err)
	}
	defer rows.Close()

	records := []models.EncryptedRecord{}
	for rows.Next() {
		var r models.EncryptedRecord
		if err := rows.Scan(&r.DisplayName, &r.OriginalExtension, &r.EncryptedPath, &r.Size, &r.CreatedAt); err != nil {
			return nil, models.NewIndexCorruptError("scan index row", s.path, err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, models.NewIOError("iterate index", s.path, err)
	}

	return records, nil
}

// Save replaces all rows in one transaction.
func (s *SQLiteStore) Save(records []models.EncryptedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken != nil {
		return s.broken
	}

	s.logger.WithField("records", len(records)).Debug("Saving index to SQLite")

	tx, err := s.db.Begin()
	if err != nil {
		return models.NewIOError("begin transaction", s.path, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM records"); err != nil {
		return models.NewIOError("clear index", s.path, err)
	}

	stmt, err := tx.Prepare(`
        INSERT INTO records (position, name, original_extension, encrypted_path, size, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return models.NewIOError("prepare insert", s.path, err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(i, r.DisplayName, r.OriginalExtension, r.EncryptedPath, r.Size, r.CreatedAt); err != nil {
			return models.NewIOError("insert record", r.EncryptedPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.NewIOError("commit index", s.path, err)
	}

	return nil
}

// Close releases resources.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// corrupted handles an unreadable database and returns err. With quarantine
// on, the file is renamed aside and a fresh database takes its place, so
// the next load sees an empty index. Must be called with mu held.
func (s *SQLiteStore) corrupted(err error) error {
	log := s.logger.WithError(err)
	if !s.quarantine {
		s.broken = err
		log.Warn("Index database is corrupt")
		return err
	}

	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	log = log.WithField("quarantine", s.moveAside())

	if openErr := s.open(); openErr != nil {
		s.broken = models.NewIOError("recreate index", s.path, openErr)
		log.WithField("recreate_error", openErr.Error()).Error("Index database is corrupt and could not be recreated")
		return err
	}

	s.broken = nil
	log.Warn("Index database is corrupt")
	return err
}

// moveAside renames the database and its journal files so a later save
// cannot destroy them. Returns the new location, or "" if the move failed.
func (s *SQLiteStore) moveAside() string {
	suffix := ".corrupt-" + time.Now().Format("20060102-150405.000000000")

	dest := s.path + suffix
	if err := os.Rename(s.path, dest); err != nil {
		s.logger.WithError(err).Error("Failed to quarantine corrupt index")
		return ""
	}

	for _, sidecar := range []string{"-wal", "-shm"} {
		if err := os.Rename(s.path+sidecar, s.path+sidecar+suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.WithError(err).WithField("file", s.path+sidecar).Warn("Failed to quarantine journal file")
		}
	}
	return dest
}

func isCorrupt(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not a database") || strings.Contains(msg, "malformed")
}
