package vault

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheMichaelB/calcvault/internal/config"
	"github.com/TheMichaelB/calcvault/internal/crypto"
	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/models"
	"github.com/TheMichaelB/calcvault/internal/opener"
	"github.com/TheMichaelB/calcvault/internal/state"
	"github.com/TheMichaelB/calcvault/internal/storage"
)

// Options wires a Vault's collaborators.
type Options struct {
	Store  storage.BlobStore
	Index  state.Store
	Crypto crypto.Provider
	Keys   crypto.KeyDeriver
	Opener opener.Opener
	Logger *events.Logger

	// TempDir is where decrypted files are written; empty means the OS temp dir.
	TempDir string

	// OnCorruptIndex is config.CorruptEmpty or config.CorruptFail.
	OnCorruptIndex string
}

// Vault owns the record collection. Every index mutation goes through mu,
// so concurrent ingest, delete and recover calls cannot lose updates.
type Vault struct {
	store   storage.BlobStore
	index   state.Store
	crypto  crypto.Provider
	key     []byte
	opener  opener.Opener
	logger  *events.Logger
	tempDir string
	policy  string
	now     func() time.Time

	mu      sync.Mutex
	records []models.EncryptedRecord
	loaded  bool

	// ingestMu keeps two batches from picking up the same staged file and
	// keeps orphan scans out of the window between a blob write and its
	// index append. Lock order: ingestMu, then mu.
	ingestMu sync.Mutex

	snapshot atomic.Pointer[[]models.EncryptedRecord]
	corrupt  atomic.Bool
	blocked  atomic.Bool
}

// New creates a vault. Call Load before use.
func New(opts Options) (*Vault, error) {
	if opts.Store == nil || opts.Index == nil {
		return nil, errors.New("vault requires a blob store and an index store")
	}

	if opts.Crypto == nil {
		opts.Crypto = crypto.NewProvider()
	}
	if opts.Keys == nil {
		opts.Keys = crypto.StaticKeyDeriver{}
	}
	if opts.Opener == nil {
		opts.Opener = opener.Nop{}
	}
	if opts.OnCorruptIndex == "" {
		opts.OnCorruptIndex = config.CorruptEmpty
	}

	key, err := opts.Keys.DeriveKey()
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	if err := crypto.ValidateKeySize(key); err != nil {
		return nil, err
	}

	v := &Vault{
		store:   opts.Store,
		index:   opts.Index,
		crypto:  opts.Crypto,
		key:     key,
		opener:  opts.Opener,
		logger:  opts.Logger.WithField("component", "vault"),
		tempDir: opts.TempDir,
		policy:  opts.OnCorruptIndex,
		now:     time.Now,
	}
	v.publish(nil)

	return v, nil
}

// FromConfig builds a vault on the local filesystem as configured.
func FromConfig(cfg *config.Config, op opener.Opener, logger *events.Logger) (*Vault, error) {
	store, err := storage.NewLocalStore(cfg.Vault.Root, cfg.Vault.StagingDir, logger)
	if err != nil {
		return nil, err
	}
	store.SetMaxFileSize(cfg.Vault.MaxFileSize)

	index, err := state.Open(cfg.Vault, logger)
	if err != nil {
		return nil, err
	}

	keys, err := crypto.NewKeyDeriver(cfg.Crypto)
	if err != nil {
		index.Close()
		return nil, err
	}

	v, err := New(Options{
		Store:          store,
		Index:          index,
		Keys:           keys,
		Opener:         op,
		Logger:         logger,
		TempDir:        cfg.Vault.TempDir,
		OnCorruptIndex: cfg.Vault.OnCorruptIndex,
	})
	if err != nil {
		index.Close()
		return nil, err
	}

	return v, nil
}

// Load reads the index snapshot. A corrupt snapshot degrades to an empty
// vault or blocks access, depending on the configured policy.
func (v *Vault) Load() ([]models.EncryptedRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	records, err := v.index.Load()
	if err != nil {
		if !errors.Is(err, models.ErrIndexCorrupt) {
			return nil, err
		}

		v.corrupt.Store(true)
		if v.policy == config.CorruptFail {
			v.blocked.Store(true)
			v.logger.WithError(err).Error("Index is corrupt; vault access blocked")
			return nil, err
		}

		v.logger.WithError(err).Warn("Index is corrupt; continuing with an empty vault")
		records = []models.EncryptedRecord{}
	}

	v.blocked.Store(false)
	v.records = records
	v.loaded = true
	v.publish(records)

	v.logger.WithField("records", len(records)).Debug("Index loaded")
	return models.CloneRecords(records), nil
}

// Records returns the latest committed snapshot without blocking on writers.
func (v *Vault) Records() []models.EncryptedRecord {
	return models.CloneRecords(*v.snapshot.Load())
}

// Record returns the record at position i of the current snapshot.
func (v *Vault) Record(i int) (models.EncryptedRecord, error) {
	records := *v.snapshot.Load()
	if i < 0 || i >= len(records) {
		return models.EncryptedRecord{}, models.NewNotFoundError("lookup record", "",
			fmt.Errorf("%w: %d not in [0,%d)", models.ErrInvalidIndex, i, len(records)))
	}
	return records[i], nil
}

// IndexCorrupt reports whether the last load found an unreadable snapshot.
func (v *Vault) IndexCorrupt() bool {
	return v.corrupt.Load()
}

// Root returns the vault root directory.
func (v *Vault) Root() string {
	return v.store.Root()
}

// StagingDir returns the staging directory.
func (v *Vault) StagingDir() string {
	return v.store.StagingDir()
}

// StagedFiles lists files waiting in staging.
func (v *Vault) StagedFiles() ([]storage.FileInfo, error) {
	return v.store.ListStaging()
}

// Close releases the index store.
func (v *Vault) Close() error {
	return v.index.Close()
}

// SetClock replaces the time source used for CreatedAt.
func (v *Vault) SetClock(now func() time.Time) {
	v.now = now
}

// ensureLoaded must be called with mu held.
func (v *Vault) ensureLoaded() error {
	if v.blocked.Load() {
		return models.NewIndexCorruptError("access vault", "", errors.New("index must be repaired before use"))
	}
	if !v.loaded {
		return errors.New("vault index not loaded")
	}
	return nil
}

// commit persists next as the new index and publishes it. On failure the
// in-memory records are untouched. Must be called with mu held.
func (v *Vault) commit(next []models.EncryptedRecord) error {
	if err := v.index.Save(next); err != nil {
		if models.Code(err) == "" {
			err = models.NewIOError("save index", "", err)
		}
		return err
	}

	v.records = next
	v.publish(next)
	return nil
}

func (v *Vault) publish(records []models.EncryptedRecord) {
	snap := models.CloneRecords(records)
	v.snapshot.Store(&snap)
}
