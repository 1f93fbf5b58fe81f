package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/calcvault/internal/config"
	"github.com/TheMichaelB/calcvault/internal/crypto"
	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/opener"
	"github.com/TheMichaelB/calcvault/internal/state"
	"github.com/TheMichaelB/calcvault/internal/storage"
	"github.com/TheMichaelB/calcvault/internal/vault"
)

// FixedTime is the clock used by fixtures so CreatedAt is predictable.
var FixedTime = time.Date(2026, 3, 14, 15, 9, 26, 0, time.Local)

// SampleFiles maps staged names to text content.
var SampleFiles = map[string]string{
	"hello.txt":  "hello, vault\n",
	"notes.MD":   "# Notes\n\n- first\n- second\n",
	"README":     "no extension here",
	"報告書.pdf":    "%PDF-1.4 pretend",
	"empty.log":  "",
	"a.b.c.json": `{"k": "v"}`,
}

// SampleBinaryFiles maps staged names to binary content.
var SampleBinaryFiles = map[string][]byte{
	"photo.JPG": {0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00},
	"zeros.bin": make([]byte, 4096),
}

// SampleNames returns the sample file names in staging (name) order.
func SampleNames() []string {
	var names []string
	for name := range SampleFiles {
		names = append(names, name)
	}
	for name := range SampleBinaryFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SampleContent returns the content of a sample file.
func SampleContent(name string) []byte {
	if content, ok := SampleFiles[name]; ok {
		return []byte(content)
	}
	return SampleBinaryFiles[name]
}

// NewTestLogger creates a logger for testing.
func NewTestLogger() *events.Logger {
	var buf bytes.Buffer
	return events.NewTestLogger(events.DebugLevel, "json", &buf)
}

// VaultFixture is a vault on a temporary directory with its collaborators
// exposed for inspection.
type VaultFixture struct {
	t *testing.T

	Config *config.Config
	Vault  *vault.Vault
	Store  *storage.LocalStore
	Index  state.Store
	Logs   *LogOutput
}

// NewVaultFixture builds and loads an empty vault under t.TempDir().
func NewVaultFixture(t *testing.T, op opener.Opener) *VaultFixture {
	t.Helper()
	return NewVaultFixtureWithConfig(t, TestConfigWithDir(t.TempDir()), op)
}

// NewVaultFixtureWithConfig builds and loads a vault from cfg.
func NewVaultFixtureWithConfig(t *testing.T, cfg *config.Config, op opener.Opener) *VaultFixture {
	t.Helper()

	require.NoError(t, cfg.EnsureDirectories())
	require.NoError(t, os.MkdirAll(cfg.Vault.TempDir, 0700))

	logs := NewLogOutput()
	logger := events.NewTestLogger(events.DebugLevel, "json", logs)

	store, err := storage.NewLocalStore(cfg.Vault.Root, cfg.Vault.StagingDir, logger)
	require.NoError(t, err)
	store.SetMaxFileSize(cfg.Vault.MaxFileSize)

	index, err := state.Open(cfg.Vault, logger)
	require.NoError(t, err)

	keys, err := crypto.NewKeyDeriver(cfg.Crypto)
	require.NoError(t, err)

	v, err := vault.New(vault.Options{
		Store:          store,
		Index:          index,
		Keys:           keys,
		Opener:         op,
		Logger:         logger,
		TempDir:        cfg.Vault.TempDir,
		OnCorruptIndex: cfg.Vault.OnCorruptIndex,
	})
	require.NoError(t, err)
	v.SetClock(func() time.Time { return FixedTime })

	t.Cleanup(func() { _ = v.Close() })

	return &VaultFixture{
		t:      t,
		Config: cfg,
		Vault:  v,
		Store:  store,
		Index:  index,
		Logs:   logs,
	}
}

// Load loads the index and fails the test on error.
func (f *VaultFixture) Load() {
	f.t.Helper()
	_, err := f.Vault.Load()
	require.NoError(f.t, err)
}

// Stage writes a file into the staging directory.
func (f *VaultFixture) Stage(name string, content []byte) string {
	f.t.Helper()
	path := filepath.Join(f.Config.Vault.StagingDir, name)
	require.NoError(f.t, os.WriteFile(path, content, 0600))
	return path
}

// StageSamples stages every sample file.
func (f *VaultFixture) StageSamples() {
	f.t.Helper()
	for _, name := range SampleNames() {
		f.Stage(name, SampleContent(name))
	}
}

// StagedNames lists what remains in staging.
func (f *VaultFixture) StagedNames() []string {
	f.t.Helper()
	files, err := f.Store.ListStaging()
	require.NoError(f.t, err)

	names := make([]string, len(files))
	for i, file := range files {
		names[i] = file.Name
	}
	return names
}

// BlobPaths lists the blobs currently in the vault root.
func (f *VaultFixture) BlobPaths() []string {
	f.t.Helper()
	blobs, err := f.Store.ListBlobs()
	require.NoError(f.t, err)

	paths := make([]string, len(blobs))
	for i, blob := range blobs {
		paths[i] = blob.Path
	}
	return paths
}

// WriteIndex overwrites the index file with raw content.
func (f *VaultFixture) WriteIndex(content string) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(f.Config.Vault.IndexFile, []byte(content), 0600))
}

// ReloadIndex reads the index from disk with a fresh store.
func (f *VaultFixture) ReloadIndex() []string {
	f.t.Helper()
	store, err := state.Open(f.Config.Vault, NewTestLogger())
	require.NoError(f.t, err)
	defer store.Close()

	records, err := store.Load()
	require.NoError(f.t, err)

	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.DisplayName
	}
	return names
}

// OrphanBlob writes a blob that no record references and returns its path.
func (f *VaultFixture) OrphanBlob(plaintext []byte) string {
	f.t.Helper()
	blob, err := crypto.EncryptBlob(crypto.NewProvider(), plaintext, crypto.DeriveKey())
	require.NoError(f.t, err)

	path, err := f.Store.WriteBlob(blob)
	require.NoError(f.t, err)
	return path
}
