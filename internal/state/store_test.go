package state_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/calcvault/internal/config"
	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/models"
	"github.com/TheMichaelB/calcvault/internal/state"
)

func testLogger() *events.Logger {
	var buf bytes.Buffer
	return events.NewTestLogger(events.DebugLevel, "json", &buf)
}

func sampleRecords() []models.EncryptedRecord {
	return []models.EncryptedRecord{
		{DisplayName: "hello.txt", OriginalExtension: "txt", EncryptedPath: "/v/aa.secure", Size: 10, CreatedAt: "2026-01-02 03:04:05"},
		{DisplayName: "Photo.JPG", OriginalExtension: "jpg", EncryptedPath: "/v/bb.secure", Size: 2048, CreatedAt: "2026-01-02 03:04:06"},
		{DisplayName: "README", OriginalExtension: "", EncryptedPath: "/v/cc.secure", Size: 0, CreatedAt: "2026-01-02 03:04:07"},
		{DisplayName: "ملف.pdf", OriginalExtension: "pdf", EncryptedPath: "/v/dd.secure", Size: 7, CreatedAt: "2026-01-02 03:04:08"},
	}
}

func TestJSONStore(t *testing.T) {
	store, err := state.NewJSONStore(filepath.Join(t.TempDir(), "vault_index.json"), testLogger())
	require.NoError(t, err)
	defer store.Close()

	testStoreOperations(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := state.NewSQLiteStore(filepath.Join(t.TempDir(), "vault_index.db"), testLogger())
	require.NoError(t, err)
	defer store.Close()

	testStoreOperations(t, store)
}

func TestMockStore(t *testing.T) {
	testStoreOperations(t, state.NewMockStore())
}

func testStoreOperations(t *testing.T, store state.Store) {
	t.Run("load fresh store", func(t *testing.T) {
		records, err := store.Load()
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		want := sampleRecords()
		require.NoError(t, store.Save(want))

		got, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("save overwrites entirely", func(t *testing.T) {
		want := sampleRecords()[2:]
		require.NoError(t, store.Save(want))

		got, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("save empty", func(t *testing.T) {
		require.NoError(t, store.Save(nil))

		got, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestJSONStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault_index.json")
	store, err := state.NewJSONStore(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleRecords()[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Pretty-printed array of objects with the documented keys only
	assert.True(t, strings.HasPrefix(string(data), "[\n  {\n"))

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Len(t, raw[0], 5)
	assert.Equal(t, "hello.txt", raw[0]["name"])
	assert.Equal(t, "txt", raw[0]["original_extension"])
	assert.Equal(t, "/v/aa.secure", raw[0]["encrypted_path"])
	assert.Equal(t, float64(10), raw[0]["size"])
	assert.Equal(t, "2026-01-02 03:04:05", raw[0]["created_at"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestJSONStoreCorruption(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{not json"},
		{"wrong shape", `{"name": "x"}`},
		{"truncated", `[{"name": "hello.txt", "size": 1`},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "vault_index.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			store, err := state.NewJSONStore(path, testLogger())
			require.NoError(t, err)

			records, err := store.Load()
			assert.ErrorIs(t, err, models.ErrIndexCorrupt)
			assert.Empty(t, records)

			// Moved aside, never overwritten by the next save
			assert.NoFileExists(t, path)
			matches, err := filepath.Glob(path + ".corrupt-*")
			require.NoError(t, err)
			require.Len(t, matches, 1)

			kept, err := os.ReadFile(matches[0])
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(kept))

			// The next load sees a fresh vault
			records, err = store.Load()
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestJSONStoreWithoutQuarantine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault_index.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	store, err := state.Open(config.VaultConfig{
		IndexFile:      path,
		IndexBackend:   config.BackendJSON,
		OnCorruptIndex: config.CorruptFail,
	}, testLogger())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = store.Load()
		assert.ErrorIs(t, err, models.ErrIndexCorrupt)
	}
	assert.FileExists(t, path)

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestJSONStoreNullSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault_index.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0600))

	store, err := state.NewJSONStore(path, testLogger())
	require.NoError(t, err)

	records, err := store.Load()
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestSQLiteStoreRejectsDuplicatePaths(t *testing.T) {
	store, err := state.NewSQLiteStore(filepath.Join(t.TempDir(), "vault_index.db"), testLogger())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(sampleRecords()))

	dup := sampleRecords()
	dup[1].EncryptedPath = dup[0].EncryptedPath
	assert.ErrorIs(t, store.Save(dup), models.ErrIO)

	// Failed transaction leaves the previous snapshot intact
	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestSQLiteStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault_index.db")
	garbage := bytes.Repeat([]byte("garbage!"), 512)
	require.NoError(t, os.WriteFile(path, garbage, 0600))

	store, err := state.NewSQLiteStore(path, testLogger())
	require.NoError(t, err, "corruption surfaces from Load, not from open")
	defer store.Close()

	records, err := store.Load()
	assert.ErrorIs(t, err, models.ErrIndexCorrupt)
	assert.Empty(t, records)

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	kept, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, garbage, kept)

	// A fresh database replaces the corrupt one
	records, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, store.Save(sampleRecords()))
	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestSQLiteStoreWithoutQuarantine(t *testing.T) {
	dir := t.TempDir()
	indexFile := filepath.Join(dir, "vault_index.json")
	dbPath := state.SQLitePath(indexFile)
	require.NoError(t, os.WriteFile(dbPath, bytes.Repeat([]byte("garbage!"), 512), 0600))

	store, err := state.Open(config.VaultConfig{
		IndexFile:      indexFile,
		IndexBackend:   config.BackendSQLite,
		OnCorruptIndex: config.CorruptFail,
	}, testLogger())
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 2; i++ {
		_, err = store.Load()
		assert.ErrorIs(t, err, models.ErrIndexCorrupt)
	}
	assert.ErrorIs(t, store.Save(sampleRecords()), models.ErrIndexCorrupt)
	assert.FileExists(t, dbPath)

	matches, err := filepath.Glob(dbPath + ".corrupt-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.VaultConfig{IndexFile: filepath.Join(dir, "vault_index.json"), IndexBackend: config.BackendJSON}

	store, err := state.Open(cfg, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &state.JSONStore{}, store)

	cfg.IndexBackend = config.BackendSQLite
	store, err = state.Open(cfg, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &state.SQLiteStore{}, store)
	require.NoError(t, store.Close())
	assert.FileExists(t, filepath.Join(dir, "vault_index.db"))

	cfg.IndexBackend = "etcd"
	_, err = state.Open(cfg, testLogger())
	assert.Error(t, err)
}
