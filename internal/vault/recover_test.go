package vault_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/TheMichaelB/calcvault/internal/models"
	"github.com/TheMichaelB/calcvault/internal/state"
	"github.com/TheMichaelB/calcvault/internal/storage"
	"github.com/TheMichaelB/calcvault/internal/vault"
	"github.com/TheMichaelB/calcvault/test/testutil"
)

func TestOrphans(t *testing.T) {
	f := testutil.NewVaultFixture(t, nil)
	f.Load()
	ingestOne(t, f, "kept.txt", []byte("kept"))

	orphans, err := f.Vault.Orphans()
	require.NoError(t, err)
	assert.Empty(t, orphans)

	lost := f.OrphanBlob([]byte("lost"))

	orphans, err = f.Vault.Orphans()
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, lost, orphans[0].Path)
}

func TestRecover(t *testing.T) {
	f := testutil.NewVaultFixture(t, nil)
	f.Load()
	ingestOne(t, f, "kept.txt", []byte("kept"))

	lost := f.OrphanBlob([]byte("lost"))
	mtime := time.Date(2025, 12, 24, 18, 30, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(lost, mtime, mtime))

	garbage, err := f.Store.WriteBlob(bytes.Repeat([]byte{0x42}, 64))
	require.NoError(t, err)

	adopted, err := f.Vault.Recover()
	require.Error(t, err, "undecryptable orphan reported")
	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], models.ErrCrypto)

	require.Len(t, adopted, 1)
	id := strings.TrimSuffix(filepath.Base(lost), storage.BlobSuffix)
	assert.Equal(t, models.EncryptedRecord{
		DisplayName:       vault.RecoveredPrefix + id,
		OriginalExtension: "",
		EncryptedPath:     lost,
		Size:              4,
		CreatedAt:         mtime.Format(models.TimestampLayout),
	}, adopted[0])

	assert.Equal(t, []string{"kept.txt", vault.RecoveredPrefix + id}, f.ReloadIndex())

	path, err := f.Vault.Retrieve(1)
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lost", string(got))

	// Only the garbage blob is left unreferenced
	orphans, err := f.Vault.Orphans()
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, garbage, orphans[0].Path)
}

func TestRecoverNothingToDo(t *testing.T) {
	v, _, index := newMockVault(t)

	adopted, err := v.Recover()
	require.NoError(t, err)
	assert.Empty(t, adopted)
	assert.Zero(t, index.Saves())
}

func TestRecoverIndexSaveFailure(t *testing.T) {
	f := testutil.NewVaultFixture(t, nil)
	f.Load()
	f.OrphanBlob([]byte("lost"))

	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	require.NoError(t, os.Chmod(f.Config.Vault.Root, 0500))
	t.Cleanup(func() { _ = os.Chmod(f.Config.Vault.Root, 0700) })

	adopted, err := f.Vault.Recover()
	assert.ErrorIs(t, err, models.ErrIO)
	assert.Empty(t, adopted)
	assert.Empty(t, f.Vault.Records())
}

func TestPrune(t *testing.T) {
	f := testutil.NewVaultFixture(t, nil)
	f.Load()
	record := ingestOne(t, f, "kept.txt", []byte("kept"))
	f.OrphanBlob([]byte("one"))
	f.OrphanBlob([]byte("two"))

	removed, err := f.Vault.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{record.EncryptedPath}, f.BlobPaths())
	assert.Len(t, f.Vault.Records(), 1)
}

func TestPruneCollectsErrors(t *testing.T) {
	v, blobs, _ := newMockVault(t)
	blobs.PutBlob(filepath.Join(blobs.Root(), "a.secure"), []byte("x"))
	blobs.PutBlob(filepath.Join(blobs.Root(), "b.secure"), []byte("y"))
	blobs.RemoveErr = errors.New("device busy")

	removed, err := v.Prune()
	assert.Zero(t, removed)
	assert.Len(t, multierr.Errors(err), 2)
}

// writeHookStore calls onWrite after a blob lands on disk and before the
// vault has indexed it.
type writeHookStore struct {
	storage.BlobStore
	onWrite func(path string)
}

func (s *writeHookStore) WriteBlob(blob []byte) (string, error) {
	path, err := s.BlobStore.WriteBlob(blob)
	if err == nil && s.onWrite != nil {
		s.onWrite(path)
	}
	return path, err
}

func TestOrphanScanWaitsForIngest(t *testing.T) {
	tests := []struct {
		name string
		scan func(v *vault.Vault) error
	}{
		{"recover", func(v *vault.Vault) error {
			adopted, err := v.Recover()
			if len(adopted) > 0 {
				return errors.New("adopted a blob that was being ingested")
			}
			return err
		}},
		{"prune", func(v *vault.Vault) error {
			removed, err := v.Prune()
			if removed > 0 {
				return errors.New("pruned a blob that was being ingested")
			}
			return err
		}},
		{"orphans", func(v *vault.Vault) error {
			orphans, err := v.Orphans()
			if len(orphans) > 0 {
				return errors.New("reported a blob that was being ingested")
			}
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := storage.NewMockStore()
			hooked := &writeHookStore{BlobStore: blobs}

			v, err := vault.New(vault.Options{
				Store:   hooked,
				Index:   state.NewMockStore(),
				Logger:  testutil.NewTestLogger(),
				TempDir: t.TempDir(),
			})
			require.NoError(t, err)
			_, err = v.Load()
			require.NoError(t, err)

			blobs.Stage("hello.txt", []byte("hello"))

			scanned := make(chan error, 1)
			hooked.onWrite = func(string) {
				started := make(chan struct{})
				go func() {
					close(started)
					scanned <- tt.scan(v)
				}()
				<-started
				// An unsynchronized scan would finish inside this window
				time.Sleep(50 * time.Millisecond)
			}

			report, err := v.Ingest(t.Context(), nil)
			require.NoError(t, err)
			require.Equal(t, 1, report.Succeeded())

			select {
			case err := <-scanned:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("orphan scan never finished")
			}

			records := v.Records()
			require.Len(t, records, 1)
			assert.Equal(t, "hello.txt", records[0].DisplayName)

			_, ok := blobs.Blob(records[0].EncryptedPath)
			assert.True(t, ok, "indexed blob still present")

			path, err := v.Retrieve(0)
			require.NoError(t, err)
			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "hello", string(content))
		})
	}
}
