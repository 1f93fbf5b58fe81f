package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/models"
)

const maxNameAttempts = 3

// LocalStore implements the vault's file system operations.
type LocalStore struct {
	root        string
	stagingDir  string
	maxFileSize int64
	logger      *events.Logger

	// newID yields blob names; swapped in tests
	newID func() string
}

// NewLocalStore creates a local store rooted at root with inbound files in stagingDir.
func NewLocalStore(root, stagingDir string, logger *events.Logger) (*LocalStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}

	absStaging, err := filepath.Abs(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging directory: %w", err)
	}

	for _, dir := range []string{absRoot, absStaging} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &LocalStore{
		root:        absRoot,
		stagingDir:  absStaging,
		maxFileSize: 512 * 1024 * 1024, // 512MB default
		logger:      logger.WithField("component", "local_store"),
		newID:       newBlobID,
	}, nil
}

// SetMaxFileSize sets the maximum staged file size.
func (s *LocalStore) SetMaxFileSize(size int64) {
	s.maxFileSize = size
}

// SetIDFunc replaces the blob name generator.
func (s *LocalStore) SetIDFunc(fn func() string) {
	s.newID = fn
}

// Root returns the absolute vault root.
func (s *LocalStore) Root() string {
	return s.root
}

// StagingDir returns the absolute staging directory.
func (s *LocalStore) StagingDir() string {
	return s.stagingDir
}

// WriteBlob saves a sealed blob atomically under an opaque random name.
func (s *LocalStore) WriteBlob(blob []byte) (string, error) {
	if err := os.MkdirAll(s.root, 0700); err != nil {
		return "", models.NewIOError("create vault root", s.root, err)
	}

	var target string
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		candidate := filepath.Join(s.root, s.newID()+BlobSuffix)
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			target = candidate
			break
		}
	}
	if target == "" {
		return "", models.NewIOError("write blob", s.root, errors.New("could not allocate a unique blob name"))
	}

	s.logger.WithFields(map[string]interface{}{
		"path": target,
		"size": len(blob),
	}).Debug("Writing blob")

	tmp, err := os.CreateTemp(s.root, ".blob-*.tmp")
	if err != nil {
		return "", models.NewIOError("create temp blob", s.root, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(blob); err != nil {
		return "", models.NewIOError("write blob", target, err)
	}

	if err := tmp.Sync(); err != nil {
		return "", models.NewIOError("sync blob", target, err)
	}

	if err := tmp.Close(); err != nil {
		return "", models.NewIOError("close blob", target, err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return "", models.NewIOError("rename blob", target, err)
	}

	success = true
	return target, nil
}

// ReadBlob retrieves a sealed blob.
func (s *LocalStore) ReadBlob(path string) ([]byte, error) {
	safePath, err := s.blobPath(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Lstat(safePath)
	if err == nil && stat.Mode()&os.ModeSymlink != 0 {
		return nil, models.NewIOError("read blob", path, errors.New("symlinks not allowed"))
	}

	data, err := os.ReadFile(safePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.NewNotFoundError("read blob", path, err)
		}
		return nil, models.NewIOError("read blob", path, err)
	}

	return data, nil
}

// RemoveBlob deletes a sealed blob.
func (s *LocalStore) RemoveBlob(path string) error {
	safePath, err := s.blobPath(path)
	if err != nil {
		return err
	}

	s.logger.WithField("path", safePath).Debug("Removing blob")

	if err := os.Remove(safePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // Already deleted
		}
		return models.NewIOError("remove blob", path, err)
	}

	return nil
}

// ListBlobs returns every sealed blob under the root.
func (s *LocalStore) ListBlobs() ([]FileInfo, error) {
	return s.listDir(s.root, func(name string) bool {
		return strings.HasSuffix(name, BlobSuffix) && !strings.HasPrefix(name, ".")
	})
}

// ListStaging returns regular, non-hidden files in staging.
func (s *LocalStore) ListStaging() ([]FileInfo, error) {
	return s.listDir(s.stagingDir, func(name string) bool {
		return !strings.HasPrefix(name, ".")
	})
}

// ReadStaging retrieves a staged file.
func (s *LocalStore) ReadStaging(name string) ([]byte, error) {
	safePath, err := s.stagingPath(name)
	if err != nil {
		return nil, err
	}

	stat, err := os.Lstat(safePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.NewNotFoundError("read staged file", name, err)
		}
		return nil, models.NewIOError("stat staged file", name, err)
	}

	if !stat.Mode().IsRegular() {
		return nil, models.NewIOError("read staged file", name, errors.New("not a regular file"))
	}

	if stat.Size() > s.maxFileSize {
		return nil, models.NewIOError("read staged file", name,
			fmt.Errorf("file too large: %d bytes (max: %d)", stat.Size(), s.maxFileSize))
	}

	data, err := os.ReadFile(safePath)
	if err != nil {
		return nil, models.NewIOError("read staged file", name, err)
	}

	return data, nil
}

// RemoveStaging deletes a staged file.
func (s *LocalStore) RemoveStaging(name string) error {
	safePath, err := s.stagingPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(safePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return models.NewIOError("remove staged file", name, err)
	}

	return nil
}

// Helper methods

func (s *LocalStore) listDir(dir string, keep func(name string) bool) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, models.NewIOError("read directory", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !keep(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return files, nil
}

// blobPath validates that path names a blob directly under the root.
func (s *LocalStore) blobPath(path string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", models.NewIOError("resolve blob", path, errors.New("path contains null bytes"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", models.NewIOError("resolve blob", path, err)
	}

	if filepath.Dir(abs) != s.root || !strings.HasSuffix(abs, BlobSuffix) {
		return "", models.NewIOError("resolve blob", path, errors.New("path is not a blob in the vault root"))
	}

	return abs, nil
}

// stagingPath confines name to the staging directory.
func (s *LocalStore) stagingPath(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) || filepath.Base(name) != name || name == "." || name == ".." {
		return "", models.NewIOError("resolve staged file", name, errors.New("invalid file name"))
	}
	return filepath.Join(s.stagingDir, name), nil
}

// newBlobID returns 32 hex characters from a random (v4) UUID.
func newBlobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
