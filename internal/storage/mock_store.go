package storage

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/TheMichaelB/calcvault/internal/models"
)

// MockStore provides an in-memory BlobStore with fault injection for testing.
type MockStore struct {
	mu      sync.RWMutex
	root    string
	blobs   map[string][]byte
	staging map[string][]byte
	seq     int

	// Injected failures; nil means success
	WriteErr  error
	ReadErr   error
	RemoveErr error
}

// NewMockStore creates a mock blob store with a fictional root.
func NewMockStore() *MockStore {
	return &MockStore{
		root:    filepath.FromSlash("/mock/vault"),
		blobs:   make(map[string][]byte),
		staging: make(map[string][]byte),
	}
}

// Root returns the fictional vault root.
func (m *MockStore) Root() string {
	return m.root
}

// StagingDir returns the fictional staging directory.
func (m *MockStore) StagingDir() string {
	return filepath.Join(m.root, "staging")
}

// Stage places a file in staging.
func (m *MockStore) Stage(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staging[name] = append([]byte(nil), data...)
}

// WriteBlob stores a blob under a sequential name.
func (m *MockStore) WriteBlob(blob []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return "", models.NewIOError("write blob", m.root, m.WriteErr)
	}

	m.seq++
	path := filepath.Join(m.root, fmt.Sprintf("%032x%s", m.seq, BlobSuffix))
	m.blobs[path] = append([]byte(nil), blob...)
	return path, nil
}

// ReadBlob retrieves a blob.
func (m *MockStore) ReadBlob(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ReadErr != nil {
		return nil, models.NewIOError("read blob", path, m.ReadErr)
	}

	data, ok := m.blobs[path]
	if !ok {
		return nil, models.NewNotFoundError("read blob", path, fmt.Errorf("no blob at %s", path))
	}
	return append([]byte(nil), data...), nil
}

// RemoveBlob deletes a blob.
func (m *MockStore) RemoveBlob(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RemoveErr != nil {
		return models.NewIOError("remove blob", path, m.RemoveErr)
	}

	delete(m.blobs, path)
	return nil
}

// ListBlobs returns all blobs sorted by path.
func (m *MockStore) ListBlobs() ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]FileInfo, 0, len(m.blobs))
	for path, data := range m.blobs {
		files = append(files, FileInfo{Path: path, Name: filepath.Base(path), Size: int64(len(data)), ModTime: time.Now()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ListStaging returns staged files sorted by name.
func (m *MockStore) ListStaging() ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]FileInfo, 0, len(m.staging))
	for name, data := range m.staging {
		files = append(files, FileInfo{Path: filepath.Join(m.StagingDir(), name), Name: name, Size: int64(len(data))})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ReadStaging retrieves a staged file.
func (m *MockStore) ReadStaging(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.staging[name]
	if !ok {
		return nil, models.NewNotFoundError("read staged file", name, fmt.Errorf("no staged file %s", name))
	}
	return append([]byte(nil), data...), nil
}

// RemoveStaging deletes a staged file.
func (m *MockStore) RemoveStaging(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.staging, name)
	return nil
}

// Blob returns a stored blob for inspection.
func (m *MockStore) Blob(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[path]
	return data, ok
}

// PutBlob stores a blob at an explicit path.
func (m *MockStore) PutBlob(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = append([]byte(nil), data...)
}

// BlobCount returns the number of stored blobs.
func (m *MockStore) BlobCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
