package storage

import (
	"time"
)

// BlobSuffix is the extension of every sealed blob under the vault root.
const BlobSuffix = ".secure"

// BlobStore manages the vault's files on disk.
type BlobStore interface {
	// Root returns the absolute vault root.
	Root() string

	// StagingDir returns the absolute staging directory.
	StagingDir() string

	// WriteBlob stores a sealed blob under a fresh random name and returns its path.
	WriteBlob(blob []byte) (string, error)

	// ReadBlob retrieves a sealed blob.
	ReadBlob(path string) ([]byte, error)

	// RemoveBlob deletes a sealed blob. A missing blob is not an error.
	RemoveBlob(path string) error

	// ListBlobs returns every sealed blob under the root.
	ListBlobs() ([]FileInfo, error)

	// ListStaging returns the regular files waiting in staging, sorted by name.
	ListStaging() ([]FileInfo, error)

	// ReadStaging retrieves a staged file's contents.
	ReadStaging(name string) ([]byte, error)

	// RemoveStaging deletes a staged file. A missing file is not an error.
	RemoveStaging(name string) error
}

// FileInfo contains file metadata.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}
