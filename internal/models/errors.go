package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeIO           = "IO_ERROR"
	ErrCodeCrypto       = "CRYPTO_ERROR"
	ErrCodeIndexCorrupt = "INDEX_CORRUPT"
	ErrCodeNotFound     = "NOT_FOUND"
)

// Sentinel errors
var (
	ErrIO           = errors.New("i/o failure")
	ErrCrypto       = errors.New("cryptographic failure")
	ErrIndexCorrupt = errors.New("vault index is corrupt")
	ErrNotFound     = errors.New("not found")
	ErrVaultHidden  = errors.New("vault is not visible")

	// ErrInvalidIndex is the cause of a not-found error for a record
	// position outside the index.
	ErrInvalidIndex = errors.New("record index out of range")
)

var codeSentinels = map[string]error{
	ErrCodeIO:           ErrIO,
	ErrCodeCrypto:       ErrCrypto,
	ErrCodeIndexCorrupt: ErrIndexCorrupt,
	ErrCodeNotFound:     ErrNotFound,
}

// VaultError provides detailed failure information for a vault operation.
type VaultError struct {
	Code string
	Op   string
	Path string
	Err  error
}

func (e *VaultError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Op, e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Code, e.Err)
}

func (e *VaultError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the error's code, so callers can test
// errors.Is(err, models.ErrCrypto) without knowing the underlying cause.
func (e *VaultError) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]
	return ok && sentinel == target
}

// NewIOError wraps a filesystem failure.
func NewIOError(op, path string, err error) *VaultError {
	return &VaultError{Code: ErrCodeIO, Op: op, Path: path, Err: err}
}

// NewCryptoError wraps a seal or open failure.
func NewCryptoError(op, path string, err error) *VaultError {
	return &VaultError{Code: ErrCodeCrypto, Op: op, Path: path, Err: err}
}

// NewNotFoundError reports a missing record or blob.
func NewNotFoundError(op, path string, err error) *VaultError {
	return &VaultError{Code: ErrCodeNotFound, Op: op, Path: path, Err: err}
}

// NewIndexCorruptError reports an unreadable index snapshot.
func NewIndexCorruptError(op, path string, err error) *VaultError {
	return &VaultError{Code: ErrCodeIndexCorrupt, Op: op, Path: path, Err: err}
}

// Code returns the error code carried by err, or "" if none.
func Code(err error) string {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
