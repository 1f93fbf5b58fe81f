package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default locations. The vault lives in a fixed subdirectory of the user's home.
const (
	DefaultVaultDirName = ".hidden_vault"
	DefaultStagingName  = "staging"
	DefaultIndexName    = "vault_index.json"
)

// Index backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Policies applied when the index snapshot cannot be parsed.
const (
	CorruptEmpty = "empty"
	CorruptFail  = "fail"
)

// Key derivation modes.
const (
	KDFStatic = "static"
	KDFPBKDF2 = "pbkdf2"
)

// Config holds all application configuration.
type Config struct {
	// Vault storage layout
	Vault VaultConfig `json:"vault" mapstructure:"vault"`

	// Key derivation
	Crypto CryptoConfig `json:"crypto" mapstructure:"crypto"`

	// Staging watcher
	Watch WatchConfig `json:"watch" mapstructure:"watch"`

	// Logging
	Log LogConfig `json:"log" mapstructure:"log"`
}

// VaultConfig for local vault paths and index behavior.
type VaultConfig struct {
	Root           string `json:"root" mapstructure:"root"`                         // Vault root directory
	StagingDir     string `json:"staging_dir" mapstructure:"staging_dir"`           // Inbound plaintext files
	IndexFile      string `json:"index_file" mapstructure:"index_file"`             // Metadata snapshot
	TempDir        string `json:"temp_dir" mapstructure:"temp_dir"`                 // Decrypted files (empty = OS temp)
	IndexBackend   string `json:"index_backend" mapstructure:"index_backend"`       // json, sqlite
	OnCorruptIndex string `json:"on_corrupt_index" mapstructure:"on_corrupt_index"` // empty, fail
	MaxFileSize    int64  `json:"max_file_size" mapstructure:"max_file_size"`       // Max staging file size in bytes
}

// CryptoConfig selects the key derivation.
type CryptoConfig struct {
	KDF        string `json:"kdf" mapstructure:"kdf"` // static, pbkdf2
	Passphrase string `json:"passphrase,omitempty" mapstructure:"passphrase"`
	Salt       string `json:"salt,omitempty" mapstructure:"salt"`
	Iterations int    `json:"iterations" mapstructure:"iterations"`
}

// WatchConfig for the staging directory watcher.
type WatchConfig struct {
	Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // text, json
	File   string `json:"file" mapstructure:"file"`     // Log file path (empty = stderr)
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	root := DefaultVaultDirName
	if home, err := os.UserHomeDir(); err == nil {
		root = filepath.Join(home, DefaultVaultDirName)
	}

	return &Config{
		Vault: VaultConfig{
			Root:           root,
			StagingDir:     filepath.Join(root, DefaultStagingName),
			IndexFile:      filepath.Join(root, DefaultIndexName),
			IndexBackend:   BackendJSON,
			OnCorruptIndex: CorruptEmpty,
			MaxFileSize:    512 * 1024 * 1024, // 512MB
		},
		Crypto: CryptoConfig{
			KDF:        KDFStatic,
			Iterations: 100000,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Vault.Root == "" {
		return errors.New("vault.root is required")
	}

	if c.Vault.StagingDir == "" {
		return errors.New("vault.staging_dir is required")
	}

	if c.Vault.IndexFile == "" {
		return errors.New("vault.index_file is required")
	}

	if c.Vault.MaxFileSize <= 0 {
		return errors.New("vault.max_file_size must be positive")
	}

	switch c.Vault.IndexBackend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("invalid index backend: %s", c.Vault.IndexBackend)
	}

	switch c.Vault.OnCorruptIndex {
	case CorruptEmpty, CorruptFail:
	default:
		return fmt.Errorf("invalid on_corrupt_index policy: %s", c.Vault.OnCorruptIndex)
	}

	switch c.Crypto.KDF {
	case KDFStatic:
	case KDFPBKDF2:
		if c.Crypto.Passphrase == "" {
			return errors.New("crypto.passphrase is required for pbkdf2")
		}
		if c.Crypto.Salt == "" {
			return errors.New("crypto.salt is required for pbkdf2")
		}
		if c.Crypto.Iterations <= 0 {
			return errors.New("crypto.iterations must be positive")
		}
	default:
		return fmt.Errorf("invalid kdf: %s", c.Crypto.KDF)
	}

	if c.Watch.Debounce < 0 {
		return errors.New("watch.debounce must not be negative")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Vault.Root,
		c.Vault.StagingDir,
		filepath.Dir(c.Vault.IndexFile),
	}

	if c.Vault.TempDir != "" {
		dirs = append(dirs, c.Vault.TempDir)
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
