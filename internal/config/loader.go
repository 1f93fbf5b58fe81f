package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CALCVAULT_LOG_LEVEL.
const EnvPrefix = "CALCVAULT"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a config loader. An empty path searches the default locations.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		v:          viper.New(),
	}
}

// Load reads configuration from defaults, file and environment, in that order.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults(DefaultConfig())

	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
	} else {
		l.v.SetConfigName("calcvault")
		for _, dir := range l.defaultPaths() {
			l.v.AddConfigPath(dir)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Vault.Root = expandHome(cfg.Vault.Root)
	cfg.Vault.TempDir = expandHome(cfg.Vault.TempDir)
	cfg.Log.File = expandHome(cfg.Log.File)

	// Paths nested under the root follow it unless set explicitly
	if cfg.Vault.StagingDir == "" {
		cfg.Vault.StagingDir = filepath.Join(cfg.Vault.Root, DefaultStagingName)
	}
	if cfg.Vault.IndexFile == "" {
		cfg.Vault.IndexFile = filepath.Join(cfg.Vault.Root, DefaultIndexName)
	}
	cfg.Vault.StagingDir = expandHome(cfg.Vault.StagingDir)
	cfg.Vault.IndexFile = expandHome(cfg.Vault.IndexFile)

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ConfigFile returns the file that was read, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setDefaults(cfg *Config) {
	l.v.SetDefault("vault.root", cfg.Vault.Root)
	l.v.SetDefault("vault.staging_dir", "")
	l.v.SetDefault("vault.index_file", "")
	l.v.SetDefault("vault.temp_dir", cfg.Vault.TempDir)
	l.v.SetDefault("vault.index_backend", cfg.Vault.IndexBackend)
	l.v.SetDefault("vault.on_corrupt_index", cfg.Vault.OnCorruptIndex)
	l.v.SetDefault("vault.max_file_size", cfg.Vault.MaxFileSize)

	l.v.SetDefault("crypto.kdf", cfg.Crypto.KDF)
	l.v.SetDefault("crypto.passphrase", cfg.Crypto.Passphrase)
	l.v.SetDefault("crypto.salt", cfg.Crypto.Salt)
	l.v.SetDefault("crypto.iterations", cfg.Crypto.Iterations)

	l.v.SetDefault("watch.debounce", cfg.Watch.Debounce)

	l.v.SetDefault("log.level", cfg.Log.Level)
	l.v.SetDefault("log.format", cfg.Log.Format)
	l.v.SetDefault("log.file", cfg.Log.File)
}

// defaultPaths returns default config file locations.
func (l *Loader) defaultPaths() []string {
	paths := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "calcvault"),
			filepath.Join(homeDir, DefaultVaultDirName),
		)
	}

	return paths
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
