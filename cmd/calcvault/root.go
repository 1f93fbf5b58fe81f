package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/calcvault/internal/app"
	"github.com/TheMichaelB/calcvault/internal/config"
	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/opener"
	"github.com/TheMichaelB/calcvault/internal/vault"
)

var (
	cfgFile    string
	jsonOutput bool
	verbose    bool

	cfg    *config.Config
	logger *events.Logger
)

var rootCmd = &cobra.Command{
	Use:   "calcvault",
	Short: "Hidden encrypted file vault",
	Long: `calcvault keeps files encrypted in a hidden local vault.

Drop files into the staging directory and run "calcvault ingest" to encrypt
them. Each file is sealed with AES-256-GCM and the plaintext original is
removed once the vault index has been updated.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file (default: ./calcvault.yaml, ~/.config/calcvault/calcvault.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Print machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
}

func initApp(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)

	loaded, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded

	if verbose {
		cfg.Log.Level = "debug"
	}

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	events.SetDefault(logger)

	if file := loader.ConfigFile(); file != "" {
		logger.WithField("file", file).Debug("Loaded config")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare vault directories: %w", err)
	}

	if jsonOutput {
		color.NoColor = true
	}

	return nil
}

// session is one CLI invocation's view of the vault.
type session struct {
	vault      *vault.Vault
	runner     *vault.Runner
	controller *app.Controller
}

// openSession loads the vault and reveals it through the controller.
func openSession(ctx context.Context, op opener.Opener) (*session, error) {
	v, err := vault.FromConfig(cfg, op, logger)
	if err != nil {
		return nil, err
	}

	runner := vault.NewRunner(logger, 100)
	controller := app.NewController(v, runner, logger)

	controller.Dispatch(ctx, app.ShowVault{})
	state := controller.Snapshot()
	if !state.VaultVisible {
		runner.Close()
		v.Close()
		return nil, fmt.Errorf("%s", state.Status)
	}
	if state.IndexCorrupt && !jsonOutput {
		printWarning("The vault index was unreadable and has been reset; run 'calcvault recover' to re-adopt files")
	}

	return &session{vault: v, runner: runner, controller: controller}, nil
}

func (s *session) Close() {
	s.runner.Close()
	if err := s.vault.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close index")
	}
}

// parseRecordNumber converts a 1-based CLI position to an index.
func parseRecordNumber(arg string, count int) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid file number %q", arg)
	}
	if n < 1 || n > count {
		if count == 0 {
			return 0, fmt.Errorf("the vault is empty")
		}
		return 0, fmt.Errorf("file number %d out of range (1-%d)", n, count)
	}
	return n - 1, nil
}

// Output helpers

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

func printSuccess(format string, args ...interface{}) {
	fmt.Fprintln(os.Stdout, successColor.Sprint("✓")+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, errorColor.Sprint("✗")+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, warningColor.Sprint("⚠")+" "+fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...interface{}) {
	fmt.Fprintln(os.Stdout, infoColor.Sprintf(format, args...))
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		printError("Failed to encode JSON: %v", err)
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
