package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/calcvault/internal/config"
	"github.com/TheMichaelB/calcvault/internal/opener"
	"github.com/TheMichaelB/calcvault/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault locations and health",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), opener.Nop{})
	if err != nil {
		return err
	}
	defer s.Close()

	snapshot := s.controller.Snapshot()

	var total int64
	for _, r := range snapshot.Records {
		total += r.Size
	}

	staged, err := s.vault.StagedFiles()
	if err != nil {
		return err
	}

	orphans, err := s.vault.Orphans()
	if err != nil {
		return err
	}

	indexPath := cfg.Vault.IndexFile
	if cfg.Vault.IndexBackend == config.BackendSQLite {
		indexPath = state.SQLitePath(indexPath)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"root":          s.vault.Root(),
			"staging":       s.vault.StagingDir(),
			"index":         indexPath,
			"index_backend": cfg.Vault.IndexBackend,
			"kdf":           cfg.Crypto.KDF,
			"records":       len(snapshot.Records),
			"total_size":    total,
			"staged":        len(staged),
			"orphans":       len(orphans),
			"index_corrupt": snapshot.IndexCorrupt,
		})
		return nil
	}

	fmt.Printf("Vault:    %s\n", s.vault.Root())
	fmt.Printf("Staging:  %s\n", s.vault.StagingDir())
	fmt.Printf("Index:    %s (%s)\n", indexPath, cfg.Vault.IndexBackend)
	fmt.Printf("Key:      %s\n", cfg.Crypto.KDF)
	fmt.Printf("Files:    %d (%s)\n", len(snapshot.Records), formatBytes(total))
	fmt.Printf("Staged:   %d\n", len(staged))
	fmt.Printf("Orphans:  %d\n", len(orphans))

	if snapshot.IndexCorrupt {
		printWarning("Index was unreadable at startup")
	}
	if len(orphans) > 0 {
		printWarning("Run 'calcvault recover' to re-adopt or remove orphaned files")
	}

	return nil
}
