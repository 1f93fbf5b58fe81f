package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/calcvault/internal/app"
	"github.com/TheMichaelB/calcvault/internal/opener"
	"github.com/TheMichaelB/calcvault/internal/vault"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Encrypt everything in the staging directory",
	Long: `Ingest seals each staged file into the vault in name order and removes
the plaintext original once the index is saved. A file that fails stays in
staging and the rest of the batch continues.`,
	Example: `  calcvault ingest
  calcvault ingest --json`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), opener.Nop{})
	if err != nil {
		return err
	}
	defer s.Close()

	spin, cleanup := startSpinner("Encrypting staged files...")

	// Collect per-file status lines while the task runs
	var lines []string
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for event := range s.runner.Events() {
			if event.Type != vault.EventProgress {
				continue
			}
			lines = append(lines, event.Status)
			spin.Lock()
			spin.Suffix = " " + event.Status
			spin.Unlock()
			if !jsonOutput && verbose {
				printInfo("%s", event.Status)
			}
		}
	}()

	task := s.controller.Dispatch(cmd.Context(), app.IngestStaging{})
	if task == nil {
		cleanup()
		return fmt.Errorf("%s", s.controller.Snapshot().Status)
	}

	status, taskErr := task.Wait(cmd.Context())
	cleanup()

	s.runner.Close()
	<-collected

	if jsonOutput {
		result := map[string]interface{}{
			"success": taskErr == nil,
			"status":  status,
			"files":   lines,
			"records": len(s.vault.Records()),
		}
		if taskErr != nil {
			result["error"] = taskErr.Error()
		}
		printJSON(result)
		return taskErr
	}

	if !verbose {
		for _, line := range lines {
			fmt.Println("  " + line)
		}
	}

	if taskErr != nil {
		return taskErr
	}

	printSuccess("%s", status)
	return nil
}
