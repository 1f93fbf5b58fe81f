package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/calcvault/internal/app"
	"github.com/TheMichaelB/calcvault/internal/opener"
)

var openCmd = &cobra.Command{
	Use:   "open <number>",
	Short: "Decrypt a file and open it in the default viewer",
	Long: `Open decrypts the numbered file (see "calcvault list") into a private
temporary directory and launches the platform viewer for it.`,
	Example: `  calcvault open 3
  calcvault open 3 --no-launch`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

var openNoLaunch bool

func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().BoolVar(&openNoLaunch, "no-launch", false,
		"Only decrypt and print the plaintext path")
}

func runOpen(cmd *cobra.Command, args []string) error {
	var op opener.Opener = opener.NewSystem()
	if openNoLaunch {
		op = opener.Nop{}
	}

	s, err := openSession(cmd.Context(), op)
	if err != nil {
		return err
	}
	defer s.Close()

	i, err := parseRecordNumber(args[0], len(s.vault.Records()))
	if err != nil {
		return err
	}

	task := s.controller.Dispatch(cmd.Context(), app.OpenRecord{Index: i})
	if task == nil {
		return fmt.Errorf("%s", s.controller.Snapshot().Status)
	}
	status, err := task.Wait(cmd.Context())
	state := s.controller.Snapshot()

	if jsonOutput {
		result := map[string]interface{}{
			"success": err == nil,
			"name":    state.OpenedName,
			"path":    state.OpenedPath,
			"status":  status,
		}
		if err != nil {
			result["error"] = err.Error()
		}
		printJSON(result)
		return err
	}

	if state.OpenedPath == "" {
		return fmt.Errorf("%s: %w", status, err)
	}
	if err != nil {
		printWarning("Could not launch a viewer: %v", err)
		printInfo("%s", state.OpenedPath)
		return nil
	}

	printSuccess("Decrypted %s", state.OpenedName)
	printInfo("%s", state.OpenedPath)
	return nil
}
