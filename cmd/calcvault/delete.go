package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheMichaelB/calcvault/internal/app"
	"github.com/TheMichaelB/calcvault/internal/opener"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <number>",
	Aliases: []string{"rm"},
	Short:   "Remove a file from the vault",
	Example: `  calcvault delete 2
  calcvault delete 2 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var deleteYes bool

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false,
		"Do not ask for confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), opener.Nop{})
	if err != nil {
		return err
	}
	defer s.Close()

	i, err := parseRecordNumber(args[0], len(s.vault.Records()))
	if err != nil {
		return err
	}

	record, err := s.vault.Record(i)
	if err != nil {
		return err
	}

	if !deleteYes && !jsonOutput && term.IsTerminal(int(os.Stdin.Fd())) {
		if !confirm(fmt.Sprintf("Delete %s permanently? [y/N] ", record.DisplayName)) {
			printInfo("Cancelled")
			return nil
		}
	}

	task := s.controller.Dispatch(cmd.Context(), app.DeleteRecord{Index: i})
	if task == nil {
		return fmt.Errorf("%s", s.controller.Snapshot().Status)
	}
	status, err := task.Wait(cmd.Context())

	if jsonOutput {
		result := map[string]interface{}{
			"success": err == nil,
			"name":    record.DisplayName,
			"status":  status,
		}
		if err != nil {
			result["error"] = err.Error()
		}
		printJSON(result)
		return err
	}

	if err != nil {
		return fmt.Errorf("%s: %w", status, err)
	}

	printSuccess("%s", status)
	return nil
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
