package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/TheMichaelB/calcvault/internal/app"
	"github.com/TheMichaelB/calcvault/internal/opener"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Re-adopt or remove encrypted files missing from the index",
	Long: `Recover looks for encrypted blobs in the vault that no index entry
refers to, for example after an interrupted delete or a reset index.
Blobs that decrypt are added back as "recovered-<id>". With --prune the
orphans are deleted instead.`,
	Example: `  calcvault recover
  calcvault recover --prune`,
	Args: cobra.NoArgs,
	RunE: runRecover,
}

var recoverPrune bool

func init() {
	rootCmd.AddCommand(recoverCmd)

	recoverCmd.Flags().BoolVar(&recoverPrune, "prune", false,
		"Delete orphaned blobs instead of adopting them")
}

func runRecover(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), opener.Nop{})
	if err != nil {
		return err
	}
	defer s.Close()

	orphans, err := s.vault.Orphans()
	if err != nil {
		return err
	}

	if len(orphans) == 0 {
		if jsonOutput {
			printJSON(map[string]interface{}{"success": true, "orphans": 0})
		} else {
			printSuccess("No orphaned files")
		}
		return nil
	}

	if recoverPrune {
		removed, err := s.vault.Prune()
		if jsonOutput {
			printJSON(map[string]interface{}{
				"success": err == nil,
				"orphans": len(orphans),
				"removed": removed,
				"errors":  errorStrings(err),
			})
			return err
		}
		for _, e := range multierr.Errors(err) {
			printWarning("%v", e)
		}
		if err != nil {
			return fmt.Errorf("removed %d of %d orphaned file(s)", removed, len(orphans))
		}
		printSuccess("Removed %d orphaned file(s)", removed)
		return nil
	}

	task := s.controller.Dispatch(cmd.Context(), app.RecoverOrphans{})
	if task == nil {
		return fmt.Errorf("%s", s.controller.Snapshot().Status)
	}
	status, err := task.Wait(cmd.Context())

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": err == nil,
			"orphans": len(orphans),
			"status":  status,
			"errors":  errorStrings(err),
		})
		return err
	}

	for _, e := range multierr.Errors(err) {
		printWarning("%v", e)
	}
	if err != nil {
		return fmt.Errorf("%s", status)
	}

	printSuccess("%s", status)
	return nil
}

func errorStrings(err error) []string {
	errs := multierr.Errors(err)
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}
