package main

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/calcvault/internal/opener"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List vaulted files",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), opener.Nop{})
	if err != nil {
		return err
	}
	defer s.Close()

	records := s.controller.Snapshot().Records

	if jsonOutput {
		items := make([]map[string]interface{}, len(records))
		for i, r := range records {
			items[i] = map[string]interface{}{
				"number":             i + 1,
				"name":               r.DisplayName,
				"original_extension": r.OriginalExtension,
				"size":               r.Size,
				"created_at":         r.CreatedAt,
			}
		}
		printJSON(map[string]interface{}{"records": items})
		return nil
	}

	if len(records) == 0 {
		printInfo("The vault is empty")
		return nil
	}

	width := len("NAME")
	for _, r := range records {
		if n := utf8.RuneCountInString(r.DisplayName); n > width {
			width = n
		}
	}

	fmt.Printf("%4s  %-*s  %10s  %s\n", "#", width, "NAME", "SIZE", "ADDED")
	for i, r := range records {
		fmt.Printf("%4d  %-*s  %10s  %s\n", i+1, width, r.DisplayName, formatBytes(r.Size), r.CreatedAt)
	}

	return nil
}
