package main

import (
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/calcvault/internal/opener"
	"github.com/TheMichaelB/calcvault/internal/vault"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Encrypt files as soon as they land in staging",
	Long: `Watch keeps running and ingests the staging directory whenever files
are added, after a short quiet period. Stop it with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), opener.Nop{})
	if err != nil {
		return err
	}
	defer s.Close()

	watcher := vault.NewWatcher(s.vault, s.runner, cfg.Watch.Debounce, logger)
	watcher.OnIngest = func(report vault.IngestReport, err error) {
		if len(report.Results) == 0 && err == nil {
			return
		}

		if jsonOutput {
			files := make([]map[string]interface{}, len(report.Results))
			for i, res := range report.Results {
				files[i] = map[string]interface{}{"name": res.Name, "success": res.Err == nil}
				if res.Err != nil {
					files[i]["error"] = res.Err.Error()
				}
			}
			printJSON(map[string]interface{}{"status": report.Summary(), "files": files})
			return
		}

		for _, res := range report.Results {
			if res.Err != nil {
				printWarning("%s", res.Status())
			} else {
				printInfo("  %s", res.Status())
			}
		}
		if err != nil {
			printWarning("Ingest stopped: %v", err)
			return
		}
		printSuccess("%s", report.Summary())
	}

	if !jsonOutput {
		printInfo("Watching %s (Ctrl+C to stop)", s.vault.StagingDir())
	}

	return watcher.Run(cmd.Context())
}
