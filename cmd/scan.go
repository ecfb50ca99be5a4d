package cmd

import (
	"github.com/huangsam/logscan/core"
	"github.com/huangsam/logscan/internal/contract"
	"github.com/spf13/cobra"
)

// scanCmd runs the configured pipelines over every repository of a list.
var scanCmd = &cobra.Command{
	Use:   "scan [repos-file]",
	Short: "Scan every repository of a list and write one row per repository.",
	Long: `Clone each repository of a line-delimited URL list and run the selected pipelines:

- logs: logging call sites, severity usage, log density and template histograms
- classes: raw and effective class lengths of one language
- contributors: contribution distribution and contribution friendliness

Jobs run on a bounded worker pool. A failing repository is skipped and reported
at the end; it never stops the batch. Repository metadata and contributor lists
are cached between runs.

Examples:
  # Log pipeline over a list (token from GITHUB_TOKEN)
  logscan scan repos.txt

  # Every pipeline, eight workers, CSV output
  logscan scan repos.txt -p logs,classes,contributors -w 8 --output csv --output-file out.csv

  # Keep template histograms and raw log lines
  logscan scan repos.txt --histogram-dir hist --log-records-dir records

  # Track runs in a results store
  logscan scan repos.txt --results-backend sqlite`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteScan(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal(rootCtx, "Cannot run scan", err)
		}
	},
}
