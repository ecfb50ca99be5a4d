package cmd

import (
	"github.com/huangsam/logscan/core"
	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/internal/outwriter"
	"github.com/spf13/cobra"
)

// classesCmd measures classes on the local filesystem.
var classesCmd = &cobra.Command{
	Use:   "classes <path>",
	Short: "Measure raw and effective class lengths of a local file or directory.",
	Long: `Run the class-length parser without cloning anything.

A file is parsed as is. A directory is walked for files of --language
(or class-language) and every class found is measured.

Examples:
  logscan classes src/main/java/App.java
  logscan classes ./service --language Java --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: offlineSetup,
	Run: func(cmd *cobra.Command, args []string) {
		language, _ := cmd.Flags().GetString("language")
		if language == "" {
			language = cfg.ClassLanguage
		}
		m, err := core.ClassLengths(rootCtx, args[0], language, cfg.RulesFile)
		if err != nil {
			contract.LogFatal(rootCtx, "Cannot measure classes", err)
		}
		if err := outwriter.PrintClassMetrics(args[0], m, cfg); err != nil {
			contract.LogFatal(rootCtx, "Cannot write class metrics", err)
		}
	},
}

// severityCmd classifies one source line.
var severityCmd = &cobra.Command{
	Use:   "severity <line>",
	Short: "Classify the severity of a source line and extract its log templates.",
	Long: `Apply the severity table to a single line. With --language the log patterns
of that language are applied too and every site found is printed with its
normalized templates.

Examples:
  logscan severity 'logger.warn("disk {} low", pct)'
  logscan severity 'log.Printf("user %s failed", id)' --language Go --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: offlineSetup,
	Run: func(cmd *cobra.Command, args []string) {
		language, _ := cmd.Flags().GetString("language")
		report, err := core.ClassifyLine(args[0], language, cfg.RulesFile)
		if err != nil {
			contract.LogFatal(rootCtx, "Cannot classify line", err)
		}
		if err := outwriter.PrintLineReport(report, cfg); err != nil {
			contract.LogFatal(rootCtx, "Cannot write line report", err)
		}
	},
}
