// Package cmd defines the command-line interface for logscan.
package cmd

import (
	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(classesCmd)
	rootCmd.AddCommand(severityCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("token", "", "GitHub API token (prefer GITHUB_TOKEN or LOGSCAN_TOKEN)")
	rootCmd.PersistentFlags().String("input", "", "Path to the repository list, one URL per line")
	rootCmd.PersistentFlags().StringP("pipeline", "p", string(schema.LogsPipeline), "Comma-separated pipelines: logs, classes, contributors")
	rootCmd.PersistentFlags().IntP("workers", "w", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().String("clone-dir", "", "Directory where repositories are cloned (default: $TMPDIR/logscan-repos)")
	rootCmd.PersistentFlags().String("clone-backend", string(schema.GoGitClone), "Clone backend: go-git or git")
	rootCmd.PersistentFlags().Int("clone-depth", contract.DefaultCloneDepth, "Clone depth (0 = full history)")
	rootCmd.PersistentFlags().Int("min-source-files", contract.DefaultMinSourceFiles, "Minimum files of the class language for the classes pipeline")
	rootCmd.PersistentFlags().String("class-language", contract.DefaultClassLanguage, "Language measured by the classes pipeline")
	rootCmd.PersistentFlags().Bool("skip-vendor", false, "Skip vendored and generated paths")
	rootCmd.PersistentFlags().String("rules", "", "Path to a rules YAML file overriding the built-in tables")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("histogram-dir", "", "Directory for the word and line histograms of log templates")
	rootCmd.PersistentFlags().Int("histogram-min", contract.DefaultHistogramMin, "Keep histogram entries seen more than this many times")
	rootCmd.PersistentFlags().String("log-records-dir", "", "Directory for the raw log lines of every repository")
	rootCmd.PersistentFlags().String("api-url", contract.DefaultAPIURL, "GitHub API base URL")
	rootCmd.PersistentFlags().Float64("api-rate", contract.DefaultAPIRate, "Maximum API requests per second (0 = unlimited)")
	rootCmd.PersistentFlags().String("rate-poll-interval", contract.DefaultRatePollInterval.String(), "Wait between rate limit polls")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "API cache backend: sqlite or mysql or postgresql or redis or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Connection string for the API cache (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("cache-ttl", contract.DefaultCacheTTL.String(), "How long cached API responses stay fresh")
	rootCmd.PersistentFlags().String("results-backend", "", "Results store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("results-db-connect", "", "Connection string for the results store (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address during a scan (e.g., :9090)")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show debug logs")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal(rootCtx, "Error binding root flags", err)
	}

	// Offline commands take their language as a local flag
	classesCmd.Flags().String("language", "", "Language of the files under a directory (default: class-language)")
	severityCmd.Flags().String("language", "", "Also extract log sites with the patterns of this language")

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal(rootCtx, "Error binding store migrate flags", err)
	}
}
