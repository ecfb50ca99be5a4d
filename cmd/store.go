package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/internal/iocache"
	"github.com/huangsam/logscan/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeSetup loads minimal configuration needed for results store operations.
// An unset backend means the store is disabled.
func storeSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	setupLogger(viper.GetBool("verbose"))

	backend := schema.NoneBackend
	if b := viper.GetString("results-backend"); b != "" {
		backend = schema.DatabaseBackend(b)
	}
	connStr := viper.GetString("results-db-connect")
	if _, ok := schema.ValidResultsBackends[backend]; !ok {
		return fmt.Errorf("invalid results backend '%s'", backend)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.ResultsBackend = backend
	cfg.ResultsDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// storeSetupWrapper wraps storeSetup to provide PreRunE for store commands.
func storeSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeSetup()
}

// openResultsStore opens the configured results store without any API cache.
func openResultsStore() contract.ResultsStore {
	if err := iocache.InitCaching("", "", cfg.ResultsBackend, cfg.ResultsDBConnect); err != nil {
		contract.LogFatal(rootCtx, "Failed to open results store", err)
	}
	return iocache.Manager.GetResultsStore()
}

// storeCmd focused on results store management.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the results store of past scan runs",
	Long: `Manage the results store used to keep every scan run.

When --results-backend is set, every scan stores:
- Run metadata (start and end time, configuration, succeeded and skipped counts)
- The merged record of every successful repository as JSON

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show results store statistics
  export  - Export runs and records to Parquet
  clear   - Remove all stored runs
  migrate - Run database schema migrations

Examples:
  # Check the store
  logscan store status --results-backend sqlite

  # Export for DuckDB or pandas
  logscan store export --results-backend sqlite --output-file results`,
}

// storeClearCmd clears the results store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored scan runs",
	Long: `Delete all stored runs and repository records.

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearResults(cfg.ResultsBackend, cfg.ResultsDBConnect); err != nil {
			contract.LogFatal(rootCtx, "Failed to clear results", err)
		}
		fmt.Println("Results cleared successfully.")
	},
}

// storeStatusCmd shows results store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display results store statistics and connection details",
	Long: `Show the backend, connection status, run count, newest and oldest run
times, stored repository records and table sizes.`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := openResultsStore().GetStatus()
		if err != nil {
			contract.LogFatal(rootCtx, "Failed to get results status", err)
		}
		iocache.PrintResultsStatus(os.Stdout, status)
	},
}

// storeExportCmd exports the results store to Parquet files.
var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored runs and records to Parquet",
	Long: `Export the results store to two Parquet files:

- <output-file>.runs.parquet: one row per scan run
- <output-file>.repo_results.parquet: one row per stored repository record

Requires: --output-file parameter

Examples:
  logscan store export --results-backend sqlite --output-file results
  duckdb -c "SELECT * FROM read_parquet('results.runs.parquet')"`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportResults(openResultsStore(), cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal(rootCtx, "Failed to export results", err)
		}
	},
}

// storeMigrateCmd runs database migrations for the results store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the results store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  logscan store migrate --results-backend postgresql --results-db-connect "host=db dbname=logscan"

  # Roll back to the initial state
  logscan store migrate --results-backend sqlite --target-version 0`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		report, err := iocache.MigrateResults(cfg.ResultsBackend, cfg.ResultsDBConnect, viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal(rootCtx, "Failed to run migrations", err)
		}
		if !report.Changed {
			fmt.Printf("Results store already at version %d.\n", report.To)
			return
		}
		fmt.Printf("Migrated results store from version %d to %d.\n", report.From, report.To)
	},
}
