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

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	setupLogger(viper.GetBool("verbose"))

	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")
	if _, ok := schema.ValidCacheBackends[backend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'", backend)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheCmd focused on cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by scan. This avoids token and input validation
// for simple cache operations.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the GitHub API cache",
	Long: `Manage the cache of repository metadata and contributor lists.

Logscan caches API responses so that rescanning a list does not spend the
rate limit again. Entries older than --cache-ttl are refetched.

Supported backends: SQLite (default), MySQL, PostgreSQL, Redis, or None

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data

Examples:
  # Check cache status
  logscan cache status

  # Clear a shared Redis cache
  LOGSCAN_CACHE_BACKEND=redis LOGSCAN_CACHE_DB_CONNECT=redis://localhost:6379/0 logscan cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached API responses",
	Long: `Delete all cached API responses from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table
For Redis: Deletes every logscan key`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearCache(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
			contract.LogFatal(rootCtx, "Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show the backend, connection status, entry count, newest and oldest
entry times and the size of the cache.`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.InitCaching(cfg.CacheBackend, cfg.CacheDBConnect, "", ""); err != nil {
			contract.LogFatal(rootCtx, "Failed to open cache", err)
		}
		store := iocache.Manager.GetCacheStore()
		if store == nil {
			contract.LogFatal(rootCtx, "Failed to get cache status", fmt.Errorf("cache backend %s is not available", cfg.CacheBackend))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal(rootCtx, "Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}
