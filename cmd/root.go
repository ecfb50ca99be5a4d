package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/internal/iocache"
	"github.com/huangsam/logscan/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations. It carries the logger once setup ran.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "logscan",
	Short: "Measure logging practice, class lengths and contributor spread across GitHub repositories.",
	Long: `Logscan clones every repository of a list, finds its logging call sites, measures its
classes and summarizes who contributes to it, then writes one row per repository.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in the .env file and ENV variables if set.
func initConfig() {
	// A missing .env is fine
	_ = godotenv.Load()

	// Set environment variable prefix
	viper.SetEnvPrefix("LOGSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match
	_ = viper.BindEnv("token", "LOGSCAN_TOKEN", "GITHUB_TOKEN")

	// Set defaults in Viper
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("pipeline", schema.LogsPipeline)
	viper.SetDefault("clone-backend", schema.GoGitClone)
	viper.SetDefault("clone-depth", contract.DefaultCloneDepth)
	viper.SetDefault("min-source-files", contract.DefaultMinSourceFiles)
	viper.SetDefault("class-language", contract.DefaultClassLanguage)
	viper.SetDefault("histogram-min", contract.DefaultHistogramMin)
	viper.SetDefault("api-url", contract.DefaultAPIURL)
	viper.SetDefault("api-rate", contract.DefaultAPIRate)
	viper.SetDefault("rate-poll-interval", contract.DefaultRatePollInterval.String())
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("cache-ttl", contract.DefaultCacheTTL.String())
	viper.SetDefault("results-backend", "")
	viper.SetDefault("results-db-connect", "")
	viper.SetDefault("color", "yes")
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".logscan") // Name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// setupLogger attaches a stderr logger to rootCtx.
func setupLogger(verbose bool) {
	rootCtx = contract.WithLogger(rootCtx, contract.NewLogger(os.Stderr, verbose))
}

// configSetup loads every config source and validates it into cfg.
// The first positional argument, when present, is the repository list.
func configSetup(args []string) error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	input.InputArg = ""
	if len(args) == 1 {
		input.InputArg = args[0]
	}
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	setupLogger(cfg.Verbose)
	return nil
}

// sharedSetup validates the config and opens the cache and results stores.
func sharedSetup(_ *cobra.Command, args []string) error {
	if err := configSetup(args); err != nil {
		return err
	}
	if err := iocache.InitCaching(cfg.CacheBackend, cfg.CacheDBConnect, cfg.ResultsBackend, cfg.ResultsDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// offlineSetup validates the config without opening any store.
func offlineSetup(_ *cobra.Command, _ []string) error {
	return configSetup(nil)
}

// Execute runs the root command. Cancelling ctx stops a running scan; workspaces in
// use are released before the command returns.
func Execute(ctx context.Context) error {
	rootCtx = ctx
	return rootCmd.ExecuteContext(ctx)
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}
