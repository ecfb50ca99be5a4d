package contract

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/logscan/schema"
)

// Default values for configuration.
const (
	DefaultPrecision        = 2
	DefaultCloneDepth       = 1
	DefaultMinSourceFiles   = 50
	DefaultClassLanguage    = "Java"
	DefaultHistogramMin     = 5
	DefaultAPIURL           = "https://api.github.com/"
	DefaultAPIRate          = 10.0
	DefaultRatePollInterval = 30 * time.Second
	DefaultCacheTTL         = 24 * time.Hour
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ErrMissingToken is returned when no API token was provided by any source.
var ErrMissingToken = errors.New("a GitHub token is required (set GITHUB_TOKEN, LOGSCAN_TOKEN or --token)")

// Config holds the runtime configuration for a scan.
// This struct remains the "final, validated" config.
type Config struct {
	Token     string // Please use env var as this is plaintext
	InputFile string
	Pipelines []schema.Pipeline
	Workers   int

	CloneDir       string
	CloneBackend   schema.CloneBackend
	CloneDepth     int
	MinSourceFiles int
	ClassLanguage  string
	SkipVendor     bool
	RulesFile      string

	Output        schema.OutputMode
	OutputFile    string
	HistogramDir  string
	HistogramMin  int
	LogRecordsDir string
	Precision     int
	Width         int // Terminal width override (0 = auto-detect)
	UseColors     bool

	APIURL           string
	APIRate          float64
	RatePollInterval time.Duration

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	CacheTTL       time.Duration

	ResultsBackend   schema.DatabaseBackend
	ResultsDBConnect string // Please use env var as this is plaintext

	MetricsAddr string
	Verbose     bool
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	InputArg string

	Token            string `mapstructure:"token"`
	Input            string `mapstructure:"input"`
	Pipeline         string `mapstructure:"pipeline"`
	Workers          int    `mapstructure:"workers"`
	CloneDir         string `mapstructure:"clone-dir"`
	CloneBackend     string `mapstructure:"clone-backend"`
	CloneDepth       int    `mapstructure:"clone-depth"`
	MinSourceFiles   int    `mapstructure:"min-source-files"`
	ClassLanguage    string `mapstructure:"class-language"`
	SkipVendor       bool   `mapstructure:"skip-vendor"`
	Rules            string `mapstructure:"rules"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	HistogramDir     string `mapstructure:"histogram-dir"`
	HistogramMin     int    `mapstructure:"histogram-min"`
	LogRecordsDir    string `mapstructure:"log-records-dir"`
	APIURL           string `mapstructure:"api-url"`
	RatePollInterval string `mapstructure:"rate-poll-interval"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	CacheTTL         string `mapstructure:"cache-ttl"`
	ResultsBackend   string `mapstructure:"results-backend"`
	ResultsDBConnect string `mapstructure:"results-db-connect"`
	MetricsAddr      string `mapstructure:"metrics-addr"`
	Precision        int    `mapstructure:"precision"`
	Color            string `mapstructure:"color"`
	Width            int    `mapstructure:"width"`
	Verbose          bool   `mapstructure:"verbose"`

	APIRate float64 `mapstructure:"api-rate"`
}

// HasPipeline reports whether p was requested.
func (c *Config) HasPipeline(p schema.Pipeline) bool {
	return slices.Contains(c.Pipelines, p)
}

// GitHost returns the host repositories are cloned from: the API host without its
// "api." prefix (api.github.com serves github.com), or the API host itself for
// Enterprise installs that serve the API under /api/v3.
func (c *Config) GitHost() string {
	raw := c.APIURL
	if raw == "" {
		raw = DefaultAPIURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "api.")
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Pipelines != nil {
		clone.Pipelines = slices.Clone(c.Pipelines)
	}
	return &clone
}

// Params returns the non-secret settings recorded alongside a scan run.
func (c *Config) Params() map[string]any {
	pipelines := make([]string, len(c.Pipelines))
	for i, p := range c.Pipelines {
		pipelines[i] = string(p)
	}
	return map[string]any{
		"input":            c.InputFile,
		"pipelines":        strings.Join(pipelines, ","),
		"workers":          c.Workers,
		"clone_backend":    string(c.CloneBackend),
		"clone_depth":      c.CloneDepth,
		"min_source_files": c.MinSourceFiles,
		"class_language":   c.ClassLanguage,
		"skip_vendor":      c.SkipVendor,
		"rules":            c.RulesFile,
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processPipelines(cfg, input); err != nil {
		return err
	}
	if err := processCloneSettings(cfg, input); err != nil {
		return err
	}
	if err := processAPISettings(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return nil
}

// RequireToken fails when no token was configured.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrMissingToken
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL, PostgreSQL and Redis backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") {
			return fmt.Errorf("Redis connection string must be a redis:// or rediss:// URL")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and results backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	cfg.CacheTTL = DefaultCacheTTL
	if input.CacheTTL != "" {
		ttl, err := time.ParseDuration(input.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache-ttl '%s': %w", input.CacheTTL, err)
		}
		if ttl < 0 {
			return fmt.Errorf("cache-ttl cannot be negative (received %s)", ttl)
		}
		cfg.CacheTTL = ttl
	}

	// --- Results Backend Validation ---
	cfg.ResultsBackend = schema.DatabaseBackend(strings.ToLower(input.ResultsBackend))
	if cfg.ResultsBackend == "" {
		return nil
	}
	if _, ok := schema.ValidResultsBackends[cfg.ResultsBackend]; !ok {
		return fmt.Errorf("invalid results backend '%s'. must be sqlite, mysql, postgresql, none", input.ResultsBackend)
	}
	cfg.ResultsDBConnect = input.ResultsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.ResultsBackend, cfg.ResultsDBConnect); err != nil {
		return err
	}

	// Validate that cache and results use different databases
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.ResultsBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		resultsDBPath := cfg.ResultsDBConnect
		if resultsDBPath == "" {
			resultsDBPath = GetResultsDBFilePath()
		}
		if cacheDBPath == resultsDBPath {
			return fmt.Errorf("cache and results storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the output and worker fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.Token = strings.TrimSpace(input.Token)
	cfg.OutputFile = input.OutputFile
	cfg.HistogramDir = input.HistogramDir
	cfg.LogRecordsDir = input.LogRecordsDir
	cfg.RulesFile = input.Rules
	cfg.SkipVendor = input.SkipVendor
	cfg.MetricsAddr = input.MetricsAddr
	cfg.Verbose = input.Verbose
	cfg.Width = input.Width

	cfg.InputFile = input.InputArg
	if cfg.InputFile == "" {
		cfg.InputFile = input.Input
	}

	// Parse color flag
	colors := true
	if input.Color != "" {
		parsed, err := ParseBoolString(input.Color)
		if err != nil {
			return fmt.Errorf("invalid --color value: %w", err)
		}
		colors = parsed
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 1 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	// --- 3. Histogram Validation ---
	if input.HistogramMin < 0 {
		return fmt.Errorf("histogram-min cannot be negative (received %d)", input.HistogramMin)
	}
	cfg.HistogramMin = input.HistogramMin
	return nil
}

// processPipelines parses the comma-separated pipeline list, keeping the declared order.
func processPipelines(cfg *Config, input *ConfigRawInput) error {
	pipelines, err := ParsePipelines(input.Pipeline)
	if err != nil {
		return err
	}
	cfg.Pipelines = pipelines
	return nil
}

// ParsePipelines parses a comma-separated pipeline list in declared order, dropping
// duplicates. An empty list selects the logs pipeline.
func ParsePipelines(raw string) ([]schema.Pipeline, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []schema.Pipeline{schema.LogsPipeline}, nil
	}
	var pipelines []schema.Pipeline
	for part := range strings.SplitSeq(raw, ",") {
		p := schema.Pipeline(strings.ToLower(strings.TrimSpace(part)))
		if p == "" {
			continue
		}
		if _, ok := schema.ValidPipelines[p]; !ok {
			return nil, fmt.Errorf("invalid pipeline '%s'. must be logs, classes, contributors", part)
		}
		if !slices.Contains(pipelines, p) {
			pipelines = append(pipelines, p)
		}
	}
	if len(pipelines) == 0 {
		return nil, fmt.Errorf("at least one pipeline is required")
	}
	return pipelines, nil
}

// processCloneSettings handles the workspace and class pipeline parameters.
func processCloneSettings(cfg *Config, input *ConfigRawInput) error {
	cfg.CloneDir = input.CloneDir
	if cfg.CloneDir == "" {
		cfg.CloneDir = filepath.Join(os.TempDir(), "logscan-repos")
	}

	cfg.CloneBackend = schema.CloneBackend(strings.ToLower(input.CloneBackend))
	if cfg.CloneBackend == "" {
		cfg.CloneBackend = schema.GoGitClone
	}
	if _, ok := schema.ValidCloneBackends[cfg.CloneBackend]; !ok {
		return fmt.Errorf("invalid clone backend '%s'. must be go-git, git", input.CloneBackend)
	}

	if input.CloneDepth < 0 {
		return fmt.Errorf("clone-depth cannot be negative (received %d)", input.CloneDepth)
	}
	cfg.CloneDepth = input.CloneDepth

	if input.MinSourceFiles < 0 {
		return fmt.Errorf("min-source-files cannot be negative (received %d)", input.MinSourceFiles)
	}
	cfg.MinSourceFiles = input.MinSourceFiles

	cfg.ClassLanguage = strings.TrimSpace(input.ClassLanguage)
	if cfg.ClassLanguage == "" {
		cfg.ClassLanguage = DefaultClassLanguage
	}
	return nil
}

// processAPISettings handles the remote API endpoint and pacing.
func processAPISettings(cfg *Config, input *ConfigRawInput) error {
	cfg.APIURL = strings.TrimSpace(input.APIURL)
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if !strings.HasPrefix(cfg.APIURL, "http://") && !strings.HasPrefix(cfg.APIURL, "https://") {
		return fmt.Errorf("api-url must be an http(s) URL (received %q)", input.APIURL)
	}
	if !strings.HasSuffix(cfg.APIURL, "/") {
		cfg.APIURL += "/"
	}

	if input.APIRate < 0 {
		return fmt.Errorf("api-rate cannot be negative (received %.2f)", input.APIRate)
	}
	cfg.APIRate = input.APIRate

	cfg.RatePollInterval = DefaultRatePollInterval
	if input.RatePollInterval != "" {
		d, err := time.ParseDuration(input.RatePollInterval)
		if err != nil {
			return fmt.Errorf("invalid rate-poll-interval '%s': %w", input.RatePollInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("rate-poll-interval must be positive (received %s)", d)
		}
		cfg.RatePollInterval = d
	}
	return nil
}
