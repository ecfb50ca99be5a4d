package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// Pipeline represents one extraction pipeline run per repository.
	Pipeline string

	// Severity represents the verbosity level of a log site.
	Severity string

	// DatabaseBackend represents the database backend for caching and results.
	DatabaseBackend string

	// CloneBackend represents the mechanism used to clone repositories.
	CloneBackend string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All pipelines supported.
const (
	LogsPipeline         Pipeline = "logs" // default
	ClassesPipeline      Pipeline = "classes"
	ContributorsPipeline Pipeline = "contributors"
)

// Severity levels in evaluation order, followed by the unclassified level.
const (
	DebugLevel    Severity = "Debug"
	InfoLevel     Severity = "Info"
	WarningLevel  Severity = "Warning"
	ErrorLevel    Severity = "Error"
	CriticalLevel Severity = "Critical"
	NoLevel       Severity = "No_Level"
)

// All cache and results backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis" // cache only
	NoneBackend       DatabaseBackend = "none"
)

// All clone backends supported.
const (
	GoGitClone CloneBackend = "go-git" // default
	ExecClone  CloneBackend = "git"
)

// NoLicense is recorded when a repository declares no license.
const NoLicense = "NO_LICENSE"

// Placeholder replaces dynamic values inside normalized log templates.
const Placeholder = "{str_format}"

// CentralizedThreshold is the top-1 share above which a repository is centralized.
const CentralizedThreshold = 80.0

// SeverityOrder lists the classified levels in evaluation order.
var SeverityOrder = []Severity{DebugLevel, InfoLevel, WarningLevel, ErrorLevel, CriticalLevel}

// AllPipelines returns a list of all supported pipelines.
var AllPipelines = []Pipeline{LogsPipeline, ClassesPipeline, ContributorsPipeline}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidPipelines lists all valid pipelines.
var ValidPipelines = map[Pipeline]struct{}{
	LogsPipeline:         {},
	ClassesPipeline:      {},
	ContributorsPipeline: {},
}

// ValidCacheBackends lists all valid API cache backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidResultsBackends lists all valid results store backends.
var ValidResultsBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidCloneBackends lists all valid clone backends.
var ValidCloneBackends = map[CloneBackend]struct{}{
	GoGitClone: {},
	ExecClone:  {},
}
