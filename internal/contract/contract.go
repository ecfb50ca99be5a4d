// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/logscan/schema"
)

// Cloner fetches a remote repository into a local directory.
// This allows the workspace lifecycle to be tested without network access.
type Cloner interface {
	Clone(ctx context.Context, url, dir string) error
}

// CacheManager defines the interface for managing the persistence stores.
// This allows the persistence layer to be mocked for testing.
type CacheManager interface {
	GetCacheStore() CacheStore
	GetResultsStore() ResultsStore
}

// CacheStore defines the interface for API response caching.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// ResultsStore defines the interface for tracking scan runs and storing per-repository records.
type ResultsStore interface {
	// BeginRun creates a new scan run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the scan run with completion data
	EndRun(runID int64, endTime time.Time, succeeded, skipped int) error

	// RecordRepo stores the merged record of one repository
	RecordRepo(runID int64, record schema.RepoMetricRecord) error

	// GetStatus returns status information about the results store
	GetStatus() (schema.ResultsStatus, error)

	// GetAllRuns returns every scan run
	GetAllRuns() ([]schema.ScanRunRecord, error)

	// GetAllRepoResults returns every stored repository record
	GetAllRepoResults() ([]schema.RepoResultRecord, error)

	// Close closes the underlying connection
	Close() error
}
