package schema

import "time"

// ScanRunRecord represents a row from the logscan_runs table.
type ScanRunRecord struct {
	RunID        int64
	StartTime    time.Time
	EndTime      *time.Time
	DurationMs   *int32
	Succeeded    int32
	Skipped      int32
	ConfigParams *string
}

// RepoResultRecord represents a row from the logscan_repo_results table.
type RepoResultRecord struct {
	RunID      int64
	RepoID     string
	RepoURL    string
	RecordTime time.Time
	Pipelines  string
	Payload    []byte
}
