package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/schema"
)

// Table names for run tracking.
const (
	runsTable        = "logscan_runs"
	repoResultsTable = "logscan_repo_results"
)

// ResultsStoreImpl implements the ResultsStore interface.
type ResultsStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.ResultsStore = &ResultsStoreImpl{} // Compile-time check

// NewResultsStore creates a new ResultsStore with the specified backend.
// The schema is brought to the latest migration before the store is returned.
func NewResultsStore(backend schema.DatabaseBackend, connStr string) (contract.ResultsStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &ResultsStoreImpl{backend: backend}, nil
	}
	if _, ok := schema.ValidResultsBackends[backend]; !ok {
		return nil, fmt.Errorf("unsupported results backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	if _, err := MigrateResults(backend, connStr, -1); err != nil {
		return nil, fmt.Errorf("failed to prepare results tables: %w", err)
	}

	db, err := openResultsDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	return &ResultsStoreImpl{db: db, backend: backend}, nil
}

func (rs *ResultsStoreImpl) disabled() bool {
	return rs.backend == schema.NoneBackend || rs.db == nil
}

// BeginRun creates a new scan run and returns its unique ID.
func (rs *ResultsStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if rs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(runsTable, rs.backend)

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, quotedTableName)
		err = rs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, quotedTableName)
		var result sql.Result
		result, err = rs.db.Exec(query, formatTime(startTime, rs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan run: %w", err)
	}
	return runID, nil
}

// EndRun updates the scan run with completion data.
func (rs *ResultsStoreImpl) EndRun(runID int64, endTime time.Time, succeeded, skipped int) error {
	if rs.disabled() {
		return nil
	}

	quotedTableName := quoteTableName(runsTable, rs.backend)
	p := placeholders(rs.backend, 5)

	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quotedTableName, p[0])
	startTime, err := rs.scanTime(rs.db.QueryRow(query, runID))
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, succeeded = %s, skipped = %s WHERE run_id = %s`,
		quotedTableName, p[0], p[1], p[2], p[3], p[4])
	if _, err := rs.db.Exec(update, formatTime(endTime, rs.backend), durationMs, succeeded, skipped, runID); err != nil {
		return fmt.Errorf("failed to update scan run: %w", err)
	}
	return nil
}

// RecordRepo stores the merged record of one repository under runID.
func (rs *ResultsStoreImpl) RecordRepo(runID int64, record schema.RepoMetricRecord) error {
	if rs.disabled() {
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record of %s: %w", record.ID(), err)
	}

	p := placeholders(rs.backend, 6)
	query := fmt.Sprintf(`INSERT INTO %s (run_id, repo_id, repo_url, record_time, pipelines, payload) VALUES (%s)`,
		quoteTableName(repoResultsTable, rs.backend), strings.Join(p, ", "))
	_, err = rs.db.Exec(query, runID, record.ID(), record.RepoURL, formatTime(time.Now(), rs.backend), pipelinesOf(record), payload)
	if err != nil {
		return fmt.Errorf("failed to insert record of %s: %w", record.ID(), err)
	}
	return nil
}

// pipelinesOf lists the pipelines that contributed a section to record.
func pipelinesOf(record schema.RepoMetricRecord) string {
	var out []string
	if record.Logs != nil {
		out = append(out, string(schema.LogsPipeline))
	}
	if record.Classes != nil {
		out = append(out, string(schema.ClassesPipeline))
	}
	if record.Contributors != nil {
		out = append(out, string(schema.ContributorsPipeline))
	}
	return strings.Join(out, ",")
}

// Close closes the underlying connection.
func (rs *ResultsStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the results store.
func (rs *ResultsStoreImpl) GetStatus() (schema.ResultsStatus, error) {
	status := schema.ResultsStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.disabled() {
		return status, nil
	}

	runs := quoteTableName(runsTable, rs.backend)
	if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		row := rs.db.QueryRow(fmt.Sprintf("SELECT run_id FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastRunID); err != nil {
			return status, fmt.Errorf("failed to get last run id: %w", err)
		}
		last, err := rs.scanTime(rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs)))
		if err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		status.LastRunTime = last
		oldest, err := rs.scanTime(rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs)))
		if err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = oldest
	}

	for _, table := range []string{runsTable, repoResultsTable} {
		var count int64
		if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalRepos = int(status.TableSizes[repoResultsTable])
	return status, nil
}

// GetAllRuns retrieves all scan runs from the store.
func (rs *ResultsStoreImpl) GetAllRuns() ([]schema.ScanRunRecord, error) {
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, start_time, end_time, run_duration_ms, succeeded, skipped, config_params FROM %s ORDER BY run_id",
		quoteTableName(runsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ScanRunRecord
	for rows.Next() {
		var record schema.ScanRunRecord
		switch rs.backend {
		case schema.SQLiteBackend:
			var startTimeStr string
			var endTimeStr *string
			if err := rows.Scan(&record.RunID, &startTimeStr, &endTimeStr, &record.DurationMs, &record.Succeeded, &record.Skipped, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
			if record.StartTime, err = time.Parse(time.RFC3339Nano, startTimeStr); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if endTimeStr != nil {
				endTime, err := time.Parse(time.RFC3339Nano, *endTimeStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse end_time: %w", err)
				}
				record.EndTime = &endTime
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.StartTime, &record.EndTime, &record.DurationMs, &record.Succeeded, &record.Skipped, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan runs: %w", err)
	}
	return results, nil
}

// GetAllRepoResults retrieves every stored repository record.
func (rs *ResultsStoreImpl) GetAllRepoResults() ([]schema.RepoResultRecord, error) {
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, repo_id, repo_url, record_time, pipelines, payload FROM %s ORDER BY run_id, repo_id",
		quoteTableName(repoResultsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query repo results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RepoResultRecord
	for rows.Next() {
		var record schema.RepoResultRecord
		switch rs.backend {
		case schema.SQLiteBackend:
			var recordTimeStr string
			if err := rows.Scan(&record.RunID, &record.RepoID, &record.RepoURL, &recordTimeStr, &record.Pipelines, &record.Payload); err != nil {
				return nil, fmt.Errorf("failed to scan repo result: %w", err)
			}
			if record.RecordTime, err = time.Parse(time.RFC3339Nano, recordTimeStr); err != nil {
				return nil, fmt.Errorf("failed to parse record_time: %w", err)
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.RepoID, &record.RepoURL, &record.RecordTime, &record.Pipelines, &record.Payload); err != nil {
				return nil, fmt.Errorf("failed to scan repo result: %w", err)
			}
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repo results: %w", err)
	}
	return results, nil
}

// scanTime reads a single timestamp column in the storage format of the backend.
func (rs *ResultsStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	if rs.backend != schema.SQLiteBackend {
		var t time.Time
		err := row.Scan(&t)
		return t, err
	}
	var s string
	if err := row.Scan(&s); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}
