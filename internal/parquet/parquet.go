// Package parquet provides data structures and functions for exporting logscan
// results to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/logscan/schema"
	"github.com/parquet-go/parquet-go"
)

// ScanRun represents a single scan run with metadata.
// This struct maps to the logscan_runs database table.
type ScanRun struct {
	// RunID is the unique identifier for this scan run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// DurationMs is the duration of the run in milliseconds (nullable)
	DurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	Succeeded int32 `parquet:"succeeded,snappy"`
	Skipped   int32 `parquet:"skipped,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// RepoResult represents the stored record of one repository in a run.
// This struct maps to the logscan_repo_results database table.
type RepoResult struct {
	RunID      int64     `parquet:"run_id,snappy"`
	RepoID     string    `parquet:"repo_id,snappy"`
	RepoURL    string    `parquet:"repo_url,snappy"`
	RecordTime time.Time `parquet:"record_time,snappy"`
	Pipelines  string    `parquet:"pipelines,snappy"`

	// Payload is the JSON-encoded repository record
	Payload string `parquet:"payload,snappy"`
}

// RepoRecord is the flattened form of a repository record for batch output.
// Sections of pipelines that did not run are null.
type RepoRecord struct {
	RepoID       string  `parquet:"repo_id,snappy"`
	RepoURL      string  `parquet:"repo_url,snappy"`
	MainLang     string  `parquet:"main_lang,snappy"`
	License      string  `parquet:"license_type,snappy"`
	OpenSource   bool    `parquet:"is_open_source"`
	OwnerType    string  `parquet:"owner_type,snappy"`
	Forks        int64   `parquet:"forks,snappy"`
	Stars        int64   `parquet:"stars,snappy"`
	Watchers     int64   `parquet:"watchers,snappy"`
	Contributors int64   `parquet:"contributors,snappy"`
	OtherLangs   float64 `parquet:"other_langs,snappy"`

	// UsedLangs contains the JSON-encoded language shares, in percent like other_langs
	UsedLangs string `parquet:"used_langs,snappy"`

	LogsTotal      *int64   `parquet:"logs_total_amount,optional,snappy"`
	NoLoggerLogs   *int64   `parquet:"no_logger_logs_amount,optional,snappy"`
	DebugUsage     *int64   `parquet:"debug_usage,optional,snappy"`
	InfoUsage      *int64   `parquet:"info_usage,optional,snappy"`
	WarningUsage   *int64   `parquet:"warning_usage,optional,snappy"`
	ErrorUsage     *int64   `parquet:"error_usage,optional,snappy"`
	CriticalUsage  *int64   `parquet:"critical_usage,optional,snappy"`
	LogsDensity    *float64 `parquet:"logs_density,optional,snappy"`
	FilesWithRatio *float64 `parquet:"files_with_logs_ratio,optional,snappy"`

	NumberOfClasses       *int64   `parquet:"number_of_classes,optional,snappy"`
	MeanEffectiveLength   *float64 `parquet:"mean_effective_length,optional,snappy"`
	MedianEffectiveLength *float64 `parquet:"median_effective_length,optional,snappy"`
	MaxEffectiveLength    *int64   `parquet:"max_effective_length,optional,snappy"`

	TotalContributions *int64   `parquet:"total_contributions,optional,snappy"`
	TopContributor     *float64 `parquet:"top_contributor_percent,optional,snappy"`
	Centralized        *bool    `parquet:"centralized,optional"`
}

// WriteRows writes data as a Parquet file to w.
func WriteRows[T any](w io.Writer, data []T) error {
	// The schema is automatically derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// WriteFile writes data as a Parquet file at outputPath.
func WriteFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteRows(file, data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ConvertScanRunRecords converts stored runs for Parquet export.
func ConvertScanRunRecords(records []schema.ScanRunRecord) []ScanRun {
	result := make([]ScanRun, len(records))
	for i, record := range records {
		result[i] = ScanRun{
			RunID:        record.RunID,
			StartTime:    record.StartTime,
			EndTime:      record.EndTime,
			DurationMs:   record.DurationMs,
			Succeeded:    record.Succeeded,
			Skipped:      record.Skipped,
			ConfigParams: record.ConfigParams,
		}
	}
	return result
}

// ConvertRepoResultRecords converts stored repository records for Parquet export.
func ConvertRepoResultRecords(records []schema.RepoResultRecord) []RepoResult {
	result := make([]RepoResult, len(records))
	for i, record := range records {
		result[i] = RepoResult{
			RunID:      record.RunID,
			RepoID:     record.RepoID,
			RepoURL:    record.RepoURL,
			RecordTime: record.RecordTime,
			Pipelines:  record.Pipelines,
			Payload:    string(record.Payload),
		}
	}
	return result
}

// ConvertRepoMetricRecords flattens batch records for Parquet output.
func ConvertRepoMetricRecords(records []schema.RepoMetricRecord) []RepoRecord {
	result := make([]RepoRecord, len(records))
	for i, r := range records {
		langs, _ := json.Marshal(r.UsedLangs)
		row := RepoRecord{
			RepoID:       r.ID(),
			RepoURL:      r.RepoURL,
			MainLang:     r.Metadata.MainLang,
			License:      r.Metadata.License,
			OpenSource:   r.Metadata.OpenSource,
			OwnerType:    r.Metadata.OwnerType,
			Forks:        int64(r.Metadata.Forks),
			Stars:        int64(r.Metadata.Stars),
			Watchers:     int64(r.Metadata.Watchers),
			Contributors: int64(r.Metadata.Contributors),
			OtherLangs:   r.OtherLangs,
			UsedLangs:    string(langs),
		}
		if l := r.Logs; l != nil {
			row.LogsTotal = ptr(int64(l.LogsTotal))
			row.NoLoggerLogs = ptr(int64(l.NoLoggerLogs))
			row.DebugUsage = ptr(int64(l.DebugUsage))
			row.InfoUsage = ptr(int64(l.InfoUsage))
			row.WarningUsage = ptr(int64(l.WarningUsage))
			row.ErrorUsage = ptr(int64(l.ErrorUsage))
			row.CriticalUsage = ptr(int64(l.CriticalUsage))
			row.LogsDensity = ptr(l.LogsDensity)
			row.FilesWithRatio = ptr(l.FilesWithRatio)
		}
		if c := r.Classes; c != nil {
			row.NumberOfClasses = ptr(int64(c.NumberOfClasses))
			row.MeanEffectiveLength = ptr(c.MeanEffectiveLength)
			row.MedianEffectiveLength = ptr(c.MedianEffectiveLength)
			row.MaxEffectiveLength = ptr(int64(c.MaxEffectiveLength))
		}
		if d := r.Contributors; d != nil {
			row.TotalContributions = ptr(int64(d.Total))
			row.TopContributor = ptr(d.TopPercent[0])
			row.Centralized = ptr(d.Centralized)
		}
		result[i] = row
	}
	return result
}

func ptr[T any](v T) *T {
	return &v
}
