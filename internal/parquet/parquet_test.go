package parquet

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/logscan/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[T](file)
	defer reader.Close()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		columns []string
	}{
		{"runs", new(ScanRun), []string{"run_id", "start_time", "end_time", "run_duration_ms", "succeeded", "skipped", "config_params"}},
		{"repo results", new(RepoResult), []string{"run_id", "repo_id", "repo_url", "record_time", "pipelines", "payload"}},
		{"records", new(RepoRecord), []string{"repo_id", "stars", "used_langs", "logs_total_amount", "number_of_classes", "centralized"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.value)
			for _, col := range tt.columns {
				_, ok := s.Lookup(col)
				assert.True(t, ok, "column %s should exist", col)
			}
		})
	}
}

func TestWriteScanRuns(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	start := time.Now().Add(-time.Hour)
	end := time.Now()
	duration := int32(end.Sub(start).Milliseconds())
	params := `{"pipelines":"logs"}`

	data := ConvertScanRunRecords([]schema.ScanRunRecord{
		{RunID: 1, StartTime: start, EndTime: &end, DurationMs: &duration, Succeeded: 4, Skipped: 1, ConfigParams: &params},
		{RunID: 2, StartTime: start},
	})
	require.NoError(t, WriteFile(data, outputPath))

	rows := readAll[ScanRun](t, outputPath)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(1), rows[0].RunID)
	assert.Equal(t, int32(4), rows[0].Succeeded)
	assert.Equal(t, int32(1), rows[0].Skipped)
	require.NotNil(t, rows[0].EndTime)
	assert.WithinDuration(t, end, *rows[0].EndTime, time.Nanosecond)
	require.NotNil(t, rows[0].ConfigParams)
	assert.Equal(t, params, *rows[0].ConfigParams)

	assert.Nil(t, rows[1].EndTime)
	assert.Nil(t, rows[1].DurationMs)
	assert.Nil(t, rows[1].ConfigParams)
}

func TestWriteRepoResults(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "results.parquet")
	data := ConvertRepoResultRecords([]schema.RepoResultRecord{
		{RunID: 1, RepoID: "a/b", RepoURL: "https://github.com/a/b", RecordTime: time.Now(), Pipelines: "logs", Payload: []byte(`{"x":1}`)},
	})
	require.NoError(t, WriteFile(data, outputPath))

	rows := readAll[RepoResult](t, outputPath)
	require.Len(t, rows, 1)
	assert.Equal(t, "a/b", rows[0].RepoID)
	assert.Equal(t, `{"x":1}`, rows[0].Payload)
}

func TestConvertRepoMetricRecords(t *testing.T) {
	records := []schema.RepoMetricRecord{
		{
			RepoURL:   "https://github.com/a/b",
			Creator:   "a",
			Project:   "b",
			Metadata:  schema.RepoMetadata{Stars: 10, License: "mit"},
			UsedLangs: map[string]float64{"Java": 90},
			Logs:      &schema.LogMetrics{LogsTotal: 7, LogsDensity: 0.5},
		},
		{
			RepoURL:      "https://github.com/c/d",
			Creator:      "c",
			Project:      "d",
			Classes:      &schema.ClassMetrics{NumberOfClasses: 3, MaxEffectiveLength: 20},
			Contributors: &schema.ContributorDistribution{Total: 9, TopPercent: [5]float64{90, 100, 100, 100, 100}, Centralized: true},
		},
	}
	rows := ConvertRepoMetricRecords(records)
	require.Len(t, rows, 2)

	assert.Equal(t, "a/b", rows[0].RepoID)
	assert.Equal(t, int64(10), rows[0].Stars)
	assert.JSONEq(t, `{"Java":90}`, rows[0].UsedLangs)
	require.NotNil(t, rows[0].LogsTotal)
	assert.Equal(t, int64(7), *rows[0].LogsTotal)
	assert.Nil(t, rows[0].NumberOfClasses)
	assert.Nil(t, rows[0].Centralized)

	assert.Nil(t, rows[1].LogsTotal)
	require.NotNil(t, rows[1].NumberOfClasses)
	assert.Equal(t, int64(3), *rows[1].NumberOfClasses)
	require.NotNil(t, rows[1].TopContributor)
	assert.InDelta(t, 90.0, *rows[1].TopContributor, 0.001)
	assert.True(t, *rows[1].Centralized)

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows))
	assert.Positive(t, buf.Len())
}

func TestWriteFileEmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteFile([]ScanRun{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
}

func TestWriteFileInvalidPath(t *testing.T) {
	err := WriteFile([]ScanRun{{RunID: 1}}, "/nonexistent/directory/output.parquet")
	require.Error(t, err)
}
