//go:build database

package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/huangsam/logscan/internal/iocache"
	"github.com/huangsam/logscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startContainer starts req and terminates it when the test ends.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) (host, mapped string) {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err = c.Host(ctx)
	require.NoError(t, err)
	p, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return host, p.Port()
}

func startMySQL(t *testing.T) string {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "logscan",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}, "3306")
	return fmt.Sprintf("root:secret123@tcp(%s:%s)/logscan?parseTime=true", host, port)
}

func startPostgres(t *testing.T) string {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432")
	return fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port)
}

func startRedis(t *testing.T) string {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, "6379")
	return fmt.Sprintf("redis://%s:%s/0", host, port)
}

func sampleRecord(repo string) schema.RepoMetricRecord {
	return schema.RepoMetricRecord{
		RepoURL:  "https://github.com/acme/" + repo,
		Project:  repo,
		Creator:  "acme",
		Metadata: schema.RepoMetadata{MainLang: "Java", License: "MIT", OpenSource: true, Stars: 10},
		Logs:     &schema.LogMetrics{LogsTotal: 3, InfoUsage: 3, AmountOfFiles: 2, AmountOfLines: 30, LogsDensity: 0.1},
	}
}

// exerciseResultsStore runs a full run through the results store of backend and exports it.
func exerciseResultsStore(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	t.Helper()
	require.NoError(t, iocache.ClearResults(backend, connStr))

	store, err := iocache.NewResultsStore(backend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	start := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	runID, err := store.BeginRun(start, map[string]any{"workers": 2})
	require.NoError(t, err)
	require.Positive(t, runID)

	require.NoError(t, store.RecordRepo(runID, sampleRecord("widgets")))
	require.NoError(t, store.RecordRepo(runID, sampleRecord("gadgets")))
	require.NoError(t, store.EndRun(runID, time.Now(), 2, 1))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.TotalRuns)
	assert.Equal(t, 2, status.TotalRepos)
	assert.Equal(t, runID, status.LastRunID)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int32(2), runs[0].Succeeded)
	assert.Equal(t, int32(1), runs[0].Skipped)
	require.NotNil(t, runs[0].EndTime)

	results, err := store.GetAllRepoResults()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "logs", results[0].Pipelines)

	out := filepath.Join(t.TempDir(), "export")
	require.NoError(t, iocache.ExportResults(store, out, &safeBuffer{}))
	assert.FileExists(t, out+".runs.parquet")
	assert.FileExists(t, out+".repo_results.parquet")
}

// exerciseCacheStore checks a set/get round trip and the status of the cache of backend.
func exerciseCacheStore(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	t.Helper()
	require.NoError(t, iocache.ClearCache(backend, connStr))

	store, err := iocache.NewCacheStore(backend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ts := time.Now().Unix()
	require.NoError(t, store.Set("meta:acme/widgets", []byte(`{"stars":10}`), 1, ts))
	require.NoError(t, store.Set("meta:acme/widgets", []byte(`{"stars":11}`), 1, ts+1))

	data, version, got, err := store.Get("meta:acme/widgets")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stars":11}`, string(data))
	assert.Equal(t, 1, version)
	assert.Equal(t, ts+1, got)

	_, _, _, err = store.Get("meta:acme/missing")
	assert.Error(t, err)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.TotalEntries)
}

// exerciseCLI runs the cache and store commands against the given backends.
func exerciseCLI(t *testing.T, env map[string]string, withStore bool) {
	t.Helper()
	for _, args := range [][]string{{"cache", "clear"}, {"cache", "status"}} {
		_, err := runLogscan(t, env, args...)
		require.NoError(t, err, "logscan %v", args)
	}
	if !withStore {
		return
	}
	for _, args := range [][]string{
		{"store", "clear"},
		{"store", "migrate"},
		{"store", "migrate", "--target-version", "1"},
		{"store", "migrate"},
		{"store", "status"},
	} {
		_, err := runLogscan(t, env, args...)
		require.NoError(t, err, "logscan %v", args)
	}
}

// TestLogscanWithMySQL tests the stores and CLI with a MySQL backend.
func TestLogscanWithMySQL(t *testing.T) {
	connStr := startMySQL(t)

	exerciseCacheStore(t, schema.MySQLBackend, connStr)
	exerciseResultsStore(t, schema.MySQLBackend, connStr)
	exerciseCLI(t, map[string]string{
		"LOGSCAN_CACHE_BACKEND":      "mysql",
		"LOGSCAN_CACHE_DB_CONNECT":   connStr,
		"LOGSCAN_RESULTS_BACKEND":    "mysql",
		"LOGSCAN_RESULTS_DB_CONNECT": connStr,
	}, true)
}

// TestLogscanWithPostgres tests the stores and CLI with a PostgreSQL backend.
func TestLogscanWithPostgres(t *testing.T) {
	connStr := startPostgres(t)

	exerciseCacheStore(t, schema.PostgreSQLBackend, connStr)
	exerciseResultsStore(t, schema.PostgreSQLBackend, connStr)
	exerciseCLI(t, map[string]string{
		"LOGSCAN_CACHE_BACKEND":      "postgresql",
		"LOGSCAN_CACHE_DB_CONNECT":   connStr,
		"LOGSCAN_RESULTS_BACKEND":    "postgresql",
		"LOGSCAN_RESULTS_DB_CONNECT": connStr,
	}, true)
}

// TestLogscanWithRedis tests the shared API cache on Redis.
func TestLogscanWithRedis(t *testing.T) {
	connStr := startRedis(t)

	exerciseCacheStore(t, schema.RedisBackend, connStr)
	exerciseCLI(t, map[string]string{
		"LOGSCAN_CACHE_BACKEND":    "redis",
		"LOGSCAN_CACHE_DB_CONNECT": connStr,
	}, false)
}
