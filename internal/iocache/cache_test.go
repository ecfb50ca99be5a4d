package iocache

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/logscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryCache(t *testing.T) *CacheStoreImpl {
	t.Helper()
	store, err := newSQLCacheStore(cacheTable, schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		wantErr bool
	}{
		{"plain", "logscan_api_cache", false},
		{"leading underscore", "_cache", false},
		{"empty", "", true},
		{"leading digit", "1cache", true},
		{"injection", "cache; DROP TABLE x", true},
		{"dash", "api-cache", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.table)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`t`", quoteTableName("t", schema.MySQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.PostgreSQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.SQLiteBackend))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"$1", "$2", "$3"}, placeholders(schema.PostgreSQLBackend, 3))
	assert.Equal(t, []string{"?", "?"}, placeholders(schema.MySQLBackend, 2))
	assert.Equal(t, []string{"?"}, placeholders(schema.SQLiteBackend, 1))
}

func TestDriverFor(t *testing.T) {
	for backend, want := range map[schema.DatabaseBackend]string{
		schema.SQLiteBackend:     "sqlite",
		schema.MySQLBackend:      "mysql",
		schema.PostgreSQLBackend: "pgx",
	} {
		got, err := driverFor(backend)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := driverFor(schema.RedisBackend)
	assert.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 5, time.FixedZone("X", 3600))
	assert.Equal(t, "2024-03-01T11:00:00.000000005Z", formatTime(ts, schema.SQLiteBackend))
	assert.Equal(t, ts, formatTime(ts, schema.PostgreSQLBackend))
}

func TestGetCreateTableQuery(t *testing.T) {
	assert.Contains(t, getCreateTableQuery(cacheTable, schema.MySQLBackend), "LONGBLOB")
	assert.Contains(t, getCreateTableQuery(cacheTable, schema.PostgreSQLBackend), "BYTEA")
	assert.Contains(t, getCreateTableQuery(cacheTable, schema.SQLiteBackend), "BLOB")
}

func TestGetUpsertQuery(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		want    string
	}{
		{schema.MySQLBackend, "ON DUPLICATE KEY UPDATE"},
		{schema.PostgreSQLBackend, "ON CONFLICT (cache_key)"},
		{schema.SQLiteBackend, "INSERT OR REPLACE"},
	}
	for _, tt := range tests {
		ps := &CacheStoreImpl{tableName: cacheTable, backend: tt.backend}
		assert.Contains(t, ps.getUpsertQuery(), tt.want)
	}
}

func TestSQLiteCacheOperations(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		store := newMemoryCache(t)
		require.NoError(t, store.Set("contributors:a/b", []byte("[3,2,1]"), 1, 1234567890))

		value, version, ts, err := store.Get("contributors:a/b")
		require.NoError(t, err)
		assert.Equal(t, "[3,2,1]", string(value))
		assert.Equal(t, 1, version)
		assert.Equal(t, int64(1234567890), ts)
	})

	t.Run("upsert", func(t *testing.T) {
		store := newMemoryCache(t)
		require.NoError(t, store.Set("k", []byte("old"), 1, 1000))
		require.NoError(t, store.Set("k", []byte("new"), 2, 2000))

		value, version, ts, err := store.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "new", string(value))
		assert.Equal(t, 2, version)
		assert.Equal(t, int64(2000), ts)
	})

	t.Run("missing key", func(t *testing.T) {
		store := newMemoryCache(t)
		_, _, _, err := store.Get("nope")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("status", func(t *testing.T) {
		store := newMemoryCache(t)
		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.Zero(t, status.TotalEntries)

		require.NoError(t, store.Set("a", []byte("1"), 1, 1000))
		require.NoError(t, store.Set("b", []byte("2"), 1, 3000))
		status, err = store.GetStatus()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", status.Backend)
		assert.Equal(t, 2, status.TotalEntries)
		assert.Equal(t, time.Unix(3000, 0), status.LastEntryTime)
		assert.Equal(t, time.Unix(1000, 0), status.OldestEntryTime)
		assert.Positive(t, status.TableSizeBytes)
	})
}

func TestNewCacheStore(t *testing.T) {
	t.Run("none backend is a no-op", func(t *testing.T) {
		store, err := NewCacheStore(schema.NoneBackend, "")
		require.NoError(t, err)

		assert.NoError(t, store.Set("k", []byte("v"), 1, 1))
		_, _, _, err = store.Get("k")
		assert.ErrorIs(t, err, sql.ErrNoRows)

		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.False(t, status.Connected)
		assert.NoError(t, store.Close())
	})

	t.Run("sqlite file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.db")
		store, err := NewCacheStore(schema.SQLiteBackend, path)
		require.NoError(t, err)
		assert.NoError(t, store.Close())
		assert.FileExists(t, path)
	})

	t.Run("unsupported backend", func(t *testing.T) {
		_, err := NewCacheStore("mongo", "")
		assert.Error(t, err)
	})

	t.Run("bad redis url", func(t *testing.T) {
		_, err := NewCacheStore(schema.RedisBackend, "not-a-url")
		assert.Error(t, err)
	})
}

func TestPrintCacheStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Equal(t, "Cache Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	PrintCacheStatus(&buf, schema.CacheStatus{
		Backend:         "sqlite",
		Connected:       true,
		TotalEntries:    1200,
		LastEntryTime:   time.Now(),
		OldestEntryTime: time.Now().Add(-time.Hour),
		TableSizeBytes:  4096,
	})
	out := buf.String()
	assert.Contains(t, out, "Total Entries: 1,200")
	assert.Contains(t, out, "Table Size: 4.1 kB")
	assert.Equal(t, 6, strings.Count(out, "\n"))
}
