package iocache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/logscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &CacheStoreManager{}
	t.Cleanup(CloseCaching)
}

func TestInitCaching(t *testing.T) {
	t.Run("sqlite cache and results", func(t *testing.T) {
		resetGlobals(t)
		dir := t.TempDir()
		cachePath := filepath.Join(dir, "cache.db")
		resultsPath := filepath.Join(dir, "results.db")

		require.NoError(t, InitCaching(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, resultsPath))
		assert.NotNil(t, Manager.GetCacheStore())
		assert.NotNil(t, Manager.GetResultsStore())
		assert.FileExists(t, cachePath)
		assert.FileExists(t, resultsPath)
	})

	t.Run("empty backends leave stores unset", func(t *testing.T) {
		resetGlobals(t)
		require.NoError(t, InitCaching("", "", "", ""))
		assert.Nil(t, Manager.GetCacheStore())
		assert.Nil(t, Manager.GetResultsStore())
	})

	t.Run("repeated calls are safe", func(t *testing.T) {
		resetGlobals(t)
		for range 3 {
			assert.NoError(t, InitCaching(schema.NoneBackend, "", schema.NoneBackend, ""))
		}
		CloseCaching()
		CloseCaching()
	})

	t.Run("results failure reports an error", func(t *testing.T) {
		resetGlobals(t)
		err := InitCaching(schema.NoneBackend, "", "mongo", "")
		assert.ErrorContains(t, err, "results store")
		assert.Nil(t, Manager.GetCacheStore())
	})
}

func TestCacheStoreManagerConcurrency(t *testing.T) {
	cache := &MockCacheStore{}
	results := &MockResultsStore{}
	mgr := NewCacheStoreManager(cache, results)

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			assert.Same(t, cache, mgr.GetCacheStore())
			assert.Same(t, results, mgr.GetResultsStore())
		})
	}
	wg.Wait()
}

func TestClearCache(t *testing.T) {
	t.Run("sqlite removes the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.db")
		store, err := NewCacheStore(schema.SQLiteBackend, path)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		require.NoError(t, ClearCache(schema.SQLiteBackend, path))
		assert.NoFileExists(t, path)
		assert.NoError(t, ClearCache(schema.SQLiteBackend, path), "missing file is not an error")
	})

	t.Run("none", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.NoneBackend, ""))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, ClearCache("mongo", ""))
	})
}

func TestClearResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	store, err := NewResultsStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, ClearResults(schema.SQLiteBackend, path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ClearResults(schema.NoneBackend, ""))
	assert.Error(t, ClearResults(schema.RedisBackend, "redis://localhost:6379/0"))
}

func TestExportResults(t *testing.T) {
	t.Run("requires an output file", func(t *testing.T) {
		err := ExportResults(&MockResultsStore{}, "", &bytes.Buffer{})
		assert.Error(t, err)
	})

	t.Run("nothing to export", func(t *testing.T) {
		store := &MockResultsStore{}
		store.On("GetStatus").Return(schema.ResultsStatus{}, nil)
		err := ExportResults(store, filepath.Join(t.TempDir(), "out"), &bytes.Buffer{})
		assert.ErrorIs(t, err, ErrNothingToExport)
	})

	t.Run("status failure", func(t *testing.T) {
		store := &MockResultsStore{}
		store.On("GetStatus").Return(schema.ResultsStatus{}, errors.New("boom"))
		err := ExportResults(store, filepath.Join(t.TempDir(), "out"), &bytes.Buffer{})
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("writes both files", func(t *testing.T) {
		store := &MockResultsStore{}
		store.On("GetStatus").Return(schema.ResultsStatus{Backend: "sqlite", TotalRuns: 1, TotalRepos: 1}, nil)
		store.On("GetAllRuns").Return([]schema.ScanRunRecord{{RunID: 1, StartTime: time.Now()}}, nil)
		store.On("GetAllRepoResults").Return([]schema.RepoResultRecord{
			{RunID: 1, RepoID: "a/b", RecordTime: time.Now(), Payload: []byte("{}")},
		}, nil)

		out := filepath.Join(t.TempDir(), "export")
		var buf bytes.Buffer
		require.NoError(t, ExportResults(store, out, &buf))

		assert.FileExists(t, out+".runs.parquet")
		assert.FileExists(t, out+".repo_results.parquet")
		assert.Contains(t, buf.String(), "Exported 1 scan runs")
		store.AssertExpectations(t)
	})

	t.Run("from a real store", func(t *testing.T) {
		store, _ := newSQLiteResults(t)
		runID, err := store.BeginRun(time.Now(), nil)
		require.NoError(t, err)
		require.NoError(t, store.RecordRepo(runID, sampleRecord("a", "b")))
		require.NoError(t, store.EndRun(runID, time.Now(), 1, 0))

		out := filepath.Join(t.TempDir(), "export")
		require.NoError(t, ExportResults(store, out, &bytes.Buffer{}))
		assert.FileExists(t, out+".repo_results.parquet")
	})
}

func TestMockCacheManager(t *testing.T) {
	mgr := &MockCacheManager{}
	mgr.On("GetCacheStore").Return(nil)
	mgr.On("GetResultsStore").Return(&MockResultsStore{})

	assert.Nil(t, mgr.GetCacheStore())
	assert.NotNil(t, mgr.GetResultsStore())

	store := &MockCacheStore{}
	store.On("Get", "k").Return(nil, 0, int64(0), errors.New("miss"))
	_, _, _, err := store.Get("k")
	assert.Error(t, err)
	mock.AssertExpectationsForObjects(t, mgr, store)
}
