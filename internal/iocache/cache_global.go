package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/schema"
)

// migrationsTable is where golang-migrate records the applied version.
const migrationsTable = "schema_migrations"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitCaching initializes the global manager with separate cache and results stores.
// An empty backend leaves the matching store unset.
func InitCaching(cacheBackend schema.DatabaseBackend, cacheConnStr string, resultsBackend schema.DatabaseBackend, resultsConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var err error

		var cacheStore contract.CacheStore
		if cacheBackend != "" {
			cacheStore, err = NewCacheStore(cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize API caching: %w", err)
				return
			}
		}

		var resultsStore contract.ResultsStore
		if resultsBackend != "" {
			resultsStore, err = NewResultsStore(resultsBackend, resultsConnStr)
			if err != nil {
				if cacheStore != nil {
					_ = cacheStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize results store: %w", err)
				return
			}
		}

		Manager.Lock()
		Manager.cache = cacheStore
		Manager.results = resultsStore
		Manager.Unlock()
	})

	return initErr
}

// CloseCaching should be called on application shutdown.
func CloseCaching() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.cache != nil {
			_ = Manager.cache.Close()
		}
		if Manager.results != nil {
			_ = Manager.results.Close()
		}
	})
}

// ClearCache clears the API cache of the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For Redis, it deletes every logscan key.
func ClearCache(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			connStr = contract.GetCacheDBFilePath()
		}
		return removeFile(connStr)

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTables(backend, connStr, cacheTable)

	case schema.RedisBackend:
		store, err := NewRedisCacheStore(connStr)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		return store.Clear()

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported cache backend for clearing: %s", backend)
	}
}

// ClearResults clears the results store of the specified backend.
// SQL backends also lose their migration history so the next run starts from scratch.
func ClearResults(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			connStr = contract.GetResultsDBFilePath()
		}
		return removeFile(connStr)

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTables(backend, connStr, repoResultsTable, runsTable, migrationsTable)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported results backend for clearing: %s", backend)
	}
}

func removeFile(path string) error {
	// Remove the file; ignore if it doesn't exist
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove SQLite database file %s: %w", path, err)
	}
	return nil
}

// clearSQLTables connects to the SQL database and drops each table if it exists.
func clearSQLTables(backend schema.DatabaseBackend, connStr string, tables ...string) error {
	driverName, err := driverFor(backend)
	if err != nil {
		return err
	}
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", backend, err)
	}

	for _, table := range tables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
