// Package iocache stores API responses between runs and keeps the results of every scan run.
package iocache

import (
	"sync"

	"github.com/huangsam/logscan/internal/contract"
)

// CacheStoreManager manages the API cache and the results store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	cache        contract.CacheStore
	results      contract.ResultsStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// NewCacheStoreManager wraps already opened stores. Either may be nil.
func NewCacheStoreManager(cache contract.CacheStore, results contract.ResultsStore) *CacheStoreManager {
	return &CacheStoreManager{cache: cache, results: results}
}

// GetCacheStore returns the API CacheStore.
func (mgr *CacheStoreManager) GetCacheStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.cache
}

// GetResultsStore returns the ResultsStore.
func (mgr *CacheStoreManager) GetResultsStore() contract.ResultsStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.results
}
