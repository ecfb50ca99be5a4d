package core

import (
	"encoding/json"
	"time"

	"github.com/huangsam/logscan/internal/contract"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// Cache key prefixes.
const (
	contributorsKeyPrefix = "contributors:"
	metadataKeyPrefix     = "metadata:"
)

// cached returns the value stored under key when it is fresh, otherwise computes and stores it.
// A nil store disables caching.
func cached[T any](store contract.CacheStore, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	if store == nil {
		return compute()
	}

	// Check for cache hit
	if result, ok := checkCacheHit[T](store, key, ttl); ok {
		return result, nil
	}

	// Cache miss: compute and store
	return computeAndStore(store, key, compute)
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit[T any](store contract.CacheStore, key string, ttl time.Duration) (T, bool) {
	var result T
	data, version, ts, err := store.Get(key)
	if err != nil {
		return result, false // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > ttl {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

// computeAndStore computes the result and stores it in cache
func computeAndStore[T any](store contract.CacheStore, key string, compute func() (T, error)) (T, error) {
	result, err := compute()
	if err != nil {
		return result, err
	}

	// Store in cache
	if data, err := json.Marshal(result); err == nil {
		_ = store.Set(key, data, currentCacheVersion, time.Now().Unix())
	}

	return result, nil
}
