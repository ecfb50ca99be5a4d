package iocache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/schema"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces every cache entry inside a shared Redis database.
const redisKeyPrefix = "logscan:cache:"

// DefaultRedisURL is used when the redis backend has no connection string.
const DefaultRedisURL = "redis://localhost:6379/0"

// redisTimeout bounds every Redis round trip.
const redisTimeout = 5 * time.Second

// RedisCacheStore keeps each entry as a hash holding the value, version and timestamp.
type RedisCacheStore struct {
	client *redis.Client
	prefix string
}

var _ contract.CacheStore = &RedisCacheStore{} // Compile-time check

// NewRedisCacheStore connects to the redis:// URL in connStr.
func NewRedisCacheStore(connStr string) (*RedisCacheStore, error) {
	if connStr == "" {
		connStr = DefaultRedisURL
	}
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisCacheStore{client: client, prefix: redisKeyPrefix}, nil
}

// Get retrieves a value by key. A missing key is redis.Nil.
func (rs *RedisCacheStore) Get(key string) ([]byte, int, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	vals, err := rs.client.HMGet(ctx, rs.prefix+key, "value", "version", "ts").Result()
	if err != nil {
		return nil, 0, 0, err
	}
	if len(vals) != 3 || vals[0] == nil || vals[1] == nil || vals[2] == nil {
		return nil, 0, 0, redis.Nil
	}

	value, _ := vals[0].(string)
	version, err := strconv.Atoi(fmt.Sprint(vals[1]))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt cache version for %s: %w", key, err)
	}
	ts, err := strconv.ParseInt(fmt.Sprint(vals[2]), 10, 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt cache timestamp for %s: %w", key, err)
	}
	return []byte(value), version, ts, nil
}

// Set inserts or replaces a key/value pair.
func (rs *RedisCacheStore) Set(key string, value []byte, version int, timestamp int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return rs.client.HSet(ctx, rs.prefix+key, "value", value, "version", version, "ts", timestamp).Err()
}

// GetStatus counts the entries under the prefix and reports their age range.
func (rs *RedisCacheStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{Backend: string(schema.RedisBackend), Connected: true}
	ctx, cancel := context.WithTimeout(context.Background(), 4*redisTimeout)
	defer cancel()

	var oldest, last int64
	err := rs.scan(ctx, func(key string) error {
		status.TotalEntries++
		if size, err := rs.client.MemoryUsage(ctx, key).Result(); err == nil {
			status.TableSizeBytes += size
		}
		ts, err := rs.client.HGet(ctx, key, "ts").Int64()
		if err != nil {
			return nil
		}
		if oldest == 0 || ts < oldest {
			oldest = ts
		}
		last = max(last, ts)
		return nil
	})
	if err != nil {
		return status, fmt.Errorf("failed to scan cache entries: %w", err)
	}
	if status.TotalEntries > 0 {
		status.LastEntryTime = time.Unix(last, 0)
		status.OldestEntryTime = time.Unix(oldest, 0)
	}
	return status, nil
}

// Clear deletes every entry under the prefix.
func (rs *RedisCacheStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 4*redisTimeout)
	defer cancel()
	return rs.scan(ctx, func(key string) error {
		return rs.client.Del(ctx, key).Err()
	})
}

func (rs *RedisCacheStore) scan(ctx context.Context, visit func(key string) error) error {
	iter := rs.client.Scan(ctx, 0, rs.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := visit(iter.Val()); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the client.
func (rs *RedisCacheStore) Close() error {
	return rs.client.Close()
}
