package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shrek82/gpdb/core"
)

// RedisCache caches query results in Redis.
// To use it, run the query with a context from WithCacheTTL.
type RedisCache struct {
	Client redis.UniversalClient
}

func NewRedisCache(opt *redis.Options) *RedisCache {
	return &RedisCache{
		Client: redis.NewClient(opt),
	}
}

func (m *RedisCache) Name() string {
	return "RedisCache"
}

// Ping checks that the Redis server is reachable.
func (m *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.Client.Ping(ctx).Err()
}

func (m *RedisCache) Close() error {
	return m.Client.Close()
}

func (m *RedisCache) Process(ctx context.Context, stmt *core.Statement, next core.Handler) (*core.Result, error) {
	ttl, ok := cacheTTL(ctx, stmt)
	if !ok {
		return next(ctx, stmt)
	}

	key := cacheKey(stmt)

	// a Redis failure degrades to an uncached query
	data, err := m.Client.Get(ctx, key).Bytes()
	if err == nil {
		if rows, err := decodeRows(data); err == nil {
			return &core.Result{Rows: rows}, nil
		}
	}

	res, err := next(ctx, stmt)
	if err != nil {
		return res, err
	}

	if data, err := encodeRows(res.Rows); err == nil {
		// go-redis treats a zero expiration as no expiry
		m.Client.Set(ctx, key, data, ttl)
	}

	return res, nil
}
