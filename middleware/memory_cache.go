package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/shrek82/gpdb/core"
)

// MemoryCache caches query results in memory.
// To use it, run the query with a context from WithCacheTTL.
type MemoryCache struct {
	items     map[string]memoryCacheEntry
	mu        sync.RWMutex
	stopClean chan struct{}
	stopOnce  sync.Once
	now       func() time.Time
}

type memoryCacheEntry struct {
	Data      []byte
	ExpiresAt time.Time
}

// NewMemoryCache creates a MemoryCache. A positive cleanupInterval starts a
// goroutine that drops expired entries until Close is called.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	m := &MemoryCache{
		items:     make(map[string]memoryCacheEntry),
		stopClean: make(chan struct{}),
		now:       time.Now,
	}
	if cleanupInterval > 0 {
		go m.cleanupLoop(cleanupInterval)
	}
	return m
}

func (m *MemoryCache) Name() string {
	return "MemoryCache"
}

func (m *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopClean:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *MemoryCache) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, v := range m.items {
		if !v.ExpiresAt.IsZero() && now.After(v.ExpiresAt) {
			delete(m.items, k)
		}
	}
}

// Len returns the number of cached entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the cleanup goroutine.
func (m *MemoryCache) Close() error {
	m.stopOnce.Do(func() { close(m.stopClean) })
	return nil
}

func (m *MemoryCache) Process(ctx context.Context, stmt *core.Statement, next core.Handler) (*core.Result, error) {
	ttl, ok := cacheTTL(ctx, stmt)
	if !ok {
		return next(ctx, stmt)
	}

	key := cacheKey(stmt)

	m.mu.RLock()
	entry, found := m.items[key]
	m.mu.RUnlock()

	if found {
		if entry.ExpiresAt.IsZero() || m.now().Before(entry.ExpiresAt) {
			if rows, err := decodeRows(entry.Data); err == nil {
				return &core.Result{Rows: rows}, nil
			}
		} else {
			m.mu.Lock()
			delete(m.items, key)
			m.mu.Unlock()
		}
	}

	res, err := next(ctx, stmt)
	if err != nil {
		return res, err
	}

	if data, err := encodeRows(res.Rows); err == nil {
		var expiresAt time.Time
		if ttl > 0 {
			expiresAt = m.now().Add(ttl)
		}
		m.mu.Lock()
		m.items[key] = memoryCacheEntry{Data: data, ExpiresAt: expiresAt}
		m.mu.Unlock()
	}

	return res, nil
}
