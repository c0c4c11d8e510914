package middleware

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shrek82/gpdb/core"
)

// FileCache caches query results in the file system, one file per
// statement. To use it, run the query with a context from WithCacheTTL.
type FileCache struct {
	CacheDir string
	now      func() time.Time
}

// NewFileCache creates the cache directory if needed.
func NewFileCache(cacheDir string) (*FileCache, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{CacheDir: cacheDir, now: time.Now}, nil
}

func (m *FileCache) Name() string {
	return "FileCache"
}

type fileCacheEntry struct {
	Data      []byte
	ExpiresAt time.Time
}

func (m *FileCache) path(stmt *core.Statement) string {
	return filepath.Join(m.CacheDir, strings.TrimPrefix(cacheKey(stmt), "gpdb:cache:")+".gob")
}

func (m *FileCache) Process(ctx context.Context, stmt *core.Statement, next core.Handler) (*core.Result, error) {
	ttl, ok := cacheTTL(ctx, stmt)
	if !ok {
		return next(ctx, stmt)
	}

	filename := m.path(stmt)
	if entry, err := readFileCacheEntry(filename); err == nil {
		if entry.ExpiresAt.IsZero() || m.now().Before(entry.ExpiresAt) {
			if rows, err := decodeRows(entry.Data); err == nil {
				return &core.Result{Rows: rows}, nil
			}
		} else {
			_ = os.Remove(filename)
		}
	}

	res, err := next(ctx, stmt)
	if err != nil {
		return res, err
	}

	if data, err := encodeRows(res.Rows); err == nil {
		entry := fileCacheEntry{Data: data}
		if ttl > 0 {
			entry.ExpiresAt = m.now().Add(ttl)
		}
		_ = writeFileCacheEntry(filename, entry)
	}

	return res, nil
}

func readFileCacheEntry(filename string) (fileCacheEntry, error) {
	var entry fileCacheEntry
	f, err := os.Open(filename)
	if err != nil {
		return entry, err
	}
	defer f.Close()
	err = gob.NewDecoder(f).Decode(&entry)
	return entry, err
}

// writeFileCacheEntry writes through a temp file so readers never see a
// partial entry.
func writeFileCacheEntry(filename string, entry fileCacheEntry) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".entry-*")
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(tmp).Encode(entry); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filename)
}
