package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shrek82/gpdb/core"
)

// Forever caches a result without expiry.
const Forever time.Duration = -1

type cacheTTLKey struct{}

// WithCacheTTL enables result caching for queries run with the returned
// context. A zero ttl disables caching; Forever caches without expiry.
func WithCacheTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheTTLKey{}, ttl)
}

// cacheTTL reports the requested ttl and whether the statement should be
// cached at all. Only queries are cached.
func cacheTTL(ctx context.Context, stmt *core.Statement) (time.Duration, bool) {
	if stmt.Kind != core.KindQuery {
		return 0, false
	}
	ttl, ok := ctx.Value(cacheTTLKey{}).(time.Duration)
	if !ok || ttl == 0 {
		return 0, false
	}
	if ttl < 0 {
		return 0, true
	}
	return ttl, true
}

// cacheKey identifies a query by its target database, text and typed
// arguments, so "1" and 1 do not share an entry.
func cacheKey(stmt *core.Statement) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s\x00%#v", stmt.Source, stmt.SQL, stmt.Args))
	return "gpdb:cache:" + hex.EncodeToString(sum[:])
}

func init() {
	gob.Register(time.Time{})
}

type cachedRow struct {
	Columns []string
	Values  []any
}

func encodeRows(rows []core.Row) ([]byte, error) {
	out := make([]cachedRow, len(rows))
	for i, r := range rows {
		out[i] = cachedRow{Columns: r.Columns(), Values: r.Values()}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRows(data []byte) ([]core.Row, error) {
	var in []cachedRow
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&in); err != nil {
		return nil, err
	}
	rows := make([]core.Row, len(in))
	for i, r := range in {
		rows[i] = core.NewRow(r.Columns, r.Values)
	}
	return rows, nil
}
