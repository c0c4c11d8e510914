package middleware

import (
	"context"

	"github.com/shrek82/gpdb/core"
)

// TraceKey is a context key whose value Tracing copies onto statements.
type TraceKey string

const (
	RequestIDKey TraceKey = "request_id"
	TraceIDKey   TraceKey = "trace_id"
	UserIPKey    TraceKey = "user_ip"
)

// Tracing attaches request identifiers found in the context to the
// statement, so they show up as fields on its SQL log entry.
type Tracing struct {
	Keys []TraceKey
}

// NewTracing traces the given keys, or the request, trace and user IP keys
// when none are given.
func NewTracing(keys ...TraceKey) *Tracing {
	if len(keys) == 0 {
		keys = []TraceKey{RequestIDKey, TraceIDKey, UserIPKey}
	}
	return &Tracing{Keys: keys}
}

func (m *Tracing) Name() string {
	return "Tracing"
}

func (m *Tracing) Process(ctx context.Context, stmt *core.Statement, next core.Handler) (*core.Result, error) {
	for _, key := range m.Keys {
		v := ctx.Value(key)
		if v == nil {
			continue
		}
		if stmt.Fields == nil {
			stmt.Fields = make(map[string]any)
		}
		stmt.Fields[string(key)] = v
	}
	return next(ctx, stmt)
}
