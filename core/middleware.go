package core

import (
	"context"
)

// Kind tells middleware what a Statement will do.
type Kind int

const (
	KindQuery Kind = iota
	KindExec
	KindExecMany
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindExec:
		return "exec"
	case KindExecMany:
		return "execmany"
	default:
		return "unknown"
	}
}

// Statement is a bound statement on its way to the driver. SQL is already in
// the driver's placeholder syntax.
type Statement struct {
	Kind Kind
	// Source names the target database as driver://address/database
	Source string
	SQL    string
	// Args holds the parameters of a query or exec statement
	Args []any
	// Batch holds one parameter set per execution of an execmany statement
	Batch [][]any
	// Fields are attached to the statement's SQL log entry
	Fields map[string]any
}

// Result represents the result of a statement execution.
type Result struct {
	Rows         []Row
	RowsAffected int64
	LastInsertID int64
}

// Handler is the function type for the next step in the middleware chain.
type Handler func(ctx context.Context, stmt *Statement) (*Result, error)

// Middleware intercepts statements run by QueryAll, QueryOne and the Exec
// family. Iterate streams rows straight from the driver and bypasses it.
type Middleware interface {
	Name() string
	Process(ctx context.Context, stmt *Statement, next Handler) (*Result, error)
}

// chain wraps h so that the first middleware runs outermost.
func chain(h Handler, mws []Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		m, next := mws[i], h
		h = func(ctx context.Context, stmt *Statement) (*Result, error) {
			return m.Process(ctx, stmt, next)
		}
	}
	return h
}
