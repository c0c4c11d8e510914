package core

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Args is the parameter set of a statement: either Positional or Named.
// A nil Args means the statement takes no parameters.
type Args interface {
	bind(query string, bindType int) (string, []any, error)
}

// Positional parameters are passed to the driver unchanged and use its own
// placeholder syntax ($1 for Postgres, ? for MySQL and SQLite).
type Positional []any

// Named parameters use :name placeholders, rewritten into the driver's bind
// style. A literal colon is written as "::", so Postgres casts need the
// CAST(x AS type) form in named statements.
type Named map[string]any

func (p Positional) bind(query string, _ int) (string, []any, error) {
	return query, []any(p), nil
}

func (n Named) bind(query string, bindType int) (string, []any, error) {
	bound, args, err := sqlx.Named(query, map[string]any(n))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidSQL, err)
	}
	return sqlx.Rebind(bindType, bound), args, nil
}

func bindArgs(query string, args Args, bindType int) (string, []any, error) {
	if args == nil {
		return query, nil, nil
	}
	return args.bind(query, bindType)
}
