package dialect

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

func init() {
	Register("pgx", &pgx{})
}

// PostgreSQL dialect backed by the pgx database/sql adapter
type pgx struct{}

func (d *pgx) Name() string { return "pgx" }

func (d *pgx) DefaultPort() int { return DefaultPostgresPort }

func (d *pgx) BindType() int { return sqlx.DOLLAR }

func (d *pgx) DSN(p Params) string {
	return keywordDSN(p)
}

func (d *pgx) IsConnectivityError(err error) bool {
	if err == nil || IsContextDone(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isConnectivityState(pgErr.Code)
	}
	// nothing reached the server, typically a failed dial or write
	if pgconn.SafeToRetry(err) {
		return true
	}
	return IsBrokenConn(err)
}
