package dialect

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

func init() {
	Register("sqlite3", &sqlite3Dialect{})
}

// SQLite dialect. There is no server: the database name is the file.
type sqlite3Dialect struct{}

func (d *sqlite3Dialect) Name() string { return "sqlite3" }

func (d *sqlite3Dialect) DefaultPort() int { return 0 }

func (d *sqlite3Dialect) BindType() int { return sqlx.QUESTION }

func (d *sqlite3Dialect) DSN(p Params) string {
	return p.Database
}

func (d *sqlite3Dialect) IsConnectivityError(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrNotADB:
			return true
		}
		return false
	}
	return IsBrokenConn(err)
}
