package pool

import (
	"context"
	"database/sql"
	"errors"
)

// Handle is the single live driver connection owned by a gpdb connection.
// Rows and statements obtained from it act as cursors and must be closed
// before the handle is.
type Handle interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	Close() error
}

// Opener opens a Handle for a registered database/sql driver.
type Opener func(ctx context.Context, driverName, dsn string) (Handle, error)

// ConnHandle is a Handle backed by a *sql.DB capped at one connection and the
// dedicated *sql.Conn taken from it.
type ConnHandle struct {
	*sql.Conn
	db *sql.DB
}

var _ Opener = Open

// Open connects to the database and verifies the connection with a ping.
// Nothing is left open when it fails.
func Open(ctx context.Context, driverName, dsn string) (Handle, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, err
	}

	return &ConnHandle{Conn: conn, db: db}, nil
}

// Close releases the connection and the underlying *sql.DB.
func (h *ConnHandle) Close() error {
	return errors.Join(h.Conn.Close(), h.db.Close())
}
