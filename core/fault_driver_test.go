package core

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/shrek82/gpdb/dialect"
)

// faultDriverName is a sqlite3 wrapper that counts opens and fails on demand.
const faultDriverName = "gpdbfault"

var errServerGone = errors.New("server closed the connection unexpectedly")

func init() {
	sql.Register(faultDriverName, &faultDriver{})
	dialect.Register(faultDriverName, faultDialect{})
}

type faultState struct {
	mu      sync.Mutex
	opens   int
	openErr error
	nextErr error
	// rowsErr ends the next result set after rowsAfter rows
	rowsErr   error
	rowsAfter int
}

func (s *faultState) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func (s *faultState) FailOpen(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

// FailNext makes the next statement sent on any connection return err.
func (s *faultState) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextErr = err
}

// FailRowsAfter makes the next result set fail with err once n rows have
// been read.
func (s *faultState) FailRowsAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowsAfter, s.rowsErr = n, err
}

func (s *faultState) takeRows() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.rowsAfter, s.rowsErr
	s.rowsAfter, s.rowsErr = 0, nil
	return n, err
}

func (s *faultState) take() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.nextErr
	s.nextErr = nil
	return err
}

var faults = struct {
	sync.Mutex
	byDSN map[string]*faultState
}{byDSN: make(map[string]*faultState)}

func faultsFor(dsn string) *faultState {
	faults.Lock()
	defer faults.Unlock()
	s, ok := faults.byDSN[dsn]
	if !ok {
		s = &faultState{}
		faults.byDSN[dsn] = s
	}
	return s
}

type faultDriver struct{}

func (d *faultDriver) Open(dsn string) (driver.Conn, error) {
	state := faultsFor(dsn)
	state.mu.Lock()
	openErr := state.openErr
	if openErr == nil {
		state.opens++
	}
	state.mu.Unlock()
	if openErr != nil {
		return nil, openErr
	}

	base, err := (&sqlite3.SQLiteDriver{}).Open(dsn)
	if err != nil {
		return nil, err
	}
	return &faultConn{state: state, base: base}, nil
}

type faultConn struct {
	state *faultState
	base  driver.Conn
}

func (c *faultConn) Prepare(query string) (driver.Stmt, error) {
	if err := c.state.take(); err != nil {
		return nil, err
	}
	return c.base.Prepare(query)
}

func (c *faultConn) Close() error {
	return c.base.Close()
}

func (c *faultConn) Begin() (driver.Tx, error) {
	return c.base.Begin()
}

func (c *faultConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := c.state.take(); err != nil {
		return nil, err
	}
	return c.base.(driver.ExecerContext).ExecContext(ctx, query, args)
}

func (c *faultConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := c.state.take(); err != nil {
		return nil, err
	}
	rows, err := c.base.(driver.QueryerContext).QueryContext(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if n, rowsErr := c.state.takeRows(); rowsErr != nil {
		return &faultRows{Rows: rows, left: n, err: rowsErr}, nil
	}
	return rows, nil
}

type faultRows struct {
	driver.Rows
	left int
	err  error
}

func (r *faultRows) Next(dest []driver.Value) error {
	if r.left == 0 {
		return r.err
	}
	r.left--
	return r.Rows.Next(dest)
}

// faultDialect treats errServerGone as a lost connection.
type faultDialect struct{}

func (faultDialect) Name() string { return faultDriverName }

func (faultDialect) DefaultPort() int { return dialect.DefaultPostgresPort }

func (faultDialect) BindType() int { return sqlx.QUESTION }

func (faultDialect) DSN(p dialect.Params) string { return p.Database }

func (faultDialect) IsConnectivityError(err error) bool {
	return errors.Is(err, errServerGone) || dialect.IsBrokenConn(err)
}
