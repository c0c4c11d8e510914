package core

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/shrek82/gpdb/dialect"
	"github.com/shrek82/gpdb/logger"
	"github.com/shrek82/gpdb/pool"
)

// DefaultDriver is the dialect used when Options.Driver is empty.
const DefaultDriver = "postgres"

// Options configures a Connection.
type Options struct {
	// Driver names a registered dialect: postgres, pgx, mysql or sqlite3
	Driver   string
	User     string
	Password string
	Logger   logger.Logger
	// FailFast makes NewConnection return the initial connect error instead
	// of logging it and leaving the connection closed
	FailFast bool
	// Opener replaces pool.Open
	Opener pool.Opener
}

// Connection is one logical database session over a single driver handle.
// The handle is reopened on demand after it has been closed, either by the
// caller or because the driver reported a lost connection.
//
// A Connection is not safe for concurrent use.
type Connection struct {
	host        string
	database    string
	params      dialect.Params
	dialect     dialect.Dialect
	dsn         string
	source      string
	open        pool.Opener
	logger      logger.Logger
	handle      pool.Handle
	lastUse     time.Time
	middlewares []Middleware
}

// NewConnection parses host, builds the driver parameters and opens the
// handle. A failed initial connect is logged and the Connection is returned
// closed; the next statement retries it. Errors are returned for an unknown
// driver, a malformed host, or a failed connect when opts.FailFast is set.
func NewConnection(host, database string, opts *Options) (*Connection, error) {
	if opts == nil {
		opts = &Options{}
	}

	driverName := opts.Driver
	if driverName == "" {
		driverName = DefaultDriver
	}
	d, ok := dialect.Get(driverName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driverName)
	}

	params, err := ParseAddress(host, d.DefaultPort())
	if err != nil {
		return nil, err
	}
	params.Database = database
	params.User = opts.User
	params.Password = opts.Password

	l := opts.Logger
	if l == nil {
		l = logger.NewStdLogger()
	}
	open := opts.Opener
	if open == nil {
		open = pool.Open
	}

	c := &Connection{
		host:     host,
		database: database,
		params:   params,
		dialect:  d,
		dsn:      d.DSN(params),
		source:   d.Name() + "://" + params.Address() + "/" + database,
		open:     open,
		logger:   l.WithFields(map[string]any{"host": host, "database": database}),
		lastUse:  time.Now(),
	}

	if err := c.Reconnect(context.Background()); err != nil {
		if opts.FailFast {
			return nil, err
		}
		c.logger.Error("cannot connect to %s on %s: %v", d.Name(), host, err)
	}
	return c, nil
}

// SetLogger sets a custom logger for the connection.
func (c *Connection) SetLogger(l logger.Logger) {
	c.logger = l.WithFields(map[string]any{"host": c.host, "database": c.database})
}

// Use appends middleware to the statement chain.
func (c *Connection) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

func (c *Connection) Host() string { return c.host }

func (c *Connection) Database() string { return c.database }

// Params returns the parsed connection parameters.
func (c *Connection) Params() dialect.Params { return c.params }

// Dialect returns the dialect the connection was built with.
func (c *Connection) Dialect() dialect.Dialect { return c.dialect }

// Connected reports whether a driver handle is currently open.
func (c *Connection) Connected() bool { return c.handle != nil }

// LastUsed is the time the handle was last handed out to a statement.
func (c *Connection) LastUsed() time.Time { return c.lastUse }

// Close releases the driver handle. It is safe to call on a closed or
// never-opened connection.
func (c *Connection) Close() error {
	if c.handle == nil {
		return nil
	}
	err := c.handle.Close()
	c.handle = nil
	return err
}

// Reconnect closes the existing handle and opens a new one.
func (c *Connection) Reconnect(ctx context.Context) error {
	if err := c.Close(); err != nil {
		c.logger.Warn("closing previous handle: %v", err)
	}

	h, err := c.open(ctx, c.dialect.Name(), c.dsn)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.host, err)
	}
	c.handle = h
	c.logger.Info("connected to %s", c.params.Address())
	return nil
}

// ensureConnected reopens a closed handle. There is no idle expiry: only a
// nil handle triggers a reconnect.
func (c *Connection) ensureConnected(ctx context.Context) error {
	if c.handle == nil {
		if err := c.Reconnect(ctx); err != nil {
			return err
		}
	}
	c.lastUse = time.Now()
	return nil
}

// fail closes the handle when err means the connection is gone, so the next
// statement reconnects. Other errors are returned untouched.
func (c *Connection) fail(err error) error {
	if !c.dialect.IsConnectivityError(err) {
		return err
	}
	c.logger.Error("error connecting to %s on %s: %v", c.dialect.Name(), c.host, err)
	if cerr := c.Close(); cerr != nil {
		c.logger.Warn("closing broken handle: %v", cerr)
	}
	return fmt.Errorf("%w: %w", ErrOperational, err)
}

func (c *Connection) logSQL(stmt *Statement, duration time.Duration, args ...any) {
	if c.logger == nil {
		return
	}
	l := c.logger
	if len(stmt.Fields) > 0 {
		l = l.WithFields(stmt.Fields)
	}
	l.SQL(stmt.SQL, duration, args...)
}

func (c *Connection) statement(kind Kind, query string, args Args) (*Statement, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidSQL
	}
	sqlStr, bound, err := bindArgs(query, args, c.dialect.BindType())
	if err != nil {
		return nil, err
	}
	return &Statement{Kind: kind, Source: c.source, SQL: sqlStr, Args: bound}, nil
}

func (c *Connection) batchStatement(query string, batch []Args) (*Statement, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidSQL
	}
	stmt := &Statement{Kind: KindExecMany, Source: c.source, SQL: query, Batch: make([][]any, 0, len(batch))}
	for i, args := range batch {
		sqlStr, bound, err := bindArgs(query, args, c.dialect.BindType())
		if err != nil {
			return nil, fmt.Errorf("parameter set %d: %w", i, err)
		}
		if i == 0 {
			stmt.SQL = sqlStr
		} else if sqlStr != stmt.SQL {
			return nil, fmt.Errorf("%w: parameter set %d binds to a different statement", ErrInvalidSQL, i)
		}
		stmt.Batch = append(stmt.Batch, bound)
	}
	return stmt, nil
}

func (c *Connection) dispatch(ctx context.Context, stmt *Statement) (*Result, error) {
	return chain(c.run, c.middlewares)(ctx, stmt)
}

// run is the end of the middleware chain.
func (c *Connection) run(ctx context.Context, stmt *Statement) (*Result, error) {
	switch stmt.Kind {
	case KindQuery:
		rows := make([]Row, 0)
		var err error
		c.stream(ctx, stmt, func(r Row, e error) bool {
			if e != nil {
				err = e
				return false
			}
			rows = append(rows, r)
			return true
		})
		if err != nil {
			return nil, err
		}
		return &Result{Rows: rows}, nil
	case KindExec:
		return c.exec(ctx, stmt)
	case KindExecMany:
		return c.execMany(ctx, stmt)
	}
	return nil, fmt.Errorf("%w: unknown statement kind %d", ErrInvalidSQL, stmt.Kind)
}

// stream runs a query and yields its rows. The rows cursor is closed before
// any error is yielded, so fail never closes the handle under an open cursor.
func (c *Connection) stream(ctx context.Context, stmt *Statement, yield func(Row, error) bool) {
	if err := c.ensureConnected(ctx); err != nil {
		yield(Row{}, err)
		return
	}

	start := time.Now()
	rows, err := c.handle.QueryContext(ctx, stmt.SQL, stmt.Args...)
	c.logSQL(stmt, time.Since(start), stmt.Args...)
	if err != nil {
		yield(Row{}, c.fail(err))
		return
	}

	if err := scanRows(rows, yield); err != nil {
		yield(Row{}, c.fail(err))
	}
}

// scanRows yields rows until the cursor is exhausted or yield asks to stop,
// and always closes the cursor.
func scanRows(rows *sql.Rows, yield func(Row, error) bool) error {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		if !yield(NewRow(columns, values), nil) {
			return nil
		}
	}
	return rows.Err()
}

func (c *Connection) exec(ctx context.Context, stmt *Statement) (*Result, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.handle.ExecContext(ctx, stmt.SQL, stmt.Args...)
	c.logSQL(stmt, time.Since(start), stmt.Args...)
	if err != nil {
		return nil, c.fail(err)
	}

	out := &Result{}
	collect(out, res)
	return out, nil
}

func (c *Connection) execMany(ctx context.Context, stmt *Statement) (*Result, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	out := &Result{}
	if len(stmt.Batch) == 0 {
		return out, nil
	}

	start := time.Now()
	err := c.execBatch(ctx, stmt, out)
	c.logSQL(stmt, time.Since(start), stmt.Batch)
	if err != nil {
		return nil, c.fail(err)
	}
	return out, nil
}

// execBatch runs every parameter set through one prepared statement, which
// is closed before returning.
func (c *Connection) execBatch(ctx context.Context, stmt *Statement, out *Result) error {
	ps, err := c.handle.PrepareContext(ctx, stmt.SQL)
	if err != nil {
		return err
	}
	defer ps.Close()

	for _, args := range stmt.Batch {
		res, err := ps.ExecContext(ctx, args...)
		if err != nil {
			return err
		}
		collect(out, res)
	}
	return nil
}

// collect adds the affected-row count and records the last insert id.
// Drivers that do not report a value leave it at zero.
func collect(out *Result, res sql.Result) {
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected += n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
}

// Iterate returns a lazy, single-pass sequence of the query's rows. The
// query runs when the sequence is first ranged over and its cursor stays
// open until the loop ends or breaks. Errors are yielded with a zero Row
// and end the sequence.
func (c *Connection) Iterate(ctx context.Context, query string, args Args) iter.Seq2[Row, error] {
	consumed := false
	return func(yield func(Row, error) bool) {
		if consumed {
			yield(Row{}, ErrIteratorConsumed)
			return
		}
		consumed = true

		stmt, err := c.statement(KindQuery, query, args)
		if err != nil {
			yield(Row{}, err)
			return
		}
		c.stream(ctx, stmt, yield)
	}
}

// QueryAll returns every row of the query.
func (c *Connection) QueryAll(ctx context.Context, query string, args Args) ([]Row, error) {
	stmt, err := c.statement(KindQuery, query, args)
	if err != nil {
		return nil, err
	}
	res, err := c.dispatch(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// QueryOne returns the single row of the query. ok is false when there are
// no rows; more than one row is ErrMultipleRows.
func (c *Connection) QueryOne(ctx context.Context, query string, args Args) (row Row, ok bool, err error) {
	rows, err := c.QueryAll(ctx, query, args)
	if err != nil {
		return Row{}, false, err
	}
	switch len(rows) {
	case 0:
		return Row{}, false, nil
	case 1:
		return rows[0], true, nil
	}
	return Row{}, false, fmt.Errorf("%w: got %d", ErrMultipleRows, len(rows))
}

func (c *Connection) execute(ctx context.Context, query string, args Args) (*Result, error) {
	stmt, err := c.statement(KindExec, query, args)
	if err != nil {
		return nil, err
	}
	return c.dispatch(ctx, stmt)
}

func (c *Connection) executeMany(ctx context.Context, query string, batch []Args) (*Result, error) {
	stmt, err := c.batchStatement(query, batch)
	if err != nil {
		return nil, err
	}
	return c.dispatch(ctx, stmt)
}

// ExecLastID executes the statement and returns the last insert id reported
// by the driver. lib/pq and pgx do not report one and yield 0; use
// INSERT ... RETURNING with QueryOne there.
func (c *Connection) ExecLastID(ctx context.Context, query string, args Args) (int64, error) {
	res, err := c.execute(ctx, query, args)
	if err != nil {
		return 0, err
	}
	return res.LastInsertID, nil
}

// ExecRowCount executes the statement and returns the number of affected rows.
func (c *Connection) ExecRowCount(ctx context.Context, query string, args Args) (int64, error) {
	res, err := c.execute(ctx, query, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// ExecManyLastID executes the statement once per parameter set and returns
// the last insert id of the final execution.
func (c *Connection) ExecManyLastID(ctx context.Context, query string, batch []Args) (int64, error) {
	res, err := c.executeMany(ctx, query, batch)
	if err != nil {
		return 0, err
	}
	return res.LastInsertID, nil
}

// ExecManyRowCount executes the statement once per parameter set and returns
// the total number of affected rows.
func (c *Connection) ExecManyRowCount(ctx context.Context, query string, batch []Args) (int64, error) {
	res, err := c.executeMany(ctx, query, batch)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Execute is ExecLastID.
func (c *Connection) Execute(ctx context.Context, query string, args Args) (int64, error) {
	return c.ExecLastID(ctx, query, args)
}

// ExecuteMany is ExecManyLastID.
func (c *Connection) ExecuteMany(ctx context.Context, query string, batch []Args) (int64, error) {
	return c.ExecManyLastID(ctx, query, batch)
}

// Insert is ExecLastID.
func (c *Connection) Insert(ctx context.Context, query string, args Args) (int64, error) {
	return c.ExecLastID(ctx, query, args)
}

// InsertMany is ExecManyLastID.
func (c *Connection) InsertMany(ctx context.Context, query string, batch []Args) (int64, error) {
	return c.ExecManyLastID(ctx, query, batch)
}

// Update is ExecRowCount.
func (c *Connection) Update(ctx context.Context, query string, args Args) (int64, error) {
	return c.ExecRowCount(ctx, query, args)
}

// UpdateMany is ExecManyRowCount.
func (c *Connection) UpdateMany(ctx context.Context, query string, batch []Args) (int64, error) {
	return c.ExecManyRowCount(ctx, query, batch)
}
