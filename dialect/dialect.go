package dialect

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
)

// Params is the parsed form of a connection target. Exactly one of Socket or
// Host is set.
type Params struct {
	Database string
	User     string
	Password string
	Host     string
	Port     int
	Socket   string
}

// Address returns the target in host:port form, or the socket path.
func (p Params) Address() string {
	if p.Socket != "" {
		return p.Socket
	}
	return net.JoinHostPort(p.Host, fmt.Sprint(p.Port))
}

// Dialect carries what a connection needs to know about one database/sql
// driver: how to reach the server and how to read its errors.
type Dialect interface {
	// Name is the database/sql driver name passed to sql.Open
	Name() string
	// DefaultPort is used when the address names a host without a port
	DefaultPort() int
	// BindType is the sqlx bind-variable style of the driver
	BindType() int
	// DSN renders the params into a data source name for the driver
	DSN(p Params) string
	// IsConnectivityError reports whether err means the connection is unusable
	IsConnectivityError(err error) bool
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

// Register registers a dialect under the given driver name.
func Register(name string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[name] = d
}

// Get retrieves a registered dialect by driver name.
func Get(name string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// IsBrokenConn reports driver-independent signs of a lost connection:
// database/sql's bad-connection errors, truncated reads and socket errors.
// A cancelled or expired context is the caller's doing and never counts.
func IsBrokenConn(err error) bool {
	if err == nil || IsContextDone(err) {
		return false
	}
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsContextDone reports whether err comes from a cancelled or expired context.
func IsContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
