package gpdb

import (
	"github.com/shrek82/gpdb/core"
	"github.com/shrek82/gpdb/logger"
)

// Re-export core types and functions
type Connection = core.Connection
type Options = core.Options
type Row = core.Row
type Args = core.Args
type Positional = core.Positional
type Named = core.Named
type Middleware = core.Middleware
type Statement = core.Statement
type Result = core.Result

var (
	NewConnection = core.NewConnection
	NewRow        = core.NewRow
	ParseAddress  = core.ParseAddress
)

// Re-export errors
var (
	ErrConnectionFailed = core.ErrConnectionFailed
	ErrOperational      = core.ErrOperational
	ErrMultipleRows     = core.ErrMultipleRows
	ErrNoSuchAttribute  = core.ErrNoSuchAttribute
	ErrInvalidSQL       = core.ErrInvalidSQL
	ErrInvalidAddress   = core.ErrInvalidAddress
	ErrUnknownDriver    = core.ErrUnknownDriver
	ErrIteratorConsumed = core.ErrIteratorConsumed
)

// Re-export logger types and functions
type Logger = logger.Logger

var (
	NewStdLogger    = logger.NewStdLogger
	NewSilentLogger = logger.NewSilentLogger
)
