package core

import (
	"errors"
)

var (
	// ErrConnectionFailed is returned when the driver handle cannot be (re)opened.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrOperational wraps driver errors that mean the connection was lost
	// mid-statement. The handle has been closed by the time it is returned.
	ErrOperational = errors.New("operational error")
	// ErrMultipleRows is returned by QueryOne when the query yields more than one row.
	ErrMultipleRows = errors.New("multiple rows returned")
	// ErrNoSuchAttribute is returned by Row.Field for a column the row does not have.
	ErrNoSuchAttribute = errors.New("no such attribute")
	// ErrInvalidSQL is returned when a statement is empty or its parameters cannot be bound.
	ErrInvalidSQL = errors.New("invalid sql")
	// ErrInvalidAddress is returned when the host string cannot be parsed.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrUnknownDriver is returned when no dialect is registered for the driver name.
	ErrUnknownDriver = errors.New("unknown driver")
	// ErrIteratorConsumed is yielded when an Iterate sequence is ranged over twice.
	ErrIteratorConsumed = errors.New("iterator already consumed")
)
