package queue

import "errors"

var (
	// ErrNoConnection reports that the database could not be reopened. It is
	// terminal for the store: later calls return it without retrying.
	ErrNoConnection = errors.New("queue database connection unavailable")

	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")

	// ErrClosed is returned by operations on a store after Close.
	ErrClosed = errors.New("queue store closed")
)
