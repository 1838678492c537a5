package exitcode

import (
	"errors"
	"fmt"
)

// Code is a process exit status.
type Code int

const (
	Normal         Code = 0
	NoDBConnection Code = 1
	SQLError       Code = 2
	// RequestError is reserved; the worker treats lookup failures as values.
	RequestError   Code = 3
	// Failure covers errors outside the worker taxonomy: config, flags,
	// preflight, CLI commands.
	Failure        Code = 4
)

// String returns the symbolic name of the code.
func (c Code) String() string {
	switch c {
	case Normal:
		return "normal"
	case NoDBConnection:
		return "no_db_connection"
	case SQLError:
		return "sql_error"
	case RequestError:
		return "request_error"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("exit_%d", int(c))
	}
}

// Error pairs a failure with the exit code the process should terminate with.
type Error struct {
	Code Code
	Err  error
}

// New wraps err with an exit code.
func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("exit %s", e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// From maps err to the exit code the process should use. A nil error is
// Normal; errors that carry no code map to Failure.
func From(err error) Code {
	if err == nil {
		return Normal
	}
	var coded *Error
	if errors.As(err, &coded) && coded != nil {
		return coded.Code
	}
	return Failure
}
