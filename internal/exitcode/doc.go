// Package exitcode defines the process exit codes the DriveTime service
// reports to its host and the error type that carries them up the call stack.
//
// Process-ending failures are returned as *Error values rather than calling
// os.Exit deep inside the worker; only main translates them into an exit
// status, after deferred resources have been released.
package exitcode
