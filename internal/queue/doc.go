// Package queue persists drive-time lookup requests and their results in
// SQLite.
//
// The Store owns a single guarded database handle: every public operation
// first verifies the connection is alive and reopens it when it is not. A
// failed reopen is final; the store reports ErrNoConnection from then on and
// the caller is expected to exit so the service manager can restart it.
//
// The worker contract is three calls. ListPending claims the next batch of
// pending requests by locking them. InsertResult records one lookup outcome
// with process_complete unset. ReconcileStaleRequests, run before every
// ListPending, folds recorded results into their requests and returns stale
// locks to pending. The remaining methods back the CLI and status endpoint.
//
// The database is transient working storage. Schema changes bump the version
// in schema.go; users clear the database to adopt the new schema.
package queue
