// Package worker drains the drive-time queue.
//
// Run is an explicit state loop: reconcile and fetch a batch, look up each
// request in order, persist what the API answered, and pause between
// requests. An empty queue sleeps for the configured interval. A lookup that
// is neither OK nor NOT_FOUND abandons the rest of the batch and suspends the
// worker until local midnight (or the next tick of a configured cron
// schedule), on the assumption that API quotas reset daily.
//
// Store failures are split by severity. Reconcile and insert failures are
// logged and absorbed. A failed fetch, or any operation reporting that the
// database connection is gone, ends Run with an *exitcode.Error so the host
// can exit with the matching status.
//
// Cancellation is observed between steps. An in-flight lookup or insert is
// allowed to finish.
package worker
