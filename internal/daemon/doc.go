// Package daemon coordinates the long-running DriveTime process.
//
// It wires configuration, the queue store, the lookup client, and the worker
// loop into a single lifecycle with flock-based locking so only one worker
// drains a queue database at a time. The daemon exposes queue maintenance
// helpers for the CLI, serves the optional status API, and surfaces the
// worker's termination so the runtime can exit with the loop's code.
//
// Keep orchestration logic here: loop behaviour lives in the worker package
// while the daemon focuses on startup, shutdown, and high level coordination.
package daemon
