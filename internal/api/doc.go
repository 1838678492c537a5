// Package api defines wire-format types and converters for the HTTP status
// API. It translates queue records and worker snapshots into transport-friendly
// DTOs so consumers never couple to internal types.
//
// # Key Types
//
// QueueItem: transport representation of a drive-time request, including the
// folded drive time and status text once the request completes.
//
// ResultRecord: one stored lookup outcome for a request.
//
// WorkerStatus: loop state, batch position, lookup counters, and the next wake
// time while suspended.
//
// DaemonStatus: aggregated runtime information including queue counts and the
// database connection state.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status, worker.State) are
// exposed as lowercase strings. Timestamps use RFC3339 with milliseconds. A
// drive time that is unknown is omitted rather than reported as zero.
package api
