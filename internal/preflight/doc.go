// Package preflight provides readiness checks for the filesystem paths and
// network endpoints DriveTime depends on.
//
// These checks run in two contexts:
//   - The daemon runtime calls RunAll before starting the worker. A failed
//     required check aborts startup; other failures are logged.
//   - The CLI "drivetime queue health" command prints the same results.
//
// Endpoint checks only open a TCP connection. They never issue a lookup, so
// they cost no API quota.
package preflight
