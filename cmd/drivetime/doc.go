// Command drivetime runs the DriveTime worker and manages its queue.
//
// "drivetime run" hosts the worker loop in the foreground until SIGINT or
// SIGTERM, or until the loop hits a fatal store failure, in which case the
// process exits with that failure's code (1 for a lost database connection,
// 2 for a failed queue read). The queue subcommands open the SQLite database
// directly, so they work whether or not a worker is running; "drivetime
// status" queries a running worker through its status API when api.bind is
// set.
package main
