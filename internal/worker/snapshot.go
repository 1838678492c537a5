package worker

import "time"

// Snapshot is a point-in-time view of the worker for status output.
type Snapshot struct {
	State          State
	StartedAt      time.Time
	BatchID        string
	BatchSize      int
	BatchPosition  int
	Lookups        int64
	Found          int64
	NotFound       int64
	Failed         int64
	InsertFailures int64
	Suspensions    int64
	LastStatus     string
	LastError      string
	NextWake       *time.Time
}
