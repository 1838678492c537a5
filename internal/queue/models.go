package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusLocked   Status = "locked"
	StatusComplete Status = "complete"
)

var allStatuses = []Status{StatusPending, StatusLocked, StatusComplete}

// ParseStatus converts user input to a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Request is a pending origin/destination pair claimed by ListPending.
type Request struct {
	ID          int64
	Origin      string
	Destination string
}

// Result is one lookup outcome handed to InsertResult. Minutes is nil unless
// the lookup succeeded.
type Result struct {
	RequestID   int64
	Origin      string
	Destination string
	Minutes     *int
	StatusText  string
}

// Item represents a drive-time request persisted in SQLite.
type Item struct {
	ID          int64
	Origin      string
	Destination string
	Status      Status
	Minutes     *int
	StatusText  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LockedAt    *time.Time
}

// ResultRecord is a stored lookup outcome.
type ResultRecord struct {
	ID              int64
	RequestID       int64
	Origin          string
	Destination     string
	Minutes         *int
	StatusText      string
	Timestamp       time.Time
	ProcessComplete bool
}

// ReconcileSummary reports what a reconcile pass changed.
type ReconcileSummary struct {
	Completed int64
	Released  int64
}

// Stats aggregates item counts for status output.
type Stats struct {
	Total           int
	Pending         int
	Locked          int
	Complete        int
	UnfoldedResults int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string    `json:"dbPath"`
	DatabaseExists   bool      `json:"databaseExists"`
	DatabaseReadable bool      `json:"databaseReadable"`
	SchemaVersion    int       `json:"schemaVersion"`
	ConnState        ConnState `json:"connection"`
	Reconnects       int       `json:"reconnects"`
	IntegrityCheck   bool      `json:"integrityCheck"`
	TotalItems       int       `json:"totalItems"`
	Error            string    `json:"error,omitempty"`
}
