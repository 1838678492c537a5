package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a drive-time request in a transport-friendly format.
type QueueItem struct {
	ID               int64  `json:"id"`
	Origin           string `json:"origin"`
	Destination      string `json:"destination"`
	Status           string `json:"status"`
	DriveTimeMinutes *int   `json:"driveTimeMinutes,omitempty"`
	StatusText       string `json:"statusText,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
	LockedAt         string `json:"lockedAt,omitempty"`
}

// ResultRecord is a stored lookup outcome.
type ResultRecord struct {
	ID               int64  `json:"id"`
	RequestID        int64  `json:"requestId"`
	DriveTimeMinutes *int   `json:"driveTimeMinutes,omitempty"`
	StatusText       string `json:"statusText"`
	Timestamp        string `json:"timestamp"`
	ProcessComplete  bool   `json:"processComplete"`
}

// QueueStats carries item counts by status.
type QueueStats struct {
	Total           int `json:"total"`
	Pending         int `json:"pending"`
	Locked          int `json:"locked"`
	Complete        int `json:"complete"`
	UnfoldedResults int `json:"unfoldedResults"`
}

// WorkerStatus summarizes the queue-draining loop.
type WorkerStatus struct {
	State          string `json:"state"`
	StartedAt      string `json:"startedAt,omitempty"`
	BatchID        string `json:"batchId,omitempty"`
	BatchSize      int    `json:"batchSize"`
	BatchPosition  int    `json:"batchPosition"`
	Lookups        int64  `json:"lookups"`
	Found          int64  `json:"found"`
	NotFound       int64  `json:"notFound"`
	Failed         int64  `json:"failed"`
	InsertFailures int64  `json:"insertFailures"`
	Suspensions    int64  `json:"suspensions"`
	LastStatus     string `json:"lastStatus,omitempty"`
	LastError      string `json:"lastError,omitempty"`
	NextWake       string `json:"nextWake,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	QueueDBPath  string       `json:"queueDbPath"`
	LockFilePath string       `json:"lockFilePath"`
	Connection   string       `json:"connection"`
	Worker       WorkerStatus `json:"worker"`
	Queue        *QueueStats  `json:"queue,omitempty"`
	QueueError   string       `json:"queueError,omitempty"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item and its stored results.
type QueueItemResponse struct {
	Item    QueueItem      `json:"item"`
	Results []ResultRecord `json:"results"`
}
