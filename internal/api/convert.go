package api

import (
	"time"

	"github.com/mhingston/DriveTime/internal/queue"
	"github.com/mhingston/DriveTime/internal/worker"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		ID:               item.ID,
		Origin:           item.Origin,
		Destination:      item.Destination,
		Status:           string(item.Status),
		DriveTimeMinutes: copyMinutes(item.Minutes),
		StatusText:       item.StatusText,
		CreatedAt:        formatTime(item.CreatedAt),
		UpdatedAt:        formatTime(item.UpdatedAt),
	}
	if item.LockedAt != nil {
		dto.LockedAt = formatTime(*item.LockedAt)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromResultRecords converts stored lookup outcomes into API DTOs.
func FromResultRecords(records []queue.ResultRecord) []ResultRecord {
	out := make([]ResultRecord, 0, len(records))
	for _, record := range records {
		out = append(out, ResultRecord{
			ID:               record.ID,
			RequestID:        record.RequestID,
			DriveTimeMinutes: copyMinutes(record.Minutes),
			StatusText:       record.StatusText,
			Timestamp:        formatTime(record.Timestamp),
			ProcessComplete:  record.ProcessComplete,
		})
	}
	return out
}

// FromStats converts queue counts into the API shape.
func FromStats(stats queue.Stats) QueueStats {
	return QueueStats{
		Total:           stats.Total,
		Pending:         stats.Pending,
		Locked:          stats.Locked,
		Complete:        stats.Complete,
		UnfoldedResults: stats.UnfoldedResults,
	}
}

// FromSnapshot converts a worker snapshot into WorkerStatus.
func FromSnapshot(snap worker.Snapshot) WorkerStatus {
	status := WorkerStatus{
		State:          snap.State.String(),
		StartedAt:      formatTime(snap.StartedAt),
		BatchID:        snap.BatchID,
		BatchSize:      snap.BatchSize,
		BatchPosition:  snap.BatchPosition,
		Lookups:        snap.Lookups,
		Found:          snap.Found,
		NotFound:       snap.NotFound,
		Failed:         snap.Failed,
		InsertFailures: snap.InsertFailures,
		Suspensions:    snap.Suspensions,
		LastStatus:     snap.LastStatus,
		LastError:      snap.LastError,
	}
	if snap.NextWake != nil {
		status.NextWake = formatTime(*snap.NextWake)
	}
	return status
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func copyMinutes(value *int) *int {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
