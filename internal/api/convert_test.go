package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mhingston/DriveTime/internal/queue"
	"github.com/mhingston/DriveTime/internal/worker"
)

func TestFromQueueItemCopiesMinutes(t *testing.T) {
	minutes := 17
	locked := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	item := &queue.Item{ID: 3, Status: queue.StatusLocked, Minutes: &minutes, LockedAt: &locked}

	dto := FromQueueItem(item)
	minutes = 99
	if dto.DriveTimeMinutes == nil || *dto.DriveTimeMinutes != 17 {
		t.Fatalf("expected copied minutes 17, got %v", dto.DriveTimeMinutes)
	}
	if dto.LockedAt != "2024-05-06T07:08:09.000Z" {
		t.Fatalf("unexpected lockedAt: %q", dto.LockedAt)
	}
	if dto.CreatedAt != "" {
		t.Fatalf("expected empty createdAt for zero time, got %q", dto.CreatedAt)
	}
}

func TestFromQueueItemNil(t *testing.T) {
	if dto := FromQueueItem(nil); dto.ID != 0 || dto.Status != "" {
		t.Fatalf("expected zero DTO, got %+v", dto)
	}
}

func TestQueueItemOmitsUnknownDriveTime(t *testing.T) {
	data, err := json.Marshal(FromQueueItem(&queue.Item{ID: 1, Status: queue.StatusPending}))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "driveTimeMinutes") {
		t.Fatalf("expected driveTimeMinutes to be omitted, got %s", data)
	}
}

func TestFromSnapshot(t *testing.T) {
	wake := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	snap := worker.Snapshot{
		State:         worker.StateSuspended,
		BatchID:       "batch-1",
		BatchSize:     10,
		BatchPosition: 4,
		Lookups:       4,
		Found:         3,
		Failed:        1,
		LastStatus:    "OVER_QUERY_LIMIT",
		NextWake:      &wake,
	}
	status := FromSnapshot(snap)
	if status.State != "suspended_until_tomorrow" {
		t.Fatalf("unexpected state: %q", status.State)
	}
	if status.NextWake != "2024-03-02T00:00:00.000Z" {
		t.Fatalf("unexpected next wake: %q", status.NextWake)
	}
	if status.StartedAt != "" {
		t.Fatalf("expected empty startedAt, got %q", status.StartedAt)
	}
	if status.LastStatus != "OVER_QUERY_LIMIT" || status.Found != 3 || status.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", status)
	}
}
