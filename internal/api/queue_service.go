package api

import (
	"context"

	"github.com/mhingston/DriveTime/internal/queue"
)

// QueueReader abstracts queue persistence interactions needed for API queries.
type QueueReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	Stats(ctx context.Context) (queue.Stats, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
	Results(ctx context.Context, requestID int64) ([]queue.ResultRecord, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns queue items filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromQueueItems(items), nil
}

// Stats returns queue summary counts.
func (s *QueueService) Stats(ctx context.Context) (*QueueStats, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	dto := FromStats(stats)
	return &dto, nil
}

// Describe fetches a single queue item with its stored results.
func (s *QueueService) Describe(ctx context.Context, id int64) (*QueueItemResponse, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	records, err := s.store.Results(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QueueItemResponse{
		Item:    FromQueueItem(item),
		Results: FromResultRecords(records),
	}, nil
}
