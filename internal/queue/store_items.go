package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mhingston/DriveTime/internal/textutil"
)

// Enqueue adds a pending request for the route. When an unfinished request for
// the same route already exists it is returned instead and created is false.
func (s *Store) Enqueue(ctx context.Context, origin, destination string) (item *Item, created bool, err error) {
	ctx = ensureContext(ctx)
	origin = textutil.NormalizeAddress(origin)
	destination = textutil.NormalizeAddress(destination)
	if origin == "" || destination == "" {
		return nil, false, errors.New("enqueue: origin and destination are required")
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, false, err
	}

	originKey := textutil.AddressKey(origin)
	destinationKey := textutil.AddressKey(destination)

	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM drive_times
         WHERE origin_key = ? AND destination_key = ? AND status IN (?, ?)
         ORDER BY id LIMIT 1`,
		originKey, destinationKey, StatusPending, StatusLocked,
	)
	existing, err := scanItem(row)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("enqueue lookup existing: %w", err)
	}

	now := s.timestamp()
	res, err := execWithRetry(ctx, db,
		`INSERT INTO drive_times (
            origin, destination, origin_key, destination_key, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		origin, destination, originKey, destinationKey, StatusPending, now, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	item, err = s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// GetByID fetches a request by identifier. A missing id yields nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	ctx = ensureContext(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM drive_times WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns requests filtered by status. No statuses returns everything.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + itemColumns + ` FROM drive_times`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Results returns the stored lookup outcomes for a request, oldest first.
func (s *Store) Results(ctx context.Context, requestID int64) ([]ResultRecord, error) {
	ctx = ensureContext(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM drive_time_requests WHERE drive_time_id = ? ORDER BY id`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var records []ResultRecord
	for rows.Next() {
		record, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats returns counts of requests by status plus result rows not yet folded.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return Stats{}, err
	}

	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(1) FROM drive_times GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusLocked:
			stats.Locked = count
		case StatusComplete:
			stats.Complete = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM drive_time_requests WHERE process_complete = 0`,
	).Scan(&stats.UnfoldedResults); err != nil {
		return Stats{}, fmt.Errorf("count unfolded results: %w", err)
	}
	return stats, nil
}

// Requeue returns the given requests to pending. With no ids, every locked
// request is released. It reports how many rows changed.
func (s *Store) Requeue(ctx context.Context, ids ...int64) (int64, error) {
	ctx = ensureContext(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	now := s.timestamp()
	var res sql.Result
	if len(ids) == 0 {
		res, err = execWithRetry(ctx, db,
			`UPDATE drive_times SET status = ?, locked_at = NULL, updated_at = ? WHERE status = ?`,
			StatusPending, now, StatusLocked,
		)
	} else {
		args := make([]any, 0, len(ids)+3)
		args = append(args, StatusPending, now, StatusPending)
		for _, id := range ids {
			args = append(args, id)
		}
		res, err = execWithRetry(ctx, db,
			`UPDATE drive_times SET status = ?, locked_at = NULL, updated_at = ?
             WHERE status != ? AND id IN (`+makePlaceholders(len(ids))+`)`,
			args...,
		)
	}
	if err != nil {
		return 0, fmt.Errorf("requeue: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted deletes completed requests and their result rows.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	res, err := execWithRetry(ctx, db, `DELETE FROM drive_times WHERE status = ?`, StatusComplete)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}
