package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ListPending claims up to the configured batch size of pending requests in
// id order. Claimed rows move to StatusLocked. An empty queue yields an empty
// batch and a nil error.
func (s *Store) ListPending(ctx context.Context) ([]Request, error) {
	ctx = ensureContext(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var batch []Request
	err = retryOnBusy(ctx, func() error {
		batch = batch[:0]
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		rows, err := tx.QueryContext(ctx,
			`SELECT id, origin, destination FROM drive_times WHERE status = ? ORDER BY id LIMIT ?`,
			StatusPending, s.batchSize,
		)
		if err != nil {
			return err
		}
		for rows.Next() {
			var req Request
			if err := rows.Scan(&req.ID, &req.Origin, &req.Destination); err != nil {
				rows.Close()
				return err
			}
			batch = append(batch, req)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if len(batch) == 0 {
			return tx.Commit()
		}

		now := s.timestamp()
		args := make([]any, 0, len(batch)+3)
		args = append(args, StatusLocked, now, now)
		for _, req := range batch {
			args = append(args, req.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE drive_times SET status = ?, locked_at = ?, updated_at = ? WHERE id IN (`+makePlaceholders(len(batch))+`)`,
			args...,
		); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return batch, nil
}

// ReconcileStaleRequests folds unprocessed result rows into their requests,
// marks those rows processed, and returns requests locked longer than the
// lock timeout to pending.
func (s *Store) ReconcileStaleRequests(ctx context.Context) (ReconcileSummary, error) {
	ctx = ensureContext(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return ReconcileSummary{}, err
	}

	var summary ReconcileSummary
	err = retryOnBusy(ctx, func() error {
		summary = ReconcileSummary{}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		now := s.now()
		stamp := formatTime(now)

		res, err := tx.ExecContext(ctx, `
            UPDATE drive_times
            SET status = ?,
                drive_time = (
                    SELECT r.drive_time FROM drive_time_requests r
                    WHERE r.drive_time_id = drive_times.id AND r.process_complete = 0
                    ORDER BY r.id DESC LIMIT 1
                ),
                status_text = (
                    SELECT r.status_text FROM drive_time_requests r
                    WHERE r.drive_time_id = drive_times.id AND r.process_complete = 0
                    ORDER BY r.id DESC LIMIT 1
                ),
                locked_at = NULL,
                updated_at = ?
            WHERE id IN (SELECT drive_time_id FROM drive_time_requests WHERE process_complete = 0)`,
			StatusComplete, stamp,
		)
		if err != nil {
			return fmt.Errorf("fold results: %w", err)
		}
		if summary.Completed, err = res.RowsAffected(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE drive_time_requests SET process_complete = 1 WHERE process_complete = 0`,
		); err != nil {
			return fmt.Errorf("mark results processed: %w", err)
		}

		if s.lockTimeout > 0 {
			cutoff := formatTime(now.Add(-s.lockTimeout))
			res, err = tx.ExecContext(ctx,
				`UPDATE drive_times SET status = ?, locked_at = NULL, updated_at = ?
                 WHERE status = ? AND (locked_at IS NULL OR locked_at <= ?)`,
				StatusPending, stamp, StatusLocked, cutoff,
			)
			if err != nil {
				return fmt.Errorf("release stale locks: %w", err)
			}
			if summary.Released, err = res.RowsAffected(); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return ReconcileSummary{}, fmt.Errorf("reconcile requests: %w", err)
	}
	return summary, nil
}

// InsertResult records one lookup outcome with a store-side timestamp and
// process_complete unset, returning the generated row id.
func (s *Store) InsertResult(ctx context.Context, result Result) (int64, error) {
	ctx = ensureContext(ctx)
	if result.RequestID <= 0 {
		return 0, errors.New("insert result: request id is required")
	}
	if strings.TrimSpace(result.StatusText) == "" {
		return 0, errors.New("insert result: status text is required")
	}
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	res, err := execWithRetry(ctx, db,
		`INSERT INTO drive_time_requests (
            drive_time_id, origin, destination, drive_time, status_text, timestamp, process_complete
        ) VALUES (?, ?, ?, ?, ?, ?, 0)`,
		result.RequestID,
		result.Origin,
		result.Destination,
		nullableInt(result.Minutes),
		result.StatusText,
		s.timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
