package queue

import (
	"database/sql"
	"errors"
	"time"
)

// timestampLayout is fixed width so stored timestamps compare correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const itemColumns = "id, origin, destination, status, drive_time, status_text, created_at, updated_at, locked_at"

const resultColumns = "id, drive_time_id, origin, destination, drive_time, status_text, timestamp, process_complete"

type rowScanner interface{ Scan(dest ...any) error }

func scanItem(scanner rowScanner) (*Item, error) {
	var (
		id          int64
		origin      string
		destination string
		statusStr   string
		minutes     sql.NullInt64
		statusText  sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
		lockedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&origin,
		&destination,
		&statusStr,
		&minutes,
		&statusText,
		&createdRaw,
		&updatedRaw,
		&lockedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:          id,
		Origin:      origin,
		Destination: destination,
		Status:      Status(statusStr),
		Minutes:     intPtr(minutes),
		StatusText:  statusText.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lockedRaw.Valid {
		if locked, err := parseTimeString(lockedRaw.String); err == nil {
			item.LockedAt = &locked
		}
	}
	return item, nil
}

func scanResult(scanner rowScanner) (ResultRecord, error) {
	var (
		record   ResultRecord
		minutes  sql.NullInt64
		stampRaw string
		complete int
	)
	if err := scanner.Scan(
		&record.ID,
		&record.RequestID,
		&record.Origin,
		&record.Destination,
		&minutes,
		&record.StatusText,
		&stampRaw,
		&complete,
	); err != nil {
		return ResultRecord{}, err
	}
	record.Minutes = intPtr(minutes)
	record.ProcessComplete = complete != 0
	if stamp, err := parseTimeString(stampRaw); err == nil {
		record.Timestamp = stamp
	}
	return record, nil
}

func intPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
