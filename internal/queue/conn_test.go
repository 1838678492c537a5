package queue

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func countingOpener(t *testing.T, failAfter int) (opener, *int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guard.db")
	calls := 0
	return func(ctx context.Context) (*sql.DB, error) {
		calls++
		if failAfter > 0 && calls > failAfter {
			return nil, errors.New("disk unavailable")
		}
		return openDatabase(ctx, path)
	}, &calls
}

func TestConnGuardReopensAfterPingFailure(t *testing.T) {
	open, calls := countingOpener(t, 0)
	guard := newConnGuard(open, nil)
	t.Cleanup(func() { _ = guard.close() })

	db, err := guard.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if guard.current() != ConnOpen {
		t.Fatalf("expected open state, got %s", guard.current())
	}

	_ = db.Close()

	if _, err := guard.acquire(context.Background()); err != nil {
		t.Fatalf("acquire after close failed: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("expected reopen, opener called %d times", *calls)
	}
	if guard.reopens != 1 {
		t.Fatalf("expected one reopen, got %d", guard.reopens)
	}
}

func TestConnGuardFatalAfterFailedReopen(t *testing.T) {
	open, calls := countingOpener(t, 1)
	guard := newConnGuard(open, nil)
	t.Cleanup(func() { _ = guard.close() })

	db, err := guard.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	_ = db.Close()

	_, err = guard.acquire(context.Background())
	if !errors.Is(err, ErrNoConnection) {
		t.Fatalf("expected ErrNoConnection, got %v", err)
	}
	if guard.current() != ConnFatal {
		t.Fatalf("expected fatal state, got %s", guard.current())
	}

	_, err = guard.acquire(context.Background())
	if !errors.Is(err, ErrNoConnection) {
		t.Fatalf("expected ErrNoConnection on fatal guard, got %v", err)
	}
	if *calls != 2 {
		t.Fatalf("fatal guard must not retry, opener called %d times", *calls)
	}
}

func TestStoreOperationsReportFatalConnection(t *testing.T) {
	open, _ := countingOpener(t, 1)
	store := &Store{
		path:        "guard.db",
		guard:       newConnGuard(open, nil),
		batchSize:   10,
		lockTimeout: time.Hour,
		now:         time.Now,
	}
	t.Cleanup(func() { _ = store.Close() })

	db, err := store.conn(context.Background())
	if err != nil {
		t.Fatalf("conn failed: %v", err)
	}
	_ = db.Close()

	if _, err := store.ListPending(context.Background()); !errors.Is(err, ErrNoConnection) {
		t.Fatalf("ListPending: expected ErrNoConnection, got %v", err)
	}
	if _, err := store.ReconcileStaleRequests(context.Background()); !errors.Is(err, ErrNoConnection) {
		t.Fatalf("ReconcileStaleRequests: expected ErrNoConnection, got %v", err)
	}
	if _, err := store.InsertResult(context.Background(), Result{RequestID: 1, StatusText: "OK"}); !errors.Is(err, ErrNoConnection) {
		t.Fatalf("InsertResult: expected ErrNoConnection, got %v", err)
	}
}

func TestConnGuardHonorsCanceledContext(t *testing.T) {
	open, calls := countingOpener(t, 0)
	guard := newConnGuard(open, nil)
	t.Cleanup(func() { _ = guard.close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := guard.acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if *calls != 0 {
		t.Fatalf("expected no open attempt, got %d", *calls)
	}
	if guard.current() != ConnClosed {
		t.Fatalf("expected closed state, got %s", guard.current())
	}
}

func TestTimestampLayoutSortsAsText(t *testing.T) {
	early := formatTime(time.Date(2024, 1, 1, 0, 0, 5, 100_000_000, time.UTC))
	late := formatTime(time.Date(2024, 1, 1, 0, 0, 5, 120_000_000, time.UTC))
	if !(early < late) {
		t.Fatalf("expected %q < %q", early, late)
	}
	if _, err := parseTimeString(early); err != nil {
		t.Fatalf("parse formatted timestamp: %v", err)
	}
}
