package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mhingston/DriveTime/internal/config"
	"github.com/mhingston/DriveTime/internal/logging"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	path        string
	guard       *connGuard
	batchSize   int
	lockTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger used for connection recovery messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps and lock expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func execWithRetry(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the queue database named by cfg.Queue.Database.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("queue: config is nil")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	dbPath := strings.TrimSpace(cfg.Queue.Database)
	if dbPath == "" {
		return nil, errors.New("queue: database path is empty")
	}

	store := &Store{
		path:        dbPath,
		batchSize:   cfg.Queue.BatchSize,
		lockTimeout: cfg.LockTimeout(),
		logger:      logging.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.batchSize <= 0 {
		store.batchSize = 1
	}
	store.guard = newConnGuard(func(ctx context.Context) (*sql.DB, error) {
		return openDatabase(ctx, dbPath)
	}, store.logger)

	if _, err := store.guard.acquire(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func openDatabase(ctx context.Context, dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// ConnState reports the state of the guarded connection.
func (s *Store) ConnState() ConnState {
	if s == nil || s.guard == nil {
		return ConnClosed
	}
	return s.guard.current()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.guard == nil {
		return nil
	}
	return s.guard.close()
}

func (s *Store) conn(ctx context.Context) (*sql.DB, error) {
	if s == nil || s.guard == nil {
		return nil, ErrClosed
	}
	return s.guard.acquire(ctx)
}

func (s *Store) timestamp() string {
	return formatTime(s.now())
}
