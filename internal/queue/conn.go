package queue

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mhingston/DriveTime/internal/logging"
)

// ConnState describes the guarded database handle.
type ConnState int

const (
	ConnClosed ConnState = iota
	ConnOpen
	ConnFatal
)

func (s ConnState) String() string {
	switch s {
	case ConnOpen:
		return "open"
	case ConnFatal:
		return "fatal"
	default:
		return "closed"
	}
}

// MarshalText renders the state by name in JSON output.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type opener func(ctx context.Context) (*sql.DB, error)

// connGuard hands out a live *sql.DB, reopening it when a ping fails. The
// first failed reopen moves the guard to ConnFatal permanently.
type connGuard struct {
	mu      sync.Mutex
	open    opener
	db      *sql.DB
	state   ConnState
	fatal   error
	closed  bool
	reopens int
	logger  *slog.Logger
}

func newConnGuard(open opener, logger *slog.Logger) *connGuard {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &connGuard{open: open, logger: logger}
}

func (g *connGuard) acquire(ctx context.Context) (*sql.DB, error) {
	ctx = ensureContext(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrClosed
	}
	if g.state == ConnFatal {
		return nil, fmt.Errorf("%w: %w", ErrNoConnection, g.fatal)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if g.state == ConnOpen && g.db != nil {
		err := g.db.PingContext(ctx)
		if err == nil {
			return g.db, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logging.WarnWithContext(g.logger, "queue database ping failed; reopening", "queue_db_reconnect",
			logging.Error(err),
			logging.String(logging.FieldImpact, "pending store operation waits for reconnect"),
		)
		_ = g.db.Close()
		g.db = nil
		g.state = ConnClosed
		g.reopens++
	}

	db, err := g.open(ctx)
	if err != nil {
		g.state = ConnFatal
		g.fatal = err
		logging.ErrorWithContext(g.logger, "queue database reopen failed", "queue_db_fatal",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue.database path, permissions, and disk space"),
		)
		return nil, fmt.Errorf("%w: %w", ErrNoConnection, err)
	}
	g.db = db
	g.state = ConnOpen
	return db, nil
}

func (g *connGuard) current() ConnState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *connGuard) close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	if g.state != ConnFatal {
		g.state = ConnClosed
	}
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}
