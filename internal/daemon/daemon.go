package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/mhingston/DriveTime/internal/config"
	"github.com/mhingston/DriveTime/internal/logging"
	"github.com/mhingston/DriveTime/internal/metrics"
	"github.com/mhingston/DriveTime/internal/notifications"
	"github.com/mhingston/DriveTime/internal/queue"
	"github.com/mhingston/DriveTime/internal/worker"
)

// Runner is the loop the daemon hosts.
type Runner interface {
	Run(ctx context.Context) error
	Snapshot() worker.Snapshot
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithLookupCloser registers a function that releases the lookup client on Close.
func WithLookupCloser(closeFn func()) Option {
	return func(d *Daemon) {
		d.closeLookup = closeFn
	}
}

// WithMetrics exposes the registry on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Daemon) {
		d.metrics = m
	}
}

// WithNotifier overrides the notification service used by TestNotification.
func WithNotifier(svc notifications.Service) Option {
	return func(d *Daemon) {
		d.notifier = svc
	}
}

// Daemon coordinates the worker loop and enforces single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *queue.Store
	runner      Runner
	metrics     *metrics.Metrics
	notifier    notifications.Service
	closeLookup func()
	api         *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	closed  bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Worker       worker.Snapshot
	Connection   queue.ConnState
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, runner Runner, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || runner == nil {
		return nil, errors.New("daemon requires config, store, logger, and worker")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "drivetime.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		runner:   runner,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock and launches the worker loop. Calling Start
// on a running daemon is a no-op.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.New("daemon closed")
	}
	if d.running.Load() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another drivetime worker is already running against this data directory")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	done := make(chan struct{})
	d.cancel = cancel
	d.done = done
	d.err = nil
	d.running.Store(true)

	go func() {
		defer close(done)
		err := d.runner.Run(runCtx)
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		if err != nil {
			d.logger.Error("worker loop terminated", logging.Error(err))
		}
	}()

	d.logger.Info("drivetime daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("queue_db", d.store.Path()),
	)
	return nil
}

// Stop cancels the worker loop, waits for it to return, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return
	}
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("drivetime daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the store and lookup client.
func (d *Daemon) Close() error {
	d.Stop()
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	if d.closeLookup != nil {
		d.closeLookup()
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Done is closed when the worker loop returns. It is nil before Start.
func (d *Daemon) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Err returns the error the worker loop terminated with, if any.
func (d *Daemon) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// Requeue returns locked items (optionally a subset) to pending.
func (d *Daemon) Requeue(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.Requeue(ctx, ids...)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ClearCompleted(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, errors.New("queue store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// APIAddress returns the address the status API listens on, or "" when disabled.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	running := d.running.Load()
	if done := d.Done(); done != nil {
		select {
		case <-done:
			running = false
		default:
		}
	}
	return Status{
		Running:      running,
		PID:          os.Getpid(),
		Worker:       d.runner.Snapshot(),
		Connection:   d.store.ConnState(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
