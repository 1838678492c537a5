package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhingston/DriveTime/internal/distance"
	"github.com/mhingston/DriveTime/internal/exitcode"
	"github.com/mhingston/DriveTime/internal/logging"
	"github.com/mhingston/DriveTime/internal/metrics"
	"github.com/mhingston/DriveTime/internal/queue"
)

// QueueStore is the slice of queue.Store the loop depends on.
type QueueStore interface {
	ReconcileStaleRequests(ctx context.Context) (queue.ReconcileSummary, error)
	ListPending(ctx context.Context) ([]queue.Request, error)
	InsertResult(ctx context.Context, result queue.Result) (int64, error)
}

// Notifier is told when the worker suspends.
type Notifier interface {
	NotifySuspended(ctx context.Context, status string, until time.Time) error
}

// Options configures a Worker. Zero durations disable the corresponding wait.
type Options struct {
	EmptySleep     time.Duration
	RequestDelay   time.Duration
	ResumeSchedule string
	Clock          Clock
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Notifier       Notifier
}

// Worker runs the queue-draining loop. Run must not be called concurrently.
type Worker struct {
	store    QueueStore
	lookup   distance.Lookuper
	opts     Options
	clock    Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	newID    func() string

	mu   sync.RWMutex
	snap Snapshot
}

// New builds a worker around the store and lookup client.
func New(store QueueStore, lookup distance.Lookuper, opts Options) (*Worker, error) {
	if store == nil {
		return nil, errors.New("worker: queue store is required")
	}
	if lookup == nil {
		return nil, errors.New("worker: lookup client is required")
	}
	opts.ResumeSchedule = strings.TrimSpace(opts.ResumeSchedule)
	if opts.ResumeSchedule != "" {
		if _, err := NextWake(time.Now(), opts.ResumeSchedule); err != nil {
			return nil, fmt.Errorf("worker: resume schedule %q: %w", opts.ResumeSchedule, err)
		}
	}
	w := &Worker{
		store:    store,
		lookup:   lookup,
		opts:     opts,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
		newID:    func() string { return uuid.NewString() },
	}
	if w.clock == nil {
		w.clock = systemClock{}
	}
	w.logger = logging.NewComponentLogger(opts.Logger, "worker")
	w.snap.State = StateIdle
	return w, nil
}

// Run drives the loop until ctx is cancelled (returns nil) or a fatal store
// failure occurs (returns an *exitcode.Error).
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w.mu.Lock()
	w.snap.StartedAt = w.clock.Now()
	w.mu.Unlock()

	var (
		batch         []queue.Request
		suspendStatus string
	)
	state := StateIdle
	for {
		w.setState(state)
		switch state {
		case StateIdle:
			state = StateFetching

		case StateFetching:
			if ctx.Err() != nil {
				state = StateStopped
				continue
			}
			next, err := w.fetch(ctx)
			if err != nil {
				w.setState(StateStopped)
				return err
			}
			batch = next
			if len(batch) == 0 {
				state = StateSleepingEmpty
			} else {
				state = StateProcessingBatch
			}

		case StateSleepingEmpty:
			if !w.sleep(ctx, w.opts.EmptySleep) {
				state = StateStopped
				continue
			}
			state = StateFetching

		case StateProcessingBatch:
			outcome, err := w.processBatch(ctx, batch)
			batch = nil
			if err != nil {
				w.setState(StateStopped)
				return err
			}
			switch {
			case outcome.stopped:
				state = StateStopped
			case outcome.abortStatus != "":
				suspendStatus = outcome.abortStatus
				state = StateSuspended
			default:
				state = StateFetching
			}

		case StateSuspended:
			if !w.suspend(ctx, suspendStatus) {
				state = StateStopped
				continue
			}
			suspendStatus = ""
			state = StateFetching

		case StateStopped:
			w.logger.Info("worker stopped", logging.String(logging.FieldEventType, "worker_stopped"))
			return nil
		}
	}
}

// Snapshot returns a copy of the worker's current status.
func (w *Worker) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	snap := w.snap
	if snap.NextWake != nil {
		wake := *snap.NextWake
		snap.NextWake = &wake
	}
	return snap
}

func (w *Worker) fetch(ctx context.Context) ([]queue.Request, error) {
	// Store calls run to completion once started; cancellation is checked
	// between steps.
	storeCtx := context.WithoutCancel(ctx)

	summary, err := w.store.ReconcileStaleRequests(storeCtx)
	w.metrics.ObserveReconcile(err)
	switch {
	case errors.Is(err, queue.ErrNoConnection):
		return nil, w.fatal(exitcode.NoDBConnection, fmt.Errorf("reconcile requests: %w", err))
	case err != nil:
		logging.WarnWithContext(w.logger, "reconcile failed; continuing with fetch", "reconcile_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "completed results fold in on a later pass"),
		)
	case summary.Completed > 0 || summary.Released > 0:
		w.logger.Info("reconciled requests",
			logging.Int64("completed", summary.Completed),
			logging.Int64("released", summary.Released),
			logging.String(logging.FieldEventType, "reconcile_complete"),
		)
	}

	batch, err := w.store.ListPending(storeCtx)
	if err != nil {
		code := exitcode.SQLError
		if errors.Is(err, queue.ErrNoConnection) {
			code = exitcode.NoDBConnection
		}
		return nil, w.fatal(code, err)
	}
	w.metrics.BatchFetched(len(batch))
	return batch, nil
}

type batchOutcome struct {
	abortStatus string
	stopped     bool
}

func (w *Worker) processBatch(ctx context.Context, batch []queue.Request) (batchOutcome, error) {
	batchID := w.newID()
	batchCtx := logging.WithBatchID(ctx, batchID)
	logger := logging.WithContext(batchCtx, w.logger)
	storeCtx := context.WithoutCancel(batchCtx)

	w.mu.Lock()
	w.snap.BatchID = batchID
	w.snap.BatchSize = len(batch)
	w.snap.BatchPosition = 0
	w.mu.Unlock()

	logger.Info("processing batch",
		logging.Int("size", len(batch)),
		logging.String(logging.FieldEventType, "batch_started"),
	)

	for i, req := range batch {
		if ctx.Err() != nil {
			logger.Info("stop requested; leaving rest of batch locked",
				logging.Int("remaining", len(batch)-i),
				logging.String(logging.FieldEventType, "batch_interrupted"),
			)
			return batchOutcome{stopped: true}, nil
		}
		w.mu.Lock()
		w.snap.BatchPosition = i + 1
		w.mu.Unlock()

		itemLogger := logger.With(logging.Int64(logging.FieldRequestID, req.ID))
		started := w.clock.Now()
		result := w.lookup.Lookup(storeCtx, req.Origin, req.Destination)
		w.metrics.ObserveLookup(result.Outcome.String(), w.clock.Now().Sub(started))
		w.recordLookup(result)

		if !result.Persistable() {
			attrs := []logging.Attr{
				logging.String("status", result.Status),
				logging.String("outcome", result.Outcome.String()),
				logging.Int("abandoned", len(batch)-i),
				logging.String(logging.FieldErrorHint, "check API quota and key; lookups resume after the suspend"),
				logging.String(logging.FieldImpact, "remaining requests stay locked until the lock timeout"),
			}
			if result.Err != nil {
				attrs = append(attrs, logging.Error(result.Err))
			}
			logging.WarnWithContext(itemLogger, "lookup failed; abandoning batch", "batch_aborted", attrs...)
			return batchOutcome{abortStatus: result.Status}, nil
		}

		_, err := w.store.InsertResult(storeCtx, queue.Result{
			RequestID:   req.ID,
			Origin:      req.Origin,
			Destination: req.Destination,
			Minutes:     result.Minutes,
			StatusText:  result.Status,
		})
		w.metrics.ObserveInsert(err)
		if errors.Is(err, queue.ErrNoConnection) {
			return batchOutcome{}, w.fatal(exitcode.NoDBConnection, fmt.Errorf("insert result: %w", err))
		}
		if err != nil {
			w.recordInsertFailure(err)
			logging.WarnWithContext(itemLogger, "insert result failed; continuing", "result_insert_failed",
				logging.Error(err),
				logging.String("status", result.Status),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "request stays locked and is retried after the lock timeout"),
			)
		} else {
			itemLogger.Debug("lookup stored",
				logging.String("status", result.Status),
				logging.Minutes("minutes", result.Minutes),
				logging.String(logging.FieldEventType, "result_stored"),
			)
		}

		if !w.sleep(ctx, w.opts.RequestDelay) {
			return batchOutcome{stopped: true}, nil
		}
	}

	logger.Info("batch complete",
		logging.Int("size", len(batch)),
		logging.String(logging.FieldEventType, "batch_complete"),
	)
	return batchOutcome{}, nil
}

func (w *Worker) suspend(ctx context.Context, status string) bool {
	now := w.clock.Now()
	wake, err := NextWake(now, w.opts.ResumeSchedule)
	if err != nil {
		logging.WarnWithContext(w.logger, "resume schedule failed; using next midnight", "resume_schedule_invalid",
			logging.Error(err),
			logging.String("schedule", w.opts.ResumeSchedule),
		)
		wake = NextMidnight(now)
	}

	w.mu.Lock()
	w.snap.NextWake = &wake
	w.snap.Suspensions++
	w.mu.Unlock()
	w.metrics.Suspended()

	w.logger.Warn("suspending lookups",
		logging.String("status", status),
		logging.String("until", wake.Format(time.RFC3339)),
		logging.Duration("wait", wake.Sub(now)),
		logging.String(logging.FieldEventType, "worker_suspended"),
		logging.String(logging.FieldErrorHint, "upstream failures are assumed to clear daily"),
		logging.String(logging.FieldImpact, "no lookups run until the wake time"),
	)
	if w.notifier != nil {
		if err := w.notifier.NotifySuspended(context.WithoutCancel(ctx), status, wake); err != nil {
			w.logger.Debug("suspend notification failed", logging.Error(err))
		}
	}

	ok := w.sleep(ctx, wake.Sub(now))
	w.mu.Lock()
	w.snap.NextWake = nil
	w.mu.Unlock()
	return ok
}

// sleep waits d or until ctx is done; it reports whether the loop should go on.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-w.clock.After(d):
		return true
	}
}

func (w *Worker) fatal(code exitcode.Code, err error) error {
	coded := exitcode.New(code, err)
	w.setLastError(coded)
	logging.ErrorWithContext(w.logger, "worker stopping on fatal store failure", "worker_fatal",
		logging.Error(err),
		logging.String("exit_code", code.String()),
		logging.String(logging.FieldErrorHint, "check queue.database and restart the service"),
	)
	return coded
}

func (w *Worker) setState(state State) {
	w.mu.Lock()
	changed := w.snap.State != state
	w.snap.State = state
	w.mu.Unlock()
	if changed {
		w.logger.Debug("worker state", logging.String(logging.FieldWorkerState, state.String()))
	}
	w.metrics.SetState(state.String(), stateNames())
}

func (w *Worker) setLastError(err error) {
	w.mu.Lock()
	w.snap.LastError = err.Error()
	w.mu.Unlock()
}

func (w *Worker) recordLookup(result distance.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snap.Lookups++
	w.snap.LastStatus = result.Status
	switch result.Outcome {
	case distance.OutcomeSuccess:
		w.snap.Found++
	case distance.OutcomeNotFound:
		w.snap.NotFound++
	default:
		w.snap.Failed++
		if result.Err != nil {
			w.snap.LastError = result.Err.Error()
		} else {
			w.snap.LastError = result.Status
		}
	}
}

func (w *Worker) recordInsertFailure(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snap.InsertFailures++
	w.snap.LastError = err.Error()
}
