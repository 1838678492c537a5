package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mhingston/DriveTime/internal/distance"
	"github.com/mhingston/DriveTime/internal/exitcode"
	"github.com/mhingston/DriveTime/internal/queue"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type fakeStore struct {
	batches      [][]queue.Request
	listErr      error
	reconcileErr error
	insertErr    map[int64]error
	inserts      []queue.Result
	listCalls    int
	reconciles   int
	onExhausted  func()
}

func (s *fakeStore) ReconcileStaleRequests(context.Context) (queue.ReconcileSummary, error) {
	s.reconciles++
	return queue.ReconcileSummary{}, s.reconcileErr
}

func (s *fakeStore) ListPending(context.Context) ([]queue.Request, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.batches) == 0 {
		if s.onExhausted != nil {
			s.onExhausted()
		}
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *fakeStore) InsertResult(_ context.Context, result queue.Result) (int64, error) {
	s.inserts = append(s.inserts, result)
	if err := s.insertErr[result.RequestID]; err != nil {
		return 0, err
	}
	return int64(len(s.inserts)), nil
}

type fakeLookup struct {
	results map[string]distance.Result
	calls   []string
	hook    func(origin string)
}

func (l *fakeLookup) Lookup(ctx context.Context, origin, destination string) distance.Result {
	l.calls = append(l.calls, origin)
	if l.hook != nil {
		l.hook(origin)
	}
	if ctx.Err() != nil {
		return distance.Result{Status: distance.StatusUnknownError, Outcome: distance.OutcomeTransportError, Err: ctx.Err()}
	}
	if result, ok := l.results[origin]; ok {
		return result
	}
	return distance.Result{Status: distance.StatusUnknownError, Outcome: distance.OutcomeTransportError}
}

type fakeNotifier struct {
	status string
	until  time.Time
	calls  int
}

func (n *fakeNotifier) NotifySuspended(_ context.Context, status string, until time.Time) error {
	n.calls++
	n.status = status
	n.until = until
	return nil
}

func ok(minutes int) distance.Result {
	return distance.Result{Minutes: &minutes, Status: distance.StatusOK, Outcome: distance.OutcomeSuccess}
}

func notFound() distance.Result {
	return distance.Result{Status: distance.StatusNotFound, Outcome: distance.OutcomeNotFound}
}

func upstream(status string) distance.Result {
	return distance.Result{Status: status, Outcome: distance.OutcomeUpstreamError}
}

type harness struct {
	store    *fakeStore
	lookup   *fakeLookup
	clock    *fakeClock
	notifier *fakeNotifier
	worker   *Worker
	ctx      context.Context
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	h := &harness{
		store:    &fakeStore{insertErr: map[int64]error{}},
		lookup:   &fakeLookup{results: map[string]distance.Result{}},
		clock:    &fakeClock{now: time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)},
		notifier: &fakeNotifier{},
		ctx:      ctx,
	}
	h.store.onExhausted = cancel
	opts.Clock = h.clock
	opts.Notifier = h.notifier
	w, err := New(h.store, h.lookup, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.worker = w
	return h
}

func (h *harness) run(t *testing.T) error {
	t.Helper()
	err := h.worker.Run(h.ctx)
	if errors.Is(h.ctx.Err(), context.DeadlineExceeded) {
		t.Fatal("worker loop did not terminate")
	}
	return err
}

func defaultOptions() Options {
	return Options{EmptySleep: 5 * time.Second, RequestDelay: 250 * time.Millisecond}
}

func TestSingleOKLookupIsPersistedAndLoopRefetches(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.store.batches = [][]queue.Request{{{ID: 1, Origin: "A", Destination: "B"}}}
	h.lookup.results["A"] = ok(12)

	if err := h.run(t); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(h.store.inserts) != 1 {
		t.Fatalf("expected one insert, got %d", len(h.store.inserts))
	}
	got := h.store.inserts[0]
	if got.RequestID != 1 || got.Origin != "A" || got.Destination != "B" || got.StatusText != "OK" || got.Minutes == nil || *got.Minutes != 12 {
		t.Fatalf("unexpected insert: %+v", got)
	}
	if h.store.listCalls != 2 {
		t.Fatalf("expected immediate refetch after batch, got %d list calls", h.store.listCalls)
	}
	if h.store.reconciles != h.store.listCalls {
		t.Fatalf("expected reconcile before every fetch, got %d reconciles for %d fetches", h.store.reconciles, h.store.listCalls)
	}
	if len(h.clock.sleeps) != 1 || h.clock.sleeps[0] != 250*time.Millisecond {
		t.Fatalf("expected only the inter-request delay, got %v", h.clock.sleeps)
	}
	snap := h.worker.Snapshot()
	if snap.State != StateStopped || snap.Found != 1 || snap.BatchID == "" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestUpstreamFailureAbortsBatchAndSuspendsUntilMidnight(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.store.batches = [][]queue.Request{{
		{ID: 1, Origin: "A", Destination: "B"},
		{ID: 2, Origin: "C", Destination: "D"},
		{ID: 3, Origin: "E", Destination: "F"},
	}}
	h.lookup.results["A"] = notFound()
	h.lookup.results["C"] = upstream("OVER_QUERY_LIMIT")
	h.lookup.results["E"] = ok(3)

	if err := h.run(t); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(h.store.inserts) != 1 {
		t.Fatalf("expected one insert, got %+v", h.store.inserts)
	}
	if got := h.store.inserts[0]; got.RequestID != 1 || got.Minutes != nil || got.StatusText != "NOT_FOUND" {
		t.Fatalf("unexpected insert: %+v", got)
	}
	if len(h.lookup.calls) != 2 || h.lookup.calls[1] != "C" {
		t.Fatalf("expected lookups for A and C only, got %v", h.lookup.calls)
	}

	midnight := time.Date(2024, 3, 2, 0, 0, 0, 0, time.Local)
	if !h.notifier.until.Equal(midnight) || h.notifier.status != "OVER_QUERY_LIMIT" {
		t.Fatalf("expected suspend until %v for OVER_QUERY_LIMIT, got %v %q", midnight, h.notifier.until, h.notifier.status)
	}
	if len(h.clock.sleeps) != 2 {
		t.Fatalf("expected request delay then suspend, got %v", h.clock.sleeps)
	}
	entered := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local).Add(250 * time.Millisecond)
	if h.clock.sleeps[1] != midnight.Sub(entered) {
		t.Fatalf("expected suspend of %v, got %v", midnight.Sub(entered), h.clock.sleeps[1])
	}
	if h.store.listCalls != 2 {
		t.Fatalf("expected a fetch after waking, got %d list calls", h.store.listCalls)
	}
	snap := h.worker.Snapshot()
	if snap.Suspensions != 1 || snap.NotFound != 1 || snap.Failed != 1 || snap.NextWake != nil {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestTransportFailureAlsoSuspends(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.store.batches = [][]queue.Request{{{ID: 7, Origin: "X", Destination: "Y"}}}

	if err := h.run(t); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(h.store.inserts) != 0 {
		t.Fatalf("expected no inserts, got %+v", h.store.inserts)
	}
	if h.notifier.calls != 1 || h.notifier.status != distance.StatusUnknownError {
		t.Fatalf("expected suspend for UNKNOWN_ERROR, got %+v", h.notifier)
	}
}

func TestEmptyBatchSleepsConfiguredDuration(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.store.batches = [][]queue.Request{{}}

	if err := h.run(t); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(h.store.inserts) != 0 || len(h.lookup.calls) != 0 {
		t.Fatalf("expected no work for empty batch, got inserts=%d lookups=%d", len(h.store.inserts), len(h.lookup.calls))
	}
	if len(h.clock.sleeps) != 1 || h.clock.sleeps[0] != 5*time.Second {
		t.Fatalf("expected one empty sleep of 5s, got %v", h.clock.sleeps)
	}
	if h.store.listCalls != 2 {
		t.Fatalf("expected refetch after sleep, got %d list calls", h.store.listCalls)
	}
}

func TestListPendingFailureExitsWithSQLError(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.store.listErr = errors.New("no such table: drive_times")
	h.store.batches = [][]queue.Request{{{ID: 1, Origin: "A", Destination: "B"}}}

	err := h.run(t)
	if code := exitcode.From(err); code != exitcode.SQLError {
		t.Fatalf("expected SQLError exit code, got %v (%v)", code, err)
	}
	if len(h.lookup.calls) != 0 || h.store.listCalls != 1 {
		t.Fatalf("expected no processing after failed fetch, lookups=%v lists=%d", h.lookup.calls, h.store.listCalls)
	}
	if snap := h.worker.Snapshot(); snap.State != StateStopped || snap.LastError == "" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestConnectionLossExitsWithNoDBConnection(t *testing.T) {
	lost := fmt.Errorf("%w: disk unavailable", queue.ErrNoConnection)
	tests := []struct {
		name    string
		prepare func(*fakeStore)
	}{
		{"list", func(s *fakeStore) { s.listErr = lost }},
		{"reconcile", func(s *fakeStore) { s.reconcileErr = lost }},
		{"insert", func(s *fakeStore) { s.insertErr[1] = lost }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, defaultOptions())
			h.store.batches = [][]queue.Request{{
				{ID: 1, Origin: "A", Destination: "B"},
				{ID: 2, Origin: "C", Destination: "D"},
			}}
			h.lookup.results["A"] = ok(1)
			h.lookup.results["C"] = ok(2)
			tt.prepare(h.store)

			err := h.run(t)
			if code := exitcode.From(err); code != exitcode.NoDBConnection {
				t.Fatalf("expected NoDBConnection, got %v (%v)", code, err)
			}
			if !errors.Is(err, queue.ErrNoConnection) {
				t.Fatalf("expected wrapped ErrNoConnection, got %v", err)
			}
			if len(h.lookup.calls) > 1 {
				t.Fatalf("expected processing to stop, got lookups %v", h.lookup.calls)
			}
		})
	}
}

func TestReconcileFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.store.reconcileErr = errors.New("database is locked")
	h.store.batches = [][]queue.Request{{{ID: 1, Origin: "A", Destination: "B"}}}
	h.lookup.results["A"] = ok(4)

	if err := h.run(t); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(h.store.inserts) != 1 {
		t.Fatalf("expected processing to continue, got %d inserts", len(h.store.inserts))
	}
}

func TestInsertFailureContinuesWithNextItem(t *testing.T) {
	h := newHarness(t, defaultOptions())
	h.store.insertErr[1] = errors.New("constraint failed")
	h.store.batches = [][]queue.Request{{
		{ID: 1, Origin: "A", Destination: "B"},
		{ID: 2, Origin: "C", Destination: "D"},
	}}
	h.lookup.results["A"] = ok(1)
	h.lookup.results["C"] = ok(2)

	if err := h.run(t); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(h.store.inserts) != 2 {
		t.Fatalf("expected two insert attempts without retry, got %d", len(h.store.inserts))
	}
	if h.store.inserts[1].RequestID != 2 {
		t.Fatalf("expected second item persisted, got %+v", h.store.inserts[1])
	}
	if snap := h.worker.Snapshot(); snap.InsertFailures != 1 {
		t.Fatalf("expected one insert failure, got %+v", snap)
	}
}

func TestStopLetsInFlightLookupFinish(t *testing.T) {
	h := newHarness(t, defaultOptions())
	ctx, cancel := context.WithCancel(h.ctx)
	h.ctx = ctx
	h.store.batches = [][]queue.Request{{
		{ID: 1, Origin: "A", Destination: "B"},
		{ID: 2, Origin: "C", Destination: "D"},
	}}
	h.lookup.results["A"] = ok(9)
	h.lookup.results["C"] = ok(9)
	h.lookup.hook = func(origin string) {
		if origin == "A" {
			cancel()
		}
	}

	if err := h.run(t); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(h.store.inserts) != 1 || h.store.inserts[0].RequestID != 1 {
		t.Fatalf("expected the in-flight item to be stored, got %+v", h.store.inserts)
	}
	if len(h.lookup.calls) != 1 {
		t.Fatalf("expected no further lookups after stop, got %v", h.lookup.calls)
	}
	if h.worker.Snapshot().State != StateStopped {
		t.Fatalf("expected stopped state, got %s", h.worker.Snapshot().State)
	}
}

func TestResumeScheduleOverridesMidnight(t *testing.T) {
	opts := defaultOptions()
	opts.ResumeSchedule = "0 6 * * *"
	h := newHarness(t, opts)
	h.clock.now = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	h.store.batches = [][]queue.Request{{{ID: 1, Origin: "A", Destination: "B"}}}
	h.lookup.results["A"] = upstream("REQUEST_DENIED")

	if err := h.run(t); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)
	if !h.notifier.until.Equal(want) {
		t.Fatalf("expected wake at %v, got %v", want, h.notifier.until)
	}
}

func TestNewRejectsInvalidResumeSchedule(t *testing.T) {
	_, err := New(&fakeStore{}, &fakeLookup{}, Options{ResumeSchedule: "not a cron"})
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestNextMidnight(t *testing.T) {
	zone := time.FixedZone("UTC+10", 10*60*60)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"morning", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"last second", time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"exact midnight", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"leap day", time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"year end", time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"local zone", time.Date(2024, 3, 1, 23, 0, 0, 0, zone), time.Date(2024, 3, 2, 0, 0, 0, 0, zone)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextMidnight(tt.now); !got.Equal(tt.want) {
				t.Fatalf("NextMidnight(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestStateNames(t *testing.T) {
	if StateSuspended.String() != "suspended_until_tomorrow" {
		t.Fatalf("unexpected state name %q", StateSuspended.String())
	}
	if len(stateNames()) != len(allStates) {
		t.Fatal("expected a name per state")
	}
}
