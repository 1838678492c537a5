// Package metrics exposes Prometheus collectors for the drive-time worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "drivetime"

// Metrics owns a private registry so tests and multiple daemons in one process
// do not collide on the global one. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	lookups        *prometheus.CounterVec
	lookupDuration prometheus.Histogram
	batches        prometheus.Counter
	batchItems     prometheus.Counter
	inserts        *prometheus.CounterVec
	reconciles     *prometheus.CounterVec
	suspensions    prometheus.Counter
	state          *prometheus.GaugeVec
}

// New builds and registers the worker collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Distance lookups by outcome.",
		}, []string{"outcome"}),
		lookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Latency of distance lookups.",
			Buckets:   prometheus.DefBuckets,
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Non-empty batches fetched from the queue.",
		}),
		batchItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Requests fetched across all batches.",
		}),
		inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_inserts_total",
			Help:      "Result inserts by result (ok or failed).",
		}, []string{"result"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Reconcile passes by result (ok or failed).",
		}, []string{"result"}),
		suspensions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspensions_total",
			Help:      "Times the worker suspended until the next day.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_state",
			Help:      "1 for the worker's current state, 0 otherwise.",
		}, []string{"state"}),
	}
	m.registry.MustRegister(
		m.lookups,
		m.lookupDuration,
		m.batches,
		m.batchItems,
		m.inserts,
		m.reconciles,
		m.suspensions,
		m.state,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WatchQueue registers gauges that read queue depth on every scrape.
func (m *Metrics) WatchQueue(pending, locked func() float64) {
	if m == nil {
		return
	}
	if pending != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending",
			Help:      "Requests waiting to be fetched.",
		}, pending))
	}
	if locked != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_locked",
			Help:      "Requests claimed by a batch and not yet completed.",
		}, locked))
	}
}

// ObserveLookup records one lookup and its latency.
func (m *Metrics) ObserveLookup(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome).Inc()
	m.lookupDuration.Observe(elapsed.Seconds())
}

// BatchFetched records a non-empty batch of n requests.
func (m *Metrics) BatchFetched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.batches.Inc()
	m.batchItems.Add(float64(n))
}

// ObserveInsert records a result insert.
func (m *Metrics) ObserveInsert(err error) {
	if m == nil {
		return
	}
	m.inserts.WithLabelValues(resultLabel(err)).Inc()
}

// ObserveReconcile records a reconcile pass.
func (m *Metrics) ObserveReconcile(err error) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(resultLabel(err)).Inc()
}

// Suspended records entry into the suspend-until-tomorrow state.
func (m *Metrics) Suspended() {
	if m == nil {
		return
	}
	m.suspensions.Inc()
}

// SetState marks current as the active worker state among states.
func (m *Metrics) SetState(current string, states []string) {
	if m == nil {
		return
	}
	for _, state := range states {
		value := 0.0
		if state == current {
			value = 1
		}
		m.state.WithLabelValues(state).Set(value)
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
