// Package metrics exposes Prometheus collectors for reconciliation, the queue and removals.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arrq"

// Metrics holds the collectors.
type Metrics struct {
	reconcileDuration *prometheus.HistogramVec
	reconcileErrors   *prometheus.CounterVec
	expired           *prometheus.CounterVec
	tracked           *prometheus.GaugeVec
	pending           prometheus.Gauge
	removals          *prometheus.CounterVec
	queueQueries      prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent polling a download client.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"client"}),
		reconcileErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_errors_total",
			Help:      "Failed download client polls.",
		}, []string{"client"}),
		expired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracked_expired_total",
			Help:      "Tracked downloads dropped after the absence grace window.",
		}, []string{"client"}),
		tracked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_downloads",
			Help:      "Tracked downloads by state.",
		}, []string{"state"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_releases",
			Help:      "Releases waiting to be grabbed.",
		}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_removals_total",
			Help:      "Queue removals by action taken.",
		}, []string{"action"}),
		queueQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_queries_total",
			Help:      "Queue page requests served.",
		}),
	}
	reg.MustRegister(m.reconcileDuration, m.reconcileErrors, m.expired, m.tracked, m.pending, m.removals, m.queueQueries)
	return m
}

// ObserveReconcile records one poll of a client.
func (m *Metrics) ObserveReconcile(client string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.reconcileDuration.WithLabelValues(client).Observe(d.Seconds())
	if err != nil {
		m.reconcileErrors.WithLabelValues(client).Inc()
	}
}

// AddExpired counts tracked downloads dropped for a client.
func (m *Metrics) AddExpired(client string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.expired.WithLabelValues(client).Add(float64(n))
}

// SetTracked replaces the per-state tracked download gauges.
func (m *Metrics) SetTracked(byState map[string]int) {
	if m == nil {
		return
	}
	m.tracked.Reset()
	for state, n := range byState {
		m.tracked.WithLabelValues(state).Set(float64(n))
	}
}

// SetPending sets the pending release gauge.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

// CountRemoval counts a removal by the action it resolved to.
func (m *Metrics) CountRemoval(action string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(action).Inc()
}

// CountQuery counts a queue page request.
func (m *Metrics) CountQuery() {
	if m == nil {
		return
	}
	m.queueQueries.Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
