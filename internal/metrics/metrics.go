// Package metrics owns the Prometheus collectors for the USSD service. All
// recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sacco"

var histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// Metrics groups the service collectors.
type Metrics struct {
	callbacks      *prometheus.CounterVec
	callbackTiming *prometheus.HistogramVec
	ledgerOps      *prometheus.CounterVec
	sessions       prometheus.Gauge
	replays        prometheus.Counter
	saveFailures   prometheus.Counter
	rateLimitHits  prometheus.Counter
}

// New creates the collectors and registers them with reg. Collectors already
// registered under the same name are reused, so New may be called more than
// once per process.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ussd",
			Name:      "callbacks_total",
			Help:      "Count of processed USSD callbacks by response type",
		}, []string{"response"}),
		callbackTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ussd",
			Name:      "callback_duration_seconds",
			Help:      "Latency distribution of USSD callbacks",
			Buckets:   histogramBuckets,
		}, []string{"response"}),
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and result",
		}, []string{"operation", "result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions held by the in-memory session store",
		}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ussd",
			Name:      "replays_total",
			Help:      "Callbacks answered from the replay cache",
		}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "save_failures_total",
			Help:      "Session writes that failed after a callback was answered",
		}),
		rateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ussd",
			Name:      "rate_limit_hits_total",
			Help:      "Callbacks rejected by the per-phone rate limit",
		}),
	}
	if reg == nil {
		return m
	}

	m.callbacks = register(reg, m.callbacks)
	m.callbackTiming = register(reg, m.callbackTiming)
	m.ledgerOps = register(reg, m.ledgerOps)
	m.sessions = register(reg, m.sessions)
	m.replays = register(reg, m.replays)
	m.saveFailures = register(reg, m.saveFailures)
	m.rateLimitHits = register(reg, m.rateLimitHits)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// ObserveCallback records one answered callback. response is "con", "end" or
// "error".
func (m *Metrics) ObserveCallback(response string, duration time.Duration) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(response).Inc()
	m.callbackTiming.WithLabelValues(response).Observe(duration.Seconds())
}

// LedgerOperation counts a withdraw or deposit attempt.
func (m *Metrics) LedgerOperation(operation, result string) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(operation, result).Inc()
}

// SetActiveSessions reports the current session count.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Replayed counts a callback answered from cache.
func (m *Metrics) Replayed() {
	if m == nil {
		return
	}
	m.replays.Inc()
}

// SessionSaveFailed counts a lost session write.
func (m *Metrics) SessionSaveFailed() {
	if m == nil {
		return
	}
	m.saveFailures.Inc()
}

// RateLimited counts a rejected callback.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimitHits.Inc()
}
