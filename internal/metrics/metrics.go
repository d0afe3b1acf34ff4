// Package metrics exposes Prometheus collectors for the dashboard core.
package metrics

import (
	"net/http"

	"ipmitree/internal/refresh"
	"ipmitree/internal/shutdown"
	"ipmitree/internal/tree"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ipmitree"

// Metrics groups the collectors. Each instance owns its registry so tests
// and multiple engines do not collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	steps        prometheus.Counter
	examined     prometheus.Counter
	performed    prometheus.Counter
	failed       prometheus.Counter
	restarts     prometheus.Counter
	stepDuration prometheus.Histogram

	events     *prometheus.CounterVec
	violations prometheus.Counter
	nodes      prometheus.Gauge

	shutdowns        *prometheus.CounterVec
	shutdownDuration prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "refresh", Name: "steps_total",
			Help: "Number of refresh scheduler steps run.",
		}),
		examined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "refresh", Name: "examined_total",
			Help: "Nodes examined by the refresh scheduler.",
		}),
		performed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "refresh", Name: "performed_total",
			Help: "Refresh invocations issued.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "refresh", Name: "failed_total",
			Help: "Refresh invocations that returned an error or panicked.",
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "refresh", Name: "cursor_restarts_total",
			Help: "Steps that restarted because the saved cursor was gone.",
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "refresh", Name: "step_duration_seconds",
			Help:    "Wall time spent in one scheduler step.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bridge", Name: "events_total",
			Help: "Monitoring events applied, by event and outcome.",
		}, []string{"event", "outcome"}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tree", Name: "invariant_violations_total",
			Help: "Counter updates that would have gone negative.",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "tree", Name: "nodes",
			Help: "Nodes currently in the tree, root included.",
		}),
		shutdowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "shutdown", Name: "completed_total",
			Help: "Shutdown barriers completed, by outcome.",
		}, []string{"outcome"}),
		shutdownDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "shutdown", Name: "duration_seconds",
			Help:    "Time from Begin to completion of a shutdown barrier.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.steps, m.examined, m.performed, m.failed, m.restarts, m.stepDuration,
		m.events, m.violations, m.nodes,
		m.shutdowns, m.shutdownDuration,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStep records one scheduler step.
func (m *Metrics) ObserveStep(res refresh.StepResult) {
	m.steps.Inc()
	m.examined.Add(float64(res.Examined))
	m.performed.Add(float64(res.Performed))
	m.failed.Add(float64(res.Failed))
	if res.Restarted {
		m.restarts.Inc()
	}
	m.stepDuration.Observe(res.Duration.Seconds())
}

// ObserveEvent records one bridged event.
func (m *Metrics) ObserveEvent(label string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.events.WithLabelValues(label, outcome).Inc()
}

// ObserveViolation records one invariant violation.
func (m *Metrics) ObserveViolation(tree.Violation) {
	m.violations.Inc()
}

// SetNodes records the current tree size.
func (m *Metrics) SetNodes(n int) {
	m.nodes.Set(float64(n))
}

// ObserveShutdown records a completed shutdown barrier.
func (m *Metrics) ObserveShutdown(res shutdown.Result) {
	outcome := "closed"
	if res.TimedOut {
		outcome = "timed_out"
	}
	m.shutdowns.WithLabelValues(outcome).Inc()
	m.shutdownDuration.Observe(res.Elapsed.Seconds())
}
