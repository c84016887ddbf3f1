// Package metrics holds the Prometheus collectors shared by the api and the enricher
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "swiftconcur"

// Rate limiter decisions
const (
	DecisionAllowed  = "allowed"
	DecisionDenied   = "denied"
	DecisionFailOpen = "fail_open"
)

// Background task outcomes
const (
	TaskOK      = "ok"
	TaskError   = "error"
	TaskPanic   = "panic"
	TaskDropped = "dropped"
)

// Enrichment job outcomes
const (
	JobDone      = "done"
	JobRetried   = "retried"
	JobAbandoned = "abandoned"
)

var (
	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "reports_total",
			Help:      "Warning reports handled, partitioned by outcome class.",
		},
		[]string{"outcome"},
	)

	warningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "warnings_total",
			Help:      "Warnings accepted across all reports.",
		},
	)

	ingestSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "seconds",
			Help:      "Admission latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	persistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "persist_failures_total",
			Help:      "Persistence failures by target store.",
		},
		[]string{"target"},
	)

	rateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter decisions.",
		},
		[]string{"decision"},
	)

	backgroundTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "tasks_total",
			Help:      "Background tasks by outcome.",
		},
		[]string{"pool", "outcome"},
	)

	liveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "connections",
			Help:      "Open live connections across all repositories.",
		},
	)

	liveDeliveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "deliveries_total",
			Help:      "Events delivered to live connections.",
		},
	)

	enrichJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "jobs_total",
			Help:      "Enrichment jobs by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches the collectors to reg; repeated calls are fine
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		reportsTotal,
		warningsTotal,
		ingestSeconds,
		persistFailures,
		rateDecisions,
		backgroundTasks,
		liveConnections,
		liveDeliveries,
		enrichJobs,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler serves the default gatherer
func Handler() http.Handler { return promhttp.Handler() }

// ObserveReport records one admission outcome and its latency
func ObserveReport(outcome string, warnings int, d time.Duration) {
	reportsTotal.WithLabelValues(outcome).Inc()
	if warnings > 0 {
		warningsTotal.Add(float64(warnings))
	}
	if d < 0 {
		d = 0
	}
	ingestSeconds.Observe(d.Seconds())
}

// PersistFailed counts a failed write to target ("blob" or "rows")
func PersistFailed(target string) { persistFailures.WithLabelValues(target).Inc() }

// RateDecision counts one limiter decision
func RateDecision(decision string) { rateDecisions.WithLabelValues(decision).Inc() }

// BackgroundTask counts a finished, failed or dropped task
func BackgroundTask(pool, outcome string) { backgroundTasks.WithLabelValues(pool, outcome).Inc() }

// LiveConnections moves the open connection gauge by delta
func LiveConnections(delta int) { liveConnections.Add(float64(delta)) }

// LiveDelivered counts n successful deliveries
func LiveDelivered(n int) {
	if n > 0 {
		liveDeliveries.Add(float64(n))
	}
}

// EnrichJob counts one consumer outcome
func EnrichJob(outcome string) { enrichJobs.WithLabelValues(outcome).Inc() }
