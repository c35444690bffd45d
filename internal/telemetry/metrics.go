package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ─── Queue ───────────────────────────────────────────────────────────────────

	JobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "queuectl",
		Subsystem: "queue",
		Name:      "jobs_enqueued_total",
		Help:      "Total jobs added to the queue.",
	})

	JobsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "queuectl",
		Subsystem: "queue",
		Name:      "jobs_requeued_total",
		Help:      "Total dead jobs moved back to pending by an operator.",
	})

	StoreCorruptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "queuectl",
		Subsystem: "queue",
		Name:      "store_corrupt_total",
		Help:      "Store reads that found corrupt data and fell back to an empty collection.",
	})

	// ─── Worker ──────────────────────────────────────────────────────────────────

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queuectl",
		Subsystem: "worker",
		Name:      "jobs_processed_total",
		Help:      "Executions finished, labelled by the state the job moved to.",
	}, []string{"outcome"})

	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "queuectl",
		Subsystem: "worker",
		Name:      "jobs_inflight",
		Help:      "Commands currently executing.",
	})

	JobDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "queuectl",
		Subsystem: "worker",
		Name:      "job_duration_seconds",
		Help:      "Command execution time in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "queuectl",
		Subsystem: "worker",
		Name:      "active",
		Help:      "Workers currently running.",
	})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
