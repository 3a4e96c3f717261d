package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inferworker_job_duration_seconds",
		Help:    "Duration of jobs forwarded to the backend",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"shape", "status"})

	jobStatusTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inferworker_job_status_total",
		Help: "Total jobs handled grouped by request shape and status",
	}, []string{"shape", "status"})

	backendReady = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inferworker_backend_ready",
		Help: "Whether the backend answered its readiness endpoint (1) or not (0)",
	})

	readinessAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inferworker_backend_readiness_attempts_total",
		Help: "Number of readiness probes sent to the backend",
	})

	modelPullTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inferworker_model_pull_total",
		Help: "Number of model pull attempts grouped by outcome",
	}, []string{"status"})
)

// ObserveJob records the duration and status of a handled job.
func ObserveJob(shape, status string, duration time.Duration) {
	if shape == "" {
		shape = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	jobDuration.WithLabelValues(shape, status).Observe(duration.Seconds())
	jobStatusTotal.WithLabelValues(shape, status).Inc()
}

// SetBackendReady records the backend readiness flag.
func SetBackendReady(ready bool) {
	if ready {
		backendReady.Set(1)
		return
	}
	backendReady.Set(0)
}

// ObserveReadinessAttempt counts one readiness probe.
func ObserveReadinessAttempt() {
	readinessAttempts.Inc()
}

// ObserveModelPull records the outcome of a model pull.
func ObserveModelPull(success bool) {
	if success {
		modelPullTotal.WithLabelValues("success").Inc()
		return
	}
	modelPullTotal.WithLabelValues("failed").Inc()
}
