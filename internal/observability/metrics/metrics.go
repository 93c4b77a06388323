// Package metrics owns the service's Prometheus registry. Nothing registers
// against the global default, so tests can build as many instances as they
// like without collisions.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// stageBuckets cover everything from a progress write to a slow model call.
var stageBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// PipelineMetrics tracks processing runs and the HTTP surface.
type PipelineMetrics struct {
	registry *prometheus.Registry

	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runsInFlight  prometheus.Gauge

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPipelineMetrics builds a metrics set on a fresh registry.
func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	runsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "labsight",
		Subsystem: "pipeline",
		Name:      "runs_started_total",
		Help:      "Total processing runs started.",
	})
	runsCompleted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labsight",
			Subsystem: "pipeline",
			Name:      "runs_completed_total",
			Help:      "Total processing runs finished, by outcome.",
		},
		[]string{"outcome"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "labsight",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Processing stage duration in seconds.",
			Buckets:   stageBuckets,
		},
		[]string{"stage"},
	)
	runsInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "labsight",
		Subsystem: "pipeline",
		Name:      "runs_in_flight",
		Help:      "Number of processing runs currently executing.",
	})

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labsight",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "labsight",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(
		runsStarted,
		runsCompleted,
		stageDuration,
		runsInFlight,
		requestTotal,
		requestDuration,
	)

	return &PipelineMetrics{
		registry:        registry,
		runsStarted:     runsStarted,
		runsCompleted:   runsCompleted,
		stageDuration:   stageDuration,
		runsInFlight:    runsInFlight,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
	}
}

// Handler exposes the registry for the /metrics route.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunStarted records a new processing run.
func (m *PipelineMetrics) RunStarted() {
	m.runsStarted.Inc()
	m.runsInFlight.Inc()
}

// RunFinished records a run ending with the given outcome ("complete" or
// "error").
func (m *PipelineMetrics) RunFinished(outcome string) {
	m.runsInFlight.Dec()
	m.runsCompleted.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a processing stage took.
func (m *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// Middleware records request counts and latency per route. The gin route
// template keeps document ids out of the path label.
func (m *PipelineMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		m.requestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
