// Package metrics registers the collector's Prometheus metrics. The
// orchestrator updates them; the HTTP server exposes them on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts runs by mode and outcome (ok, error code).
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_runs_total",
			Help: "Collector runs by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// RunDuration observes run wall time.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "di_run_duration_seconds",
			Help:    "Collector run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"mode"},
	)

	// WindowsWritten counts committed window objects.
	WindowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "di_windows_written_total",
		Help: "Window objects written to storage",
	})

	// WindowsSkipped counts windows with no events.
	WindowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "di_windows_skipped_total",
		Help: "Windows skipped because no events were returned",
	})

	// EventsFetched counts records returned per service.
	EventsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_events_fetched_total",
			Help: "Event records fetched from the upstream API",
		},
		[]string{"service"},
	)

	// UpstreamRequests counts API calls per service.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_upstream_requests_total",
			Help: "Requests made to the upstream events API",
		},
		[]string{"service"},
	)

	// ObjectsArchived counts relocated objects by kind (moved, quarantined).
	ObjectsArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_objects_archived_total",
			Help: "Objects relocated by the archiver",
		},
		[]string{"kind"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_http_requests_total",
			Help: "Trigger requests served",
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveRun records a finished run.
func ObserveRun(mode, outcome string, elapsed time.Duration) {
	RunsTotal.WithLabelValues(mode, outcome).Inc()
	RunDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// Middleware counts trigger requests by method, path and status.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
