package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acrctl",
			Subsystem: "reconcile",
			Name:      "total",
			Help:      "Reconcile invocations by desired state and outcome.",
		},
		[]string{"state", "outcome"},
	)
	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "acrctl",
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Reconcile duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"state", "outcome"},
	)
	arrayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acrctl",
			Subsystem: "array_api",
			Name:      "requests_total",
			Help:      "Array management API requests.",
		},
		[]string{"op", "status"},
	)
	arrayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "acrctl",
			Subsystem: "array_api",
			Name:      "request_duration_seconds",
			Help:      "Array management API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op", "status"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arraysim",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total simulator HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arraysim",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Simulator HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(reconcileTotal, reconcileDuration, arrayRequests, arrayDuration, httpRequests, httpDuration)
	})
}

// RecordReconcile counts one reconcile invocation.
func RecordReconcile(state, outcome string, duration time.Duration) {
	RegisterMetrics()
	reconcileTotal.WithLabelValues(state, outcome).Inc()
	reconcileDuration.WithLabelValues(state, outcome).Observe(duration.Seconds())
}

// RecordArrayRequest counts one management API call by logical operation.
// Status 0 means the request never reached the array.
func RecordArrayRequest(op string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	arrayRequests.WithLabelValues(op, statusLabel).Inc()
	arrayDuration.WithLabelValues(op, statusLabel).Observe(duration.Seconds())
}

// RecordHTTPRequest counts one simulator-side HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
