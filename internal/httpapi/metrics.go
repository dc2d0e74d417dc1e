// Package httpapi exposes one review session over HTTP: the review
// endpoints under /api/v1 plus health and Prometheus metrics.
package httpapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests.
	// Labels: method, path, status
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkrev",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration tracks request latency.
	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "linkrev",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// PairsServed counts comparison pairs returned to clients.
	PairsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linkrev",
			Subsystem: "review",
			Name:      "pairs_served_total",
			Help:      "Total comparison pairs served for review",
		},
	)

	// LabelsSaved counts label writes.
	// Labels: kind (label, note)
	LabelsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkrev",
			Subsystem: "review",
			Name:      "saves_total",
			Help:      "Total label and note writes",
		},
		[]string{"kind"},
	)

	// NavigationOps counts cursor movements.
	// Labels: action (advance, retreat, next-unlabeled, prev-unlabeled, jump)
	NavigationOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkrev",
			Subsystem: "review",
			Name:      "navigation_total",
			Help:      "Total navigation operations by action",
		},
		[]string{"action"},
	)
)

// observeRequest records one completed request.
func observeRequest(method, path string, status int, dur time.Duration) {
	RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	RequestDuration.Observe(dur.Seconds())
}
