package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes_client",
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status class (or \"error\" when no response).",
		},
		[]string{"method", "class"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notes_client",
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "HTTP round-trip latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
