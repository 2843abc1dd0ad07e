package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes_client",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session status transitions.",
		},
		[]string{"from", "to"},
	)

	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes_client",
			Subsystem: "session",
			Name:      "probes_total",
			Help:      "Identity probes by trigger.",
		},
		[]string{"trigger"},
	)

	forcedLossesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notes_client",
			Subsystem: "session",
			Name:      "forced_losses_total",
			Help:      "Sessions dropped because a request came back 401.",
		},
	)
)
