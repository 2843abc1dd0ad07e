package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes_client",
			Subsystem: "query",
			Name:      "lookups_total",
			Help:      "Query lookups by resource and outcome (fresh, stale, invalidated, miss, disabled).",
		},
		[]string{"resource", "outcome"},
	)

	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes_client",
			Subsystem: "query",
			Name:      "fetches_total",
			Help:      "Fetches issued by resource and result.",
		},
		[]string{"resource", "result"},
	)

	dedupJoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes_client",
			Subsystem: "query",
			Name:      "dedup_joins_total",
			Help:      "Callers that attached to an already in-flight fetch.",
		},
		[]string{"resource"},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes_client",
			Subsystem: "mutation",
			Name:      "total",
			Help:      "Mutations by name and result.",
		},
		[]string{"name", "result"},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
