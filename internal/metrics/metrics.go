// Package metrics exports Prometheus collectors shared across the
// retrieval engine, the agent, and the streaming pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetrievalCalls counts catalog retrieval calls by operation and outcome.
	RetrievalCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "movieai",
		Subsystem: "retrieval",
		Name:      "calls_total",
		Help:      "Catalog retrieval calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	// RetrievalDuration observes catalog retrieval latency by operation.
	RetrievalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "movieai",
		Subsystem: "retrieval",
		Name:      "duration_seconds",
		Help:      "Catalog retrieval latency by operation.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"operation"})

	// AgentTurns counts agent turns by resulting event type.
	AgentTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "movieai",
		Subsystem: "agent",
		Name:      "turns_total",
		Help:      "Agent turns by resulting event type.",
	}, []string{"event"})

	// MoviesEmitted counts movies emitted by the enrichment pipeline.
	MoviesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "movieai",
		Subsystem: "stream",
		Name:      "movies_emitted_total",
		Help:      "Movies emitted by the enrichment pipeline.",
	})

	// HydrationTimeouts counts per-candidate hydration timeouts.
	HydrationTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "movieai",
		Subsystem: "stream",
		Name:      "hydration_timeouts_total",
		Help:      "Per-candidate hydration fetches that exceeded the deadline.",
	})

	// ExcludedLeaks counts excluded ids found at emission time; a non-zero
	// rate indicates an upstream filtering gap.
	ExcludedLeaks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "movieai",
		Subsystem: "stream",
		Name:      "excluded_leaks_total",
		Help:      "Excluded ids caught by the defensive emission check.",
	})
)
