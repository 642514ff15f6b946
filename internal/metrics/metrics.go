// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream termination reasons.
const (
	TerminationEOF       = "eof"
	TerminationFault     = "fault"
	TerminationCancelled = "cancelled"
)

var (
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloomo_chat_requests_total",
		Help: "Chat requests by outcome before streaming starts",
	}, []string{"outcome"})

	ModelSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloomo_model_selections_total",
		Help: "Concrete models chosen by the router",
	}, []string{"model"})

	StreamFragments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bloomo_stream_fragments_total",
		Help: "Fragments forwarded to callers",
	})

	StreamTerminations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloomo_stream_terminations_total",
		Help: "How relayed streams ended",
	}, []string{"reason"})

	PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloomo_persistence_failures_total",
		Help: "Best-effort persistence writes that failed and were dropped",
	}, []string{"op"})

	AnalyticsEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloomo_analytics_events_total",
		Help: "Analytics events emitted by kind and sink",
	}, []string{"kind", "sink"})
)
