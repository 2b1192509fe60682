// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// CompletionDuration tracks upstream completion latency.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "Upstream LLM completion duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider", "status"},
	)

	// RepliesTotal tracks replies extracted from provider responses.
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_replies_total",
			Help: "Replies extracted from provider responses",
		},
		[]string{"provider", "shape"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)

	// MessagesTotal tracks persisted messages.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"role"},
	)

	// PersistenceFailuresTotal tracks messages that could not be stored after a reply was generated.
	PersistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "message_persistence_failures_total",
			Help: "Messages dropped because storage failed after generation",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for one upstream completion call.
func RecordCompletion(provider, status string, duration float64) {
	CompletionDuration.WithLabelValues(provider, status).Observe(duration)
}

// RecordReplies records how many replies a response yielded and in which shape.
func RecordReplies(provider, shape string, n int) {
	RepliesTotal.WithLabelValues(provider, shape).Add(float64(n))
}
