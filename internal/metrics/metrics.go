// Package metrics defines Prometheus instrumentation for retrieval and
// answering. Registration is explicit and idempotent; callers that never
// register simply get unexported collectors that are cheap to update.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docent",
			Name:      "retrieval_requests_total",
			Help:      "Total number of retrieval requests",
		},
		[]string{"mode", "status"}, // mode: "hybrid" / "vector_fallback"
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docent",
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)

	RetrievalChunksReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docent",
			Name:      "retrieval_chunks_returned",
			Help:      "Number of chunks returned per retrieval after curation",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15},
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docent",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	AgentStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docent",
			Name:      "agent_steps_total",
			Help:      "Total agent loop steps, by outcome of the step",
		},
		[]string{"outcome"}, // "tool_call" / "final_answer" / "cap_reached"
	)
)

var registerOnce sync.Once

// Register registers all docent metrics with the default registry.
// Safe to call from concurrent initializers; only the first call registers.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RetrievalRequestsTotal)
		prometheus.MustRegister(RetrievalDuration)
		prometheus.MustRegister(RetrievalChunksReturned)
		prometheus.MustRegister(EmbeddingRequestsTotal)
		prometheus.MustRegister(AgentStepsTotal)
	})
}
