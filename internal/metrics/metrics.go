package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConversationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gardenllm",
			Subsystem: "conversation",
			Name:      "active",
			Help:      "Conversations currently held in memory",
		},
	)

	ConversationsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gardenllm",
			Subsystem: "conversation",
			Name:      "evicted_total",
			Help:      "Conversations removed from memory",
		},
		[]string{"reason"},
	)

	MessagesTrimmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gardenllm",
			Subsystem: "conversation",
			Name:      "messages_trimmed_total",
			Help:      "Messages dropped by budget or category limits",
		},
		[]string{"reason"},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gardenllm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gardenllm",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "LLM completion duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"mode", "status"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gardenllm",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Calls to the weather and spreadsheet APIs",
		},
		[]string{"service", "status"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
