// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Model provider calls by operation and outcome (ok, transport_error, invalid_output)
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneycoach_llm_requests_total",
			Help: "Total number of model provider calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moneycoach_llm_request_duration_seconds",
			Help:    "Duration of model provider calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"operation"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneycoach_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moneycoach_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Goal store mutations by action (create, delete, progress)
	GoalMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneycoach_goal_mutations_total",
			Help: "Total number of goal mutations by action",
		},
		[]string{"action"},
	)

	// Conversational replies by resolved intent and result (applied, clarified, failed)
	AssistantReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneycoach_assistant_replies_total",
			Help: "Total number of goal assistant replies by intent and result",
		},
		[]string{"intent", "result"},
	)

	// Categorised transactions by source (memo, model)
	TransactionsCategorised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneycoach_transactions_categorised_total",
			Help: "Total number of categorised transactions by assignment source",
		},
		[]string{"source"},
	)

	CheckInsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moneycoach_checkins_created_total",
			Help: "Total number of daily check-ins created",
		},
	)

	MomentsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneycoach_moments_emitted_total",
			Help: "Total number of transformation moments emitted by type",
		},
		[]string{"type"},
	)

	PlaybooksGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneycoach_playbooks_generated_total",
			Help: "Total number of playbook generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moneycoach_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	SuspiciousRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moneycoach_suspicious_requests_total",
			Help: "Total number of requests matching a probe pattern",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneycoach_cache_lookups_total",
			Help: "Total number of view cache lookups by result",
		},
		[]string{"result"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one served request. route is the matched ServeMux pattern.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
