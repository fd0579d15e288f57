package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProcessorRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processor_records_total",
			Help: "Total number of records handled by the processor, by terminal status (count)",
		},
		[]string{"status"},
	)

	ProcessorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "processor_duration_ms",
			Help:    "End-to-end enrichment duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	ScorerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorer_requests_total",
			Help: "Total number of sentiment scoring requests (count)",
		},
		[]string{"status"},
	)

	ScorerCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorer_cache_total",
			Help: "Score cache lookups by outcome (count)",
		},
		[]string{"outcome"},
	)

	ReplyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_requests_total",
			Help: "Total number of auto-reply generation attempts (count)",
		},
		[]string{"status"},
	)

	ReplyFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reply_fallback_total",
			Help: "Times the fixed fallback reply was substituted for a failed generation (count)",
		},
	)

	LexiconKeywords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lexicon_keywords",
			Help: "Number of loaded lexicon entries (count)",
		},
		[]string{"table"},
	)

	RouterActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_actions_total",
			Help: "Total number of routed downstream actions (count)",
		},
		[]string{"tag"},
	)

	RouterCustomRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "router_custom_rules",
			Help: "Number of active operator-defined routing rules (count)",
		},
	)

	ActionDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_dispatch_total",
			Help: "Downstream action invocations by tag and status (count)",
		},
		[]string{"tag", "status"},
	)

	StorageUpsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_upserts_total",
			Help: "Total number of feedback upserts (count)",
		},
		[]string{"status"},
	)

	StorageQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_query_duration_ms",
			Help:    "Duration of feedback store queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"operation"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)
)

func RegisterBrokerMetrics() {
	prometheus.MustRegister(
		RetryAttemptsTotal,
		DLQMessagesTotal,
		KafkaMessagesReadTotal,
		KafkaMessagesWrittenTotal,
	)
}

func RegisterProcessorMetrics() {
	prometheus.MustRegister(
		ProcessorRecordsTotal,
		ProcessorDuration,
		ScorerRequestsTotal,
		ScorerCacheTotal,
		ReplyRequestsTotal,
		ReplyFallbackTotal,
		LexiconKeywords,
	)
}

func RegisterRouterMetrics() {
	prometheus.MustRegister(
		RouterActionsTotal,
		RouterCustomRules,
		ActionDispatchTotal,
	)
}

func RegisterStorageMetrics() {
	prometheus.MustRegister(
		StorageUpsertsTotal,
		StorageQueryDuration,
		RateLimitRequestsTotal,
	)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerFailures,
		CircuitBreakerRequests,
	)
}

func ObserveProcessorDuration(d time.Duration, status string) {
	ProcessorDuration.WithLabelValues(status).Observe(float64(d.Milliseconds()))
}

func ObserveStorageQueryDuration(d time.Duration, operation string) {
	StorageQueryDuration.WithLabelValues(operation).Observe(float64(d.Milliseconds()))
}

func SetLexiconKeywords(table string, n int) {
	LexiconKeywords.WithLabelValues(table).Set(float64(n))
}

func SetRouterCustomRules(n int) {
	RouterCustomRules.Set(float64(n))
}
