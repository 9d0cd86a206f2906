package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IFCEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ifc_evaluations_total",
			Help: "Total number of filter criteria documents evaluated (count)",
		},
		[]string{"session_case", "status"},
	)

	IFCCriterionFaultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ifc_criterion_faults_total",
			Help: "Total number of individual filter criteria skipped because they could not be evaluated (count)",
		},
		[]string{"stage"},
	)

	IFCApplicationServers = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ifc_application_servers",
			Help:    "Number of application servers selected per evaluation (count)",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)

	IFCProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ifc_processing_duration_ms",
			Help:    "Filter criteria evaluation duration in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100},
		},
		[]string{"status"},
	)

	EnumLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enum_lookups_total",
			Help: "Total number of number translations (count)",
		},
		[]string{"backend", "result"},
	)

	EnumLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enum_lookup_duration_ms",
			Help:    "Number translation duration in milliseconds",
			Buckets: []float64{0.1, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"backend"},
	)

	EnumDNSQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enum_dns_queries_total",
			Help: "Total number of NAPTR queries issued (count)",
		},
		[]string{"result"},
	)

	EnumNumberBlocks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "enum_number_blocks",
			Help: "Number of static ENUM number blocks currently loaded (count)",
		},
	)

	BGCFRoutes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bgcf_routes",
			Help: "Number of BGCF routes currently loaded (count)",
		},
	)

	SubscriberFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriber_fetch_total",
			Help: "Total number of filter criteria document fetches (count)",
		},
		[]string{"connector", "status"},
	)

	SubscriberFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subscriber_fetch_duration_ms",
			Help:    "Duration of filter criteria document fetches in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"connector"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"component"},
	)

	TraceEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trace_events_total",
			Help: "Total number of diagnostic trace events by outcome (count)",
		},
		[]string{"sink", "status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
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

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Register adds every routing collector to the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			IFCEvaluationsTotal,
			IFCCriterionFaultsTotal,
			IFCApplicationServers,
			IFCProcessingDuration,
			EnumLookupsTotal,
			EnumLookupDuration,
			EnumDNSQueriesTotal,
			EnumNumberBlocks,
			BGCFRoutes,
			SubscriberFetchTotal,
			SubscriberFetchDuration,
			RetryAttemptsTotal,
			TraceEventsTotal,
			CircuitBreakerState,
			CircuitBreakerRequests,
			CircuitBreakerFailures,
			RateLimitRequestsTotal,
		)
	})
}

func ObserveIFCEvaluation(sessionCase, status string, duration time.Duration, servers int) {
	IFCEvaluationsTotal.WithLabelValues(sessionCase, status).Inc()
	IFCProcessingDuration.WithLabelValues(status).Observe(milliseconds(duration))
	IFCApplicationServers.Observe(float64(servers))
}

func IncIFCCriterionFault(stage string) {
	IFCCriterionFaultsTotal.WithLabelValues(stage).Inc()
}

func ObserveEnumLookup(backend, result string, duration time.Duration) {
	EnumLookupsTotal.WithLabelValues(backend, result).Inc()
	EnumLookupDuration.WithLabelValues(backend).Observe(milliseconds(duration))
}

func IncEnumDNSQuery(result string) {
	EnumDNSQueriesTotal.WithLabelValues(result).Inc()
}

func SetEnumNumberBlocks(count int) {
	EnumNumberBlocks.Set(float64(count))
}

func SetBGCFRoutes(count int) {
	BGCFRoutes.Set(float64(count))
}

func ObserveSubscriberFetch(connector, status string, duration time.Duration) {
	SubscriberFetchTotal.WithLabelValues(connector, status).Inc()
	SubscriberFetchDuration.WithLabelValues(connector).Observe(milliseconds(duration))
}

func IncTraceEvent(sink, status string) {
	TraceEventsTotal.WithLabelValues(sink, status).Inc()
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
