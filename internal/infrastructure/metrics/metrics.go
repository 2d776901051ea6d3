package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archie_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archie_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	HTTPErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archie_http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	// Generation
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archie_generations_total",
			Help: "Generate and refine operations by diagram kind and result",
		},
		[]string{"kind", "result"}, // result: success|failure
	)
	ExtractionDegraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archie_extraction_degraded_total",
			Help: "Extractions whose completion could not be parsed as JSON",
		},
	)
	RuleFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archie_rule_fallbacks_total",
			Help: "Rule lookups that fell back to a default table or generic instructions",
		},
		[]string{"type"}, // type: notation|kind
	)
	ArtifactChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archie_artifact_checks_total",
			Help: "Static checks of generated code by kind and result",
		},
		[]string{"kind", "result"}, // result: pass|warn
	)

	// LLM
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archie_llm_requests_total",
			Help: "Number of LLM requests by model",
		},
		[]string{"model"},
	)
	LLMFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archie_llm_failures_total",
			Help: "Classified completion failures",
		},
		[]string{"reason"},
	)
	LLMDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archie_llm_request_duration_seconds",
			Help:    "Duration of completion calls including retries",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s..32s
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(
		// HTTP
		HTTPRequests,
		HTTPDuration,
		HTTPErrors,
		// Generation
		Generations,
		ExtractionDegraded,
		RuleFallbacks,
		ArtifactChecks,
		// LLM
		LLMRequests,
		LLMFailures,
		LLMDuration,
	)
}

// NewServer returns a server exposing /metrics on addr. The caller starts it and shuts it down.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// HTTP
func ObserveHTTPRequest(method, path string, status int, statusStr string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, path).Inc()
	HTTPDuration.WithLabelValues(method, path, statusStr).Observe(d.Seconds())
	if status >= 400 {
		HTTPErrors.WithLabelValues(method, path, statusStr).Inc()
	}
}

// Generation
func IncGeneration(kind, result string) {
	Generations.WithLabelValues(kind, result).Inc()
}

func IncExtractionDegraded() {
	ExtractionDegraded.Inc()
}

func IncRuleFallback(typ string) {
	RuleFallbacks.WithLabelValues(typ).Inc()
}

func IncArtifactCheck(kind, result string) {
	ArtifactChecks.WithLabelValues(kind, result).Inc()
}

// LLM
func IncLLMRequest(model string) {
	LLMRequests.WithLabelValues(model).Inc()
}

func IncLLMFailure(reason string) {
	LLMFailures.WithLabelValues(reason).Inc()
}

func ObserveLLMDuration(model string, d time.Duration) {
	LLMDuration.WithLabelValues(model).Observe(d.Seconds())
}
