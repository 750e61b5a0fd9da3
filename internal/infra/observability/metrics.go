package observability

import (
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	providerErrors  *prometheus.CounterVec
	probesTotal     *prometheus.CounterVec
	healthScore     *prometheus.GaugeVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	costTotal       *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	fallbacksTotal  prometheus.Counter
	alertsTotal     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// engine metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		providerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_provider_errors_total",
				Help: "Total invocation errors per provider.",
			},
			[]string{"provider"},
		),
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_health_probes_total",
				Help: "Total health probes per provider and result.",
			},
			[]string{"provider", "result"},
		),
		healthScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "engine_provider_health_score",
				Help: "Current composite health score (0-100) per provider.",
			},
			[]string{"provider"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_provider_tokens_total",
				Help: "Total tokens consumed per provider.",
			},
			[]string{"provider"},
		),
		costTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_provider_cost_usd_total",
				Help: "Total estimated spend per provider, USD.",
			},
			[]string{"provider"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_requests_total",
				Help: "Total orchestrated requests by status.",
			},
			[]string{"status"},
		),
		fallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_fallbacks_total",
				Help: "Total fallback hops taken.",
			},
		),
		alertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_alerts_total",
				Help: "Total alerts raised by type and severity.",
			},
			[]string{"type", "severity"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrProviderError increments the invocation error counter for a provider.
func (m *Metrics) IncrProviderError(provider string) {
	m.providerErrors.WithLabelValues(provider).Inc()
}

// IncrProbe counts one health probe outcome.
func (m *Metrics) IncrProbe(provider string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.probesTotal.WithLabelValues(provider, result).Inc()
}

// SetHealthScore publishes the provider's current health score.
func (m *Metrics) SetHealthScore(provider string, score int) {
	m.healthScore.WithLabelValues(provider).Set(float64(score))
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens adds token usage for a provider.
func (m *Metrics) RecordTokens(provider string, tokens int) {
	m.tokensUsed.WithLabelValues(provider).Add(float64(tokens))
}

// AddCost adds estimated spend for a provider.
func (m *Metrics) AddCost(provider string, cost float64) {
	m.costTotal.WithLabelValues(provider).Add(cost)
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrFallback counts one fallback hop.
func (m *Metrics) IncrFallback() {
	m.fallbacksTotal.Inc()
}

// IncrAlert counts one raised alert.
func (m *Metrics) IncrAlert(alertType, severity string) {
	m.alertsTotal.WithLabelValues(alertType, severity).Inc()
}

// Snapshot returns cumulative engine metrics suitable for the
// GET /v1/metrics/engine endpoint.
func (m *Metrics) Snapshot(providers []string) *domain.EngineMetrics {
	success := getCounterValue(m.requestsTotal, "success")
	errors := getCounterValue(m.requestsTotal, "error")
	total := success + errors

	hits := getCounterValue(m.cacheHits, "responses")
	misses := getCounterValue(m.cacheMisses, "responses")

	var tokens, cost float64
	for _, p := range providers {
		tokens += getCounterValue(m.tokensUsed, p)
		cost += getCounterValue(m.costTotal, p)
	}

	fallbacks := getSingleCounterValue(m.fallbacksTotal)

	snap := &domain.EngineMetrics{
		TotalRequests:    int64(total),
		TotalTokens:      tokens,
		EstimatedCostUsd: cost,
		Period:           "all_time",
	}
	if total > 0 {
		snap.ErrorRate = errors / total
		snap.FallbackRate = fallbacks / total
		snap.AvgTokensPerRequest = tokens / total
	}
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getSingleCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
