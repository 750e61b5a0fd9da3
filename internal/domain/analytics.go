package domain

import "time"

// ============================================================
// Cache analytics: samples, reports, trends, suggestions
// ============================================================

// CacheMetricSample is one point in the cache/provider performance time
// series, captured on a fixed interval by the analytics engine.
type CacheMetricSample struct {
	Timestamp    time.Time `json:"timestamp"`
	HitRate      float64   `json:"hitRate"`      // %
	MissRate     float64   `json:"missRate"`     // %
	ResponseTime float64   `json:"responseTime"` // ms, mean across providers
	CacheSize    int64     `json:"cacheSize"`    // bytes
	RequestCount int64     `json:"requestCount"` // requests in the sampling interval
	ErrorRate    float64   `json:"errorRate"`    // %
	CostSavings  float64   `json:"costSavings"`  // USD saved by cache hits in the interval
}

// CacheStats is the cumulative view exposed by the cache collaborator.
type CacheStats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Entries     int64   `json:"entries"`
	SizeBytes   int64   `json:"sizeBytes"`
	CostSavings float64 `json:"costSavings"` // cumulative USD
}

// Trend labels the direction of a metric between two halves of a window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendImproving  Trend = "improving" // response time going down
	TrendDegrading  Trend = "degrading" // response time going up
	TrendStable     Trend = "stable"
)

// ReportTrends summarises metric direction over the report window.
type ReportTrends struct {
	HitRate      Trend `json:"hitRate"`
	ResponseTime Trend `json:"responseTime"`
	Usage        Trend `json:"usage"`
}

// CachePerformanceReport aggregates samples over a lookback period.
type CachePerformanceReport struct {
	Period          string       `json:"period"`
	GeneratedAt     time.Time    `json:"generatedAt"`
	SampleCount     int          `json:"sampleCount"`
	AvgHitRate      float64      `json:"avgHitRate"`
	AvgResponseTime float64      `json:"avgResponseTime"`
	TotalRequests   int64        `json:"totalRequests"`
	TotalHits       int64        `json:"totalHits"`
	CostSavingsUSD  float64      `json:"costSavingsUsd"`
	EfficiencyScore float64      `json:"efficiencyScore"` // 0-100 composite
	Trends          ReportTrends `json:"trends"`
	Recommendations []string     `json:"recommendations"`
}

// SuggestionPriority ranks optimization suggestions.
type SuggestionPriority string

const (
	PriorityLow    SuggestionPriority = "low"
	PriorityMedium SuggestionPriority = "medium"
	PriorityHigh   SuggestionPriority = "high"
)

// OptimizationSuggestion is a rule-derived tuning recommendation.
type OptimizationSuggestion struct {
	Type           string             `json:"type"`
	Priority       SuggestionPriority `json:"priority"`
	Description    string             `json:"description"`
	ExpectedImpact string             `json:"expectedImpact"`
	Effort         string             `json:"effort"` // estimated implementation effort
}

// ProviderReport is a per-provider operational summary over a lookback
// window of days.
type ProviderReport struct {
	ProviderID      string   `json:"providerId"`
	PeriodDays      int      `json:"periodDays"`
	Uptime          float64  `json:"uptime"`          // %
	AvgResponseTime float64  `json:"avgResponseTime"` // ms
	SuccessRate     float64  `json:"successRate"`     // %
	QuotaUsagePct   float64  `json:"quotaUsagePct"`   // %
	Trend           Trend    `json:"trend"`
	Recommendations []string `json:"recommendations"`
}

// SystemHealth is the aggregate view of the provider fleet.
type SystemHealth struct {
	OverallHealth        string  `json:"overallHealth"` // healthy, degraded, unhealthy
	AvailableProviders   int     `json:"availableProviders"`
	TotalProviders       int     `json:"totalProviders"`
	AverageResponseTime  float64 `json:"averageResponseTime"`  // ms, across available providers
	AggregatedThroughput float64 `json:"aggregatedThroughput"` // req/min
	TopProvider          string  `json:"topProvider"`
}

// EngineMetrics is the cumulative metrics snapshot served by the
// GET /v1/metrics/engine endpoint.
type EngineMetrics struct {
	TotalRequests       int64   `json:"totalRequests"`
	ErrorRate           float64 `json:"errorRate"`
	FallbackRate        float64 `json:"fallbackRate"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	TotalTokens         float64 `json:"totalTokens"`
	EstimatedCostUsd    float64 `json:"estimatedCostUsd"`
	AvgTokensPerRequest float64 `json:"avgTokensPerRequest"`
	Period              string  `json:"period"`
}
