package domain

import "time"

// ============================================================
// Provider records & health state
// ============================================================

// ProviderStatus is the operational state of an AI provider.
type ProviderStatus string

const (
	StatusHealthy     ProviderStatus = "healthy"
	StatusDegraded    ProviderStatus = "degraded"
	StatusFailed      ProviderStatus = "failed"
	StatusMaintenance ProviderStatus = "maintenance"
)

// Capability is a tag advertising what kind of analysis a provider supports.
type Capability string

const (
	CapabilityContractAnalysis Capability = "contract-analysis"
	CapabilityRiskScoring      Capability = "risk-scoring"
	CapabilitySummarization    Capability = "summarization"
	CapabilityMultilingual     Capability = "multilingual"
	CapabilityLongContext      Capability = "long-context"
)

// Quota tracks usage limits for a provider.
type Quota struct {
	MaxTokens  int     `json:"maxTokens"`
	RateLimit  int     `json:"rateLimit"` // requests per minute
	DailyQuota float64 `json:"dailyQuota"`
	UsedQuota  float64 `json:"usedQuota"`
}

// ProviderRecord holds the live metrics and state of one AI provider.
// Records are created at process start for every configured provider and
// live for the process lifetime.
type ProviderRecord struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Status              ProviderStatus `json:"status"`
	Uptime              float64        `json:"uptime"`       // %, windowed over recent probes
	ResponseTime        float64        `json:"responseTime"` // ms, EWMA
	ErrorRate           float64        `json:"errorRate"`    // %, windowed over recent probes
	Throughput          float64        `json:"throughput"`   // requests per minute
	LastHealthCheck     time.Time      `json:"lastHealthCheck"`
	ConsecutiveFailures int            `json:"consecutiveFailures"`
	TotalRequests       int64          `json:"totalRequests"`
	SuccessfulRequests  int64          `json:"successfulRequests"`
	AvgTokensPerRequest float64        `json:"avgTokensPerRequest"` // EWMA
	CostPerRequest      float64        `json:"costPerRequest"`      // USD, EWMA
	HealthScore         int            `json:"healthScore"`         // 0-100
	Capabilities        []Capability   `json:"capabilities"`
	Quota               Quota          `json:"quota"`
}

// HasCapability reports whether the record advertises the given capability.
func (r *ProviderRecord) HasCapability(c Capability) bool {
	for _, have := range r.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// DeriveStatus computes the automatic status from the record's metrics.
// The rules apply in order; the first match wins. The maintenance override
// is deliberately outside this function — it is set and cleared only by
// explicit operator action.
func (r *ProviderRecord) DeriveStatus() ProviderStatus {
	switch {
	case r.ResponseTime > 5000:
		return StatusDegraded
	case r.ErrorRate > 10:
		return StatusDegraded
	case r.HealthScore < 50:
		return StatusFailed
	case r.HealthScore < 80:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// Available reports whether the provider can receive live traffic.
func (r *ProviderRecord) Available() bool {
	return r.Status != StatusFailed && r.Status != StatusMaintenance
}

// HealthCheckResult is the outcome of a single liveness probe (or of a live
// request counted for health purposes). Results are appended to a bounded
// per-provider ring buffer used for uptime/error-rate recomputation.
type HealthCheckResult struct {
	ProviderID   string    `json:"providerId"`
	Success      bool      `json:"success"`
	ResponseTime float64   `json:"responseTime"` // ms
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	TokensUsed   int       `json:"tokensUsed,omitempty"`
	Cost         float64   `json:"cost,omitempty"`
}

// ProviderSpec is the static configuration for one provider, used to seed
// its registry record and build its client adapter.
type ProviderSpec struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	BaseURL        string       `json:"baseUrl"`
	Capabilities   []Capability `json:"capabilities"`
	CostPerRequest float64      `json:"costPerRequest"` // initial estimate, USD
	MaxTokens      int          `json:"maxTokens"`
	RateLimit      int          `json:"rateLimit"`
	DailyQuota     float64      `json:"dailyQuota"`
}
