package domain

import "time"

// ============================================================
// Orchestrated analysis requests
// ============================================================

// RoutingMode controls how the orchestrator picks a provider.
type RoutingMode string

const (
	// RoutingAuto lets the load balancer pick the best provider.
	RoutingAuto RoutingMode = "auto"
	// RoutingExplicit pins the request to the provider named in the request.
	RoutingExplicit RoutingMode = "explicit"
)

// AnalysisRequest is a legal-document analysis request flowing through the
// orchestrator.
type AnalysisRequest struct {
	Summary      string   `json:"summary"`
	RiskTags     []string `json:"riskTags,omitempty"`
	Language     string   `json:"language"`
	Jurisdiction string   `json:"jurisdiction,omitempty"` // empty means "general"

	// Routing controls.
	Provider        string                `json:"provider,omitempty"` // explicit pin; empty means auto
	Requirements    SelectionRequirements `json:"requirements,omitempty"`
	DisableFallback bool                  `json:"disableFallback,omitempty"`
	CacheTTL        time.Duration         `json:"cacheTtl,omitempty"` // default 24h
}

// Mode returns the effective routing mode for the request.
func (r *AnalysisRequest) Mode() RoutingMode {
	if r.Provider != "" {
		return RoutingExplicit
	}
	return RoutingAuto
}

// AnalysisResponse is the orchestrator's answer to an AnalysisRequest.
type AnalysisResponse struct {
	Content      string    `json:"content"`
	Provider     string    `json:"provider"`
	Cached       bool      `json:"cached"`
	Confidence   int       `json:"confidence"` // 0-100
	FallbackUsed bool      `json:"fallbackUsed"`
	TokensUsed   int       `json:"tokensUsed"`
	Cost         float64   `json:"cost"`
	ProcessedAt  time.Time `json:"processedAt"`
}

// ProviderRequest is the narrow payload handed to a provider client.
type ProviderRequest struct {
	Summary      string   `json:"summary"`
	RiskTags     []string `json:"riskTags,omitempty"`
	Language     string   `json:"language"`
	Jurisdiction string   `json:"jurisdiction"`
}

// ProviderUsage is token/cost accounting reported by a provider.
type ProviderUsage struct {
	Tokens int     `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// ProviderResponse is what a provider client returns on success.
type ProviderResponse struct {
	Content    string        `json:"content"`
	Confidence int           `json:"confidence,omitempty"` // 0-100, 0 means unreported
	Usage      ProviderUsage `json:"usage"`
}

// CacheEntry is an analysis result persisted in the response cache.
type CacheEntry struct {
	Content    string    `json:"content"`
	Provider   string    `json:"provider"`
	Confidence int       `json:"confidence"`
	TokensUsed int       `json:"tokensUsed"`
	Cost       float64   `json:"cost"`
	CreatedAt  time.Time `json:"createdAt"`
}
