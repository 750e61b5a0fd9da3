package domain

// ============================================================
// Load balancing / routing decisions
// ============================================================

// NoProvider is the sentinel selected-provider value when no candidate
// satisfies the requirements. Callers must treat it as a hard failure.
const NoProvider = "none"

// SelectionRequirements constrains which providers are eligible for a
// request. Zero values mean "use the default" for the threshold fields.
type SelectionRequirements struct {
	Capabilities     []Capability `json:"capabilities,omitempty"`
	MaxResponseTime  float64      `json:"maxResponseTime,omitempty"` // ms, default 5000
	MinHealthScore   int          `json:"minHealthScore,omitempty"`  // default 70
	ExcludeProviders []string     `json:"excludeProviders,omitempty"`
}

const (
	DefaultMaxResponseTime = 5000.0
	DefaultMinHealthScore  = 70
)

// EffectiveMaxResponseTime returns the max-response-time constraint with
// the default applied.
func (r SelectionRequirements) EffectiveMaxResponseTime() float64 {
	if r.MaxResponseTime <= 0 {
		return DefaultMaxResponseTime
	}
	return r.MaxResponseTime
}

// EffectiveMinHealthScore returns the min-health-score constraint with the
// default applied.
func (r SelectionRequirements) EffectiveMinHealthScore() int {
	if r.MinHealthScore <= 0 {
		return DefaultMinHealthScore
	}
	return r.MinHealthScore
}

// LoadBalancingDecision is the outcome of a provider selection.
type LoadBalancingDecision struct {
	SelectedProvider     string   `json:"selectedProvider"` // NoProvider if unsatisfiable
	Reason               string   `json:"reason"`
	Alternatives         []string `json:"alternatives,omitempty"` // up to 2 runner-ups
	ExpectedResponseTime float64  `json:"expectedResponseTime"`   // ms
	Confidence           int      `json:"confidence"`             // 0-100, selected provider's health score
}

// Unsatisfiable reports whether the decision found no eligible provider.
func (d LoadBalancingDecision) Unsatisfiable() bool {
	return d.SelectedProvider == NoProvider
}
