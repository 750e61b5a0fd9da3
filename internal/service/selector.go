package service

import (
	"fmt"
	"sort"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/registry"

	"go.uber.org/zap"
)

// Selector is the load balancer: it filters registry records against the
// caller's requirements, scores the survivors, and returns a routing
// decision with up to two alternatives.
type Selector struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewSelector creates a selector backed by the given registry.
func NewSelector(reg *registry.Registry, logger *zap.Logger) *Selector {
	return &Selector{registry: reg, logger: logger}
}

// composite score weights.
const (
	weightHealth    = 0.4
	weightLatency   = 0.3
	weightCost      = 0.2
	weightUptime    = 0.1
	maxAlternatives = 2
)

// SelectBestProvider returns the best provider for the requirements, or an
// unsatisfiable decision. Callers must treat an unsatisfiable decision as a
// hard failure, not retry silently.
func (s *Selector) SelectBestProvider(req domain.SelectionRequirements) domain.LoadBalancingDecision {
	maxRT := req.EffectiveMaxResponseTime()
	minScore := req.EffectiveMinHealthScore()

	excluded := make(map[string]bool, len(req.ExcludeProviders))
	for _, id := range req.ExcludeProviders {
		excluded[id] = true
	}

	type candidate struct {
		rec   domain.ProviderRecord
		score float64
	}

	// List returns records in registration order, which keeps the sort
	// below stable for ties.
	var candidates []candidate
	for _, rec := range s.registry.List() {
		if excluded[rec.ID] || !rec.Available() {
			continue
		}
		if rec.ResponseTime > maxRT || rec.HealthScore < minScore {
			continue
		}
		if !hasAllCapabilities(&rec, req.Capabilities) {
			continue
		}
		candidates = append(candidates, candidate{rec: rec, score: compositeScore(&rec)})
	}

	if len(candidates) == 0 {
		return domain.LoadBalancingDecision{
			SelectedProvider: domain.NoProvider,
			Reason:           "No providers meet requirements",
			Confidence:       0,
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	best := candidates[0]
	var alternatives []string
	for _, c := range candidates[1:] {
		if len(alternatives) == maxAlternatives {
			break
		}
		alternatives = append(alternatives, c.rec.ID)
	}

	s.logger.Debug("provider selected",
		zap.String("provider_id", best.rec.ID),
		zap.Float64("score", best.score),
		zap.Int("candidates", len(candidates)),
	)

	return domain.LoadBalancingDecision{
		SelectedProvider:     best.rec.ID,
		Reason:               fmt.Sprintf("Best composite score %.1f (health %d)", best.score, best.rec.HealthScore),
		Alternatives:         alternatives,
		ExpectedResponseTime: best.rec.ResponseTime,
		Confidence:           best.rec.HealthScore,
	}
}

// compositeScore ranks a candidate: health dominates, then latency
// headroom, cost headroom, and uptime.
func compositeScore(rec *domain.ProviderRecord) float64 {
	return float64(rec.HealthScore)*weightHealth +
		(5000-rec.ResponseTime)/50*weightLatency +
		(0.1-rec.CostPerRequest)*1000*weightCost +
		rec.Uptime*weightUptime
}

func hasAllCapabilities(rec *domain.ProviderRecord, required []domain.Capability) bool {
	for _, c := range required {
		if !rec.HasCapability(c) {
			return false
		}
	}
	return true
}
