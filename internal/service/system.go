package service

import (
	"fmt"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/registry"

	"go.uber.org/zap"
)

// SystemService exposes the fleet-level views and the operator controls
// over the provider registry.
type SystemService struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewSystemService creates the system service.
func NewSystemService(reg *registry.Registry, logger *zap.Logger) *SystemService {
	return &SystemService{registry: reg, logger: logger}
}

// GetSystemHealth aggregates the provider fleet into one view. The fleet
// is unhealthy when no provider can take traffic, healthy when every
// provider is healthy, and degraded in between.
func (s *SystemService) GetSystemHealth() domain.SystemHealth {
	records := s.registry.List()

	health := domain.SystemHealth{TotalProviders: len(records)}

	var rtSum float64
	healthyCount := 0
	bestScore := -1
	for _, rec := range records {
		if rec.Status == domain.StatusHealthy {
			healthyCount++
		}
		if !rec.Available() {
			continue
		}
		health.AvailableProviders++
		health.AggregatedThroughput += rec.Throughput
		rtSum += rec.ResponseTime
		if rec.HealthScore > bestScore {
			bestScore = rec.HealthScore
			health.TopProvider = rec.ID
		}
	}
	if health.AvailableProviders > 0 {
		health.AverageResponseTime = rtSum / float64(health.AvailableProviders)
	}

	switch {
	case health.AvailableProviders == 0:
		health.OverallHealth = "unhealthy"
	case healthyCount == len(records):
		health.OverallHealth = "healthy"
	default:
		health.OverallHealth = "degraded"
	}
	return health
}

// GetProviderMetrics returns the record for one provider.
func (s *SystemService) GetProviderMetrics(id string) (domain.ProviderRecord, error) {
	return s.registry.Get(id)
}

// ListProviderMetrics returns all provider records in registration order.
func (s *SystemService) ListProviderMetrics() []domain.ProviderRecord {
	return s.registry.List()
}

// GenerateProviderReport summarises one provider over a lookback window of
// days. Probe-derived figures are bounded by the probe ring buffer.
func (s *SystemService) GenerateProviderReport(id string, days int) (*domain.ProviderReport, error) {
	rec, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}
	history, _ := s.registry.History(id)

	report := &domain.ProviderReport{
		ProviderID:      id,
		PeriodDays:      days,
		Uptime:          rec.Uptime,
		AvgResponseTime: rec.ResponseTime,
		Trend:           domain.TrendStable,
	}

	if rec.TotalRequests > 0 {
		report.SuccessRate = float64(rec.SuccessfulRequests) / float64(rec.TotalRequests) * 100
	}
	if rec.Quota.DailyQuota > 0 {
		report.QuotaUsagePct = rec.Quota.UsedQuota / rec.Quota.DailyQuota * 100
	}

	// Mean and trend over the successful probe latencies in the window.
	var latencies []float64
	for _, h := range history {
		if h.Success {
			latencies = append(latencies, h.ResponseTime)
		}
	}
	if len(latencies) > 0 {
		var sum float64
		for _, l := range latencies {
			sum += l
		}
		report.AvgResponseTime = sum / float64(len(latencies))
	}
	if len(latencies) >= 2 {
		mid := len(latencies) / 2
		firstMean, secondMean := mean(latencies[:mid]), mean(latencies[mid:])
		delta := secondMean - firstMean
		switch {
		case delta < -responseTimeStableDelta:
			report.Trend = domain.TrendImproving
		case delta > responseTimeStableDelta:
			report.Trend = domain.TrendDegrading
		}
	}

	report.Recommendations = providerRecommendations(&rec, report)
	return report, nil
}

func providerRecommendations(rec *domain.ProviderRecord, report *domain.ProviderReport) []string {
	var recs []string
	if rec.ErrorRate > 10 {
		recs = append(recs, fmt.Sprintf("Error rate %.0f%% exceeds 10%%; investigate provider stability", rec.ErrorRate))
	}
	if rec.ResponseTime > 3000 {
		recs = append(recs, "Response time is high; consider lowering this provider's routing priority")
	}
	if report.QuotaUsagePct > 80 {
		recs = append(recs, "Daily quota usage above 80%; raise the quota or shift traffic")
	}
	if rec.ConsecutiveFailures > 0 {
		recs = append(recs, fmt.Sprintf("%d consecutive probe failures; check provider availability", rec.ConsecutiveFailures))
	}
	if len(recs) == 0 {
		recs = append(recs, "No action required")
	}
	return recs
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SetProviderMaintenance sets or clears the operator maintenance override.
func (s *SystemService) SetProviderMaintenance(id string, active bool) error {
	if err := s.registry.SetMaintenance(id, active); err != nil {
		return err
	}
	s.logger.Info("provider maintenance override changed",
		zap.String("provider_id", id),
		zap.Bool("active", active),
	)
	return nil
}

// UpdateProviderQuota updates the provider's quota limits.
func (s *SystemService) UpdateProviderQuota(id string, maxTokens int, dailyQuota float64) error {
	if maxTokens <= 0 && dailyQuota <= 0 {
		return &domain.ErrValidation{Field: "quota", Message: "maxTokens or dailyQuota must be positive"}
	}
	if err := s.registry.UpdateQuota(id, maxTokens, dailyQuota); err != nil {
		return err
	}
	s.logger.Info("provider quota updated",
		zap.String("provider_id", id),
		zap.Int("max_tokens", maxTokens),
		zap.Float64("daily_quota", dailyQuota),
	)
	return nil
}
