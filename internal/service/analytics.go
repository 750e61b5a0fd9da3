package service

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/infra/observability"
	"github.com/mongshilymom/legalai-engine/internal/port"
	"github.com/mongshilymom/legalai-engine/internal/registry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// sampleCap bounds the metric time series; the oldest sample is
	// evicted synchronously when a new one would exceed it.
	sampleCap = 10_000

	emptyPeriodRecommendation = "No data available for the selected period"
)

// trend stability thresholds: a half-to-half delta below these is "stable".
const (
	hitRateStableDelta      = 2.0 // percentage points
	responseTimeStableDelta = 100 // ms
	usageStableDelta        = 1.0 // requests
)

// AnalyticsEngine samples cache and provider state on its own fixed
// interval, independent of the health-check cadence, and turns the series
// into reports, trend classification, and threshold alerts.
type AnalyticsEngine struct {
	registry   *registry.Registry
	cacheStats port.CacheStatsSource
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration

	mu         sync.Mutex
	samples    []domain.CacheMetricSample
	alerts     []*domain.Alert
	thresholds domain.AlertThresholds
	lastStats  domain.CacheStats
	hasLast    bool

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewAnalyticsEngine creates the engine with all dependencies injected.
func NewAnalyticsEngine(
	reg *registry.Registry,
	cacheStats port.CacheStatsSource,
	metrics *observability.Metrics,
	logger *zap.Logger,
	interval time.Duration,
	thresholds domain.AlertThresholds,
) *AnalyticsEngine {
	return &AnalyticsEngine{
		registry:   reg,
		cacheStats: cacheStats,
		metrics:    metrics,
		logger:     logger,
		interval:   interval,
		thresholds: thresholds,
		done:       make(chan struct{}),
	}
}

// Start launches the sampling scheduler.
func (e *AnalyticsEngine) Start() {
	e.startOnce.Do(func() {
		e.wg.Add(1)
		go e.run()
	})
}

// Stop halts the scheduler, draining an in-flight sampling pass.
func (e *AnalyticsEngine) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
	})
	e.wg.Wait()
}

func (e *AnalyticsEngine) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.Sample(time.Now())
		}
	}
}

// Sample captures one CacheMetricSample from the cache collaborator and
// the registry, appends it to the bounded series, and evaluates the alert
// rules against it. Errors are recovered locally, never thrown upward.
func (e *AnalyticsEngine) Sample(now time.Time) {
	stats := e.cacheStats.Stats()
	records := e.registry.List()

	var rtSum, errSum float64
	counted := 0
	for _, rec := range records {
		if rec.Status == domain.StatusMaintenance {
			continue
		}
		rtSum += rec.ResponseTime
		errSum += rec.ErrorRate
		counted++
	}
	var avgRT, avgErr float64
	if counted > 0 {
		avgRT = rtSum / float64(counted)
		avgErr = errSum / float64(counted)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	last := e.lastStats
	if !e.hasLast {
		last = domain.CacheStats{}
	}
	hits := stats.Hits - last.Hits
	misses := stats.Misses - last.Misses
	requests := hits + misses

	var hitRate float64
	if requests > 0 {
		hitRate = float64(hits) / float64(requests) * 100
	}

	sample := domain.CacheMetricSample{
		Timestamp:    now,
		HitRate:      hitRate,
		MissRate:     100 - hitRate,
		ResponseTime: avgRT,
		CacheSize:    stats.SizeBytes,
		RequestCount: requests,
		ErrorRate:    avgErr,
		CostSavings:  stats.CostSavings - last.CostSavings,
	}
	if requests == 0 {
		sample.MissRate = 0
	}

	if len(e.samples) == sampleCap {
		copy(e.samples, e.samples[1:])
		e.samples[sampleCap-1] = sample
	} else {
		e.samples = append(e.samples, sample)
	}
	e.lastStats = stats
	e.hasLast = true

	e.evaluateAlertsLocked(sample)
}

// evaluateAlertsLocked applies the threshold rules to one sample.
// Caller holds e.mu.
func (e *AnalyticsEngine) evaluateAlertsLocked(s domain.CacheMetricSample) {
	t := e.thresholds

	if s.RequestCount > 0 && s.HitRate < t.MinHitRate {
		e.raiseLocked(domain.AlertPerformance, domain.SeverityMedium,
			fmt.Sprintf("Cache hit rate below %.0f%%", t.MinHitRate),
			t.MinHitRate, s.HitRate, s.Timestamp)
	}
	if s.ResponseTime > t.MaxResponseTime {
		e.raiseLocked(domain.AlertPerformance, domain.SeverityHigh,
			fmt.Sprintf("Average response time above %.0fms", t.MaxResponseTime),
			t.MaxResponseTime, s.ResponseTime, s.Timestamp)
	}
	if t.MaxCacheSizeBytes > 0 {
		limit := float64(t.MaxCacheSizeBytes) * t.CacheSizeRatio
		if float64(s.CacheSize) > limit {
			e.raiseLocked(domain.AlertCapacity, domain.SeverityMedium,
				fmt.Sprintf("Cache size above %.0f%% of capacity", t.CacheSizeRatio*100),
				limit, float64(s.CacheSize), s.Timestamp)
		}
	}
	if s.ErrorRate > t.MaxErrorRate {
		e.raiseLocked(domain.AlertError, domain.SeverityHigh,
			fmt.Sprintf("Provider error rate above %.0f%%", t.MaxErrorRate),
			t.MaxErrorRate, s.ErrorRate, s.Timestamp)
	}
}

// raiseLocked creates an alert unless an unresolved alert with the same
// (type, message) pair already exists. Caller holds e.mu.
func (e *AnalyticsEngine) raiseLocked(
	typ domain.AlertType,
	severity domain.AlertSeverity,
	message string,
	threshold, current float64,
	at time.Time,
) {
	for _, a := range e.alerts {
		if !a.Resolved && a.Type == typ && a.Message == message {
			return
		}
	}
	alert := &domain.Alert{
		ID:           uuid.NewString(),
		Type:         typ,
		Severity:     severity,
		Message:      message,
		Timestamp:    at,
		Threshold:    threshold,
		CurrentValue: current,
	}
	e.alerts = append(e.alerts, alert)
	e.metrics.IncrAlert(string(typ), string(severity))
	e.logger.Warn("alert raised",
		zap.String("alert_id", alert.ID),
		zap.String("type", string(typ)),
		zap.String("severity", string(severity)),
		zap.String("message", message),
		zap.Float64("threshold", threshold),
		zap.Float64("current", current),
	)
}

// GetActiveAlerts returns copies of all unresolved alerts.
func (e *AnalyticsEngine) GetActiveAlerts() []domain.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []domain.Alert
	for _, a := range e.alerts {
		if !a.Resolved {
			out = append(out, *a)
		}
	}
	return out
}

// ResolveAlert marks an alert resolved. Resolution is the only way an
// alert leaves the unresolved set; there is no automatic expiry.
func (e *AnalyticsEngine) ResolveAlert(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.alerts {
		if a.ID == id && !a.Resolved {
			now := time.Now()
			a.Resolved = true
			a.ResolvedAt = &now
			return nil
		}
	}
	return &domain.ErrAlertNotFound{ID: id}
}

// UpdateAlertThresholds applies a partial threshold update and returns the
// effective thresholds. New values apply from the next evaluation.
func (e *AnalyticsEngine) UpdateAlertThresholds(update domain.AlertThresholdUpdate) domain.AlertThresholds {
	e.mu.Lock()
	defer e.mu.Unlock()

	if update.MinHitRate != nil {
		e.thresholds.MinHitRate = *update.MinHitRate
	}
	if update.MaxResponseTime != nil {
		e.thresholds.MaxResponseTime = *update.MaxResponseTime
	}
	if update.MaxCacheSizeBytes != nil {
		e.thresholds.MaxCacheSizeBytes = *update.MaxCacheSizeBytes
	}
	if update.CacheSizeRatio != nil {
		e.thresholds.CacheSizeRatio = *update.CacheSizeRatio
	}
	if update.MaxErrorRate != nil {
		e.thresholds.MaxErrorRate = *update.MaxErrorRate
	}
	return e.thresholds
}

// periodDuration maps a report period name to its lookback window.
func periodDuration(period string) (time.Duration, error) {
	switch period {
	case "hour":
		return time.Hour, nil
	case "day":
		return 24 * time.Hour, nil
	case "week":
		return 7 * 24 * time.Hour, nil
	case "month":
		return 30 * 24 * time.Hour, nil
	default:
		return 0, &domain.ErrValidation{Field: "period", Message: "must be one of hour, day, week, month"}
	}
}

// GeneratePerformanceReport aggregates the samples inside the period into
// means, totals, an efficiency score, and trend classification.
func (e *AnalyticsEngine) GeneratePerformanceReport(period string) (*domain.CachePerformanceReport, error) {
	window, err := periodDuration(period)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cutoff := now.Add(-window)

	e.mu.Lock()
	var inWindow []domain.CacheMetricSample
	for _, s := range e.samples {
		if !s.Timestamp.Before(cutoff) {
			inWindow = append(inWindow, s)
		}
	}
	e.mu.Unlock()

	report := &domain.CachePerformanceReport{
		Period:      period,
		GeneratedAt: now,
		SampleCount: len(inWindow),
		Trends: domain.ReportTrends{
			HitRate:      domain.TrendStable,
			ResponseTime: domain.TrendStable,
			Usage:        domain.TrendStable,
		},
	}
	if len(inWindow) == 0 {
		report.Recommendations = []string{emptyPeriodRecommendation}
		return report, nil
	}

	var hitSum, rtSum, savings float64
	var requests int64
	for _, s := range inWindow {
		hitSum += s.HitRate
		rtSum += s.ResponseTime
		savings += s.CostSavings
		requests += s.RequestCount
	}
	n := float64(len(inWindow))
	report.AvgHitRate = hitSum / n
	report.AvgResponseTime = rtSum / n
	report.TotalRequests = requests
	report.TotalHits = int64(math.Round(float64(requests) * report.AvgHitRate / 100))
	report.CostSavingsUSD = savings
	report.EfficiencyScore = math.Min(report.AvgHitRate, 100)*0.7 +
		math.Max(0, 100-report.AvgResponseTime/100)*0.3
	report.Trends = classifyTrends(inWindow)
	report.Recommendations = reportRecommendations(report)
	return report, nil
}

// classifyTrends splits the window in half and compares means. Deltas
// below the stability thresholds are stable; for response time, lower is
// reported as improving.
func classifyTrends(samples []domain.CacheMetricSample) domain.ReportTrends {
	trends := domain.ReportTrends{
		HitRate:      domain.TrendStable,
		ResponseTime: domain.TrendStable,
		Usage:        domain.TrendStable,
	}
	if len(samples) < 2 {
		return trends
	}

	mid := len(samples) / 2
	first, second := samples[:mid], samples[mid:]

	mean := func(part []domain.CacheMetricSample, f func(domain.CacheMetricSample) float64) float64 {
		var sum float64
		for _, s := range part {
			sum += f(s)
		}
		return sum / float64(len(part))
	}

	hitDelta := mean(second, func(s domain.CacheMetricSample) float64 { return s.HitRate }) -
		mean(first, func(s domain.CacheMetricSample) float64 { return s.HitRate })
	switch {
	case math.Abs(hitDelta) < hitRateStableDelta:
		trends.HitRate = domain.TrendStable
	case hitDelta > 0:
		trends.HitRate = domain.TrendIncreasing
	default:
		trends.HitRate = domain.TrendDecreasing
	}

	rtDelta := mean(second, func(s domain.CacheMetricSample) float64 { return s.ResponseTime }) -
		mean(first, func(s domain.CacheMetricSample) float64 { return s.ResponseTime })
	switch {
	case math.Abs(rtDelta) < responseTimeStableDelta:
		trends.ResponseTime = domain.TrendStable
	case rtDelta < 0:
		trends.ResponseTime = domain.TrendImproving
	default:
		trends.ResponseTime = domain.TrendDegrading
	}

	usageDelta := mean(second, func(s domain.CacheMetricSample) float64 { return float64(s.RequestCount) }) -
		mean(first, func(s domain.CacheMetricSample) float64 { return float64(s.RequestCount) })
	switch {
	case math.Abs(usageDelta) < usageStableDelta:
		trends.Usage = domain.TrendStable
	case usageDelta > 0:
		trends.Usage = domain.TrendIncreasing
	default:
		trends.Usage = domain.TrendDecreasing
	}

	return trends
}

func reportRecommendations(r *domain.CachePerformanceReport) []string {
	var recs []string
	if r.AvgHitRate < 60 {
		recs = append(recs, "Hit rate is low; review cache TTLs and key normalization")
	}
	if r.AvgResponseTime > 3000 {
		recs = append(recs, "Average provider response time is high; review provider routing weights")
	}
	if r.Trends.HitRate == domain.TrendDecreasing {
		recs = append(recs, "Hit rate is trending down; investigate recent request pattern changes")
	}
	if len(recs) == 0 {
		recs = append(recs, "Cache performance is within normal parameters")
	}
	return recs
}

// GetOptimizationSuggestions derives rule-based tuning suggestions from
// the most recent samples.
func (e *AnalyticsEngine) GetOptimizationSuggestions() []domain.OptimizationSuggestion {
	e.mu.Lock()
	recent := append([]domain.CacheMetricSample(nil), e.samples...)
	maxSize := e.thresholds.MaxCacheSizeBytes
	e.mu.Unlock()

	// Only the trailing day of samples informs suggestions.
	cutoff := time.Now().Add(-24 * time.Hour)
	var hitSum, sizeSum, reqSum float64
	n := 0
	for _, s := range recent {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		hitSum += s.HitRate
		sizeSum += float64(s.CacheSize)
		reqSum += float64(s.RequestCount)
		n++
	}
	if n == 0 {
		return nil
	}
	avgHit := hitSum / float64(n)
	avgSize := sizeSum / float64(n)
	avgReq := reqSum / float64(n)

	var out []domain.OptimizationSuggestion
	if avgHit < 50 {
		out = append(out, domain.OptimizationSuggestion{
			Type:           "ttl",
			Priority:       domain.PriorityHigh,
			Description:    "Increase cache TTL for stable analysis results",
			ExpectedImpact: fmt.Sprintf("Raise hit rate from %.0f%% toward 60%%+", avgHit),
			Effort:         "low",
		})
	}
	if maxSize > 0 && avgSize > float64(maxSize)*0.7 {
		out = append(out, domain.OptimizationSuggestion{
			Type:           "compression",
			Priority:       domain.PriorityMedium,
			Description:    "Enable response compression to reduce cache footprint",
			ExpectedImpact: "Roughly 40-60% reduction in stored bytes",
			Effort:         "medium",
		})
	}
	if avgReq < 10 && avgHit < 60 {
		out = append(out, domain.OptimizationSuggestion{
			Type:           "warming",
			Priority:       domain.PriorityLow,
			Description:    "Schedule cache warming for common jurisdictions and contract types",
			ExpectedImpact: "Fewer cold misses on first daily requests",
			Effort:         "medium",
		})
	}
	return out
}

// SampleCount reports the current series length.
func (e *AnalyticsEngine) SampleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.samples)
}
