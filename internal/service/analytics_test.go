package service_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/infra/observability"
	"github.com/mongshilymom/legalai-engine/internal/registry"
	"github.com/mongshilymom/legalai-engine/internal/service"

	"go.uber.org/zap"
)

// fakeStatsSource feeds controllable cumulative cache stats into the
// analytics engine.
type fakeStatsSource struct {
	mu    sync.Mutex
	stats domain.CacheStats
}

func (f *fakeStatsSource) Stats() domain.CacheStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *fakeStatsSource) set(stats domain.CacheStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = stats
}

func newAnalytics(reg *registry.Registry, src *fakeStatsSource, thresholds domain.AlertThresholds) *service.AnalyticsEngine {
	return service.NewAnalyticsEngine(
		reg, src, observability.NewMetrics(), zap.NewNop(),
		time.Minute, thresholds,
	)
}

func TestReport_EmptyPeriod(t *testing.T) {
	reg := registry.New()
	e := newAnalytics(reg, &fakeStatsSource{}, domain.DefaultAlertThresholds(1<<20))

	report, err := e.GeneratePerformanceReport("day")
	if err != nil {
		t.Fatalf("GeneratePerformanceReport: %v", err)
	}

	if report.SampleCount != 0 || report.TotalRequests != 0 {
		t.Errorf("expected an empty report, got %d samples, %d requests",
			report.SampleCount, report.TotalRequests)
	}
	if len(report.Recommendations) != 1 ||
		report.Recommendations[0] != "No data available for the selected period" {
		t.Errorf("unexpected recommendations %v", report.Recommendations)
	}
	if report.Trends.HitRate != domain.TrendStable ||
		report.Trends.ResponseTime != domain.TrendStable ||
		report.Trends.Usage != domain.TrendStable {
		t.Errorf("empty report must have stable trends, got %+v", report.Trends)
	}
}

func TestReport_InvalidPeriod(t *testing.T) {
	reg := registry.New()
	e := newAnalytics(reg, &fakeStatsSource{}, domain.DefaultAlertThresholds(1<<20))

	_, err := e.GeneratePerformanceReport("fortnight")
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestReport_Aggregation(t *testing.T) {
	reg := registry.New()
	src := &fakeStatsSource{}
	e := newAnalytics(reg, src, domain.DefaultAlertThresholds(1<<20))

	src.set(domain.CacheStats{Hits: 60, Misses: 40})
	e.Sample(time.Now().Add(-2 * time.Minute))
	src.set(domain.CacheStats{Hits: 140, Misses: 60, CostSavings: 1.5})
	e.Sample(time.Now().Add(-1 * time.Minute))

	report, err := e.GeneratePerformanceReport("hour")
	if err != nil {
		t.Fatalf("GeneratePerformanceReport: %v", err)
	}

	if report.SampleCount != 2 {
		t.Fatalf("expected 2 samples in window, got %d", report.SampleCount)
	}
	// interval hit rates: 60% then 80%
	if report.AvgHitRate != 70 {
		t.Errorf("expected avg hit rate 70, got %f", report.AvgHitRate)
	}
	if report.TotalRequests != 200 {
		t.Errorf("expected 200 total requests, got %d", report.TotalRequests)
	}
	if report.TotalHits != 140 {
		t.Errorf("expected 140 total hits, got %d", report.TotalHits)
	}
	if report.CostSavingsUSD != 1.5 {
		t.Errorf("expected cost savings 1.5, got %f", report.CostSavingsUSD)
	}
	// 70*0.7 + (100 - 0/100)*0.3
	if report.EfficiencyScore != 79 {
		t.Errorf("expected efficiency 79, got %f", report.EfficiencyScore)
	}
	if report.Trends.HitRate != domain.TrendIncreasing {
		t.Errorf("expected increasing hit-rate trend, got %s", report.Trends.HitRate)
	}
	if report.Trends.Usage != domain.TrendStable {
		t.Errorf("expected stable usage trend, got %s", report.Trends.Usage)
	}
}

func TestReport_ResponseTimeTrendImproving(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	src := &fakeStatsSource{}
	e := newAnalytics(reg, src, domain.DefaultAlertThresholds(1<<20))

	now := time.Now()
	setRecord(t, reg, "claude", func(rec *domain.ProviderRecord) { rec.ResponseTime = 2000 })
	e.Sample(now.Add(-4 * time.Minute))
	e.Sample(now.Add(-3 * time.Minute))
	setRecord(t, reg, "claude", func(rec *domain.ProviderRecord) { rec.ResponseTime = 800 })
	e.Sample(now.Add(-2 * time.Minute))
	e.Sample(now.Add(-1 * time.Minute))

	report, err := e.GeneratePerformanceReport("hour")
	if err != nil {
		t.Fatalf("GeneratePerformanceReport: %v", err)
	}
	if report.Trends.ResponseTime != domain.TrendImproving {
		t.Errorf("expected improving response-time trend, got %s", report.Trends.ResponseTime)
	}
}

func TestSample_SkipsMaintenanceProviders(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	registerProvider(reg, "gpt-4")
	setRecord(t, reg, "claude", func(rec *domain.ProviderRecord) { rec.ResponseTime = 1000 })
	setRecord(t, reg, "gpt-4", func(rec *domain.ProviderRecord) { rec.ResponseTime = 9000 })
	if err := reg.SetMaintenance("gpt-4", true); err != nil {
		t.Fatalf("SetMaintenance: %v", err)
	}
	src := &fakeStatsSource{}
	e := newAnalytics(reg, src, domain.DefaultAlertThresholds(1<<20))

	e.Sample(time.Now())

	report, err := e.GeneratePerformanceReport("hour")
	if err != nil {
		t.Fatalf("GeneratePerformanceReport: %v", err)
	}
	if report.AvgResponseTime != 1000 {
		t.Errorf("maintenance providers must not skew averages, got %f", report.AvgResponseTime)
	}
}

func TestAlerts_LowHitRateDeduplicated(t *testing.T) {
	reg := registry.New()
	src := &fakeStatsSource{}
	e := newAnalytics(reg, src, domain.DefaultAlertThresholds(1<<20))

	src.set(domain.CacheStats{Hits: 10, Misses: 90})
	e.Sample(time.Now())
	src.set(domain.CacheStats{Hits: 20, Misses: 180})
	e.Sample(time.Now())

	alerts := e.GetActiveAlerts()
	if len(alerts) != 1 {
		t.Fatalf("repeated breaches must keep one active alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Type != domain.AlertPerformance || a.Severity != domain.SeverityMedium {
		t.Errorf("unexpected alert %s/%s", a.Type, a.Severity)
	}
	if a.Message != "Cache hit rate below 60%" {
		t.Errorf("unexpected message %q", a.Message)
	}

	// after resolution the next breach raises a fresh alert
	if err := e.ResolveAlert(a.ID); err != nil {
		t.Fatalf("ResolveAlert: %v", err)
	}
	src.set(domain.CacheStats{Hits: 30, Misses: 270})
	e.Sample(time.Now())

	alerts = e.GetActiveAlerts()
	if len(alerts) != 1 {
		t.Fatalf("expected one fresh alert after resolution, got %d", len(alerts))
	}
	if alerts[0].ID == a.ID {
		t.Error("expected a new alert id after resolution")
	}
}

func TestAlerts_NoHitRateAlertWithoutTraffic(t *testing.T) {
	reg := registry.New()
	src := &fakeStatsSource{}
	e := newAnalytics(reg, src, domain.DefaultAlertThresholds(1<<20))

	e.Sample(time.Now())

	if alerts := e.GetActiveAlerts(); len(alerts) != 0 {
		t.Errorf("an idle interval must not alert, got %v", alerts)
	}
}

func TestAlerts_CapacityBreach(t *testing.T) {
	reg := registry.New()
	src := &fakeStatsSource{}
	e := newAnalytics(reg, src, domain.DefaultAlertThresholds(1000))

	src.set(domain.CacheStats{Hits: 80, Misses: 20, SizeBytes: 900})
	e.Sample(time.Now())

	alerts := e.GetActiveAlerts()
	if len(alerts) != 1 {
		t.Fatalf("expected one capacity alert, got %d", len(alerts))
	}
	if alerts[0].Type != domain.AlertCapacity {
		t.Errorf("expected capacity alert, got %s", alerts[0].Type)
	}
	if alerts[0].Message != "Cache size above 80% of capacity" {
		t.Errorf("unexpected message %q", alerts[0].Message)
	}
}

func TestAlerts_ProviderErrorRate(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	setRecord(t, reg, "claude", func(rec *domain.ProviderRecord) { rec.ErrorRate = 12 })
	src := &fakeStatsSource{}
	e := newAnalytics(reg, src, domain.DefaultAlertThresholds(1<<20))

	src.set(domain.CacheStats{Hits: 80, Misses: 20})
	e.Sample(time.Now())

	alerts := e.GetActiveAlerts()
	if len(alerts) != 1 {
		t.Fatalf("expected one error alert, got %d", len(alerts))
	}
	if alerts[0].Type != domain.AlertError || alerts[0].Severity != domain.SeverityHigh {
		t.Errorf("unexpected alert %s/%s", alerts[0].Type, alerts[0].Severity)
	}
}

func TestResolveAlert_Unknown(t *testing.T) {
	reg := registry.New()
	e := newAnalytics(reg, &fakeStatsSource{}, domain.DefaultAlertThresholds(1<<20))

	err := e.ResolveAlert("missing")
	var notFound *domain.ErrAlertNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrAlertNotFound, got %v", err)
	}
}

func TestUpdateAlertThresholds_Partial(t *testing.T) {
	reg := registry.New()
	e := newAnalytics(reg, &fakeStatsSource{}, domain.DefaultAlertThresholds(1<<20))

	newMin := 75.0
	effective := e.UpdateAlertThresholds(domain.AlertThresholdUpdate{MinHitRate: &newMin})

	if effective.MinHitRate != 75 {
		t.Errorf("expected min hit rate 75, got %f", effective.MinHitRate)
	}
	if effective.MaxResponseTime != 5000 || effective.MaxErrorRate != 5 {
		t.Errorf("untouched thresholds must keep defaults, got %+v", effective)
	}
}

func TestSuggestions_LowHitRate(t *testing.T) {
	reg := registry.New()
	src := &fakeStatsSource{}
	e := newAnalytics(reg, src, domain.DefaultAlertThresholds(1<<30))

	src.set(domain.CacheStats{Hits: 20, Misses: 80})
	e.Sample(time.Now())

	suggestions := e.GetOptimizationSuggestions()
	found := false
	for _, s := range suggestions {
		if s.Type == "ttl" && s.Priority == domain.PriorityHigh {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a high-priority ttl suggestion, got %v", suggestions)
	}
}

func TestSuggestions_NoSamples(t *testing.T) {
	reg := registry.New()
	e := newAnalytics(reg, &fakeStatsSource{}, domain.DefaultAlertThresholds(1<<20))

	if got := e.GetOptimizationSuggestions(); got != nil {
		t.Errorf("expected no suggestions without samples, got %v", got)
	}
}

func TestEngine_StartStop(t *testing.T) {
	reg := registry.New()
	src := &fakeStatsSource{}
	src.set(domain.CacheStats{Hits: 50, Misses: 50})
	e := service.NewAnalyticsEngine(
		reg, src, observability.NewMetrics(), zap.NewNop(),
		5*time.Millisecond, domain.DefaultAlertThresholds(1<<20),
	)

	e.Start()
	e.Start() // idempotent
	time.Sleep(25 * time.Millisecond)
	e.Stop()
	e.Stop() // idempotent

	if e.SampleCount() < 2 {
		t.Errorf("expected samples from the ticker, got %d", e.SampleCount())
	}
}
