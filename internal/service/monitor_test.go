package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/infra/observability"
	"github.com/mongshilymom/legalai-engine/internal/port"
	"github.com/mongshilymom/legalai-engine/internal/registry"
	"github.com/mongshilymom/legalai-engine/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

// mockProvider is a controllable port.ProviderClient shared by the service
// tests. Health and invocation outcomes can be flipped mid-test.
type mockProvider struct {
	mu          sync.Mutex
	healthy     bool
	healthErr   error
	invokeResp  *domain.ProviderResponse
	invokeErr   error
	healthCalls int
	invokeCalls int
}

func (m *mockProvider) HealthCheck(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthCalls++
	return m.healthy, m.healthErr
}

func (m *mockProvider) Invoke(_ context.Context, _ *domain.ProviderRequest) (*domain.ProviderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invokeCalls++
	if m.invokeErr != nil {
		return nil, m.invokeErr
	}
	return m.invokeResp, nil
}

func (m *mockProvider) setHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
}

func (m *mockProvider) healthCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthCalls
}

func (m *mockProvider) invokeCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invokeCalls
}

func registerProvider(reg *registry.Registry, id string, caps ...domain.Capability) {
	reg.Register(domain.ProviderSpec{
		ID:             id,
		Name:           id,
		CostPerRequest: 0.015,
		Capabilities:   caps,
		MaxTokens:      200000,
		RateLimit:      50,
		DailyQuota:     2000000,
	})
}

func newMonitor(reg *registry.Registry, clients map[string]port.ProviderClient) *service.HealthMonitor {
	return service.NewHealthMonitor(
		reg, clients, observability.NewMetrics(), zap.NewNop(),
		time.Minute, time.Second,
	)
}

// --- Tests ---

func TestMonitor_SuccessfulProbeKeepsHealthy(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	client := &mockProvider{healthy: true}
	m := newMonitor(reg, map[string]port.ProviderClient{"claude": client})

	m.RunOnce(context.Background())

	rec, _ := reg.Get("claude")
	if rec.Status != domain.StatusHealthy {
		t.Errorf("expected healthy after a successful probe, got %s", rec.Status)
	}
	if rec.Uptime != 100 {
		t.Errorf("expected uptime 100, got %f", rec.Uptime)
	}
	if client.healthCallCount() != 1 {
		t.Errorf("expected one health check, got %d", client.healthCallCount())
	}
}

func TestMonitor_FailedProbesDegradeThenFail(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	client := &mockProvider{healthy: false, healthErr: errors.New("connection refused")}
	m := newMonitor(reg, map[string]port.ProviderClient{"claude": client})

	for i := 1; i <= 3; i++ {
		m.RunOnce(context.Background())
		rec, _ := reg.Get("claude")
		if rec.Status != domain.StatusDegraded {
			t.Fatalf("after %d failures expected degraded, got %s", i, rec.Status)
		}
		if rec.ConsecutiveFailures != i {
			t.Fatalf("expected %d consecutive failures, got %d", i, rec.ConsecutiveFailures)
		}
	}

	// fourth consecutive failure crosses the threshold
	m.RunOnce(context.Background())
	rec, _ := reg.Get("claude")
	if rec.Status != domain.StatusFailed {
		t.Errorf("expected failed after 4 consecutive failures, got %s", rec.Status)
	}
	if rec.HealthScore != 100-4*20 {
		t.Errorf("expected score 20 after four penalties, got %d", rec.HealthScore)
	}
}

func TestMonitor_HealthScoreNeverNegative(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	client := &mockProvider{healthErr: errors.New("down")}
	m := newMonitor(reg, map[string]port.ProviderClient{"claude": client})

	for i := 0; i < 10; i++ {
		m.RunOnce(context.Background())
	}

	rec, _ := reg.Get("claude")
	if rec.HealthScore != 0 {
		t.Errorf("expected score floored at 0, got %d", rec.HealthScore)
	}
}

func TestMonitor_SuccessResetsConsecutiveFailures(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	client := &mockProvider{healthy: false}
	m := newMonitor(reg, map[string]port.ProviderClient{"claude": client})

	m.RunOnce(context.Background())
	m.RunOnce(context.Background())
	rec, _ := reg.Get("claude")
	if rec.ConsecutiveFailures != 2 {
		t.Fatalf("expected 2 consecutive failures, got %d", rec.ConsecutiveFailures)
	}

	client.setHealthy(true)
	m.RunOnce(context.Background())

	rec, _ = reg.Get("claude")
	if rec.ConsecutiveFailures != 0 {
		t.Errorf("successful probe must reset the failure streak, got %d", rec.ConsecutiveFailures)
	}
}

func TestMonitor_MaintenanceStatusSurvivesProbes(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	client := &mockProvider{healthy: true}
	m := newMonitor(reg, map[string]port.ProviderClient{"claude": client})

	if err := reg.SetMaintenance("claude", true); err != nil {
		t.Fatalf("SetMaintenance: %v", err)
	}

	for i := 0; i < 3; i++ {
		m.RunOnce(context.Background())
	}

	rec, _ := reg.Get("claude")
	if rec.Status != domain.StatusMaintenance {
		t.Errorf("probe results must not clear maintenance, got %s", rec.Status)
	}
}

// Five probes, one failed: uptime 80%, error rate 20%, and the latest
// success has reset the failure streak. The error-rate rule applies.
func TestMonitor_MixedWindowDegrades(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	m := newMonitor(reg, map[string]port.ProviderClient{})

	now := time.Now()
	results := []domain.HealthCheckResult{
		{ProviderID: "claude", Success: true, ResponseTime: 1500, Timestamp: now},
		{ProviderID: "claude", Success: true, ResponseTime: 1500, Timestamp: now},
		{ProviderID: "claude", Success: false, Error: "timeout", Timestamp: now},
		{ProviderID: "claude", Success: true, ResponseTime: 1500, Timestamp: now},
		{ProviderID: "claude", Success: true, ResponseTime: 1500, Timestamp: now},
	}
	for _, res := range results {
		m.Apply(res)
	}

	rec, _ := reg.Get("claude")
	if rec.Uptime != 80 {
		t.Errorf("expected uptime 80, got %f", rec.Uptime)
	}
	if rec.ErrorRate != 20 {
		t.Errorf("expected error rate 20, got %f", rec.ErrorRate)
	}
	if rec.ConsecutiveFailures != 0 {
		t.Errorf("latest success must have reset the streak, got %d", rec.ConsecutiveFailures)
	}
	if rec.Status != domain.StatusDegraded {
		t.Errorf("error rate above 10%% must degrade, got %s", rec.Status)
	}
}

func TestMonitor_SlowProviderDegradesDespiteGoodScore(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	m := newMonitor(reg, map[string]port.ProviderClient{})

	m.Apply(domain.HealthCheckResult{
		ProviderID:   "claude",
		Success:      true,
		ResponseTime: 6000,
		Timestamp:    time.Now(),
	})

	rec, _ := reg.Get("claude")
	if rec.Status != domain.StatusDegraded {
		t.Errorf("response time above 5000ms must degrade, got %s", rec.Status)
	}
}

func TestMonitor_StartStop(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	client := &mockProvider{healthy: true}
	m := service.NewHealthMonitor(
		reg, map[string]port.ProviderClient{"claude": client},
		observability.NewMetrics(), zap.NewNop(),
		10*time.Millisecond, time.Second,
	)

	m.Start()
	m.Start() // idempotent
	time.Sleep(35 * time.Millisecond)
	m.Stop()
	m.Stop() // idempotent

	calls := client.healthCallCount()
	if calls < 2 {
		t.Errorf("expected the immediate round plus ticks, got %d probes", calls)
	}
	time.Sleep(25 * time.Millisecond)
	if client.healthCallCount() != calls {
		t.Errorf("probes continued after Stop: %d -> %d", calls, client.healthCallCount())
	}
}

func TestMonitor_ProbeWithoutClient(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "claude")
	m := newMonitor(reg, map[string]port.ProviderClient{})

	res := m.Probe(context.Background(), "claude")
	if res.Success {
		t.Error("probe without a configured client must fail")
	}
	if res.Error == "" {
		t.Error("expected an error description")
	}
}
