package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/infra/observability"
	"github.com/mongshilymom/legalai-engine/internal/port"
	"github.com/mongshilymom/legalai-engine/internal/registry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var monitorTracer = otel.Tracer("service/monitor")

// latency EWMA weight for probe samples.
const responseTimeWeight = 0.3

// HealthMonitor schedules periodic liveness probes against every provider
// and folds the results into the registry. One probe per provider per tick,
// all providers probed concurrently; a slow probe never blocks another's.
type HealthMonitor struct {
	registry     *registry.Registry
	clients      map[string]port.ProviderClient
	metrics      *observability.Metrics
	logger       *zap.Logger
	interval     time.Duration
	probeTimeout time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewHealthMonitor creates the monitor with all dependencies injected.
func NewHealthMonitor(
	reg *registry.Registry,
	clients map[string]port.ProviderClient,
	metrics *observability.Metrics,
	logger *zap.Logger,
	interval time.Duration,
	probeTimeout time.Duration,
) *HealthMonitor {
	return &HealthMonitor{
		registry:     reg,
		clients:      clients,
		metrics:      metrics,
		logger:       logger,
		interval:     interval,
		probeTimeout: probeTimeout,
		done:         make(chan struct{}),
	}
}

// Start launches the probe scheduler: one immediate round, then one round
// per interval until Stop is called.
func (m *HealthMonitor) Start() {
	m.startOnce.Do(func() {
		m.wg.Add(1)
		go m.run()
	})
}

// Stop halts the scheduler and drains any in-flight probe round.
func (m *HealthMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

func (m *HealthMonitor) run() {
	defer m.wg.Done()

	m.RunOnce(context.Background())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.RunOnce(context.Background())
		}
	}
}

// RunOnce probes every provider concurrently and applies the results.
// Probe failures are captured into results, never returned.
func (m *HealthMonitor) RunOnce(ctx context.Context) {
	ctx, span := monitorTracer.Start(ctx, "HealthMonitor.RunOnce")
	defer span.End()

	g, gCtx := errgroup.WithContext(ctx)
	for id := range m.clients {
		id := id
		g.Go(func() error {
			res := m.Probe(gCtx, id)
			m.Apply(res)
			return nil
		})
	}
	g.Wait()
}

// Probe runs a single liveness check against one provider, measuring
// latency. A timeout or transport error is a failed probe, not an error.
func (m *HealthMonitor) Probe(ctx context.Context, providerID string) domain.HealthCheckResult {
	ctx, span := monitorTracer.Start(ctx, "HealthMonitor.Probe")
	defer span.End()
	span.SetAttributes(attribute.String("provider.id", providerID))

	res := domain.HealthCheckResult{
		ProviderID: providerID,
		Timestamp:  time.Now(),
	}

	client, ok := m.clients[providerID]
	if !ok {
		res.Error = "no client configured"
		return res
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	start := time.Now()
	alive, err := client.HealthCheck(probeCtx)
	res.ResponseTime = float64(time.Since(start).Microseconds()) / 1000.0

	switch {
	case err != nil:
		res.Error = err.Error()
	case !alive:
		res.Error = "provider reported unhealthy"
	default:
		res.Success = true
	}
	return res
}

// Apply folds one probe or request result into the provider's record.
func (m *HealthMonitor) Apply(res domain.HealthCheckResult) {
	if err := m.registry.AppendHealthResult(res.ProviderID, res); err != nil {
		m.logger.Warn("probe result for unknown provider", zap.String("provider_id", res.ProviderID))
		return
	}
	history, _ := m.registry.History(res.ProviderID)
	uptime, errorRate := windowStats(history)

	err := m.registry.Update(res.ProviderID, func(rec *domain.ProviderRecord) {
		rec.LastHealthCheck = res.Timestamp
		rec.Uptime = uptime
		rec.ErrorRate = errorRate

		if res.Success {
			rec.ConsecutiveFailures = 0
			rec.ResponseTime = registry.EWMA(rec.ResponseTime, res.ResponseTime, responseTimeWeight)
			rec.HealthScore = healthScore(rec)
			rec.Status = rec.DeriveStatus()
			return
		}

		rec.ConsecutiveFailures++
		rec.HealthScore -= 20
		if rec.ConsecutiveFailures > 3 {
			rec.Status = domain.StatusFailed
		} else {
			rec.Status = domain.StatusDegraded
		}
	})
	if err != nil {
		return
	}

	m.metrics.IncrProbe(res.ProviderID, res.Success)
	if rec, err := m.registry.Get(res.ProviderID); err == nil {
		m.metrics.SetHealthScore(res.ProviderID, rec.HealthScore)
	}

	if !res.Success {
		m.logger.Warn("health probe failed",
			zap.String("provider_id", res.ProviderID),
			zap.String("error", res.Error),
			zap.Float64("latency_ms", res.ResponseTime),
		)
	}
}

// healthScore computes the 0-100 composite from the record's metrics:
// penalties for latency, error rate, consecutive failures and lost uptime.
func healthScore(rec *domain.ProviderRecord) int {
	score := 100.0
	score -= math.Min(30, rec.ResponseTime/1000*5)
	score -= math.Min(40, rec.ErrorRate*4)
	score -= math.Min(20, float64(rec.ConsecutiveFailures)*5)
	score -= math.Max(0, (100-rec.Uptime)*0.1)

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// windowStats recomputes uptime and error rate over the probe window.
func windowStats(history []domain.HealthCheckResult) (uptime, errorRate float64) {
	if len(history) == 0 {
		return 100, 0
	}
	success := 0
	for _, h := range history {
		if h.Success {
			success++
		}
	}
	uptime = float64(success) / float64(len(history)) * 100
	return uptime, 100 - uptime
}
