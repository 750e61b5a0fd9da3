package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/config"
	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/handler"
	"github.com/mongshilymom/legalai-engine/internal/infra/cache"
	"github.com/mongshilymom/legalai-engine/internal/infra/client"
	"github.com/mongshilymom/legalai-engine/internal/infra/observability"
	"github.com/mongshilymom/legalai-engine/internal/infra/resilience"
	"github.com/mongshilymom/legalai-engine/internal/port"
	"github.com/mongshilymom/legalai-engine/internal/registry"
	"github.com/mongshilymom/legalai-engine/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Int("providers", len(cfg.Providers)),
		zap.Duration("health_check_interval", cfg.HealthCheckInterval),
		zap.Duration("analytics_interval", cfg.AnalyticsInterval),
		zap.Duration("invoke_timeout", cfg.InvokeTimeout),
		zap.Duration("cache_ttl", cfg.DefaultCacheTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "legalai-engine")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Registry + provider clients ---
	reg := registry.New()
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	clients := make(map[string]port.ProviderClient, len(cfg.Providers))
	for _, spec := range cfg.Providers {
		reg.Register(spec)
		clients[spec.ID] = client.NewHTTPProvider(
			httpClient,
			spec,
			resilience.NewCircuitBreaker(spec.ID),
			resilience.NewBulkhead(cfg.MaxConcurrency),
			resilienceCfg,
		)
		logger.Info("provider registered",
			zap.String("provider_id", spec.ID),
			zap.String("base_url", spec.BaseURL),
		)
	}

	// --- Cache ---
	responseCache := cache.New(cfg.CacheCleanupInterval)
	defer responseCache.Close()

	// --- Services ---
	selector := service.NewSelector(reg, logger)
	orch := service.NewOrchestrator(
		reg,
		selector,
		clients,
		responseCache,
		metrics,
		logger,
		cfg.InvokeTimeout,
		cfg.DefaultCacheTTL,
		service.DefaultFailoverPolicy(),
	)
	system := service.NewSystemService(reg, logger)

	monitor := service.NewHealthMonitor(reg, clients, metrics, logger,
		cfg.HealthCheckInterval, cfg.ProbeTimeout)
	monitor.Start()
	defer monitor.Stop()

	analytics := service.NewAnalyticsEngine(reg, responseCache, metrics, logger,
		cfg.AnalyticsInterval, domain.DefaultAlertThresholds(cfg.MaxCacheSizeBytes))
	analytics.Start()
	defer analytics.Stop()

	// --- Router ---
	router := handler.NewRouter(orch, selector, system, analytics, metrics,
		cfg.OperatorJWTSecret, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
