package handler

import (
	"net/http"

	"github.com/mongshilymom/legalai-engine/internal/infra/observability"
	"github.com/mongshilymom/legalai-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	orch *service.Orchestrator,
	selector *service.Selector,
	system *service.SystemService,
	analytics *service.AnalyticsEngine,
	metrics *observability.Metrics,
	operatorSecret string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(system))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	operatorOnly := OperatorAuthMiddleware(operatorSecret, logger)

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		// Orchestrated analysis + routing
		r.Post("/analyze", analyzeHandler(orch, logger))
		r.Post("/select", selectHandler(selector, logger))

		// Fleet & provider views
		r.Get("/system/health", systemHealthHandler(system))
		r.Get("/providers", listProvidersHandler(system))
		r.Get("/providers/{providerId}", getProviderHandler(system, logger))
		r.Get("/providers/{providerId}/report", providerReportHandler(system, logger))

		// Operator controls
		r.With(operatorOnly).Put("/providers/{providerId}/maintenance", maintenanceHandler(system, logger))
		r.With(operatorOnly).Put("/providers/{providerId}/quota", quotaHandler(system, logger))

		// Analytics & alerting
		r.Get("/analytics/report", performanceReportHandler(analytics, logger))
		r.Get("/analytics/suggestions", suggestionsHandler(analytics))
		r.Get("/alerts", activeAlertsHandler(analytics))
		r.With(operatorOnly).Post("/alerts/{alertId}/resolve", resolveAlertHandler(analytics, logger))
		r.With(operatorOnly).Put("/alerts/thresholds", thresholdsHandler(analytics, logger))

		// Engine metrics snapshot
		r.Get("/metrics/engine", engineMetricsHandler(system, metrics))
	})

	return r
}

func healthzHandler(system *service.SystemService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := system.GetSystemHealth()
		status := http.StatusOK
		if health.OverallHealth == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
