package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/infra/observability"
	"github.com/mongshilymom/legalai-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// analyzeHandler runs one request through the orchestrator.
// POST /v1/analyze
func analyzeHandler(orch *service.Orchestrator, logger *zap.Logger) http.HandlerFunc {
	type analyzeRequest struct {
		Summary         string                       `json:"summary"`
		RiskTags        []string                     `json:"riskTags,omitempty"`
		Language        string                       `json:"language"`
		Jurisdiction    string                       `json:"jurisdiction,omitempty"`
		Provider        string                       `json:"provider,omitempty"`
		Requirements    domain.SelectionRequirements `json:"requirements,omitempty"`
		DisableFallback bool                         `json:"disableFallback,omitempty"`
		CacheTTLSeconds int                          `json:"cacheTtlSeconds,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var body analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		req := &domain.AnalysisRequest{
			Summary:         body.Summary,
			RiskTags:        body.RiskTags,
			Language:        body.Language,
			Jurisdiction:    body.Jurisdiction,
			Provider:        body.Provider,
			Requirements:    body.Requirements,
			DisableFallback: body.DisableFallback,
			CacheTTL:        time.Duration(body.CacheTTLSeconds) * time.Second,
		}

		resp, err := orch.Analyze(r.Context(), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("X-Engine-Provider", resp.Provider)
		writeJSON(w, http.StatusOK, resp)
	}
}

// selectHandler exposes the load balancer directly.
// POST /v1/select
func selectHandler(selector *service.Selector, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.SelectionRequirements
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		writeJSON(w, http.StatusOK, selector.SelectBestProvider(req))
	}
}

// systemHealthHandler returns the aggregate fleet view.
// GET /v1/system/health
func systemHealthHandler(system *service.SystemService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, system.GetSystemHealth())
	}
}

// listProvidersHandler returns all provider records.
// GET /v1/providers
func listProvidersHandler(system *service.SystemService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, system.ListProviderMetrics())
	}
}

// getProviderHandler returns one provider record.
// GET /v1/providers/{providerId}
func getProviderHandler(system *service.SystemService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := system.GetProviderMetrics(chi.URLParam(r, "providerId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// providerReportHandler returns the per-provider operational report.
// GET /v1/providers/{providerId}/report?days=7
func providerReportHandler(system *service.SystemService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := queryInt(r, "days", 7)
		report, err := system.GenerateProviderReport(chi.URLParam(r, "providerId"), days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// maintenanceHandler sets or clears the operator maintenance override.
// PUT /v1/providers/{providerId}/maintenance
func maintenanceHandler(system *service.SystemService, logger *zap.Logger) http.HandlerFunc {
	type maintenanceRequest struct {
		Active bool `json:"active"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var body maintenanceRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		id := chi.URLParam(r, "providerId")
		if err := system.SetProviderMaintenance(id, body.Active); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"providerId": id, "maintenance": body.Active})
	}
}

// quotaHandler updates a provider's quota limits.
// PUT /v1/providers/{providerId}/quota
func quotaHandler(system *service.SystemService, logger *zap.Logger) http.HandlerFunc {
	type quotaRequest struct {
		MaxTokens  int     `json:"maxTokens,omitempty"`
		DailyQuota float64 `json:"dailyQuota,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var body quotaRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		id := chi.URLParam(r, "providerId")
		if err := system.UpdateProviderQuota(id, body.MaxTokens, body.DailyQuota); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rec, err := system.GetProviderMetrics(id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec.Quota)
	}
}

// performanceReportHandler aggregates the cache metric series.
// GET /v1/analytics/report?period=day
func performanceReportHandler(analytics *service.AnalyticsEngine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period := r.URL.Query().Get("period")
		if period == "" {
			period = "day"
		}
		report, err := analytics.GeneratePerformanceReport(period)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// suggestionsHandler returns rule-based tuning suggestions.
// GET /v1/analytics/suggestions
func suggestionsHandler(analytics *service.AnalyticsEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		suggestions := analytics.GetOptimizationSuggestions()
		if suggestions == nil {
			suggestions = []domain.OptimizationSuggestion{}
		}
		writeJSON(w, http.StatusOK, suggestions)
	}
}

// activeAlertsHandler returns all unresolved alerts.
// GET /v1/alerts
func activeAlertsHandler(analytics *service.AnalyticsEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alerts := analytics.GetActiveAlerts()
		if alerts == nil {
			alerts = []domain.Alert{}
		}
		writeJSON(w, http.StatusOK, alerts)
	}
}

// resolveAlertHandler resolves one alert.
// POST /v1/alerts/{alertId}/resolve
func resolveAlertHandler(analytics *service.AnalyticsEngine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "alertId")
		if err := analytics.ResolveAlert(id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"resolved": id})
	}
}

// thresholdsHandler applies a partial alert-threshold update and returns
// the effective thresholds.
// PUT /v1/alerts/thresholds
func thresholdsHandler(analytics *service.AnalyticsEngine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update domain.AlertThresholdUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		writeJSON(w, http.StatusOK, analytics.UpdateAlertThresholds(update))
	}
}

// engineMetricsHandler serves the cumulative engine metrics snapshot.
// GET /v1/metrics/engine
func engineMetricsHandler(system *service.SystemService, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := system.ListProviderMetrics()
		ids := make([]string, 0, len(records))
		for _, rec := range records {
			ids = append(ids, rec.ID)
		}
		writeJSON(w, http.StatusOK, metrics.Snapshot(ids))
	}
}
