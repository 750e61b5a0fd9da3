package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/infra/observability"
	"github.com/mongshilymom/legalai-engine/internal/port"
	"github.com/mongshilymom/legalai-engine/internal/registry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var orchestratorTracer = otel.Tracer("service/orchestrator")

const (
	// cacheHitConfidence is reported for responses served from cache.
	cacheHitConfidence = 95
	// defaultConfidence is used when a provider does not report one.
	defaultConfidence = 85
	// fallbackConfidenceScale discounts confidence after a fallback hop.
	fallbackConfidenceScale = 0.9
)

// FailoverPolicy bounds how many times a failed request may hop to an
// alternate provider. The engine runs with exactly one hop.
type FailoverPolicy struct {
	MaxHops int
}

// DefaultFailoverPolicy is the single-hop policy required of the engine.
func DefaultFailoverPolicy() FailoverPolicy {
	return FailoverPolicy{MaxHops: 1}
}

// Orchestrator drives the per-request flow: cache lookup, provider call via
// the selector, bounded failover, cache write-through, registry update.
type Orchestrator struct {
	registry      *registry.Registry
	selector      *Selector
	clients       map[string]port.ProviderClient
	cache         port.CacheStore
	metrics       *observability.Metrics
	logger        *zap.Logger
	invokeTimeout time.Duration
	defaultTTL    time.Duration
	failover      FailoverPolicy
}

// NewOrchestrator creates the orchestrator with all dependencies injected.
func NewOrchestrator(
	reg *registry.Registry,
	selector *Selector,
	clients map[string]port.ProviderClient,
	cache port.CacheStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
	invokeTimeout time.Duration,
	defaultTTL time.Duration,
	failover FailoverPolicy,
) *Orchestrator {
	return &Orchestrator{
		registry:      reg,
		selector:      selector,
		clients:       clients,
		cache:         cache,
		metrics:       metrics,
		logger:        logger,
		invokeTimeout: invokeTimeout,
		defaultTTL:    defaultTTL,
		failover:      failover,
	}
}

// Analyze serves one analysis request. A cache hit short-circuits before
// any provider work is started. On a miss, the target provider is resolved
// (explicit pin or auto-selection), invoked with a timeout, and the result
// is written through to the cache and the registry. An invocation failure
// triggers at most one fallback hop.
func (o *Orchestrator) Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Summary) == "" {
		return nil, &domain.ErrValidation{Field: "summary", Message: "must not be empty"}
	}

	ctx, span := orchestratorTracer.Start(ctx, "Orchestrator.Analyze")
	defer span.End()

	start := time.Now()
	defer func() {
		o.metrics.RecordRequestDuration("analyze", time.Since(start))
	}()

	key := CacheKey(req)
	promptContext := normalize(req.Summary)
	metadata := map[string]string{
		"language":     normalize(req.Language),
		"jurisdiction": jurisdictionOf(req),
	}
	span.SetAttributes(attribute.String("cache.key", key))

	// --- Step 1: cache lookup ---
	entry, err := o.cache.Get(ctx, key, promptContext, metadata)
	if err != nil {
		// Soft failure: proceed as a miss.
		o.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	if entry != nil {
		o.metrics.IncrCacheHit("responses")
		o.metrics.IncrRequest("success")
		return &domain.AnalysisResponse{
			Content:     entry.Content,
			Provider:    entry.Provider,
			Cached:      true,
			Confidence:  cacheHitConfidence,
			TokensUsed:  entry.TokensUsed,
			Cost:        0,
			ProcessedAt: time.Now(),
		}, nil
	}
	o.metrics.IncrCacheMiss("responses")

	// --- Step 2: resolve the target provider ---
	providerID, fallbackUsed, err := o.resolveProvider(req)
	if err != nil {
		o.metrics.IncrRequest("error")
		return nil, err
	}

	preq := &domain.ProviderRequest{
		Summary:      req.Summary,
		RiskTags:     req.RiskTags,
		Language:     req.Language,
		Jurisdiction: jurisdictionOf(req),
	}

	// --- Step 3: invoke, with at most failover.MaxHops fallback hops ---
	primary := providerID
	hops := 0
	for {
		resp, invErr := o.invoke(ctx, providerID, preq)
		if invErr == nil {
			return o.finish(ctx, req, key, promptContext, metadata, providerID, fallbackUsed, resp), nil
		}

		o.markProviderFailed(providerID, invErr)
		o.metrics.IncrProviderError(providerID)
		o.logger.Error("provider invocation failed",
			zap.String("provider_id", providerID),
			zap.Bool("fallback_attempt", fallbackUsed),
			zap.Error(invErr),
		)

		if req.DisableFallback {
			o.metrics.IncrRequest("error")
			return nil, &domain.ErrProviderInvocation{ProviderID: providerID, Err: invErr}
		}
		if fallbackUsed || hops >= o.failover.MaxHops {
			o.metrics.IncrRequest("error")
			return nil, &domain.ErrFallbackExhausted{Primary: primary, Fallback: providerID}
		}

		reqs := req.Requirements
		reqs.ExcludeProviders = append(append([]string(nil), reqs.ExcludeProviders...), providerID)
		decision := o.selector.SelectBestProvider(reqs)
		if decision.Unsatisfiable() {
			o.metrics.IncrRequest("error")
			return nil, &domain.ErrFallbackExhausted{Primary: primary, Fallback: domain.NoProvider}
		}
		providerID = decision.SelectedProvider
		fallbackUsed = true
		hops++
		o.metrics.IncrFallback()
	}
}

// resolveProvider applies the routing mode: an explicit pin is honoured
// unless the provider is unavailable, in which case fallback (when enabled)
// re-selects with the pinned provider excluded.
func (o *Orchestrator) resolveProvider(req *domain.AnalysisRequest) (providerID string, fallbackUsed bool, err error) {
	if req.Mode() == domain.RoutingAuto {
		decision := o.selector.SelectBestProvider(req.Requirements)
		if decision.Unsatisfiable() {
			return "", false, &domain.ErrNoEligibleProvider{Reason: decision.Reason}
		}
		return decision.SelectedProvider, false, nil
	}

	rec, getErr := o.registry.Get(req.Provider)
	if getErr == nil && rec.Available() {
		return req.Provider, false, nil
	}
	if req.DisableFallback {
		if getErr != nil {
			return "", false, getErr
		}
		return "", false, &domain.ErrNoEligibleProvider{
			Reason: fmt.Sprintf("pinned provider %s is %s", req.Provider, rec.Status),
		}
	}

	reqs := req.Requirements
	reqs.ExcludeProviders = append(append([]string(nil), reqs.ExcludeProviders...), req.Provider)
	decision := o.selector.SelectBestProvider(reqs)
	if decision.Unsatisfiable() {
		return "", false, &domain.ErrNoEligibleProvider{Reason: decision.Reason}
	}
	o.logger.Info("pinned provider unavailable, rerouted",
		zap.String("pinned", req.Provider),
		zap.String("selected", decision.SelectedProvider),
	)
	o.metrics.IncrFallback()
	return decision.SelectedProvider, true, nil
}

// invoke calls one provider with an explicit timeout. A timeout is
// indistinguishable from any other invocation failure to the caller.
func (o *Orchestrator) invoke(ctx context.Context, providerID string, preq *domain.ProviderRequest) (*domain.ProviderResponse, error) {
	client, ok := o.clients[providerID]
	if !ok {
		return nil, &domain.ErrProviderNotFound{ID: providerID}
	}

	ctx, span := orchestratorTracer.Start(ctx, "Orchestrator.invoke")
	defer span.End()
	span.SetAttributes(attribute.String("provider.id", providerID))

	invokeCtx, cancel := context.WithTimeout(ctx, o.invokeTimeout)
	defer cancel()

	resp, err := client.Invoke(invokeCtx, preq)
	if err != nil {
		if invokeCtx.Err() == context.DeadlineExceeded {
			return nil, &domain.ErrTimeout{Operation: "invoke " + providerID}
		}
		return nil, err
	}
	return resp, nil
}

// finish runs the success path: write-through cache, quota accounting,
// metrics, and the final response assembly.
func (o *Orchestrator) finish(
	ctx context.Context,
	req *domain.AnalysisRequest,
	key, promptContext string,
	metadata map[string]string,
	providerID string,
	fallbackUsed bool,
	resp *domain.ProviderResponse,
) *domain.AnalysisResponse {
	now := time.Now()

	confidence := resp.Confidence
	if confidence == 0 {
		confidence = defaultConfidence
	}
	if fallbackUsed {
		confidence = int(float64(confidence) * fallbackConfidenceScale)
	}

	ttl := req.CacheTTL
	if ttl <= 0 {
		ttl = o.defaultTTL
	}
	entry := &domain.CacheEntry{
		Content:    resp.Content,
		Provider:   providerID,
		Confidence: confidence,
		TokensUsed: resp.Usage.Tokens,
		Cost:       resp.Usage.Cost,
		CreatedAt:  now,
	}
	if err := o.cache.Set(ctx, key, entry, promptContext, metadata, ttl); err != nil {
		// Soft failure: the response is still returned, just not cached.
		o.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}

	if err := o.registry.RecordQuotaUsage(providerID, resp.Usage.Tokens, resp.Usage.Cost); err != nil {
		o.logger.Warn("quota accounting failed", zap.String("provider_id", providerID), zap.Error(err))
	}

	o.metrics.RecordTokens(providerID, resp.Usage.Tokens)
	o.metrics.AddCost(providerID, resp.Usage.Cost)
	o.metrics.IncrRequest("success")

	return &domain.AnalysisResponse{
		Content:      resp.Content,
		Provider:     providerID,
		Cached:       false,
		Confidence:   confidence,
		FallbackUsed: fallbackUsed,
		TokensUsed:   resp.Usage.Tokens,
		Cost:         resp.Usage.Cost,
		ProcessedAt:  now,
	}
}

// markProviderFailed records a live-request failure against the provider's
// health state. Unlike probe failures, a live invocation failure takes the
// provider out of rotation immediately; the health monitor recovers it once
// probes succeed again.
func (o *Orchestrator) markProviderFailed(providerID string, cause error) {
	_ = o.registry.AppendHealthResult(providerID, domain.HealthCheckResult{
		ProviderID: providerID,
		Success:    false,
		Error:      cause.Error(),
		Timestamp:  time.Now(),
	})
	_ = o.registry.Update(providerID, func(rec *domain.ProviderRecord) {
		rec.ConsecutiveFailures++
		rec.HealthScore -= 20
		rec.TotalRequests++
		rec.Status = domain.StatusFailed
	})
}

// CacheKey computes the canonical cache key for a request: lower-cased and
// trimmed summary, sorted normalized risk tags, language, and jurisdiction
// (or "general"), hashed together.
func CacheKey(req *domain.AnalysisRequest) string {
	tags := make([]string, 0, len(req.RiskTags))
	for _, t := range req.RiskTags {
		if n := normalize(t); n != "" {
			tags = append(tags, n)
		}
	}
	sort.Strings(tags)

	canonical := strings.Join([]string{
		normalize(req.Summary),
		strings.Join(tags, ","),
		normalize(req.Language),
		jurisdictionOf(req),
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func jurisdictionOf(req *domain.AnalysisRequest) string {
	if j := normalize(req.Jurisdiction); j != "" {
		return j
	}
	return "general"
}
