// Package client contains the HTTP adapter for external AI provider
// backends. Each configured provider gets its own adapter instance with a
// dedicated circuit breaker and a bulkhead capping concurrent outbound
// calls to that backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("infra/client")

// HTTPProvider implements port.ProviderClient over a provider's HTTP API.
type HTTPProvider struct {
	httpClient *http.Client
	spec       domain.ProviderSpec
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
}

// NewHTTPProvider creates an adapter for one provider backend.
func NewHTTPProvider(httpClient *http.Client, spec domain.ProviderSpec, cb *gobreaker.CircuitBreaker, bulkhead *resilience.Bulkhead, cfg resilience.Config) *HTTPProvider {
	return &HTTPProvider{
		httpClient: httpClient,
		spec:       spec,
		cb:         cb,
		bulkhead:   bulkhead,
		cfg:        cfg,
	}
}

// HealthCheck probes the backend's health endpoint. Transient transport
// errors are retried with backoff; the caller treats any error as a
// failed probe.
func (c *HTTPProvider) HealthCheck(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "HTTPProvider.HealthCheck")
	defer span.End()
	span.SetAttributes(attribute.String("provider.id", c.spec.ID))

	var alive bool
	err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
		url := fmt.Sprintf("%s/health", c.spec.BaseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		alive = resp.StatusCode == http.StatusOK
		return nil
	})
	if err != nil {
		return false, err
	}
	return alive, nil
}

// Invoke performs one analysis call. No transport-level retry here: retry
// semantics on the request path belong to the orchestrator's failover
// policy, and a tripped breaker surfaces as an invocation failure.
func (c *HTTPProvider) Invoke(ctx context.Context, preq *domain.ProviderRequest) (*domain.ProviderResponse, error) {
	ctx, span := tracer.Start(ctx, "HTTPProvider.Invoke")
	defer span.End()
	span.SetAttributes(attribute.String("provider.id", c.spec.ID))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrExternalService{Service: c.spec.ID, Err: err}
	}
	defer c.bulkhead.Release()

	result, err := c.cb.Execute(func() (any, error) {
		body, err := json.Marshal(preq)
		if err != nil {
			return nil, err
		}

		url := fmt.Sprintf("%s/v1/invoke", c.spec.BaseURL)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("provider API returned status %d", resp.StatusCode)
		}

		var pr domain.ProviderResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return nil, err
		}
		return &pr, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &domain.ErrCircuitOpen{Service: c.spec.ID}
		}
		return nil, &domain.ErrExternalService{Service: c.spec.ID, Err: err}
	}
	return result.(*domain.ProviderResponse), nil
}
