// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
)

// ProviderClient is the narrow interface to one external AI backend.
// The real network client behind it is an external collaborator.
type ProviderClient interface {
	// HealthCheck performs a liveness probe. It returns whether the backend
	// answered successfully; transport errors are returned, never panicked.
	HealthCheck(ctx context.Context) (bool, error)

	// Invoke performs one analysis call against the backend.
	Invoke(ctx context.Context, req *domain.ProviderRequest) (*domain.ProviderResponse, error)
}

// CacheStore is the narrow interface to the response cache collaborator.
// The physical storage engine (key hashing, eviction to disk) lives behind
// this interface.
type CacheStore interface {
	// Get returns the entry for key, or nil with a nil error on a miss.
	Get(ctx context.Context, key, promptContext string, metadata map[string]string) (*domain.CacheEntry, error)

	// Set stores an entry under key with the given TTL.
	Set(ctx context.Context, key string, entry *domain.CacheEntry, promptContext string, metadata map[string]string, ttl time.Duration) error
}

// CacheStatsSource exposes cumulative cache counters for analytics
// sampling.
type CacheStatsSource interface {
	Stats() domain.CacheStats
}
