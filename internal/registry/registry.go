// Package registry holds the in-memory store of per-provider metrics and
// state. It offers pure accessor/mutator primitives; health evaluation and
// selection policy live in the service layer.
package registry

import (
	"sync"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
)

const (
	// historyCap bounds the per-provider probe ring buffer. Uptime and
	// error rate are recomputed over this window.
	historyCap = 20

	// quota EWMA weight for tokens and cost folded in on each request.
	quotaWeight = 0.1

	throughputWindow = time.Minute
)

// Registry is the in-memory store of ProviderRecords. Records are
// independent: each carries its own lock, and no operation takes more than
// one record lock at a time.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string // registration order, for stable iteration
}

type record struct {
	mu           sync.Mutex
	rec          domain.ProviderRecord
	history      []domain.HealthCheckResult // FIFO ring, cap historyCap
	requestTimes []time.Time                // live requests inside throughputWindow
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{records: make(map[string]*record)}
}

// Register seeds a record for a configured provider. Records are never
// deleted; registering an existing id is a no-op.
func (r *Registry) Register(spec domain.ProviderSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[spec.ID]; ok {
		return
	}
	r.records[spec.ID] = &record{
		rec: domain.ProviderRecord{
			ID:             spec.ID,
			Name:           spec.Name,
			Status:         domain.StatusHealthy,
			Uptime:         100,
			HealthScore:    100,
			CostPerRequest: spec.CostPerRequest,
			Capabilities:   spec.Capabilities,
			Quota: domain.Quota{
				MaxTokens:  spec.MaxTokens,
				RateLimit:  spec.RateLimit,
				DailyQuota: spec.DailyQuota,
			},
		},
	}
	r.order = append(r.order, spec.ID)
}

func (r *Registry) get(id string) (*record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id string) (domain.ProviderRecord, error) {
	rec, ok := r.get(id)
	if !ok {
		return domain.ProviderRecord{}, &domain.ErrProviderNotFound{ID: id}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.rec, nil
}

// List returns copies of all records in registration order.
func (r *Registry) List() []domain.ProviderRecord {
	r.mu.RLock()
	ids := append([]string(nil), r.order...)
	r.mu.RUnlock()

	out := make([]domain.ProviderRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.get(id); ok {
			rec.mu.Lock()
			out = append(out, rec.rec)
			rec.mu.Unlock()
		}
	}
	return out
}

// Update applies fn to the record for id under its lock.
// The maintenance override is preserved: fn may change any field, but an
// automatic status write never replaces StatusMaintenance.
func (r *Registry) Update(id string, fn func(*domain.ProviderRecord)) error {
	rec, ok := r.get(id)
	if !ok {
		return &domain.ErrProviderNotFound{ID: id}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	maintenance := rec.rec.Status == domain.StatusMaintenance
	fn(&rec.rec)
	if maintenance {
		rec.rec.Status = domain.StatusMaintenance
	}
	rec.rec.HealthScore = clampScore(rec.rec.HealthScore)
	return nil
}

// AppendHealthResult pushes a probe result into the provider's bounded
// ring buffer, evicting the oldest entry when full.
func (r *Registry) AppendHealthResult(id string, res domain.HealthCheckResult) error {
	rec, ok := r.get(id)
	if !ok {
		return &domain.ErrProviderNotFound{ID: id}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if len(rec.history) == historyCap {
		copy(rec.history, rec.history[1:])
		rec.history[historyCap-1] = res
	} else {
		rec.history = append(rec.history, res)
	}
	return nil
}

// History returns a copy of the provider's probe ring buffer, oldest first.
func (r *Registry) History(id string) ([]domain.HealthCheckResult, error) {
	rec, ok := r.get(id)
	if !ok {
		return nil, &domain.ErrProviderNotFound{ID: id}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]domain.HealthCheckResult(nil), rec.history...), nil
}

// RecordQuotaUsage accounts a successful live request: request counters,
// used quota, and the token/cost EWMAs. Throughput is recomputed over the
// trailing window.
func (r *Registry) RecordQuotaUsage(id string, tokens int, cost float64) error {
	rec, ok := r.get(id)
	if !ok {
		return &domain.ErrProviderNotFound{ID: id}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.rec.TotalRequests++
	rec.rec.SuccessfulRequests++
	rec.rec.Quota.UsedQuota += float64(tokens)
	rec.rec.AvgTokensPerRequest = EWMA(rec.rec.AvgTokensPerRequest, float64(tokens), quotaWeight)
	rec.rec.CostPerRequest = EWMA(rec.rec.CostPerRequest, cost, quotaWeight)

	now := time.Now()
	rec.requestTimes = append(rec.requestTimes, now)
	cutoff := now.Add(-throughputWindow)
	for len(rec.requestTimes) > 0 && rec.requestTimes[0].Before(cutoff) {
		rec.requestTimes = rec.requestTimes[1:]
	}
	rec.rec.Throughput = float64(len(rec.requestTimes))
	return nil
}

// UpdateQuota replaces the provider's quota limits. Used quota is kept.
func (r *Registry) UpdateQuota(id string, maxTokens int, dailyQuota float64) error {
	return r.Update(id, func(rec *domain.ProviderRecord) {
		if maxTokens > 0 {
			rec.Quota.MaxTokens = maxTokens
		}
		if dailyQuota > 0 {
			rec.Quota.DailyQuota = dailyQuota
		}
	})
}

// SetMaintenance sets or clears the operator maintenance override.
// While active, automatic health evaluation never overwrites the status.
// Clearing re-derives the status from the record's current metrics.
func (r *Registry) SetMaintenance(id string, active bool) error {
	rec, ok := r.get(id)
	if !ok {
		return &domain.ErrProviderNotFound{ID: id}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if active {
		rec.rec.Status = domain.StatusMaintenance
		return nil
	}
	if rec.rec.Status == domain.StatusMaintenance {
		rec.rec.Status = rec.rec.DeriveStatus()
	}
	return nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
