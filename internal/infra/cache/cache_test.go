package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/infra/cache"
)

func entry(content string, cost float64) *domain.CacheEntry {
	return &domain.CacheEntry{
		Content:    content,
		Provider:   "claude",
		Confidence: 85,
		TokensUsed: 1000,
		Cost:       cost,
		CreatedAt:  time.Now(),
	}
}

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New(time.Minute)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k1", entry("analysis", 0.02), "prompt", nil, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := c.Get(ctx, "k1", "prompt", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a hit")
	}
	if got.Content != "analysis" {
		t.Errorf("unexpected content %q", got.Content)
	}
}

func TestCache_MissReturnsNilNil(t *testing.T) {
	c := cache.New(time.Minute)
	defer c.Close()

	got, err := c.Get(context.Background(), "absent", "", nil)
	if err != nil {
		t.Fatalf("a miss must not be an error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected a miss, got %+v", got)
	}
}

func TestCache_PerEntryTTL(t *testing.T) {
	c := cache.New(time.Hour) // sweep never fires during the test
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "short", entry("a", 0), "", nil, 15*time.Millisecond); err != nil {
		t.Fatalf("Set short: %v", err)
	}
	if err := c.Set(ctx, "long", entry("b", 0), "", nil, time.Hour); err != nil {
		t.Fatalf("Set long: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if got, _ := c.Get(ctx, "short", "", nil); got != nil {
		t.Error("expired entry must read as a miss")
	}
	if got, _ := c.Get(ctx, "long", "", nil); got == nil {
		t.Error("unexpired entry must still hit")
	}
}

func TestCache_StatsCounters(t *testing.T) {
	c := cache.New(time.Minute)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k1", entry("analysis", 0.02), "", nil, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.Get(ctx, "k1", "", nil)
	c.Get(ctx, "k1", "", nil)
	c.Get(ctx, "missing", "", nil)

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.SizeBytes == 0 {
		t.Error("expected a non-zero size estimate")
	}
	// each hit saves the entry's original cost
	if stats.CostSavings != 0.04 {
		t.Errorf("expected savings 0.04, got %f", stats.CostSavings)
	}
}

func TestCache_OverwriteReplacesSize(t *testing.T) {
	c := cache.New(time.Minute)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k1", entry("a long analysis body that takes some space", 0), "", nil, time.Minute)
	first := c.Stats().SizeBytes
	c.Set(ctx, "k1", entry("short", 0), "", nil, time.Minute)
	second := c.Stats().SizeBytes

	if second >= first {
		t.Errorf("overwriting with a smaller entry must shrink the size: %d -> %d", first, second)
	}
	if c.Stats().Entries != 1 {
		t.Errorf("overwrite must not add entries, got %d", c.Stats().Entries)
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New(time.Minute)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k1", entry("analysis", 0), "", nil, time.Minute)
	c.Delete("k1")

	if got, _ := c.Get(ctx, "k1", "", nil); got != nil {
		t.Error("deleted entry must read as a miss")
	}
	if c.Stats().SizeBytes != 0 {
		t.Errorf("expected size 0 after delete, got %d", c.Stats().SizeBytes)
	}
}

func TestCache_CleanupSweepsExpired(t *testing.T) {
	c := cache.New(10 * time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k1", entry("analysis", 0), "", nil, 5*time.Millisecond)

	time.Sleep(40 * time.Millisecond)

	if c.Stats().Entries != 0 {
		t.Errorf("sweep must remove expired entries, got %d", c.Stats().Entries)
	}
}
