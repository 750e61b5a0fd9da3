package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client
	HTTPTimeout time.Duration

	// Scheduling
	HealthCheckInterval time.Duration
	AnalyticsInterval   time.Duration

	// Request path
	InvokeTimeout time.Duration
	ProbeTimeout  time.Duration

	// Cache
	DefaultCacheTTL      time.Duration
	CacheCleanupInterval time.Duration
	MaxCacheSizeBytes    int64

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint string

	// Operator API auth; empty disables auth on mutating routes (dev mode).
	OperatorJWTSecret string

	// Provider topology
	Providers []domain.ProviderSpec
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		HealthCheckInterval: getEnvDuration("HEALTH_CHECK_INTERVAL", 5*time.Minute),
		AnalyticsInterval:   getEnvDuration("ANALYTICS_INTERVAL", 5*time.Minute),

		InvokeTimeout: getEnvDuration("INVOKE_TIMEOUT", 60*time.Second),
		ProbeTimeout:  getEnvDuration("PROBE_TIMEOUT", 10*time.Second),

		DefaultCacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 10*time.Minute),
		MaxCacheSizeBytes:    getEnvInt64("CACHE_MAX_SIZE_BYTES", 256<<20),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		OperatorJWTSecret: getEnv("OPERATOR_JWT_SECRET", ""),

		Providers: loadProviders(),
	}
}

// loadProviders parses the PROVIDERS env var (a JSON array of provider
// specs) or falls back to the default topology.
func loadProviders() []domain.ProviderSpec {
	raw := os.Getenv("PROVIDERS")
	if raw != "" {
		var specs []domain.ProviderSpec
		if err := json.Unmarshal([]byte(raw), &specs); err == nil && len(specs) > 0 {
			return specs
		}
	}
	return defaultProviders()
}

func defaultProviders() []domain.ProviderSpec {
	return []domain.ProviderSpec{
		{
			ID:      "claude",
			Name:    "Anthropic Claude",
			BaseURL: getEnv("CLAUDE_API_URL", "http://localhost:8091"),
			Capabilities: []domain.Capability{
				domain.CapabilityContractAnalysis,
				domain.CapabilityRiskScoring,
				domain.CapabilitySummarization,
				domain.CapabilityMultilingual,
				domain.CapabilityLongContext,
			},
			CostPerRequest: 0.015,
			MaxTokens:      200_000,
			RateLimit:      60,
			DailyQuota:     2_000_000,
		},
		{
			ID:      "gpt-4",
			Name:    "OpenAI GPT-4",
			BaseURL: getEnv("GPT4_API_URL", "http://localhost:8092"),
			Capabilities: []domain.Capability{
				domain.CapabilityContractAnalysis,
				domain.CapabilityRiskScoring,
				domain.CapabilitySummarization,
			},
			CostPerRequest: 0.03,
			MaxTokens:      128_000,
			RateLimit:      60,
			DailyQuota:     1_500_000,
		},
		{
			ID:      "gemini",
			Name:    "Google Gemini",
			BaseURL: getEnv("GEMINI_API_URL", "http://localhost:8093"),
			Capabilities: []domain.Capability{
				domain.CapabilityContractAnalysis,
				domain.CapabilitySummarization,
				domain.CapabilityLongContext,
			},
			CostPerRequest: 0.01,
			MaxTokens:      1_000_000,
			RateLimit:      120,
			DailyQuota:     3_000_000,
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
