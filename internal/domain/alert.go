package domain

import "time"

// ============================================================
// Threshold alerts
// ============================================================

// AlertType categorises what an alert is about.
type AlertType string

const (
	AlertPerformance AlertType = "performance"
	AlertCapacity    AlertType = "capacity"
	AlertError       AlertType = "error"
	AlertCost        AlertType = "cost"
)

// AlertSeverity ranks how urgent an alert is.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is an operator-visible notification of sustained degradation.
// At most one unresolved alert may exist per (type, message) pair.
type Alert struct {
	ID           string        `json:"id"`
	Type         AlertType     `json:"type"`
	Severity     AlertSeverity `json:"severity"`
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
	Threshold    float64       `json:"threshold"`
	CurrentValue float64       `json:"currentValue"`
	Resolved     bool          `json:"resolved"`
	ResolvedAt   *time.Time    `json:"resolvedAt,omitempty"`
}

// AlertThresholds holds the operator-tunable limits the analytics engine
// evaluates each sample against.
type AlertThresholds struct {
	MinHitRate        float64 `json:"minHitRate"`        // %, below triggers performance alert
	MaxResponseTime   float64 `json:"maxResponseTime"`   // ms, above triggers performance alert
	MaxCacheSizeBytes int64   `json:"maxCacheSizeBytes"` // configured cache capacity
	CacheSizeRatio    float64 `json:"cacheSizeRatio"`    // fraction of capacity that triggers capacity alert
	MaxErrorRate      float64 `json:"maxErrorRate"`      // %, above triggers error alert
}

// DefaultAlertThresholds returns the stock alerting rules.
func DefaultAlertThresholds(maxCacheSizeBytes int64) AlertThresholds {
	return AlertThresholds{
		MinHitRate:        60,
		MaxResponseTime:   5000,
		MaxCacheSizeBytes: maxCacheSizeBytes,
		CacheSizeRatio:    0.8,
		MaxErrorRate:      5,
	}
}

// AlertThresholdUpdate is a partial update to AlertThresholds; nil fields
// keep their current value.
type AlertThresholdUpdate struct {
	MinHitRate        *float64 `json:"minHitRate,omitempty"`
	MaxResponseTime   *float64 `json:"maxResponseTime,omitempty"`
	MaxCacheSizeBytes *int64   `json:"maxCacheSizeBytes,omitempty"`
	CacheSizeRatio    *float64 `json:"cacheSizeRatio,omitempty"`
	MaxErrorRate      *float64 `json:"maxErrorRate,omitempty"`
}
