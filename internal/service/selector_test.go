package service_test

import (
	"testing"

	"github.com/mongshilymom/legalai-engine/internal/domain"
	"github.com/mongshilymom/legalai-engine/internal/registry"
	"github.com/mongshilymom/legalai-engine/internal/service"

	"go.uber.org/zap"
)

func setRecord(t *testing.T, reg *registry.Registry, id string, fn func(*domain.ProviderRecord)) {
	t.Helper()
	if err := reg.Update(id, fn); err != nil {
		t.Fatalf("Update %s: %v", id, err)
	}
}

func threeProviderRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	registerProvider(reg, "claude",
		domain.CapabilityContractAnalysis, domain.CapabilityRiskScoring,
		domain.CapabilitySummarization, domain.CapabilityMultilingual,
		domain.CapabilityLongContext)
	registerProvider(reg, "gpt-4",
		domain.CapabilityContractAnalysis, domain.CapabilityRiskScoring,
		domain.CapabilitySummarization)
	registerProvider(reg, "gemini",
		domain.CapabilityContractAnalysis, domain.CapabilitySummarization,
		domain.CapabilityLongContext)
	return reg
}

func TestSelect_PicksHighestComposite(t *testing.T) {
	reg := threeProviderRegistry(t)
	setRecord(t, reg, "claude", func(rec *domain.ProviderRecord) {
		rec.HealthScore = 95
		rec.ResponseTime = 1000
	})
	setRecord(t, reg, "gpt-4", func(rec *domain.ProviderRecord) {
		rec.HealthScore = 80
		rec.ResponseTime = 3000
	})
	setRecord(t, reg, "gemini", func(rec *domain.ProviderRecord) {
		rec.HealthScore = 85
		rec.ResponseTime = 2000
	})
	sel := service.NewSelector(reg, zap.NewNop())

	decision := sel.SelectBestProvider(domain.SelectionRequirements{})

	if decision.SelectedProvider != "claude" {
		t.Errorf("expected claude, got %s", decision.SelectedProvider)
	}
	if decision.Confidence != 95 {
		t.Errorf("confidence must mirror the winner's health score, got %d", decision.Confidence)
	}
	if len(decision.Alternatives) != 2 {
		t.Fatalf("expected 2 alternatives, got %d", len(decision.Alternatives))
	}
	if decision.Alternatives[0] != "gemini" || decision.Alternatives[1] != "gpt-4" {
		t.Errorf("expected alternatives [gemini gpt-4], got %v", decision.Alternatives)
	}
}

func TestSelect_MinHealthScoreFilter(t *testing.T) {
	reg := threeProviderRegistry(t)
	setRecord(t, reg, "claude", func(rec *domain.ProviderRecord) { rec.HealthScore = 69 })
	setRecord(t, reg, "gpt-4", func(rec *domain.ProviderRecord) { rec.HealthScore = 70 })
	setRecord(t, reg, "gemini", func(rec *domain.ProviderRecord) { rec.HealthScore = 50 })
	sel := service.NewSelector(reg, zap.NewNop())

	decision := sel.SelectBestProvider(domain.SelectionRequirements{})

	if decision.SelectedProvider != "gpt-4" {
		t.Errorf("default min health score is 70, expected gpt-4, got %s", decision.SelectedProvider)
	}
	if len(decision.Alternatives) != 0 {
		t.Errorf("providers below 70 must not appear as alternatives: %v", decision.Alternatives)
	}
}

func TestSelect_MaxResponseTimeFilter(t *testing.T) {
	reg := threeProviderRegistry(t)
	setRecord(t, reg, "claude", func(rec *domain.ProviderRecord) { rec.ResponseTime = 4000 })
	setRecord(t, reg, "gpt-4", func(rec *domain.ProviderRecord) { rec.ResponseTime = 900 })
	setRecord(t, reg, "gemini", func(rec *domain.ProviderRecord) { rec.ResponseTime = 1100 })
	sel := service.NewSelector(reg, zap.NewNop())

	decision := sel.SelectBestProvider(domain.SelectionRequirements{MaxResponseTime: 1000})

	if decision.SelectedProvider != "gpt-4" {
		t.Errorf("expected the only provider under 1000ms, got %s", decision.SelectedProvider)
	}
}

func TestSelect_MissingCapabilityIsUnsatisfiable(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "gpt-4", domain.CapabilityContractAnalysis)
	sel := service.NewSelector(reg, zap.NewNop())

	decision := sel.SelectBestProvider(domain.SelectionRequirements{
		Capabilities: []domain.Capability{domain.CapabilityMultilingual},
	})

	if !decision.Unsatisfiable() {
		t.Fatal("expected an unsatisfiable decision")
	}
	if decision.SelectedProvider != domain.NoProvider {
		t.Errorf("expected provider %q, got %q", domain.NoProvider, decision.SelectedProvider)
	}
	if decision.Reason != "No providers meet requirements" {
		t.Errorf("unexpected reason %q", decision.Reason)
	}
	if decision.Confidence != 0 {
		t.Errorf("expected confidence 0, got %d", decision.Confidence)
	}
}

func TestSelect_MultilingualRoutesToClaude(t *testing.T) {
	reg := threeProviderRegistry(t)
	// give the others better raw metrics; capability still decides
	setRecord(t, reg, "gpt-4", func(rec *domain.ProviderRecord) { rec.ResponseTime = 100 })
	setRecord(t, reg, "gemini", func(rec *domain.ProviderRecord) { rec.ResponseTime = 100 })
	setRecord(t, reg, "claude", func(rec *domain.ProviderRecord) { rec.ResponseTime = 2500 })
	sel := service.NewSelector(reg, zap.NewNop())

	decision := sel.SelectBestProvider(domain.SelectionRequirements{
		Capabilities: []domain.Capability{domain.CapabilityMultilingual},
	})

	if decision.SelectedProvider != "claude" {
		t.Errorf("only claude advertises multilingual, got %s", decision.SelectedProvider)
	}
	if len(decision.Alternatives) != 0 {
		t.Errorf("no other provider qualifies as an alternative: %v", decision.Alternatives)
	}
}

func TestSelect_SkipsFailedAndMaintenance(t *testing.T) {
	reg := threeProviderRegistry(t)
	setRecord(t, reg, "claude", func(rec *domain.ProviderRecord) {
		rec.Status = domain.StatusFailed
	})
	if err := reg.SetMaintenance("gpt-4", true); err != nil {
		t.Fatalf("SetMaintenance: %v", err)
	}
	sel := service.NewSelector(reg, zap.NewNop())

	decision := sel.SelectBestProvider(domain.SelectionRequirements{})

	if decision.SelectedProvider != "gemini" {
		t.Errorf("expected the only available provider, got %s", decision.SelectedProvider)
	}
}

func TestSelect_ExcludeProviders(t *testing.T) {
	reg := threeProviderRegistry(t)
	sel := service.NewSelector(reg, zap.NewNop())

	decision := sel.SelectBestProvider(domain.SelectionRequirements{
		ExcludeProviders: []string{"claude", "gemini"},
	})

	if decision.SelectedProvider != "gpt-4" {
		t.Errorf("expected gpt-4 after exclusions, got %s", decision.SelectedProvider)
	}
}

func TestSelect_TieKeepsRegistrationOrder(t *testing.T) {
	reg := registry.New()
	registerProvider(reg, "alpha", domain.CapabilityContractAnalysis)
	registerProvider(reg, "beta", domain.CapabilityContractAnalysis)
	sel := service.NewSelector(reg, zap.NewNop())

	decision := sel.SelectBestProvider(domain.SelectionRequirements{})

	if decision.SelectedProvider != "alpha" {
		t.Errorf("identical scores must keep registration order, got %s", decision.SelectedProvider)
	}
}
