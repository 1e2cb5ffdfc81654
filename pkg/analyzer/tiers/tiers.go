// Package tiers classifies scored debt items into the four
// recommendation tiers. Classification composes small pure predicates;
// every item receives exactly one tier.
package tiers

import (
	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/models"
)

// T1 thresholds: beyond these, an item is architectural debt no matter
// what else is true, except extremeCognitive, which counts only when
// cyclomatic complexity also exceeds extremeCyclomatic/2. The moderate
// values are the T2 hotspot thresholds.
const (
	extremeScore            = 100.0
	extremeCyclomatic       = 50
	extremeCognitive        = 20
	deepNesting             = 5
	extremeComplexityFactor = 5.0

	moderateComplexityFactor = 2.0
	moderateCognitive        = 10
	moderateNesting          = 3
	moderateAdjusted         = 20
)

// Classify assigns the recommendation tier for a scored item.
// Pure and deterministic.
func Classify(item *models.UnifiedDebtItem, cfg *config.TierConfig) models.Tier {
	switch {
	case isT1Architectural(item):
		return models.TierCriticalArchitecture
	case isT2ComplexUntested(item, cfg):
		return models.TierComplexUntested
	case isT3TestingGap(item, cfg):
		return models.TierTestingGaps
	default:
		return models.TierMaintenance
	}
}

func isT1Architectural(item *models.UnifiedDebtItem) bool {
	return isGodOrErrorIssue(item.Debt) || hasT1Complexity(item)
}

func isGodOrErrorIssue(debt models.DebtType) bool {
	return debt.IsGodIssue() || debt.Kind == models.DebtErrorSwallowing
}

func hasT1Complexity(item *models.UnifiedDebtItem) bool {
	return item.Score.FinalScore >= extremeScore ||
		effectiveCyclomatic(item) > extremeCyclomatic ||
		item.Cognitive > extremeCognitive && item.Cyclomatic > extremeCyclomatic/2 ||
		item.Nesting >= deepNesting ||
		item.Score.ComplexityFactor > extremeComplexityFactor
}

func isT2ComplexUntested(item *models.UnifiedDebtItem, cfg *config.TierConfig) bool {
	return isT2TestingGap(item, cfg) || isT2ComplexityHotspot(item)
}

func isT2TestingGap(item *models.UnifiedDebtItem, cfg *config.TierConfig) bool {
	if item.Debt.Kind != models.DebtTestingGap {
		return false
	}
	return item.Cyclomatic >= cfg.T2ComplexityThreshold ||
		item.TotalDependencies() >= cfg.T2DependencyThreshold ||
		item.Role == models.RoleEntryPoint
}

func isT2ComplexityHotspot(item *models.UnifiedDebtItem) bool {
	if item.Debt.Kind != models.DebtComplexityHotspot {
		return false
	}
	return item.Score.ComplexityFactor > moderateComplexityFactor ||
		item.Cognitive > moderateCognitive ||
		item.Nesting >= moderateNesting ||
		hasModerateAdjusted(item)
}

func hasModerateAdjusted(item *models.UnifiedDebtItem) bool {
	adj := item.Debt.AdjustedCyclomatic
	return adj != nil && *adj >= moderateAdjusted
}

func isT3TestingGap(item *models.UnifiedDebtItem, cfg *config.TierConfig) bool {
	return item.Debt.Kind == models.DebtTestingGap &&
		item.Cyclomatic >= cfg.T3ComplexityThreshold
}

// effectiveCyclomatic prefers the entropy-adjusted count when present.
func effectiveCyclomatic(item *models.UnifiedDebtItem) int {
	if adj := item.Debt.AdjustedCyclomatic; adj != nil {
		return *adj
	}
	return item.Cyclomatic
}
