package compare

import (
	"math"
	"time"
)

// ValidationStatus summarizes the improvement verdict.
type ValidationStatus string

const (
	ValidationImproved  ValidationStatus = "improved"
	ValidationUnchanged ValidationStatus = "unchanged"
	ValidationRegressed ValidationStatus = "regressed"
)

// Trend compares against a previous validation run.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// trendBand is the completion-percentage movement treated as noise.
const trendBand = 5.0

// ValidationResult is the composite improvement verdict derived from a
// comparison.
type ValidationResult struct {
	GeneratedAt time.Time `json:"generated_at"`

	CompletionPercentage float64 `json:"completion_percentage"`

	// Subcomponents, each reduced to [0, 100] before weighting.
	TargetComponent     float64 `json:"target_component"`
	HealthComponent     float64 `json:"health_component"`
	RegressionComponent float64 `json:"regression_component"`

	Status ValidationStatus `json:"status"`

	PreviousCompletion *float64 `json:"previous_completion,omitempty"`
	Trend              Trend    `json:"trend,omitempty"`
}

// Component weights: target improvement dominates, overall health
// follows, absence of regressions rounds it out.
const (
	targetWeight     = 0.5
	healthWeight     = 0.3
	regressionWeight = 0.2
)

// Validate derives the composite completion percentage from a
// comparison, optionally trending against a previous validation.
func Validate(comparison *Result, previous *ValidationResult) *ValidationResult {
	target := targetComponent(comparison.Target)
	health := healthComponent(comparison.ProjectHealth)
	regression := regressionComponent(len(comparison.Regressions))

	completion := clamp100(target*targetWeight + health*healthWeight + regression*regressionWeight)

	result := &ValidationResult{
		GeneratedAt:          time.Now().UTC(),
		CompletionPercentage: completion,
		TargetComponent:      target,
		HealthComponent:      health,
		RegressionComponent:  regression,
		Status:               statusFor(comparison, completion),
	}

	if previous != nil {
		prev := previous.CompletionPercentage
		result.PreviousCompletion = &prev
		change := completion - prev
		switch {
		case change > trendBand:
			result.Trend = TrendImproving
		case change < -trendBand:
			result.Trend = TrendDeclining
		default:
			result.Trend = TrendStable
		}
	}
	return result
}

// targetComponent maps the target verdict to [0, 100]. Without a
// target, the component is neutral.
func targetComponent(target *TargetComparison) float64 {
	if target == nil {
		return 50
	}
	switch target.Status {
	case StatusResolved:
		return 100
	case StatusImproved:
		if target.ScoreBefore != nil && *target.ScoreBefore > 0 {
			reduction := -target.Delta / *target.ScoreBefore
			return clamp100(reduction * 100)
		}
		return 75
	case StatusUnchanged, StatusNotFoundBefore:
		return 50
	case StatusRegressed:
		return 0
	default: // not found at all
		return 0
	}
}

// healthComponent maps the percentage change of total debt to [0, 100]:
// -20% or better saturates at 100, +20% or worse at 0.
func healthComponent(health ProjectHealth) float64 {
	return clamp100(50 - health.ChangePercent*2.5)
}

// regressionComponent charges 20 points per regression, floored after
// five.
func regressionComponent(regressions int) float64 {
	return clamp100(100 - 20*math.Min(float64(regressions), 5))
}

func statusFor(comparison *Result, completion float64) ValidationStatus {
	if comparison.Target != nil && comparison.Target.Status == StatusRegressed {
		return ValidationRegressed
	}
	switch {
	case completion >= 60:
		return ValidationImproved
	case comparison.ProjectHealth.ChangePercent > 1:
		return ValidationRegressed
	default:
		return ValidationUnchanged
	}
}

func clamp100(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
