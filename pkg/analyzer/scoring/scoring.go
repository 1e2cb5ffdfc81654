// Package scoring computes the unified composite score for debt items.
package scoring

import (
	"math"

	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/models"
)

// Factors are expressed on a 0-10 scale; the weighted sum is scaled to
// 0-100 before role and context multipliers apply.
const factorScale = 10.0

// depSaturation is the dependency count at which the raw dependency
// factor saturates.
const depSaturation = 50.0

// Scorer computes a UnifiedScore per debt item. Pure: no I/O, no
// shared mutable state; safe for concurrent use.
type Scorer struct {
	cfg *config.ScoringConfig
}

// New creates a scorer from validated configuration.
func New(cfg *config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Input bundles the per-function evidence the scorer consumes.
type Input struct {
	Metrics *models.FunctionMetrics
	Role    models.FunctionRole

	// Coverage in [0,1]; nil when no coverage data was supplied.
	// Missing coverage zeroes the factor rather than failing.
	Coverage *float64

	Upstream   int
	Downstream int

	// Criticality in [0,1]: how load-bearing the function is on
	// transitive call paths.
	Criticality float64

	// ContextMultiplier from the file-context detector, 1.0 for
	// production files.
	ContextMultiplier float64
}

// Score computes the composite score. The result is clamped to
// [0, 100]; inputs consistent with a higher value clamp, they do not
// fail.
func (s *Scorer) Score(in Input) models.UnifiedScore {
	cf := s.complexityFactor(in.Metrics)
	covF := s.coverageFactor(in.Coverage, in.Role)
	depF := s.dependencyFactor(in.Upstream, in.Downstream, in.Criticality)

	roleMult := s.cfg.RoleMultiplier(in.Role)
	ctxMult := in.ContextMultiplier
	if ctxMult <= 0 || ctxMult > 1 {
		ctxMult = 1.0
	}

	w := s.cfg.Weights
	weighted := (cf*w.Complexity + covF*w.Coverage + depF*w.Dependency) * factorScale

	pre := weighted * roleMult
	final := models.RoundScore(models.ClampScore(pre * ctxMult))

	score := models.UnifiedScore{
		ComplexityFactor: cf,
		CoverageFactor:   covF,
		DependencyFactor: depF,
		RoleMultiplier:   roleMult,
		FinalScore:       final,
	}
	if ctxMult != 1.0 {
		preRounded := models.RoundScore(models.ClampScore(pre))
		score.PreAdjustment = &preRounded
		score.PostAdjustment = &final
	}
	return score
}

// complexityFactor blends normalized cyclomatic and cognitive
// complexity onto a 0-10 scale, dampened by entropy when the branches
// are repetitive.
func (s *Scorer) complexityFactor(m *models.FunctionMetrics) float64 {
	cycNorm := float64(m.Cyclomatic) / float64(s.cfg.MaxCyclomatic)
	cogNorm := float64(m.Cognitive) / float64(s.cfg.MaxCognitive)
	blended := s.cfg.CyclomaticBlend*cycNorm + s.cfg.CognitiveBlend*cogNorm

	if m.EntropyScore != nil && *m.EntropyScore > 0.6 {
		blended *= 1 - 0.25*(*m.EntropyScore-0.6)/0.4
	}
	return math.Min(factorScale, blended*factorScale)
}

// coverageFactor measures the coverage gap, discounted for roles where
// untested code is expected. Missing data contributes nothing.
func (s *Scorer) coverageFactor(coverage *float64, role models.FunctionRole) float64 {
	if coverage == nil {
		return 0
	}
	gap := 1 - math.Min(1, math.Max(0, *coverage))
	return gap * s.cfg.RoleCoverageWeight(role) * factorScale
}

// dependencyFactor grows logarithmically with fan-in plus fan-out and
// is boosted for functions on transitively critical paths.
func (s *Scorer) dependencyFactor(upstream, downstream int, criticality float64) float64 {
	deps := float64(upstream + downstream)
	base := math.Log1p(deps) / math.Log1p(depSaturation)
	boosted := base * (1 + 0.5*math.Min(1, math.Max(0, criticality)))
	return math.Min(factorScale, boosted*factorScale)
}

// FileScore aggregates member item scores into a file-level score.
// God objects double the aggregate; a god file with no scored members
// still scores 0 here.
func FileScore(memberScores []float64, coveragePercent float64, godObject bool) float64 {
	var sum float64
	for _, s := range memberScores {
		sum += s
	}
	gap := 1 - math.Min(1, math.Max(0, coveragePercent/100))
	score := sum * (0.6 + 0.4*gap)
	if godObject {
		score *= 2
	}
	return models.RoundScore(score)
}
