package compare

import (
	"testing"

	"github.com/panbanda/arrears/internal/output"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(file, function string, line uint32, score float64) output.Item {
	return output.Item{
		Type:     "function",
		Score:    score,
		Category: models.CategoryCodeQuality,
		Priority: models.SeverityFromScore(score),
		Location: output.Location{File: file, Function: function, Line: line},
		DebtKind: models.DebtComplexityHotspot,
	}
}

func report(totalScore float64, items ...output.Item) *output.Report {
	r := &output.Report{Items: items}
	r.Metadata.Version = output.SchemaVersion
	r.Summary.TotalDebtScore = totalScore
	return r
}

func TestResolvedTarget(t *testing.T) {
	// A function at score 80 disappears in the after snapshot.
	before := report(100, item("src/a.rs", "hot", 10, 80), item("src/b.rs", "warm", 5, 20))
	after := report(20, item("src/b.rs", "warm", 5, 20))

	result, err := NewEngine().Compare(before, after, "src/a.rs:hot:10")
	require.NoError(t, err)

	require.NotNil(t, result.Target)
	assert.Equal(t, StatusResolved, result.Target.Status)
	require.NotNil(t, result.Target.ScoreBefore)
	assert.Equal(t, 80.0, *result.Target.ScoreBefore)

	assert.GreaterOrEqual(t, result.ProjectHealth.ItemsResolved, 1)
	assert.Empty(t, result.Regressions)

	require.Len(t, result.Improvements, 1)
	assert.Equal(t, "hot", result.Improvements[0].Location.Function)
}

func TestImprovedTarget(t *testing.T) {
	before := report(80, item("src/a.rs", "hot", 10, 80))
	after := report(40, item("src/a.rs", "hot", 10, 40))

	result, err := NewEngine().Compare(before, after, "src/a.rs:hot:10")
	require.NoError(t, err)
	assert.Equal(t, StatusImproved, result.Target.Status)
	assert.Equal(t, -40.0, result.Target.Delta)
}

func TestRegressedTarget(t *testing.T) {
	before := report(40, item("src/a.rs", "hot", 10, 40))
	after := report(80, item("src/a.rs", "hot", 10, 80))

	result, err := NewEngine().Compare(before, after, "src/a.rs:hot:10")
	require.NoError(t, err)
	assert.Equal(t, StatusRegressed, result.Target.Status)
}

func TestTargetNotFound(t *testing.T) {
	before := report(10, item("src/a.rs", "x", 1, 10))
	after := report(10, item("src/a.rs", "x", 1, 10))

	result, err := NewEngine().Compare(before, after, "src/ghost.rs:phantom:99")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, result.Target.Status)
}

func TestNewItemsAreRegressions(t *testing.T) {
	before := report(0)
	after := report(60, item("src/a.rs", "fresh", 3, 60), item("src/a.rs", "minor", 9, 5))

	result, err := NewEngine().Compare(before, after, "")
	require.NoError(t, err)

	require.Len(t, result.Regressions, 1, "low-severity new items stay below the floor")
	assert.Equal(t, "fresh", result.Regressions[0].Location.Function)
	assert.Equal(t, 2, result.ProjectHealth.ItemsNew)
}

func TestProjectHealthChangePercent(t *testing.T) {
	before := report(200, item("src/a.rs", "x", 1, 100))
	after := report(100, item("src/a.rs", "x", 1, 100))

	result, err := NewEngine().Compare(before, after, "")
	require.NoError(t, err)
	assert.InDelta(t, -50.0, result.ProjectHealth.ChangePercent, 1e-9)
}

func TestMatcherCascade(t *testing.T) {
	items := []output.Item{
		item("src/writers.rs", "render_markdown", 42, 50),
		item("src/writers.rs", "render_html", 90, 30),
	}
	m := NewMatcher()

	// Exact: full triple.
	pattern, err := ParsePattern("src/writers.rs:render_markdown:42")
	require.NoError(t, err)
	result, err := m.FindMatches(items, pattern)
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, result.Strategy)
	assert.Equal(t, 1.0, result.Confidence)

	// Wrong line falls back to function level at 0.8.
	pattern, err = ParsePattern("src/writers.rs:render_markdown:999")
	require.NoError(t, err)
	result, err = m.FindMatches(items, pattern)
	require.NoError(t, err)
	assert.Equal(t, StrategyFunctionLevel, result.Strategy)
	assert.Equal(t, 0.8, result.Confidence)

	// Misspelled function falls back to approximate naming.
	pattern, err = ParsePattern("src/writers.rs:render_markdow")
	require.NoError(t, err)
	result, err = m.FindMatches(items, pattern)
	require.NoError(t, err)
	assert.Equal(t, StrategyApproximateName, result.Strategy)
	assert.Less(t, result.Confidence, 0.6)
	assert.Greater(t, result.Confidence, 0.3)

	// File only: file-level, confidence <= 0.4.
	pattern, err = ParsePattern("src/writers.rs")
	require.NoError(t, err)
	result, err = m.FindMatches(items, pattern)
	require.NoError(t, err)
	assert.Equal(t, StrategyFileLevel, result.Strategy)
	assert.LessOrEqual(t, result.Confidence, 0.4)
	assert.GreaterOrEqual(t, result.Confidence, 0.3)
	assert.Len(t, result.Items, 2)
}

func TestWildcardFunctionAtLine(t *testing.T) {
	items := []output.Item{item("src/a.rs", "specific", 42, 50)}
	pattern, err := ParsePattern("src/a.rs:*:42")
	require.NoError(t, err)
	result, err := NewMatcher().FindMatches(items, pattern)
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, result.Strategy)
}

func TestParsePatternErrors(t *testing.T) {
	_, err := ParsePattern("")
	assert.Error(t, err)
	_, err = ParsePattern("a.rs:fn:notaline")
	assert.Error(t, err)
}

func TestPathNormalization(t *testing.T) {
	items := []output.Item{item("./src/a.rs", "f", 1, 10)}
	pattern, err := ParsePattern("src/a.rs:f:1")
	require.NoError(t, err)
	result, err := NewMatcher().FindMatches(items, pattern)
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, result.Strategy)
}

func TestValidatorComposition(t *testing.T) {
	// Resolved target, -50% health, no regressions:
	// 0.5*100 + 0.3*clamp(50+125) + 0.2*100 = 50 + 30 + 20 = 100.
	comparison := &Result{
		Target:        &TargetComparison{Status: StatusResolved},
		ProjectHealth: ProjectHealth{ChangePercent: -50},
	}
	v := Validate(comparison, nil)
	assert.Equal(t, 100.0, v.CompletionPercentage)
	assert.Equal(t, ValidationImproved, v.Status)
}

func TestValidatorRegressionsPenalty(t *testing.T) {
	deltas := make([]ItemDelta, 7)
	comparison := &Result{
		Target:        &TargetComparison{Status: StatusUnchanged},
		ProjectHealth: ProjectHealth{ChangePercent: 0},
		Regressions:   deltas,
	}
	v := Validate(comparison, nil)
	assert.Equal(t, 0.0, v.RegressionComponent, "penalty floors after five regressions")
	assert.InDelta(t, 0.5*50+0.3*50, v.CompletionPercentage, 1e-9)
}

func TestValidatorComponentsClamped(t *testing.T) {
	comparison := &Result{
		ProjectHealth: ProjectHealth{ChangePercent: 500},
	}
	v := Validate(comparison, nil)
	assert.GreaterOrEqual(t, v.HealthComponent, 0.0)
	assert.LessOrEqual(t, v.CompletionPercentage, 100.0)
	assert.GreaterOrEqual(t, v.CompletionPercentage, 0.0)
}

func TestValidatorTrend(t *testing.T) {
	comparison := &Result{
		Target:        &TargetComparison{Status: StatusResolved},
		ProjectHealth: ProjectHealth{ChangePercent: -10},
	}
	prev := &ValidationResult{CompletionPercentage: 40}
	v := Validate(comparison, prev)
	require.NotNil(t, v.PreviousCompletion)
	assert.Equal(t, 40.0, *v.PreviousCompletion)
	assert.Equal(t, TrendImproving, v.Trend)

	prevHigh := &ValidationResult{CompletionPercentage: v.CompletionPercentage + 50}
	v2 := Validate(comparison, prevHigh)
	assert.Equal(t, TrendDeclining, v2.Trend)
}
