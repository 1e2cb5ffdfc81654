package fileagg

import (
	"fmt"
	"testing"

	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aggregator() *Aggregator {
	cfg := config.DefaultConfig()
	return New(&cfg.GodObject)
}

func fnMetric(file, name string, line uint32, length, cyclo, cog int) *models.FunctionMetrics {
	return &models.FunctionMetrics{
		ID:         models.NewFunctionID(file, name, line),
		Length:     length,
		Cyclomatic: cyclo,
		Cognitive:  cog,
	}
}

func scoredItem(id models.FunctionID, score float64, coverage *float64) *models.UnifiedDebtItem {
	item := &models.UnifiedDebtItem{
		Location: id,
		Debt:     models.NewComplexityHotspot(12, 18, nil),
		Score:    models.UnifiedScore{FinalScore: score},
	}
	if coverage != nil {
		item.Coverage = &models.TransitiveCoverage{Direct: *coverage, Transitive: *coverage}
	}
	return item
}

func TestComplexityAggregatedFromRawMetrics(t *testing.T) {
	fns := []*models.FunctionMetrics{
		fnMetric("src/a.rs", "one", 1, 10, 4, 6),
		fnMetric("src/a.rs", "two", 20, 30, 9, 12),
		fnMetric("src/a.rs", "test_it", 60, 15, 3, 2),
	}
	fns[2].Nesting = 3

	item, _ := aggregator().Aggregate(Input{Path: "src/a.rs", Functions: fns})
	m := item.Metrics
	assert.Equal(t, 3, m.TotalFunctions)
	assert.Equal(t, 55, m.TotalLines)
	assert.Equal(t, 16, m.TotalCyclomatic, "tests included so totals never undercount")
	assert.Equal(t, 20, m.TotalCognitive)
	assert.Equal(t, 9, m.MaxComplexity)
	assert.Equal(t, 3, m.MaxNesting)
}

func TestCoverageLengthWeighted(t *testing.T) {
	fns := []*models.FunctionMetrics{
		fnMetric("src/a.rs", "short", 1, 10, 12, 16),
		fnMetric("src/a.rs", "long", 20, 90, 12, 16),
	}
	full, none := 1.0, 0.0
	items := []*models.UnifiedDebtItem{
		scoredItem(fns[0].ID, 30, &full),
		scoredItem(fns[1].ID, 30, &none),
	}
	item, _ := aggregator().Aggregate(Input{Path: "src/a.rs", Functions: fns, Items: items})
	// 10 covered lines out of 100 weighted.
	assert.InDelta(t, 10.0, item.Metrics.CoveragePercent, 0.01)
}

func TestInclusionThreshold(t *testing.T) {
	fns := []*models.FunctionMetrics{fnMetric("src/a.rs", "f", 1, 10, 2, 1)}

	low := []*models.UnifiedDebtItem{scoredItem(fns[0].ID, 10, nil)}
	_, included := aggregator().Aggregate(Input{Path: "src/a.rs", Functions: fns, Items: low})
	assert.False(t, included, "low-scoring non-god files are excluded")

	high := []*models.UnifiedDebtItem{
		scoredItem(fns[0].ID, 60, nil),
		scoredItem(fns[0].ID, 40, nil),
	}
	_, included = aggregator().Aggregate(Input{Path: "src/a.rs", Functions: fns, Items: high})
	assert.True(t, included)
}

func TestGodObjectAlwaysIncluded(t *testing.T) {
	// 60 functions, total cyclomatic 1200, 2520 lines.
	fns := make([]*models.FunctionMetrics, 0, 60)
	for i := 0; i < 60; i++ {
		fns = append(fns, fnMetric("src/huge.rs", fmt.Sprintf("fn%d", i), uint32(i*42+1), 42, 20, 25))
	}
	item, included := aggregator().Aggregate(Input{Path: "src/huge.rs", Functions: fns})

	assert.True(t, included, "god objects are included regardless of score")
	require.True(t, item.IsGodObject())
	assert.Equal(t, models.CategoryArchitecture, item.Category())
	assert.Equal(t, 2520, item.Metrics.TotalLines)
	assert.Equal(t, 1200, item.Metrics.TotalCyclomatic)
}

func TestSyntheticGodItem(t *testing.T) {
	fns := make([]*models.FunctionMetrics, 0, 60)
	for i := 0; i < 60; i++ {
		fns = append(fns, fnMetric("src/huge.rs", fmt.Sprintf("fn%d", i), uint32(i*42+1), 42, 20, 25))
	}
	item, _ := aggregator().Aggregate(Input{Path: "src/huge.rs", Functions: fns})
	require.True(t, item.IsGodObject())

	synthetic := SyntheticGodItem(item)
	assert.Equal(t, "src/huge.rs", synthetic.Location.File)
	assert.Equal(t, models.DebtGodModule, synthetic.Debt.Kind)
	assert.Equal(t, 60, synthetic.Debt.Functions)
	assert.LessOrEqual(t, synthetic.Score.FinalScore, 100.0)
	assert.Equal(t, models.CategoryArchitecture, synthetic.Debt.Category())
}

func TestRiskFallbackToMemberMean(t *testing.T) {
	fns := []*models.FunctionMetrics{fnMetric("src/a.rs", "f", 1, 10, 12, 16)}
	items := []*models.UnifiedDebtItem{scoredItem(fns[0].ID, 60, nil)}
	items[0].Risk = &models.ContextualRisk{RiskScore: 4, Factors: []string{"churn"}}

	item, _ := aggregator().Aggregate(Input{Path: "src/a.rs", Functions: fns, Items: items})
	require.NotNil(t, item.Risk)
	assert.Equal(t, 4.0, item.Risk.RiskScore)

	direct := &models.ContextualRisk{RiskScore: 9, Factors: []string{"recent bug fixes"}}
	item, _ = aggregator().Aggregate(Input{Path: "src/a.rs", Functions: fns, Items: items, FileRisk: direct})
	assert.Equal(t, 9.0, item.Risk.RiskScore, "direct file-level analysis preferred")
}
