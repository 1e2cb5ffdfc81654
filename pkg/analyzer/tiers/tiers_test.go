package tiers

import (
	"testing"

	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/stretchr/testify/assert"
)

func tierCfg() *config.TierConfig {
	cfg := config.DefaultConfig()
	return &cfg.Tiers
}

func item(debt models.DebtType, score float64) *models.UnifiedDebtItem {
	return &models.UnifiedDebtItem{
		Location: models.NewFunctionID("src/lib.rs", "work", 1),
		Debt:     debt,
		Score:    models.UnifiedScore{FinalScore: score},
	}
}

func TestGodObjectsAlwaysT1(t *testing.T) {
	fields := 30
	got := Classify(item(models.NewGodObject(40, &fields, 8, 90, 2600), 10), tierCfg())
	assert.Equal(t, models.TierCriticalArchitecture, got)

	got = Classify(item(models.NewGodModule(60, 2500), 5), tierCfg())
	assert.Equal(t, models.TierCriticalArchitecture, got)
}

func TestErrorSwallowingAlwaysT1(t *testing.T) {
	got := Classify(item(models.NewErrorSwallowing("empty catch", "save"), 12), tierCfg())
	assert.Equal(t, models.TierCriticalArchitecture, got)
}

func TestExtremeScoreT1(t *testing.T) {
	got := Classify(item(models.NewComplexityHotspot(12, 8, nil), 100), tierCfg())
	assert.Equal(t, models.TierCriticalArchitecture, got)
}

func TestExtremeCyclomaticT1(t *testing.T) {
	i := item(models.NewComplexityHotspot(60, 8, nil), 40)
	i.Cyclomatic = 60
	assert.Equal(t, models.TierCriticalArchitecture, Classify(i, tierCfg()))
}

func TestDeepNestingT1(t *testing.T) {
	i := item(models.NewComplexityHotspot(8, 8, nil), 30)
	i.Nesting = 5
	assert.Equal(t, models.TierCriticalArchitecture, Classify(i, tierCfg()))
}

func TestHighComplexityFactorT1(t *testing.T) {
	i := item(models.NewComplexityHotspot(8, 8, nil), 30)
	i.Score.ComplexityFactor = 5.5
	assert.Equal(t, models.TierCriticalArchitecture, Classify(i, tierCfg()))
}

func TestComplexTestingGapT2(t *testing.T) {
	i := item(models.NewTestingGap(0, 18, 12), 45)
	i.Cyclomatic = 18
	assert.Equal(t, models.TierComplexUntested, Classify(i, tierCfg()))
}

func TestHighDependencyTestingGapT2(t *testing.T) {
	i := item(models.NewTestingGap(0, 5, 4), 30)
	i.Cyclomatic = 5
	i.UpstreamCount = 6
	i.DownstreamCount = 6
	assert.Equal(t, models.TierComplexUntested, Classify(i, tierCfg()))
}

func TestEntryPointTestingGapT2(t *testing.T) {
	i := item(models.NewTestingGap(0, 4, 3), 25)
	i.Cyclomatic = 4
	i.Role = models.RoleEntryPoint
	assert.Equal(t, models.TierComplexUntested, Classify(i, tierCfg()))
}

func TestModerateHotspotT2(t *testing.T) {
	i := item(models.NewComplexityHotspot(12, 14, nil), 40)
	i.Cyclomatic = 12
	i.Cognitive = 14
	i.Score.ComplexityFactor = 2.5
	assert.Equal(t, models.TierComplexUntested, Classify(i, tierCfg()))
}

func TestModerateTestingGapT3(t *testing.T) {
	i := item(models.NewTestingGap(0, 12, 6), 25)
	i.Cyclomatic = 12
	i.UpstreamCount = 3
	i.DownstreamCount = 3
	assert.Equal(t, models.TierTestingGaps, Classify(i, tierCfg()))
}

func TestLowComplexityT4(t *testing.T) {
	i := item(models.NewRisk(2, nil), 8)
	i.Cyclomatic = 3
	assert.Equal(t, models.TierMaintenance, Classify(i, tierCfg()))
}

func TestHotspotScenarioStaysT2(t *testing.T) {
	// A cyclo=20, cog=30 hotspot with complexity_factor below 5
	// must land in T2, not T1.
	i := item(models.NewComplexityHotspot(20, 30, nil), 83.9)
	i.Cyclomatic = 20
	i.Cognitive = 30
	i.Score.ComplexityFactor = 3.3
	assert.Equal(t, models.TierComplexUntested, Classify(i, tierCfg()))
}

func TestTierTotality(t *testing.T) {
	// Every item receives exactly one tier from the closed set.
	debts := []models.DebtType{
		models.NewTestingGap(0, 3, 2),
		models.NewComplexityHotspot(12, 16, nil),
		models.NewDeadCode(models.VisibilityPrivate, 2, 1),
		models.NewErrorSwallowing("x", "y"),
		models.NewGodModule(60, 3000),
		models.NewRisk(1, nil),
	}
	for _, d := range debts {
		got := Classify(item(d, 15), tierCfg())
		assert.Contains(t, []models.Tier{
			models.TierCriticalArchitecture,
			models.TierComplexUntested,
			models.TierTestingGaps,
			models.TierMaintenance,
		}, got)
	}
}

func TestClassificationDeterministic(t *testing.T) {
	i := item(models.NewTestingGap(0, 16, 9), 55)
	i.Cyclomatic = 16
	first := Classify(i, tierCfg())
	for n := 0; n < 10; n++ {
		assert.Equal(t, first, Classify(i, tierCfg()))
	}
}
