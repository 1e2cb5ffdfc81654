// Package fileagg lifts scored function items to file-level debt items:
// complexity roll-ups, coverage means, dependency unions, and god-object
// promotion.
package fileagg

import (
	"sort"

	"github.com/panbanda/arrears/pkg/analyzer/callgraph"
	"github.com/panbanda/arrears/pkg/analyzer/patterns"
	"github.com/panbanda/arrears/pkg/analyzer/scoring"
	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/models"
)

// Aggregator builds file-level debt items.
type Aggregator struct {
	cfg      *config.GodObjectConfig
	detector *patterns.Detector
}

// New creates an aggregator.
func New(cfg *config.GodObjectConfig) *Aggregator {
	return &Aggregator{cfg: cfg, detector: patterns.New(cfg)}
}

// Input bundles one file's evidence.
type Input struct {
	Path string

	// Functions are the raw metrics for every member, tests included.
	// Complexity aggregates come from here so totals stay insensitive
	// to scoring thresholds.
	Functions []*models.FunctionMetrics

	Types []*models.TypeMetrics
	Graph *callgraph.Graph

	// Items are the scored debt items that landed in this file.
	Items []*models.UnifiedDebtItem

	// FileRisk is the direct file-level git analysis, preferred over
	// the mean of member risks.
	FileRisk *models.ContextualRisk
}

// Aggregate builds the file item. The second return is false when the
// file does not clear the inclusion threshold and is not a god object.
func (a *Aggregator) Aggregate(in Input) (*models.FileDebtItem, bool) {
	metrics := a.aggregateMetrics(in)
	god := a.detector.GodObjectAnalysis(patterns.FileInput{
		Path:      in.Path,
		Functions: in.Functions,
		Types:     in.Types,
		Graph:     in.Graph,
	})

	memberScores := make([]float64, 0, len(in.Items))
	for _, item := range in.Items {
		memberScores = append(memberScores, item.Score.FinalScore)
	}
	score := scoring.FileScore(memberScores, metrics.CoveragePercent, god.IsGodObject)
	if god.IsGodObject && score < god.Score {
		score = god.Score
	}

	item := &models.FileDebtItem{
		Metrics: metrics,
		Score:   score,
		Risk:    a.aggregateRisk(in),
	}
	if god.IsGodObject {
		item.GodObject = god
	}

	// God objects are always included regardless of score.
	if !god.IsGodObject && score <= a.cfg.FileScoreThreshold {
		return item, false
	}
	return item, true
}

// aggregateMetrics sums member complexity from raw metrics (including
// tests and non-debt members, so files are never undercounted), takes
// the max of nesting, and length-weights member coverage.
func (a *Aggregator) aggregateMetrics(in Input) models.FileDebtMetrics {
	m := models.FileDebtMetrics{Path: in.Path}

	for _, fn := range in.Functions {
		m.TotalFunctions++
		m.TotalLines += fn.Length
		m.TotalCyclomatic += fn.Cyclomatic
		m.TotalCognitive += fn.Cognitive
		if fn.Cyclomatic > m.MaxComplexity {
			m.MaxComplexity = fn.Cyclomatic
		}
		if fn.Nesting > m.MaxNesting {
			m.MaxNesting = fn.Nesting
		}
	}

	m.CoveragePercent = weightedCoverage(in)
	m.Dependencies = dependencyUnion(in)
	return m
}

// weightedCoverage computes the length-weighted mean of member
// coverage, sourced from the scored items' transitive coverage.
func weightedCoverage(in Input) float64 {
	lengthFor := make(map[models.FunctionID]int, len(in.Functions))
	for _, fn := range in.Functions {
		lengthFor[fn.ID] = fn.Length
	}

	var weighted, total float64
	seen := make(map[models.FunctionID]struct{})
	for _, item := range in.Items {
		if item.Coverage == nil {
			continue
		}
		if _, dup := seen[item.Location]; dup {
			continue
		}
		seen[item.Location] = struct{}{}
		length := float64(lengthFor[item.Location])
		if length <= 0 {
			length = 1
		}
		weighted += item.Coverage.Direct * length
		total += length
	}
	if total == 0 {
		return 0
	}
	return weighted / total * 100
}

// dependencyUnion deduplicates the files of member callers and callees,
// excluding this file and external callees without a file. This is
// the debt-focused view: narrower than full architectural dependencies
// by design of the aggregation.
func dependencyUnion(in Input) []string {
	if in.Graph == nil {
		return nil
	}
	set := make(map[string]struct{})
	for _, fn := range in.Functions {
		for _, caller := range in.Graph.Callers(fn.ID) {
			if caller.File != in.Path {
				set[caller.File] = struct{}{}
			}
		}
		for _, callee := range in.Graph.Callees(fn.ID) {
			if callee.File != in.Path && callee.File != "" {
				set[callee.File] = struct{}{}
			}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for dep := range set {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

// aggregateRisk prefers the direct file-level analysis and falls back
// to the mean of member-level risks.
func (a *Aggregator) aggregateRisk(in Input) *models.ContextualRisk {
	if in.FileRisk != nil {
		return in.FileRisk
	}
	var sum float64
	factors := make(map[string]struct{})
	n := 0
	for _, item := range in.Items {
		if item.Risk == nil {
			continue
		}
		sum += item.Risk.RiskScore
		for _, f := range item.Risk.Factors {
			factors[f] = struct{}{}
		}
		n++
	}
	if n == 0 {
		return nil
	}
	list := make([]string, 0, len(factors))
	for f := range factors {
		list = append(list, f)
	}
	sort.Strings(list)
	return &models.ContextualRisk{RiskScore: sum / float64(n), Factors: list}
}

// SyntheticGodItem emits the function-level god-object item for a file
// flagged as a god object, so the unified item list carries the verdict
// alongside the file item.
func SyntheticGodItem(file *models.FileDebtItem) *models.UnifiedDebtItem {
	god := file.GodObject
	fields := god.FieldCount
	debt := models.NewGodObject(god.MethodCount, &fields, god.Responsibilities, god.Score, god.LinesOfCode)
	if god.TypeName == "" {
		debt = models.NewGodModule(file.Metrics.TotalFunctions, file.Metrics.TotalLines)
	}
	return &models.UnifiedDebtItem{
		Location: models.NewFunctionID(file.Metrics.Path, godItemName(god), 1),
		Debt:     debt,
		Score: models.UnifiedScore{
			FinalScore: models.ClampScore(file.Score),
		},
		Role:       models.RoleUnknown,
		Cyclomatic: file.Metrics.TotalCyclomatic,
		Cognitive:  file.Metrics.TotalCognitive,
		Nesting:    file.Metrics.MaxNesting,
		Length:     file.Metrics.TotalLines,
		Pattern:    string(god.Confidence),
	}
}

func godItemName(god *models.GodObjectAnalysis) string {
	if god.TypeName != "" {
		return god.TypeName
	}
	return "<module>"
}
