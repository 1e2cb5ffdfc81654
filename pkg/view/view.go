// Package view is the pure transform from a unified analysis to the
// renderer-facing prepared view: combine, classify, filter, sort,
// limit, group, summarize. No I/O, no environment access; the same
// inputs always produce the same view.
package view

import (
	"sort"
	"strings"

	"github.com/panbanda/arrears/pkg/analyzer/tiers"
	"github.com/panbanda/arrears/pkg/analyzer/unified"
	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/models"
)

// SortCriteria selects the ordering of view items.
type SortCriteria string

const (
	SortScore        SortCriteria = "score"
	SortCoverage     SortCriteria = "coverage"
	SortComplexity   SortCriteria = "complexity"
	SortFilePath     SortCriteria = "file"
	SortFunctionName SortCriteria = "name"
)

// ParseSortCriteria converts a string, defaulting to score.
func ParseSortCriteria(s string) SortCriteria {
	switch strings.ToLower(s) {
	case "coverage":
		return SortCoverage
	case "complexity":
		return SortComplexity
	case "file":
		return SortFilePath
	case "name":
		return SortFunctionName
	default:
		return SortScore
	}
}

// Config controls view preparation.
type Config struct {
	MinScore      float64
	Tiers         []models.Tier
	MinSeverity   models.Severity
	Search        string
	SortBy        SortCriteria
	Limit         int
	ComputeGroups bool
}

// ItemKind discriminates function and file view items.
type ItemKind string

const (
	KindFunction ItemKind = "function"
	KindFile     ItemKind = "file"
)

// Item is the union of function- and file-level items.
type Item struct {
	Kind     ItemKind                `json:"type"`
	Function *models.UnifiedDebtItem `json:"function,omitempty"`
	File     *models.FileDebtItem    `json:"file,omitempty"`
}

// Score returns the item score regardless of kind.
func (i Item) Score() float64 {
	if i.Kind == KindFile {
		return i.File.Score
	}
	return i.Function.Score.FinalScore
}

// Severity returns the item severity.
func (i Item) Severity() models.Severity {
	if i.Kind == KindFile {
		return i.File.Severity()
	}
	return i.Function.Severity()
}

// Category returns the reporting category.
func (i Item) Category() models.DebtCategory {
	if i.Kind == KindFile {
		return i.File.Category()
	}
	return i.Function.Debt.Category()
}

// FilePath returns the file the item anchors to.
func (i Item) FilePath() string {
	if i.Kind == KindFile {
		return i.File.Metrics.Path
	}
	return i.Function.Location.File
}

// FunctionName returns the function name, empty for file items.
func (i Item) FunctionName() string {
	if i.Kind == KindFile {
		return ""
	}
	return i.Function.Location.Name
}

// Line returns the anchor line, 0 for file items.
func (i Item) Line() uint32 {
	if i.Kind == KindFile {
		return 0
	}
	return i.Function.Location.Line
}

// Tier returns the classified tier. File items derive theirs from the
// god-object flag.
func (i Item) Tier() models.Tier {
	if i.Kind == KindFile {
		if i.File.IsGodObject() {
			return models.TierCriticalArchitecture
		}
		return models.TierMaintenance
	}
	return i.Function.Tier
}

// Coverage returns the item's coverage in [0,1]; ok is false when no
// coverage is known (which sorts as worst).
func (i Item) Coverage() (float64, bool) {
	if i.Kind == KindFile {
		return i.File.Metrics.CoveragePercent / 100, true
	}
	if i.Function.Coverage == nil {
		return 0, false
	}
	return i.Function.Coverage.Direct, true
}

// Complexity returns the complexity used for sorting.
func (i Item) Complexity() int {
	if i.Kind == KindFile {
		return i.File.Metrics.MaxComplexity
	}
	return i.Function.Cognitive
}

// LocationGroup coalesces multiple debt types at one location.
type LocationGroup struct {
	File          string          `json:"file"`
	Function      string          `json:"function,omitempty"`
	Line          uint32          `json:"line,omitempty"`
	CombinedScore float64         `json:"combined_score"`
	MaxSeverity   models.Severity `json:"max_severity"`
	Items         []Item          `json:"items"`
}

// ScoreDistribution counts items per severity band.
type ScoreDistribution struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// CategoryCounts counts items per debt category.
type CategoryCounts struct {
	Architecture int `json:"architecture"`
	Testing      int `json:"testing"`
	Performance  int `json:"performance"`
	CodeQuality  int `json:"code_quality"`
}

// Summary aggregates counts over the prepared view.
type Summary struct {
	TotalItemsBeforeFilter int               `json:"total_items_before_filter"`
	TotalItemsAfterFilter  int               `json:"total_items_after_filter"`
	FilteredByTier         int               `json:"filtered_by_tier"`
	FilteredByScore        int               `json:"filtered_by_score"`
	TotalDebtScore         float64           `json:"total_debt_score"`
	ScoreDistribution      ScoreDistribution `json:"score_distribution"`
	CategoryCounts         CategoryCounts    `json:"category_counts"`
	TotalLinesOfCode       int               `json:"total_lines_of_code"`
	DebtDensity            float64           `json:"debt_density"`
	OverallCoverage        *float64          `json:"overall_coverage,omitempty"`
}

// PreparedView is the immutable renderer-facing snapshot.
type PreparedView struct {
	Items   []Item          `json:"items"`
	Groups  []LocationGroup `json:"groups,omitempty"`
	Summary Summary         `json:"summary"`
	Config  Config          `json:"-"`
}

// Prepare builds the canonical view. This is the single entry point for
// every output format.
func Prepare(analysis *unified.Analysis, cfg Config, tierCfg *config.TierConfig) *PreparedView {
	combined := combineItems(analysis)
	totalBefore := len(combined)

	classifyTiers(combined, tierCfg)

	filtered, stats := filterItems(combined, cfg)
	sortItems(filtered, cfg.SortBy)
	limited := limitItems(filtered, cfg.Limit)

	var groups []LocationGroup
	if cfg.ComputeGroups {
		groups = computeGroups(limited)
	}

	return &PreparedView{
		Items:  limited,
		Groups: groups,
		Summary: summarize(limited, totalBefore, stats,
			analysis.TotalLinesOfCode, analysis.OverallCoverage),
		Config: cfg,
	}
}

// combineItems merges function and file items into one list.
func combineItems(analysis *unified.Analysis) []Item {
	items := make([]Item, 0, len(analysis.Items)+len(analysis.FileItems))
	for i := range analysis.Items {
		items = append(items, Item{Kind: KindFunction, Function: &analysis.Items[i]})
	}
	for i := range analysis.FileItems {
		items = append(items, Item{Kind: KindFile, File: &analysis.FileItems[i]})
	}
	return items
}

// classifyTiers assigns tiers in place. Tier assignment during view
// preparation is the one permitted mutation of frozen items.
func classifyTiers(items []Item, tierCfg *config.TierConfig) {
	for _, item := range items {
		if item.Kind == KindFunction {
			item.Function.Tier = tiers.Classify(item.Function, tierCfg)
		}
	}
}

type filterStats struct {
	byTier  int
	byScore int
}

func filterItems(items []Item, cfg Config) ([]Item, filterStats) {
	var stats filterStats
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Score() < cfg.MinScore {
			stats.byScore++
			continue
		}
		if len(cfg.Tiers) > 0 && !tierIn(item.Tier(), cfg.Tiers) {
			stats.byTier++
			continue
		}
		if cfg.MinSeverity != "" && item.Severity().Weight() < cfg.MinSeverity.Weight() {
			stats.byScore++
			continue
		}
		if cfg.Search != "" && !matchesSearch(item, cfg.Search) {
			continue
		}
		out = append(out, item)
	}
	return out, stats
}

func tierIn(t models.Tier, set []models.Tier) bool {
	for _, candidate := range set {
		if candidate == t {
			return true
		}
	}
	return false
}

func matchesSearch(item Item, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(item.FilePath()), needle) ||
		strings.Contains(strings.ToLower(item.FunctionName()), needle)
}

// sortItems orders items by the criteria with stable tiebreakers:
// tier, file path, line.
func sortItems(items []Item, criteria SortCriteria) {
	less := primaryLess(criteria)
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := less(a, b); c != 0 {
			return c < 0
		}
		if a.Tier() != b.Tier() {
			return a.Tier() < b.Tier()
		}
		if a.FilePath() != b.FilePath() {
			return a.FilePath() < b.FilePath()
		}
		return a.Line() < b.Line()
	})
}

// primaryLess returns a three-way comparison for the primary criteria.
func primaryLess(criteria SortCriteria) func(a, b Item) int {
	switch criteria {
	case SortCoverage:
		return func(a, b Item) int {
			covA, okA := a.Coverage()
			covB, okB := b.Coverage()
			switch {
			case !okA && !okB:
				return 0
			case !okA:
				return -1 // unknown coverage is worst, sorts first
			case !okB:
				return 1
			case covA < covB:
				return -1
			case covA > covB:
				return 1
			}
			return 0
		}
	case SortComplexity:
		return func(a, b Item) int { return b.Complexity() - a.Complexity() }
	case SortFilePath:
		return func(a, b Item) int { return strings.Compare(a.FilePath(), b.FilePath()) }
	case SortFunctionName:
		return func(a, b Item) int { return strings.Compare(a.FunctionName(), b.FunctionName()) }
	default:
		return func(a, b Item) int {
			switch {
			case a.Score() > b.Score():
				return -1
			case a.Score() < b.Score():
				return 1
			}
			return 0
		}
	}
}

func limitItems(items []Item, limit int) []Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// computeGroups coalesces items sharing a (file, function, line)
// location. Combined score is the sum; severity is the max.
func computeGroups(items []Item) []LocationGroup {
	type key struct {
		file     string
		function string
		line     uint32
	}
	index := make(map[key]int)
	var groups []LocationGroup

	for _, item := range items {
		k := key{item.FilePath(), item.FunctionName(), item.Line()}
		idx, ok := index[k]
		if !ok {
			idx = len(groups)
			index[k] = idx
			groups = append(groups, LocationGroup{
				File:        k.file,
				Function:    k.function,
				Line:        k.line,
				MaxSeverity: models.SeverityLow,
			})
		}
		g := &groups[idx]
		g.Items = append(g.Items, item)
		g.CombinedScore += item.Score()
		g.MaxSeverity = models.MaxSeverity(g.MaxSeverity, item.Severity())
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].CombinedScore != groups[j].CombinedScore {
			return groups[i].CombinedScore > groups[j].CombinedScore
		}
		if groups[i].File != groups[j].File {
			return groups[i].File < groups[j].File
		}
		return groups[i].Line < groups[j].Line
	})
	return groups
}

func summarize(items []Item, totalBefore int, stats filterStats, totalLOC int, overallCoverage *float64) Summary {
	s := Summary{
		TotalItemsBeforeFilter: totalBefore,
		TotalItemsAfterFilter:  len(items),
		FilteredByTier:         stats.byTier,
		FilteredByScore:        stats.byScore,
		TotalLinesOfCode:       totalLOC,
		OverallCoverage:        overallCoverage,
	}
	for _, item := range items {
		s.TotalDebtScore += item.Score()
		switch item.Severity() {
		case models.SeverityCritical:
			s.ScoreDistribution.Critical++
		case models.SeverityHigh:
			s.ScoreDistribution.High++
		case models.SeverityMedium:
			s.ScoreDistribution.Medium++
		default:
			s.ScoreDistribution.Low++
		}
		switch item.Category() {
		case models.CategoryArchitecture:
			s.CategoryCounts.Architecture++
		case models.CategoryTesting:
			s.CategoryCounts.Testing++
		case models.CategoryPerformance:
			s.CategoryCounts.Performance++
		default:
			s.CategoryCounts.CodeQuality++
		}
	}
	if totalLOC > 0 {
		s.DebtDensity = s.TotalDebtScore / float64(totalLOC) * 1000
	}
	return s
}
