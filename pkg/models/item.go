package models

// TransitiveCoverage carries direct and transitively-propagated coverage
// for one function, both in [0, 1].
type TransitiveCoverage struct {
	Direct     float64 `json:"direct"`
	Transitive float64 `json:"transitive"`
}

// ContextualRisk is an auxiliary signal (git churn, bug density) attached
// to items in volatile code.
type ContextualRisk struct {
	RiskScore float64  `json:"risk_score"`
	Factors   []string `json:"factors,omitempty"`
}

// UnifiedDebtItem is one prioritized record per (function, debt-type) pair.
// Never mutated after scoring completes, except tier assignment which
// happens during view preparation.
type UnifiedDebtItem struct {
	Location FunctionID   `json:"location"`
	Debt     DebtType     `json:"debt"`
	Score    UnifiedScore `json:"score"`
	Tier     Tier         `json:"tier,omitempty"`
	Role     FunctionRole `json:"role"`

	// Raw complexity counts carried for tier classification and display.
	Cyclomatic int `json:"cyclomatic"`
	Cognitive  int `json:"cognitive"`
	Nesting    int `json:"nesting"`
	Length     int `json:"length"`

	Coverage *TransitiveCoverage `json:"coverage,omitempty"`

	UpstreamCount   int      `json:"upstream_count"`
	DownstreamCount int      `json:"downstream_count"`
	UpstreamNames   []string `json:"upstream_names,omitempty"`
	DownstreamNames []string `json:"downstream_names,omitempty"`

	Risk    *ContextualRisk `json:"risk,omitempty"`
	Pattern string          `json:"pattern,omitempty"`
}

// Severity returns the severity implied by the item's final score.
func (i *UnifiedDebtItem) Severity() Severity {
	return i.Score.Severity()
}

// TotalDependencies returns upstream plus downstream counts.
func (i *UnifiedDebtItem) TotalDependencies() int {
	return i.UpstreamCount + i.DownstreamCount
}

// GodObjectConfidence expresses how certain the god-object detection is.
type GodObjectConfidence string

const (
	GodConfidenceDefinite GodObjectConfidence = "definite"
	GodConfidenceProbable GodObjectConfidence = "probable"
	GodConfidencePossible GodObjectConfidence = "possible"
	GodConfidenceNot      GodObjectConfidence = "not_god_object"
)

// GodObjectAnalysis is the structural verdict for one file or type.
type GodObjectAnalysis struct {
	IsGodObject      bool                `json:"is_god_object"`
	MethodCount      int                 `json:"method_count"`
	FieldCount       int                 `json:"field_count"`
	Responsibilities int                 `json:"responsibilities"`
	LinesOfCode      int                 `json:"lines_of_code"`
	Score            float64             `json:"score"`
	Confidence       GodObjectConfidence `json:"confidence"`
	TypeName         string              `json:"type_name,omitempty"`
}

// FileDebtMetrics aggregates raw metrics for every function in one file.
type FileDebtMetrics struct {
	Path            string   `json:"path"`
	TotalFunctions  int      `json:"total_functions"`
	TotalLines      int      `json:"total_lines"`
	TotalCyclomatic int      `json:"total_cyclomatic"`
	TotalCognitive  int      `json:"total_cognitive"`
	MaxComplexity   int      `json:"max_complexity"`
	MaxNesting      int      `json:"max_nesting"`
	CoveragePercent float64  `json:"coverage_percent"`
	Dependencies    []string `json:"dependencies,omitempty"`
}

// FileDebtItem is the file-level aggregate of all member functions.
type FileDebtItem struct {
	Metrics   FileDebtMetrics    `json:"metrics"`
	Score     float64            `json:"score"`
	GodObject *GodObjectAnalysis `json:"god_object,omitempty"`
	Risk      *ContextualRisk    `json:"risk,omitempty"`
}

// IsGodObject reports whether the file was flagged as a god object.
func (f *FileDebtItem) IsGodObject() bool {
	return f.GodObject != nil && f.GodObject.IsGodObject
}

// Category returns the reporting category for the file item.
func (f *FileDebtItem) Category() DebtCategory {
	if f.IsGodObject() {
		return CategoryArchitecture
	}
	return CategoryCodeQuality
}

// Severity returns the severity implied by the file score.
func (f *FileDebtItem) Severity() Severity {
	return SeverityFromScore(f.Score)
}
