// Package output serializes prepared views to the documented report
// formats and renders terminal output.
package output

import (
	"time"

	"github.com/panbanda/arrears/pkg/analyzer/unified"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/panbanda/arrears/pkg/view"
)

// SchemaVersion identifies the report JSON schema.
const SchemaVersion = "2.0"

// Location identifies where an item lives.
type Location struct {
	File     string `json:"file"`
	Function string `json:"function,omitempty"`
	Line     uint32 `json:"line,omitempty"`
}

// Item is one report entry, function- or file-level.
type Item struct {
	Type     string              `json:"type"` // function | file
	Score    float64             `json:"score"`
	Category models.DebtCategory `json:"category"`
	Priority models.Severity     `json:"priority"`
	Location Location            `json:"location"`

	DebtKind models.DebtKind `json:"debt_kind,omitempty"`
	Tier     string          `json:"tier,omitempty"`

	Cyclomatic int      `json:"cyclomatic,omitempty"`
	Cognitive  int      `json:"cognitive,omitempty"`
	Nesting    int      `json:"nesting,omitempty"`
	Coverage   *float64 `json:"coverage,omitempty"`

	UpstreamCount   int `json:"upstream_count,omitempty"`
	DownstreamCount int `json:"downstream_count,omitempty"`

	// Dependencies is the file-level dependency list, carried so the
	// DSM can be rebuilt from a persisted report.
	Dependencies []string `json:"dependencies,omitempty"`

	IsGodObject bool `json:"is_god_object,omitempty"`
}

// Metadata describes the run that produced a report.
type Metadata struct {
	Version         string    `json:"version"`
	Tool            string    `json:"tool"`
	GeneratedAt     time.Time `json:"generated_at"`
	ProjectRoot     string    `json:"project_root,omitempty"`
	HasCoverageData bool      `json:"has_coverage_data"`
}

// Report is the persisted analysis artefact.
type Report struct {
	Metadata Metadata     `json:"metadata"`
	Summary  view.Summary `json:"summary"`
	Items    []Item       `json:"items"`
}

// BuildReport flattens a prepared view into the report schema.
func BuildReport(analysis *unified.Analysis, v *view.PreparedView, projectRoot string) *Report {
	items := make([]Item, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, buildItem(it))
	}
	return &Report{
		Metadata: Metadata{
			Version:         SchemaVersion,
			Tool:            "arrears",
			GeneratedAt:     time.Now().UTC(),
			ProjectRoot:     projectRoot,
			HasCoverageData: analysis.HasCoverageData,
		},
		Summary: v.Summary,
		Items:   items,
	}
}

func buildItem(it view.Item) Item {
	out := Item{
		Type:     string(it.Kind),
		Score:    it.Score(),
		Category: it.Category(),
		Priority: it.Severity(),
		Tier:     it.Tier().String(),
	}
	switch it.Kind {
	case view.KindFile:
		out.Location = Location{File: it.File.Metrics.Path}
		out.Cyclomatic = it.File.Metrics.TotalCyclomatic
		out.Cognitive = it.File.Metrics.TotalCognitive
		out.Nesting = it.File.Metrics.MaxNesting
		cov := it.File.Metrics.CoveragePercent / 100
		out.Coverage = &cov
		out.Dependencies = it.File.Metrics.Dependencies
		out.IsGodObject = it.File.IsGodObject()
	default:
		fn := it.Function
		out.Location = Location{File: fn.Location.File, Function: fn.Location.Name, Line: fn.Location.Line}
		out.DebtKind = fn.Debt.Kind
		out.Cyclomatic = fn.Cyclomatic
		out.Cognitive = fn.Cognitive
		out.Nesting = fn.Nesting
		if fn.Coverage != nil {
			cov := fn.Coverage.Direct
			out.Coverage = &cov
		}
		out.UpstreamCount = fn.UpstreamCount
		out.DownstreamCount = fn.DownstreamCount
		out.IsGodObject = fn.Debt.IsGodIssue()
	}
	return out
}
