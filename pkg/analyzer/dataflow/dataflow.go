// Package dataflow carries per-function purity, mutation, I/O, and
// dependency records populated from metrics and purity analysis.
package dataflow

import (
	"sort"
	"sync"

	"github.com/panbanda/arrears/pkg/analyzer"
	"github.com/panbanda/arrears/pkg/analyzer/callgraph"
	"github.com/panbanda/arrears/pkg/models"
)

// IOKind classifies an I/O operation performed by a function.
type IOKind string

const (
	IOFile    IOKind = "file"
	IONetwork IOKind = "network"
	IOConsole IOKind = "console"
	IOProcess IOKind = "process"
)

// MutationInfo records a mutation of non-local state.
type MutationInfo struct {
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// VarDep records a variable-level dependency between functions.
type VarDep struct {
	Variable string `json:"variable"`
	Source   string `json:"source"`
}

// TransformInfo records a data transformation the function applies.
type TransformInfo struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Record is the per-function data-flow entry.
type Record struct {
	IsPure           bool            `json:"is_pure"`
	PurityConfidence float64         `json:"purity_confidence"`
	ImpurityReasons  []string        `json:"impurity_reasons,omitempty"`
	Mutations        []MutationInfo  `json:"mutations,omitempty"`
	IOOperations     []IOKind        `json:"io_operations,omitempty"`
	VariableDeps     []VarDep        `json:"variable_deps,omitempty"`
	Transformations  []TransformInfo `json:"transformations,omitempty"`
}

// PuritySource supplies full purity re-analysis results when function
// bodies are available. Implementations return nil when a function's
// source could not be analyzed.
type PuritySource interface {
	Analyze(id models.FunctionID) *Record
}

// Graph maps functions to their data-flow records. It is built, then
// frozen; reads after Freeze are non-synchronized. Writes after Freeze
// panic: that is a bug in the caller, not a usage error.
type Graph struct {
	mu      sync.Mutex
	frozen  bool
	records map[models.FunctionID]*Record
}

// Build clones the call graph as a skeleton and populates records in
// parallel from the purity source, falling back to the scalar purity
// fields of each function's metrics.
func Build(cg *callgraph.Graph, metrics []*models.FunctionMetrics, purity PuritySource, jobs int) *Graph {
	g := &Graph{records: make(map[models.FunctionID]*Record, cg.Len())}

	byID := make(map[models.FunctionID]*models.FunctionMetrics, len(metrics))
	for _, m := range metrics {
		byID[m.ID] = m
	}

	ids := cg.Functions()
	results := analyzer.MapSlice(ids, jobs, func(_ int, id models.FunctionID) *Record {
		if purity != nil {
			if rec := purity.Analyze(id); rec != nil {
				return rec
			}
		}
		return recordFromMetrics(byID[id])
	})

	for i, id := range ids {
		g.records[id] = results[i]
	}
	return g
}

// recordFromMetrics derives a record from the scalar purity fields.
func recordFromMetrics(m *models.FunctionMetrics) *Record {
	rec := &Record{}
	if m == nil {
		return rec
	}
	if m.IsPure != nil {
		rec.IsPure = *m.IsPure
	}
	if m.PurityConfidence != nil {
		rec.PurityConfidence = *m.PurityConfidence
	}
	if !rec.IsPure && rec.PurityConfidence > 0 {
		rec.ImpurityReasons = []string{"metrics: not marked pure"}
	}
	return rec
}

// Set installs a record. Panics if the graph is frozen.
func (g *Graph) Set(id models.FunctionID, rec *Record) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.frozen {
		panic("dataflow: write after freeze")
	}
	g.records[id] = rec
}

// Freeze transitions the graph to its immutable phase.
func (g *Graph) Freeze() {
	g.mu.Lock()
	g.frozen = true
	g.mu.Unlock()
}

// Frozen reports whether the graph has been frozen.
func (g *Graph) Frozen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frozen
}

// Record returns the record for a function, nil when unknown.
func (g *Graph) Record(id models.FunctionID) *Record {
	return g.records[id]
}

// Len returns the number of recorded functions.
func (g *Graph) Len() int {
	return len(g.records)
}

// Functions returns recorded function ids in deterministic order.
func (g *Graph) Functions() []models.FunctionID {
	out := make([]models.FunctionID, 0, len(g.records))
	for id := range g.records {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Name < b.Name
	})
	return out
}

// HasBlockingIO reports whether the function performs file, network, or
// process I/O.
func (g *Graph) HasBlockingIO(id models.FunctionID) (IOKind, bool) {
	rec := g.records[id]
	if rec == nil {
		return "", false
	}
	for _, op := range rec.IOOperations {
		switch op {
		case IOFile, IONetwork, IOProcess:
			return op, true
		}
	}
	return "", false
}
