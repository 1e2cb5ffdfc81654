package models

import "fmt"

// FunctionID uniquely identifies a function in the analyzed snapshot.
// It is created once at ingest and never renamed, only referenced.
type FunctionID struct {
	File string `json:"file"`
	Name string `json:"name"`
	Line uint32 `json:"line"`
}

// NewFunctionID creates a function identity handle.
func NewFunctionID(file, name string, line uint32) FunctionID {
	return FunctionID{File: file, Name: name, Line: line}
}

// String renders the identity as file:name:line.
func (id FunctionID) String() string {
	return fmt.Sprintf("%s:%s:%d", id.File, id.Name, id.Line)
}

// Visibility represents the declared visibility of a function.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityCrate   Visibility = "crate"
	VisibilityPrivate Visibility = "private"
)

// FunctionMetrics is the input record describing one function.
// Owned by the ingest stage; read-only thereafter.
type FunctionMetrics struct {
	ID            FunctionID `json:"id"`
	Length        int        `json:"length"`
	Cyclomatic    int        `json:"cyclomatic"`
	Cognitive     int        `json:"cognitive"`
	Nesting       int        `json:"nesting"`
	ParamCount    int        `json:"param_count,omitempty"`
	IsTest        bool       `json:"is_test"`
	InTestModule  bool       `json:"in_test_module"`
	IsTraitMethod bool       `json:"is_trait_method"`
	Visibility    Visibility `json:"visibility"`

	// Optional purity signals from the upstream extractor.
	IsPure           *bool    `json:"is_pure,omitempty"`
	PurityConfidence *float64 `json:"purity_confidence,omitempty"`

	// Optional repetition measure used to dampen inflated complexity.
	EntropyScore *float64 `json:"entropy_score,omitempty"`
}

// EndLine returns the last line covered by the function body.
func (m *FunctionMetrics) EndLine() uint32 {
	if m.Length <= 0 {
		return m.ID.Line
	}
	return m.ID.Line + uint32(m.Length) - 1
}

// TypeMetrics is the optional input record describing one type
// (struct, class) for structural pattern detection.
type TypeMetrics struct {
	File            string   `json:"file"`
	Name            string   `json:"name"`
	Line            uint32   `json:"line"`
	Fields          int      `json:"fields"`
	Methods         int      `json:"methods"`
	Lines           int      `json:"lines"`
	PrimitiveFields int      `json:"primitive_fields,omitempty"`
	MethodNames     []string `json:"method_names,omitempty"`
}

// FunctionRole classifies what a function does, which modulates scoring.
type FunctionRole string

const (
	RolePureLogic    FunctionRole = "pure_logic"
	RoleOrchestrator FunctionRole = "orchestrator"
	RoleIOWrapper    FunctionRole = "io_wrapper"
	RoleEntryPoint   FunctionRole = "entry_point"
	RolePatternMatch FunctionRole = "pattern_match"
	RoleDebug        FunctionRole = "debug"
	RoleUnknown      FunctionRole = "unknown"
)
