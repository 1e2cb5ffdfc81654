package patterns

import (
	"fmt"
	"testing"

	"github.com/panbanda/arrears/pkg/analyzer/callgraph"
	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detector() *Detector {
	cfg := config.DefaultConfig()
	return New(&cfg.GodObject)
}

func typ(name string, fields, methods, lines int, methodNames ...string) *models.TypeMetrics {
	return &models.TypeMetrics{
		File: "src/lib.rs", Name: name, Line: 1,
		Fields: fields, Methods: methods, Lines: lines,
		MethodNames: methodNames,
	}
}

func manyMethodNames(n int) []string {
	verbs := []string{"get", "set", "load", "save", "parse", "render", "send", "check"}
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		names = append(names, fmt.Sprintf("%s_thing%d", verbs[i%len(verbs)], i))
	}
	return names
}

func hasKind(dets []Detection, kind PatternKind) bool {
	for _, d := range dets {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

func TestConfigPatternVetoesGodObject(t *testing.T) {
	// Structurally over every god-object threshold, but named and
	// shaped like a config holder: no god-object detection may appear.
	cfg := config.DefaultConfig()
	cfg.GodObject.Rust = config.GodObjectThresholds{MaxMethods: 3, MaxFields: 3, MaxResponsibilities: 0, MaxLines: 10}
	d := New(&cfg.GodObject)

	c := typ("ParserConfig", 8, 4, 200, "strict", "balanced", "lenient", "default")
	dets := d.DetectFile(FileInput{Path: "src/lib.rs", Types: []*models.TypeMetrics{c}})

	assert.True(t, hasKind(dets, PatternConfig))
	assert.False(t, hasKind(dets, PatternGodObject))
}

func TestDTOPatternVetoesGodObject(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.GodObject.Rust = config.GodObjectThresholds{MaxMethods: 1, MaxFields: 10, MaxResponsibilities: 0, MaxLines: 10}
	d := New(&cfg.GodObject)

	dto := typ("UserResponse", 18, 2, 120, "new", "new_empty")
	dets := d.DetectFile(FileInput{Path: "src/lib.rs", Types: []*models.TypeMetrics{dto}})

	assert.True(t, hasKind(dets, PatternDTO))
	assert.False(t, hasKind(dets, PatternGodObject))
}

func TestAggregateRootKeepsContext(t *testing.T) {
	root := typ("Order", 12, 8, 300,
		"add_line", "add_discount", "add_note", "add_tax", "add_shipping",
		"add_payment", "add_refund", "add_coupon")
	dets := detector().DetectFile(FileInput{Path: "src/lib.rs", Types: []*models.TypeMetrics{root}})
	assert.True(t, hasKind(dets, PatternAggregateRoot))
}

func TestStructuralGodObject(t *testing.T) {
	god := typ("Kernel", 20, 30, 1500, manyMethodNames(30)...)
	dets := detector().DetectFile(FileInput{Path: "src/lib.rs", Types: []*models.TypeMetrics{god}})
	assert.True(t, hasKind(dets, PatternGodObject))
}

func TestHeuristicGodFileByFunctionCount(t *testing.T) {
	fns := make([]*models.FunctionMetrics, 0, 60)
	for i := 0; i < 60; i++ {
		fns = append(fns, &models.FunctionMetrics{
			ID:         models.NewFunctionID("src/huge.rs", fmt.Sprintf("fn%d", i), uint32(i*40+1)),
			Length:     40,
			Cyclomatic: 20,
		})
	}
	d := detector()
	analysis := d.GodObjectAnalysis(FileInput{Path: "src/huge.rs", Functions: fns})
	require.True(t, analysis.IsGodObject)
	assert.Equal(t, models.GodConfidenceProbable, analysis.Confidence)
	assert.Equal(t, 2400, analysis.LinesOfCode)
	assert.Greater(t, analysis.Score, 50.0)
}

func TestSmallFileNotGod(t *testing.T) {
	fns := []*models.FunctionMetrics{
		{ID: models.NewFunctionID("src/small.rs", "a", 1), Length: 10},
		{ID: models.NewFunctionID("src/small.rs", "b", 20), Length: 10},
	}
	analysis := detector().GodObjectAnalysis(FileInput{Path: "src/small.rs", Functions: fns})
	assert.False(t, analysis.IsGodObject)
	assert.Equal(t, models.GodConfidenceNot, analysis.Confidence)
}

func TestFeatureEnvy(t *testing.T) {
	g := callgraph.New()
	envious := models.NewFunctionID("src/a.rs", "envious", 1)
	g.AddFunction(envious, false)
	// One internal callee, six external.
	internal := models.NewFunctionID("src/a.rs", "helper", 50)
	g.AddFunction(internal, false)
	g.AddEdge(envious, internal)
	for i := 0; i < 6; i++ {
		ext := models.NewFunctionID("src/other.rs", fmt.Sprintf("svc%d", i), uint32(i*10+1))
		g.AddFunction(ext, false)
		g.AddEdge(envious, ext)
	}

	fns := []*models.FunctionMetrics{{ID: envious, Length: 30}}
	dets := detector().DetectFile(FileInput{Path: "src/a.rs", Functions: fns, Graph: g})
	assert.True(t, hasKind(dets, PatternFeatureEnvy))
}

func TestNoFeatureEnvyWhenMostlyInternal(t *testing.T) {
	g := callgraph.New()
	fn := models.NewFunctionID("src/a.rs", "local", 1)
	g.AddFunction(fn, false)
	for i := 0; i < 8; i++ {
		callee := models.NewFunctionID("src/a.rs", fmt.Sprintf("h%d", i), uint32(i*10+20))
		g.AddFunction(callee, false)
		g.AddEdge(fn, callee)
	}
	dets := detector().DetectFile(FileInput{
		Path:      "src/a.rs",
		Functions: []*models.FunctionMetrics{{ID: fn, Length: 30}},
		Graph:     g,
	})
	assert.False(t, hasKind(dets, PatternFeatureEnvy))
}

func TestStructInitDetection(t *testing.T) {
	fns := []*models.FunctionMetrics{
		{ID: models.NewFunctionID("src/a.rs", "new_widget", 1), Length: 18, Cyclomatic: 1},
		{ID: models.NewFunctionID("src/a.rs", "compute", 30), Length: 18, Cyclomatic: 6},
	}
	dets := detector().DetectFile(FileInput{Path: "src/a.rs", Functions: fns})
	require.True(t, hasKind(dets, PatternStructInit))
	for _, d := range dets {
		if d.Kind == PatternStructInit {
			assert.Equal(t, "new_widget", d.Function)
		}
	}
}

func TestLongParameterList(t *testing.T) {
	fns := []*models.FunctionMetrics{
		{ID: models.NewFunctionID("src/a.rs", "sprawl", 1), Length: 10, Cyclomatic: 2, ParamCount: 7},
	}
	dets := detector().DetectFile(FileInput{Path: "src/a.rs", Functions: fns})
	assert.True(t, hasKind(dets, PatternLongParams))
}

func TestPrimitiveObsession(t *testing.T) {
	obsessed := typ("Invoice", 10, 2, 100, "new", "total")
	obsessed.PrimitiveFields = 9
	dets := detector().DetectFile(FileInput{Path: "src/lib.rs", Types: []*models.TypeMetrics{obsessed}})
	assert.True(t, hasKind(dets, PatternPrimitives))

	rich := typ("Order", 10, 2, 100, "new", "total")
	rich.PrimitiveFields = 3
	dets = detector().DetectFile(FileInput{Path: "src/lib.rs", Types: []*models.TypeMetrics{rich}})
	assert.False(t, hasKind(dets, PatternPrimitives))
}

func TestResponsibilityClustering(t *testing.T) {
	names := []string{"parse_a", "parse_b", "render_x", "render_y", "save_one"}
	// parse and render cluster; the lone save_ does not.
	assert.Equal(t, 2, responsibilityCount(names))
	assert.Equal(t, 1, responsibilityCount(nil))
	assert.Equal(t, 1, responsibilityCount([]string{"alpha", "beta"}))
}
