package callgraph

import (
	"testing"

	"github.com/panbanda/arrears/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fid(file, name string, line uint32) models.FunctionID {
	return models.NewFunctionID(file, name, line)
}

func TestAddEdgeKeepsBothAdjacencyMaps(t *testing.T) {
	g := New()
	a := fid("src/a.rs", "alpha", 1)
	b := fid("src/a.rs", "beta", 10)
	g.AddFunction(a, false)
	g.AddFunction(b, false)
	g.AddEdge(a, b)

	assert.Equal(t, []models.FunctionID{b}, g.Callees(a))
	assert.Equal(t, []models.FunctionID{a}, g.Callers(b))
}

func TestDuplicateEdgesReturnUniqueSets(t *testing.T) {
	g := New()
	a := fid("src/a.rs", "alpha", 1)
	b := fid("src/a.rs", "beta", 10)
	g.AddFunction(a, false)
	g.AddFunction(b, false)
	g.AddEdge(a, b)
	g.AddEdge(a, b)
	g.AddEdge(a, b)

	assert.Len(t, g.Callees(a), 1)
	assert.Len(t, g.Callers(b), 1)
}

func TestUnknownCallerDropped(t *testing.T) {
	g := New()
	b := fid("src/a.rs", "beta", 10)
	g.AddFunction(b, false)
	g.AddEdge(fid("src/x.rs", "ghost", 1), b)

	assert.Empty(t, g.Callers(b))
}

func TestUnknownCalleeRecordedExternal(t *testing.T) {
	g := New()
	a := fid("src/a.rs", "alpha", 1)
	ext := fid("", "std::fs::read", 0)
	g.AddFunction(a, false)
	g.AddEdge(a, ext)

	assert.True(t, g.IsExternal(ext))
	assert.Equal(t, []models.FunctionID{ext}, g.Callees(a))
	assert.Empty(t, g.Callees(ext))
	// External callees are not counted among known functions.
	assert.Equal(t, 1, g.Len())
}

func TestQueriesOnUnknownIDReturnEmpty(t *testing.T) {
	g := New()
	ghost := fid("nope.rs", "ghost", 1)
	assert.Empty(t, g.Callers(ghost))
	assert.Empty(t, g.Callees(ghost))
	assert.False(t, g.Contains(ghost))
}

func TestRootsSortedAndComplete(t *testing.T) {
	g := New()
	a := fid("src/b.rs", "a", 1)
	b := fid("src/a.rs", "b", 1)
	c := fid("src/a.rs", "c", 5)
	g.AddFunction(a, false)
	g.AddFunction(b, false)
	g.AddFunction(c, false)
	g.AddEdge(a, c)
	g.AddEdge(b, c)

	roots := g.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, b, roots[0]) // src/a.rs sorts before src/b.rs
	assert.Equal(t, a, roots[1])
}

func buildTestReachGraph() (*Graph, map[string]models.FunctionID) {
	// test_entry -> helper -> shared <- prod_entry
	//                          |
	//                          v
	//                        leaf
	g := New()
	ids := map[string]models.FunctionID{
		"test_entry": fid("tests/integration.rs", "test_entry", 1),
		"prod_entry": fid("src/main.rs", "main", 1),
		"helper":     fid("src/util.rs", "helper", 5),
		"shared":     fid("src/util.rs", "shared", 30),
		"leaf":       fid("src/util.rs", "leaf", 60),
	}
	for name, id := range ids {
		g.AddFunction(id, name == "test_entry")
	}
	g.AddEdge(ids["test_entry"], ids["helper"])
	g.AddEdge(ids["helper"], ids["shared"])
	g.AddEdge(ids["prod_entry"], ids["shared"])
	g.AddEdge(ids["shared"], ids["leaf"])
	return g, ids
}

func TestTestOnlyClassification(t *testing.T) {
	g, ids := buildTestReachGraph()
	tr := NewTestReachability(g)

	assert.True(t, tr.IsTestOnly(ids["helper"]), "helper is reachable only from the test root")
	assert.False(t, tr.IsTestOnly(ids["shared"]), "shared is reachable from main")
	assert.False(t, tr.IsTestOnly(ids["leaf"]), "leaf inherits reachability from main")
	assert.False(t, tr.IsTestOnly(ids["prod_entry"]))
	assert.True(t, tr.IsTestOnly(ids["test_entry"]))
}

func TestTestOnlyFunctionsMatchesPerIDClassification(t *testing.T) {
	g, _ := buildTestReachGraph()
	tr := NewTestReachability(g)
	all := tr.TestOnlyFunctions()

	for _, id := range g.Functions() {
		_, inSet := all[id]
		assert.Equal(t, NewTestReachability(g).IsTestOnly(id), inSet, id.String())
	}
}

func TestCycleWithoutRootIsNotTestOnly(t *testing.T) {
	g := New()
	a := fid("src/a.rs", "ping", 1)
	b := fid("src/a.rs", "pong", 10)
	g.AddFunction(a, false)
	g.AddFunction(b, false)
	g.AddEdge(a, b)
	g.AddEdge(b, a)

	tr := NewTestReachability(g)
	assert.False(t, tr.IsTestOnly(a))
	assert.False(t, tr.IsTestOnly(b))
	assert.Empty(t, tr.TestOnlyFunctions())
}

func TestMemoizedLookupIsStable(t *testing.T) {
	g, ids := buildTestReachGraph()
	tr := NewTestReachability(g)
	first := tr.IsTestOnly(ids["helper"])
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, tr.IsTestOnly(ids["helper"]))
	}
}

func TestTestRootPatterns(t *testing.T) {
	tests := []struct {
		name string
		id   models.FunctionID
		want bool
	}{
		{"test_ prefix", fid("src/lib.rs", "test_parse", 1), true},
		{"module path", fid("src/lib.rs", "parse::test::roundtrip", 1), true},
		{"tests dir", fid("tests/e2e.rs", "run", 1), true},
		{"suffix file", fid("pkg/util_test.go", "helper", 1), true},
		{"production", fid("src/lib.rs", "parse", 1), false},
	}
	g := New()
	for _, tt := range tests {
		g.AddFunction(tt.id, false)
	}
	tr := NewTestReachability(g)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.IsTestRoot(tt.id))
		})
	}
}

func TestCriticalityRanksSharedDependenciesHigher(t *testing.T) {
	g := New()
	entry1 := fid("src/a.rs", "entry1", 1)
	entry2 := fid("src/b.rs", "entry2", 1)
	hub := fid("src/core.rs", "hub", 1)
	spoke := fid("src/core.rs", "spoke", 40)
	for _, id := range []models.FunctionID{entry1, entry2, hub, spoke} {
		g.AddFunction(id, false)
	}
	g.AddEdge(entry1, hub)
	g.AddEdge(entry2, hub)
	g.AddEdge(entry1, spoke)

	c := ComputeCriticality(g)
	assert.Greater(t, c.Score(hub), c.Score(spoke),
		"a function reached from more entry points should rank higher")
	assert.LessOrEqual(t, c.Score(hub), 1.0)
}

func TestCriticalityTinyGraph(t *testing.T) {
	g := New()
	g.AddFunction(fid("a.rs", "solo", 1), false)
	c := ComputeCriticality(g)
	assert.Zero(t, c.Score(fid("a.rs", "solo", 1)))
}
