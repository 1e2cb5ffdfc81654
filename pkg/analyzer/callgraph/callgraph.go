// Package callgraph builds the directed call graph over discovered
// functions and answers reachability questions on it.
package callgraph

import (
	"sort"

	"github.com/panbanda/arrears/pkg/models"
)

// Graph is a directed multigraph on function identities. Forward and
// reverse adjacency maps are kept consistent: every AddEdge updates both.
// After construction the graph is shared read-only across scoring tasks.
type Graph struct {
	callees   map[models.FunctionID]map[models.FunctionID]struct{}
	callers   map[models.FunctionID]map[models.FunctionID]struct{}
	functions map[models.FunctionID]bool // value: is_test
	external  map[models.FunctionID]struct{}

	// Dense ordinals assigned in insertion order, used by the
	// reachability bitmaps.
	ordinals map[models.FunctionID]uint32
	byOrder  []models.FunctionID
}

// New creates an empty call graph.
func New() *Graph {
	return &Graph{
		callees:   make(map[models.FunctionID]map[models.FunctionID]struct{}),
		callers:   make(map[models.FunctionID]map[models.FunctionID]struct{}),
		functions: make(map[models.FunctionID]bool),
		external:  make(map[models.FunctionID]struct{}),
		ordinals:  make(map[models.FunctionID]uint32),
	}
}

// AddFunction registers a known function node.
func (g *Graph) AddFunction(id models.FunctionID, isTest bool) {
	if _, ok := g.functions[id]; !ok {
		g.ordinals[id] = uint32(len(g.byOrder))
		g.byOrder = append(g.byOrder, id)
	}
	g.functions[id] = isTest
	delete(g.external, id)
}

// AddEdge records a call from caller to callee. An unknown caller is
// dropped; an unknown callee is recorded as external. External callees
// have no outgoing edges and are not scored.
func (g *Graph) AddEdge(caller, callee models.FunctionID) {
	if _, ok := g.functions[caller]; !ok {
		return
	}
	if _, ok := g.functions[callee]; !ok {
		if _, seen := g.external[callee]; !seen {
			g.external[callee] = struct{}{}
			g.ordinals[callee] = uint32(len(g.byOrder))
			g.byOrder = append(g.byOrder, callee)
		}
	}
	if g.callees[caller] == nil {
		g.callees[caller] = make(map[models.FunctionID]struct{})
	}
	g.callees[caller][callee] = struct{}{}
	if g.callers[callee] == nil {
		g.callers[callee] = make(map[models.FunctionID]struct{})
	}
	g.callers[callee][caller] = struct{}{}
}

// Contains reports whether the id is a known (non-external) function.
func (g *Graph) Contains(id models.FunctionID) bool {
	_, ok := g.functions[id]
	return ok
}

// IsExternal reports whether the id was only ever seen as a callee.
func (g *Graph) IsExternal(id models.FunctionID) bool {
	_, ok := g.external[id]
	return ok
}

// IsTest reports whether the function was registered as a test.
func (g *Graph) IsTest(id models.FunctionID) bool {
	return g.functions[id]
}

// Callers returns the unique set of direct callers, sorted for
// deterministic iteration. Unknown ids return an empty set.
func (g *Graph) Callers(id models.FunctionID) []models.FunctionID {
	return sortedSet(g.callers[id])
}

// Callees returns the unique set of direct callees, sorted.
func (g *Graph) Callees(id models.FunctionID) []models.FunctionID {
	return sortedSet(g.callees[id])
}

// CallerCount returns the number of distinct callers.
func (g *Graph) CallerCount(id models.FunctionID) int {
	return len(g.callers[id])
}

// CalleeCount returns the number of distinct callees.
func (g *Graph) CalleeCount(id models.FunctionID) int {
	return len(g.callees[id])
}

// Functions returns all known functions in insertion order.
func (g *Graph) Functions() []models.FunctionID {
	out := make([]models.FunctionID, 0, len(g.functions))
	for _, id := range g.byOrder {
		if _, ok := g.functions[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of known functions.
func (g *Graph) Len() int {
	return len(g.functions)
}

// Roots returns known functions with no callers, sorted.
func (g *Graph) Roots() []models.FunctionID {
	var roots []models.FunctionID
	for id := range g.functions {
		if len(g.callers[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sortIDs(roots)
	return roots
}

func sortedSet(set map[models.FunctionID]struct{}) []models.FunctionID {
	if len(set) == 0 {
		return nil
	}
	out := make([]models.FunctionID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []models.FunctionID) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Name < b.Name
	})
}
