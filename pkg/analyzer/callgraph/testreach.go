package callgraph

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/arrears/pkg/models"
)

// TestReachability classifies functions that are reachable only from
// test roots. Results are memoized behind a reader-writer lock so warm
// lookups never block each other.
type TestReachability struct {
	graph *Graph

	mu      sync.RWMutex
	memo    map[models.FunctionID]bool
	allOnce sync.Once
	all     map[models.FunctionID]struct{}
}

// NewTestReachability creates a classifier over the given graph.
// The graph must be fully constructed; it is read, never written.
func NewTestReachability(g *Graph) *TestReachability {
	return &TestReachability{
		graph: g,
		memo:  make(map[models.FunctionID]bool),
	}
}

// IsTestRoot reports whether a function counts as a test entry point:
// it has no callers and its name or file path matches test patterns,
// or it was registered as a test function.
func (t *TestReachability) IsTestRoot(id models.FunctionID) bool {
	if t.graph.CallerCount(id) != 0 {
		return false
	}
	return t.graph.IsTest(id) || matchesTestPattern(id)
}

func matchesTestPattern(id models.FunctionID) bool {
	if strings.HasPrefix(id.Name, "test_") || strings.Contains(id.Name, "::test") {
		return true
	}
	path := filepath.ToSlash(id.File)
	if strings.Contains(path, "/tests/") || strings.HasPrefix(path, "tests/") {
		return true
	}
	base := filepath.Base(path)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return strings.HasSuffix(base, "_test")
}

// IsTestOnly reports whether every transitive caller chain of the
// function terminates at a test root. Functions trapped in caller
// cycles with no root are conservatively classified as not test-only.
func (t *TestReachability) IsTestOnly(id models.FunctionID) bool {
	t.mu.RLock()
	if v, ok := t.memo[id]; ok {
		t.mu.RUnlock()
		return v
	}
	t.mu.RUnlock()

	v := t.classify(id)

	t.mu.Lock()
	t.memo[id] = v
	t.mu.Unlock()
	return v
}

// classify walks the caller closure of id, collecting the roots that
// reach it. Visited nodes are marked before enqueuing their neighbours
// so mutual recursion terminates.
func (t *TestReachability) classify(id models.FunctionID) bool {
	if !t.graph.Contains(id) {
		return false
	}

	visited := roaring.New()
	start, ok := t.graph.ordinals[id]
	if !ok {
		return false
	}
	visited.Add(start)
	queue := []models.FunctionID{id}

	foundRoot := false
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		callers := t.graph.Callers(cur)
		if len(callers) == 0 {
			foundRoot = true
			if !t.IsTestRoot(cur) {
				return false
			}
			continue
		}
		for _, caller := range callers {
			ord := t.graph.ordinals[caller]
			if visited.Contains(ord) {
				continue
			}
			visited.Add(ord)
			queue = append(queue, caller)
		}
	}
	return foundRoot
}

// TestOnlyFunctions returns the full set of test-only functions.
// Computed once as Reach(test roots) minus Reach(non-test roots) over
// the forward edges, then cached.
func (t *TestReachability) TestOnlyFunctions() map[models.FunctionID]struct{} {
	t.allOnce.Do(func() {
		fromTest := roaring.New()
		fromOther := roaring.New()

		for _, root := range t.graph.Roots() {
			target := fromOther
			if t.IsTestRoot(root) {
				target = fromTest
			}
			t.forwardReach(root, target)
		}

		fromTest.AndNot(fromOther)

		result := make(map[models.FunctionID]struct{})
		it := fromTest.Iterator()
		for it.HasNext() {
			id := t.graph.byOrder[it.Next()]
			if t.graph.Contains(id) {
				result[id] = struct{}{}
			}
		}
		t.all = result

		t.mu.Lock()
		for _, id := range t.graph.Functions() {
			_, testOnly := result[id]
			t.memo[id] = testOnly
		}
		t.mu.Unlock()
	})
	return t.all
}

// forwardReach adds every node reachable from start (inclusive) to the
// bitmap via iterative BFS over callee edges.
func (t *TestReachability) forwardReach(start models.FunctionID, into *roaring.Bitmap) {
	ord, ok := t.graph.ordinals[start]
	if !ok {
		return
	}
	if into.Contains(ord) {
		return
	}
	into.Add(ord)
	queue := []models.FunctionID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, callee := range t.graph.Callees(cur) {
			o := t.graph.ordinals[callee]
			if into.Contains(o) {
				continue
			}
			into.Add(o)
			queue = append(queue, callee)
		}
	}
}
