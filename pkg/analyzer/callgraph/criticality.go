package callgraph

import (
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/panbanda/arrears/pkg/models"
)

// Criticality measures how structurally load-bearing each function is.
// PageRank over the call graph approximates how many call paths flow
// through a function; scores are normalized to [0, 1] by the maximum.
type Criticality struct {
	scores map[models.FunctionID]float64
}

// ComputeCriticality ranks every known function in the graph.
// Graphs with fewer than two nodes get a zero map (nothing to rank).
func ComputeCriticality(g *Graph) *Criticality {
	c := &Criticality{scores: make(map[models.FunctionID]float64, g.Len())}
	if g.Len() < 2 {
		return c
	}

	dg := simple.NewDirectedGraph()
	idFor := make(map[models.FunctionID]int64, g.Len())
	byNode := make(map[int64]models.FunctionID, g.Len())

	for _, fn := range g.Functions() {
		n := dg.NewNode()
		dg.AddNode(n)
		idFor[fn] = n.ID()
		byNode[n.ID()] = fn
	}
	for _, fn := range g.Functions() {
		for _, callee := range g.Callees(fn) {
			to, ok := idFor[callee]
			if !ok {
				continue // external callee, not ranked
			}
			from := idFor[fn]
			if from == to {
				continue
			}
			dg.SetEdge(dg.NewEdge(dg.Node(from), dg.Node(to)))
		}
	}

	ranks := network.PageRank(dg, 0.85, 1e-6)

	var max float64
	for _, r := range ranks {
		if r > max {
			max = r
		}
	}
	if max <= 0 {
		return c
	}
	for nodeID, r := range ranks {
		c.scores[byNode[nodeID]] = r / max
	}
	return c
}

// Score returns the normalized criticality for a function, 0 when unknown.
func (c *Criticality) Score(id models.FunctionID) float64 {
	return c.scores[id]
}
