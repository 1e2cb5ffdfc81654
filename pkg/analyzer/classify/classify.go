// Package classify assigns function roles and maps each function to the
// debt types it exhibits.
package classify

import (
	"strings"

	"github.com/panbanda/arrears/pkg/analyzer/callgraph"
	"github.com/panbanda/arrears/pkg/analyzer/dataflow"
	"github.com/panbanda/arrears/pkg/analyzer/debtagg"
	"github.com/panbanda/arrears/pkg/models"
)

// Complexity thresholds above which a function is a hotspot.
const (
	CyclomaticHotspot = 10
	CognitiveHotspot  = 15
)

// Coverage below this fraction counts as a testing gap.
const uncoveredThreshold = 0.2

// Classifier produces zero or more debt types per function.
type Classifier struct {
	exclusions map[string]struct{}
}

// Option configures the Classifier.
type Option func(*Classifier)

// WithExclusions names functions never reported as dead code
// (entry points, framework hooks).
func WithExclusions(names []string) Option {
	return func(c *Classifier) {
		for _, n := range names {
			c.exclusions[n] = struct{}{}
		}
	}
}

// New creates a classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{exclusions: make(map[string]struct{})}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Input bundles the evidence available for one function.
type Input struct {
	Metrics  *models.FunctionMetrics
	Graph    *callgraph.Graph
	Flow     *dataflow.Graph
	Counts   *debtagg.Counts
	Role     models.FunctionRole
	Coverage *float64 // nil when no coverage data was supplied
	Risk     *models.ContextualRisk
}

// Classify returns the debt types exhibited by the function, possibly
// none. Pure: same input, same output.
func (c *Classifier) Classify(in Input) []models.DebtType {
	m := in.Metrics
	var out []models.DebtType

	if m.IsTest || m.InTestModule {
		return c.classifyTest(in)
	}

	if m.Cyclomatic > CyclomaticHotspot || m.Cognitive > CognitiveHotspot {
		out = append(out, models.NewComplexityHotspot(m.Cyclomatic, m.Cognitive, adjustedCyclomatic(m)))
	}

	if in.Coverage != nil && *in.Coverage < uncoveredThreshold {
		out = append(out, models.NewTestingGap(*in.Coverage, m.Cyclomatic, m.Cognitive))
	}

	if c.isDeadCode(in) {
		out = append(out, models.NewDeadCode(m.Visibility, m.Cyclomatic, m.Cognitive))
	}

	if in.Counts != nil && in.Counts.ErrorSwallows > 0 {
		pattern := in.Counts.Payloads[models.MarkerErrorSwallow]
		if pattern == "" {
			pattern = "swallowed error"
		}
		out = append(out, models.NewErrorSwallowing(pattern, m.ID.Name))
	}

	if in.Counts != nil && in.Counts.MagicValues >= 3 {
		out = append(out, models.DebtType{Kind: models.DebtMagicValues, Instances: in.Counts.MagicValues})
	}

	if m.Nesting >= 4 {
		out = append(out, models.NewNestedLoops(m.Nesting))
	}

	if in.Flow != nil && in.Role != models.RoleIOWrapper && in.Role != models.RoleEntryPoint {
		if op, ok := in.Flow.HasBlockingIO(m.ID); ok {
			out = append(out, models.NewBlockingIO(string(op)))
		}
	}

	if len(out) == 0 {
		if risk, ok := residualRisk(in); ok {
			out = append(out, risk)
		}
	}
	return out
}

// classifyTest handles functions living in test code. Complex tests are
// the only debt surfaced for them.
func (c *Classifier) classifyTest(in Input) []models.DebtType {
	m := in.Metrics
	if m.Cyclomatic > CyclomaticHotspot || m.Cognitive > CognitiveHotspot {
		return []models.DebtType{models.NewTestComplexityHotspot(m.Cyclomatic, m.Cognitive)}
	}
	if in.Coverage != nil && *in.Coverage < uncoveredThreshold && m.Cyclomatic > 1 {
		return []models.DebtType{models.NewTestingGap(*in.Coverage, m.Cyclomatic, m.Cognitive)}
	}
	return nil
}

// isDeadCode reports whether a non-test function is unreachable: no
// callers, not an entry point or framework hook, not a trait method
// (those are dispatched dynamically).
func (c *Classifier) isDeadCode(in Input) bool {
	m := in.Metrics
	if m.IsTraitMethod {
		return false
	}
	if in.Graph == nil || in.Graph.CallerCount(m.ID) > 0 {
		return false
	}
	if _, excluded := c.exclusions[m.ID.Name]; excluded {
		return false
	}
	return true
}

// residualRisk absorbs moderate-but-not-hotspot signals so that risky
// functions still surface with a low score.
func residualRisk(in Input) (models.DebtType, bool) {
	m := in.Metrics
	var score float64
	var factors []string

	if m.Cyclomatic > 5 {
		score += float64(m.Cyclomatic-5) * 0.5
		factors = append(factors, "moderate cyclomatic complexity")
	}
	if m.Cognitive > 8 {
		score += float64(m.Cognitive-8) * 0.3
		factors = append(factors, "moderate cognitive complexity")
	}
	if in.Risk != nil && in.Risk.RiskScore > 0 {
		score += in.Risk.RiskScore
		factors = append(factors, in.Risk.Factors...)
	}
	if in.Counts != nil && in.Counts.Total() > 0 {
		score += float64(in.Counts.Total()) * 0.5
		factors = append(factors, "debt markers present")
	}
	if score <= 0 {
		return models.DebtType{}, false
	}
	return models.NewRisk(score, factors), true
}

// adjustedCyclomatic dampens cyclomatic complexity inflated by
// repetitive branches, when an entropy score is available.
func adjustedCyclomatic(m *models.FunctionMetrics) *int {
	if m.EntropyScore == nil || *m.EntropyScore <= 0.6 {
		return nil
	}
	discount := 1 - 0.25*(*m.EntropyScore-0.6)/0.4
	adjusted := int(float64(m.Cyclomatic) * discount)
	return &adjusted
}

// DetectRole infers what a function does from its name, metrics, and
// data-flow record. The role modulates scoring thresholds downstream.
func DetectRole(m *models.FunctionMetrics, g *callgraph.Graph, flow *dataflow.Graph, exclusions []string) models.FunctionRole {
	name := lastSegment(m.ID.Name)

	for _, e := range exclusions {
		if name == e {
			return models.RoleEntryPoint
		}
	}

	switch {
	case strings.HasPrefix(name, "debug_") || strings.HasPrefix(name, "dump_") ||
		strings.HasPrefix(name, "print_") || strings.HasPrefix(name, "trace_"):
		return models.RoleDebug
	case hasIOPrefix(name):
		return models.RoleIOWrapper
	case isPredicateName(name) && m.Length <= 10:
		return models.RolePatternMatch
	}

	if flow != nil {
		if rec := flow.Record(m.ID); rec != nil {
			if _, blocking := flow.HasBlockingIO(m.ID); blocking {
				return models.RoleIOWrapper
			}
			if rec.IsPure && rec.PurityConfidence >= 0.6 {
				return models.RolePureLogic
			}
		}
	}
	if m.IsPure != nil && *m.IsPure && m.PurityConfidence != nil && *m.PurityConfidence >= 0.6 {
		return models.RolePureLogic
	}

	if g != nil && g.CalleeCount(m.ID) >= 5 && m.Cyclomatic <= 5 {
		return models.RoleOrchestrator
	}

	return models.RoleUnknown
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

func hasIOPrefix(name string) bool {
	for _, p := range []string{"read_", "write_", "load_", "save_", "fetch_", "open_", "send_", "recv_"} {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func isPredicateName(name string) bool {
	for _, p := range []string{"is_", "has_", "can_", "should_", "match_", "matches_"} {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
