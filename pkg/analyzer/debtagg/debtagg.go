// Package debtagg joins raw debt markers to the functions whose line
// ranges contain them.
package debtagg

import (
	"sort"

	"github.com/panbanda/arrears/pkg/models"
)

// Span is one function's line range within a file.
type Span struct {
	ID    models.FunctionID
	Start uint32
	End   uint32
}

// Counts accumulates marker counts per kind for one function.
type Counts struct {
	Todos         int
	Fixmes        int
	Hacks         int
	ErrorSwallows int
	Suppressions  int
	MagicValues   int

	// Payloads keeps the first payload seen per kind for reporting.
	Payloads map[models.MarkerKind]string
}

// Total returns the total number of attributed markers.
func (c *Counts) Total() int {
	return c.Todos + c.Fixmes + c.Hacks + c.ErrorSwallows + c.Suppressions + c.MagicValues
}

// Aggregator attributes markers to functions. Markers outside any
// function range cannot be attributed and are dropped. The join is
// deterministic and runs in O(markers log functions) using per-file
// sorted spans.
type Aggregator struct {
	spansByFile map[string][]Span
	counts      map[models.FunctionID]*Counts
	dropped     int
}

// New creates an aggregator over the given function spans.
func New(spans []Span) *Aggregator {
	byFile := make(map[string][]Span)
	for _, s := range spans {
		byFile[s.ID.File] = append(byFile[s.ID.File], s)
	}
	for file := range byFile {
		list := byFile[file]
		sort.Slice(list, func(i, j int) bool { return list[i].Start < list[j].Start })
		byFile[file] = list
	}
	return &Aggregator{
		spansByFile: byFile,
		counts:      make(map[models.FunctionID]*Counts),
	}
}

// SpansFromMetrics derives spans from function metrics.
func SpansFromMetrics(metrics []*models.FunctionMetrics) []Span {
	spans := make([]Span, 0, len(metrics))
	for _, m := range metrics {
		spans = append(spans, Span{ID: m.ID, Start: m.ID.Line, End: m.EndLine()})
	}
	return spans
}

// Absorb attributes a batch of markers.
func (a *Aggregator) Absorb(markers []models.DebtMarker) {
	for _, m := range markers {
		id, ok := a.locate(m.File, m.Line)
		if !ok {
			a.dropped++
			continue
		}
		c := a.counts[id]
		if c == nil {
			c = &Counts{Payloads: make(map[models.MarkerKind]string)}
			a.counts[id] = c
		}
		switch m.Kind {
		case models.MarkerTodo:
			c.Todos++
		case models.MarkerFixme:
			c.Fixmes++
		case models.MarkerHack:
			c.Hacks++
		case models.MarkerErrorSwallow:
			c.ErrorSwallows++
		case models.MarkerSuppression:
			c.Suppressions++
		case models.MarkerMagicValue:
			c.MagicValues++
		}
		if _, seen := c.Payloads[m.Kind]; !seen && m.Payload != "" {
			c.Payloads[m.Kind] = m.Payload
		}
	}
}

// locate finds the function whose range contains the line via binary
// search over the file's sorted spans.
func (a *Aggregator) locate(file string, line uint32) (models.FunctionID, bool) {
	spans := a.spansByFile[file]
	if len(spans) == 0 {
		return models.FunctionID{}, false
	}
	// Rightmost span starting at or before the line.
	idx := sort.Search(len(spans), func(i int) bool { return spans[i].Start > line }) - 1
	if idx < 0 {
		return models.FunctionID{}, false
	}
	if line > spans[idx].End {
		return models.FunctionID{}, false
	}
	return spans[idx].ID, true
}

// Counts returns the marker counters for a function, nil when none.
func (a *Aggregator) Counts(id models.FunctionID) *Counts {
	return a.counts[id]
}

// Dropped returns the number of markers that fell outside any function.
func (a *Aggregator) Dropped() int {
	return a.dropped
}
