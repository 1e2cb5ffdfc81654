package compare

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/panbanda/arrears/internal/output"
	"github.com/panbanda/arrears/pkg/models"
)

// TargetStatus describes what happened to the target location.
type TargetStatus string

const (
	StatusResolved       TargetStatus = "resolved"
	StatusImproved       TargetStatus = "improved"
	StatusUnchanged      TargetStatus = "unchanged"
	StatusRegressed      TargetStatus = "regressed"
	StatusNotFoundBefore TargetStatus = "not_found_before"
	StatusNotFound       TargetStatus = "not_found"
)

// TargetComparison is the verdict for the named location.
type TargetComparison struct {
	Location    string       `json:"location"`
	Status      TargetStatus `json:"status"`
	ScoreBefore *float64     `json:"score_before,omitempty"`
	ScoreAfter  *float64     `json:"score_after,omitempty"`
	Delta       float64      `json:"delta"`
	Strategy    string       `json:"strategy,omitempty"`
	Confidence  float64      `json:"confidence,omitempty"`
}

// ProjectHealth compares aggregate totals.
type ProjectHealth struct {
	ScoreBefore   float64 `json:"score_before"`
	ScoreAfter    float64 `json:"score_after"`
	ChangePercent float64 `json:"change_percent"`
	ItemsBefore   int     `json:"items_before"`
	ItemsAfter    int     `json:"items_after"`
	ItemsResolved int     `json:"items_resolved"`
	ItemsNew      int     `json:"items_new"`
}

// ItemDelta is one item-level change surfaced in the diff.
type ItemDelta struct {
	Location    output.Location `json:"location"`
	Kind        models.DebtKind `json:"kind,omitempty"`
	ScoreBefore *float64        `json:"score_before,omitempty"`
	ScoreAfter  *float64        `json:"score_after,omitempty"`
	Priority    models.Severity `json:"priority"`
}

// Result is the full comparison artefact.
type Result struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	Target        *TargetComparison `json:"target,omitempty"`
	ProjectHealth ProjectHealth     `json:"project_health"`
	Regressions   []ItemDelta       `json:"regressions"`
	Improvements  []ItemDelta       `json:"improvements"`
}

// regressionSeverityFloor keeps noise out of the regression list: new
// items below this severity are not reported.
const regressionSeverityFloor = models.SeverityMedium

// Engine diffs two snapshots.
type Engine struct {
	matcher *Matcher
}

// NewEngine creates a comparison engine.
func NewEngine() *Engine {
	return &Engine{matcher: NewMatcher()}
}

// Compare diffs before and after for an optional target location.
// A target that fails to resolve yields StatusNotFound rather than an
// error: the caller still gets the project-level diff.
func (e *Engine) Compare(before, after *output.Report, targetLocation string) (*Result, error) {
	result := &Result{
		GeneratedAt:   time.Now().UTC(),
		ProjectHealth: projectHealth(before, after),
		Regressions:   regressions(before, after),
		Improvements:  improvements(before, after),
	}
	if targetLocation != "" {
		target, err := e.compareTarget(before, after, targetLocation)
		if err != nil {
			return nil, err
		}
		result.Target = target
	}
	return result, nil
}

func (e *Engine) compareTarget(before, after *output.Report, location string) (*TargetComparison, error) {
	pattern, err := ParsePattern(location)
	if err != nil {
		return nil, err
	}

	target := &TargetComparison{Location: location}

	beforeMatch, beforeErr := e.matcher.FindMatches(before.Items, pattern)
	afterMatch, afterErr := e.matcher.FindMatches(after.Items, pattern)

	switch {
	case beforeErr != nil && afterErr != nil:
		target.Status = StatusNotFound
	case beforeErr != nil:
		target.Status = StatusNotFoundBefore
		score := bestScore(afterMatch.Items)
		target.ScoreAfter = &score
		target.Strategy = string(afterMatch.Strategy)
		target.Confidence = afterMatch.Confidence
	case afterErr != nil:
		// Present before, gone after: the debt is resolved.
		target.Status = StatusResolved
		score := bestScore(beforeMatch.Items)
		target.ScoreBefore = &score
		target.Delta = -score
		target.Strategy = string(beforeMatch.Strategy)
		target.Confidence = beforeMatch.Confidence
	default:
		sb := bestScore(beforeMatch.Items)
		sa := bestScore(afterMatch.Items)
		target.ScoreBefore = &sb
		target.ScoreAfter = &sa
		target.Delta = sa - sb
		target.Strategy = string(afterMatch.Strategy)
		target.Confidence = afterMatch.Confidence
		switch {
		case sa < sb:
			target.Status = StatusImproved
		case sa > sb:
			target.Status = StatusRegressed
		default:
			target.Status = StatusUnchanged
		}
	}
	return target, nil
}

func bestScore(items []output.Item) float64 {
	best := 0.0
	for _, item := range items {
		if item.Score > best {
			best = item.Score
		}
	}
	return best
}

func projectHealth(before, after *output.Report) ProjectHealth {
	h := ProjectHealth{
		ScoreBefore: before.Summary.TotalDebtScore,
		ScoreAfter:  after.Summary.TotalDebtScore,
		ItemsBefore: len(before.Items),
		ItemsAfter:  len(after.Items),
	}
	if h.ScoreBefore > 0 {
		h.ChangePercent = (h.ScoreAfter - h.ScoreBefore) / h.ScoreBefore * 100
	}

	beforeKeys := itemKeys(before.Items)
	afterKeys := itemKeys(after.Items)
	for key := range beforeKeys {
		if _, still := afterKeys[key]; !still {
			h.ItemsResolved++
		}
	}
	for key := range afterKeys {
		if _, was := beforeKeys[key]; !was {
			h.ItemsNew++
		}
	}
	return h
}

// itemKey is a stable identity digest over location and debt kind, so
// items pair up across snapshots even when scores move.
func itemKey(item output.Item) uint64 {
	d := xxhash.New()
	d.WriteString(normalizePath(item.Location.File))
	d.Write([]byte{0})
	d.WriteString(item.Location.Function)
	d.Write([]byte{0})
	d.WriteString(string(item.DebtKind))
	d.Write([]byte{0})
	d.WriteString(item.Type)
	return d.Sum64()
}

func itemKeys(items []output.Item) map[uint64]output.Item {
	keys := make(map[uint64]output.Item, len(items))
	for _, item := range items {
		keys[itemKey(item)] = item
	}
	return keys
}

// regressions lists new items above the severity floor.
func regressions(before, after *output.Report) []ItemDelta {
	beforeKeys := itemKeys(before.Items)
	var out []ItemDelta
	for _, item := range after.Items {
		if _, was := beforeKeys[itemKey(item)]; was {
			continue
		}
		if item.Priority.Weight() < regressionSeverityFloor.Weight() {
			continue
		}
		score := item.Score
		out = append(out, ItemDelta{
			Location:   item.Location,
			Kind:       item.DebtKind,
			ScoreAfter: &score,
			Priority:   item.Priority,
		})
	}
	return out
}

// improvements lists items resolved or lower-scoring in after.
func improvements(before, after *output.Report) []ItemDelta {
	afterKeys := itemKeys(after.Items)
	var out []ItemDelta
	for _, item := range before.Items {
		scoreBefore := item.Score
		counterpart, still := afterKeys[itemKey(item)]
		switch {
		case !still:
			out = append(out, ItemDelta{
				Location:    item.Location,
				Kind:        item.DebtKind,
				ScoreBefore: &scoreBefore,
				Priority:    item.Priority,
			})
		case counterpart.Score < item.Score:
			scoreAfter := counterpart.Score
			out = append(out, ItemDelta{
				Location:    item.Location,
				Kind:        item.DebtKind,
				ScoreBefore: &scoreBefore,
				ScoreAfter:  &scoreAfter,
				Priority:    item.Priority,
			})
		}
	}
	return out
}
