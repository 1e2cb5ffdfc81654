// Package compare diffs two analysis snapshots to validate iterative
// improvement, resolving user-supplied locations with a cascading
// fuzzy matcher.
package compare

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/panbanda/arrears/internal/output"
)

// ErrNoMatch is returned when no strategy resolves a location.
var ErrNoMatch = errors.New("location matched no items")

// LocationPattern is a parsed location string:
// file[:function[:line]], with "*" accepting any function at a line.
type LocationPattern struct {
	File     string
	Function string // "*" matches any function when Line is set
	Line     uint32
	HasLine  bool
}

// ParsePattern parses a raw location string.
func ParsePattern(location string) (LocationPattern, error) {
	if strings.TrimSpace(location) == "" {
		return LocationPattern{}, errors.New("empty location")
	}
	parts := strings.Split(location, ":")
	p := LocationPattern{File: normalizePath(parts[0])}
	if len(parts) > 1 && parts[1] != "" {
		p.Function = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		line, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return LocationPattern{}, fmt.Errorf("invalid line %q: %w", parts[2], err)
		}
		p.Line = uint32(line)
		p.HasLine = true
	}
	return p, nil
}

func normalizePath(path string) string {
	return strings.TrimPrefix(path, "./")
}

// MatchStrategy names the resolution level that succeeded.
type MatchStrategy string

const (
	StrategyExact           MatchStrategy = "exact"
	StrategyFunctionLevel   MatchStrategy = "function_level"
	StrategyApproximateName MatchStrategy = "approximate_name"
	StrategyFileLevel       MatchStrategy = "file_level"
)

// Confidence returns the base confidence for the strategy.
func (s MatchStrategy) Confidence() float64 {
	switch s {
	case StrategyExact:
		return 1.0
	case StrategyFunctionLevel:
		return 0.8
	case StrategyApproximateName:
		return 0.6
	case StrategyFileLevel:
		return 0.4
	default:
		return 0
	}
}

// MatchResult carries the matched items, the strategy that found them,
// and the final confidence.
type MatchResult struct {
	Items      []output.Item
	Strategy   MatchStrategy
	Confidence float64
}

// Matcher resolves location strings against report items, trying
// strategies in order of decreasing specificity.
type Matcher struct{}

// NewMatcher creates a matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// FindMatches resolves the pattern. The attempted strategies are
// returned alongside ErrNoMatch so callers can report what was tried.
func (m *Matcher) FindMatches(items []output.Item, pattern LocationPattern) (*MatchResult, error) {
	if result := matchExact(items, pattern); result != nil {
		return result, nil
	}
	if result := matchFunctionLevel(items, pattern); result != nil {
		return result, nil
	}
	if result := matchApproximateName(items, pattern); result != nil {
		return result, nil
	}
	if result := matchFileLevel(items, pattern); result != nil {
		return result, nil
	}
	return nil, fmt.Errorf("%w (tried exact, function_level, approximate_name, file_level)", ErrNoMatch)
}

// matchExact requires file, function, and line all to agree. The "*"
// function wildcard accepts any function at the line.
func matchExact(items []output.Item, p LocationPattern) *MatchResult {
	if p.Function == "" || !p.HasLine {
		return nil
	}
	var matched []output.Item
	for _, item := range items {
		if normalizePath(item.Location.File) != p.File || item.Location.Line != p.Line {
			continue
		}
		if p.Function != "*" && item.Location.Function != p.Function {
			continue
		}
		matched = append(matched, item)
	}
	if len(matched) == 0 {
		return nil
	}
	return &MatchResult{Items: matched, Strategy: StrategyExact, Confidence: StrategyExact.Confidence()}
}

func matchFunctionLevel(items []output.Item, p LocationPattern) *MatchResult {
	if p.Function == "" || p.Function == "*" {
		return nil
	}
	var matched []output.Item
	for _, item := range items {
		if normalizePath(item.Location.File) == p.File && item.Location.Function == p.Function {
			matched = append(matched, item)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return &MatchResult{Items: matched, Strategy: StrategyFunctionLevel, Confidence: StrategyFunctionLevel.Confidence()}
}

// matchApproximateName finds the closest function name in the file,
// scaled by string similarity.
func matchApproximateName(items []output.Item, p LocationPattern) *MatchResult {
	if p.Function == "" || p.Function == "*" {
		return nil
	}
	var best []output.Item
	bestSim := 0.0
	for _, item := range items {
		if normalizePath(item.Location.File) != p.File || item.Location.Function == "" {
			continue
		}
		sim := similarity(item.Location.Function, p.Function)
		switch {
		case sim > bestSim:
			bestSim = sim
			best = []output.Item{item}
		case sim == bestSim && sim > 0:
			best = append(best, item)
		}
	}
	if len(best) == 0 || bestSim < 0.5 {
		return nil
	}
	return &MatchResult{
		Items:      best,
		Strategy:   StrategyApproximateName,
		Confidence: bestSim * StrategyApproximateName.Confidence(),
	}
}

// matchFileLevel returns every item in the file. Confidence shrinks
// with the number of candidates, floored at 0.3.
func matchFileLevel(items []output.Item, p LocationPattern) *MatchResult {
	var matched []output.Item
	for _, item := range items {
		if normalizePath(item.Location.File) == p.File {
			matched = append(matched, item)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	confidence := StrategyFileLevel.Confidence() / math.Sqrt(float64(len(matched)))
	if confidence < 0.3 {
		confidence = 0.3
	}
	return &MatchResult{Items: matched, Strategy: StrategyFileLevel, Confidence: confidence}
}

// similarity compares names case-insensitively: 1.0 for equal strings,
// 0.95 when they differ only in case, otherwise the shorter length over
// the longer when one contains the other, else the common prefix length
// over the longer length.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return 0.95
	}
	longer, shorter := la, lb
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}
	if len(longer) == 0 {
		return 0
	}
	if strings.Contains(longer, shorter) {
		return float64(len(shorter)) / float64(len(longer))
	}
	common := 0
	for i := 0; i < len(shorter); i++ {
		if longer[i] == shorter[i] {
			common++
		} else {
			break
		}
	}
	return float64(common) / float64(len(longer))
}
