package scoring

import (
	"path/filepath"
	"strings"
)

// FileContext classifies the file a function lives in. Non-production
// contexts dampen scores: debt in an example is not debt in the product.
type FileContext string

const (
	ContextProduction  FileContext = "production"
	ContextTest        FileContext = "test"
	ContextExample     FileContext = "example"
	ContextBenchmark   FileContext = "benchmark"
	ContextBuildScript FileContext = "build_script"
	ContextDoc         FileContext = "doc"
)

// Multiplier returns the score dampening for the context, ≤ 1.0.
func (c FileContext) Multiplier() float64 {
	switch c {
	case ContextTest:
		return 0.3
	case ContextExample:
		return 0.2
	case ContextBenchmark:
		return 0.4
	case ContextBuildScript:
		return 0.5
	case ContextDoc:
		return 0.2
	default:
		return 1.0
	}
}

// DetectFileContext classifies a path by its location and name.
func DetectFileContext(path string) FileContext {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(slashed)

	switch {
	case base == "build.rs" || base == "setup.py":
		return ContextBuildScript
	case strings.Contains(slashed, "/examples/") || strings.HasPrefix(slashed, "examples/"):
		return ContextExample
	case strings.Contains(slashed, "/benches/") || strings.HasPrefix(slashed, "benches/") ||
		strings.Contains(slashed, "/benchmarks/") ||
		strings.Contains(base, ".bench."):
		return ContextBenchmark
	case strings.Contains(slashed, "/docs/") || strings.HasPrefix(slashed, "docs/"):
		return ContextDoc
	case strings.Contains(slashed, "/tests/") || strings.HasPrefix(slashed, "tests/") ||
		strings.Contains(base, "_test.") || strings.Contains(base, ".spec.") ||
		strings.HasPrefix(base, "test_"):
		return ContextTest
	default:
		return ContextProduction
	}
}
