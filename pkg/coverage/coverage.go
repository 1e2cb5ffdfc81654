// Package coverage provides the read-only coverage lookup consumed by
// the scoring pipeline, plus an LCOV file reader.
package coverage

// Lookup answers line-coverage queries for a snapshot. Implementations
// are read-only and safe for concurrent use.
type Lookup interface {
	// IsCovered reports whether the line is covered. ok is false when
	// the file or line is not present in the coverage data.
	IsCovered(file string, line uint32) (covered, ok bool)

	// FunctionCoverage returns the fraction of instrumented lines in
	// [start, end] that are covered, or nil when the range carries no
	// coverage data.
	FunctionCoverage(file string, start, end uint32) *float64

	// OverallCoverage returns the aggregate line coverage in [0, 1].
	OverallCoverage() float64
}
