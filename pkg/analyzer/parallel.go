// Package analyzer provides shared helpers for the analysis packages.
package analyzer

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Workers resolves a worker-goroutine count. Zero or negative falls
// back to 2x NumCPU, which suits the mixed CPU and file-I/O workload.
func Workers(jobs int) int {
	if jobs > 0 {
		return jobs
	}
	return runtime.NumCPU() * 2
}

// MapSlice processes items in parallel and collects results in input
// order. fn receives the item index so callers can correlate inputs
// without shared state.
func MapSlice[T, R any](items []T, jobs int, fn func(i int, item T) R) []R {
	if len(items) == 0 {
		return nil
	}
	results := make([]R, len(items))
	p := pool.New().WithMaxGoroutines(Workers(jobs))
	for i, item := range items {
		p.Go(func() {
			results[i] = fn(i, item)
		})
	}
	p.Wait()
	return results
}
