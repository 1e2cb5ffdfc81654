// Package risk supplies contextual risk signals for analyzed files.
// The core consumes the Analyzer interface oblivious to the concrete
// provider; the git implementation derives risk from recent history.
package risk

import "github.com/panbanda/arrears/pkg/models"

// Analyzer produces contextual risk for a (file, optional function)
// key. Implementations must be safe for concurrent use.
type Analyzer interface {
	// FileRisk returns risk context for a file, nil when the provider
	// has no signal for it.
	FileRisk(path string) *models.ContextualRisk

	// FunctionRisk returns risk context for a function. A provider with
	// only file-level signals returns the file's risk; nil when there is
	// no signal.
	FunctionRisk(path, function string) *models.ContextualRisk

	// Close releases provider resources.
	Close()
}
