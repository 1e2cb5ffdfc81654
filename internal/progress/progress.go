// Package progress wraps terminal progress bars for pipeline phases.
package progress

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for phase processing.
type Tracker struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	label string
	phase string
}

// NewTracker creates a progress bar with the given label and total.
func NewTracker(label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	t.bar.Add(1)
}

// Sink adapts the tracker to the orchestrator's progress sink. Phase
// changes re-describe the bar; updates are best effort and never block
// the pipeline.
func (t *Tracker) Sink(phase string, completed, total int) {
	if !t.mu.TryLock() {
		return // drop updates under contention rather than stall
	}
	defer t.mu.Unlock()

	if phase != t.phase {
		t.phase = phase
		t.bar.Describe(fmt.Sprintf("%s (%s)", t.label, phase))
	}
	t.bar.ChangeMax(total)
	t.bar.Set(completed)
}

// FinishSuccess clears the bar completely.
func (t *Tracker) FinishSuccess() {
	t.bar.Finish()
	t.bar.Clear()
}
