// Package progress provides two jobrunner.Subscriber implementations, a
// terminal progress bar for interactive runs and a line-oriented logger
// for batch/queue runs, plus a live Bubble Tea view for `queue watch`.
package progress

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/losslessforge/transcoder/internal/jobrunner"
)

// Bar renders job progress as a single terminal progress bar, advanced
// once per completed job. Safe for concurrent Update calls.
type Bar struct {
	description string

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// NewBar returns a Bar with the given description (shown to the left
// of the bar, e.g. "Transcoding").
func NewBar(description string) *Bar {
	return &Bar{description: description}
}

var _ jobrunner.Subscriber = (*Bar)(nil)

// Start initializes the bar for a batch of total jobs.
func (b *Bar) Start(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(b.description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionClearOnFinish(),
	)
}

// Update advances the bar by one step on job completion; other
// lifecycle events are ignored since the bar has no per-job display.
func (b *Bar) Update(jobID string, status jobrunner.Status) {
	if status != jobrunner.StatusCompleted {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		b.bar.Add(1)
	}
}

// Finish closes out the bar, printing a trailing newline.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		b.bar.Finish()
		fmt.Println()
	}
}
