package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/MrWong99/kanaset/internal/pipeline"
)

// progress renders the drain on stderr. A disabled progress is a no-op.
type progress struct {
	enabled bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgress(enabled bool) *progress {
	return &progress{enabled: enabled}
}

// Start creates the bar once the word count is known.
func (p *progress) Start(words, batchSize int) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = progressbar.NewOptions(words,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(fmt.Sprintf("batch %d", batchSize)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("words"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
	)
}

// Update moves the bar to the number of resolved words.
func (p *progress) Update(rep pipeline.BatchReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("round %d", rep.Round))
	_ = p.bar.Set(rep.Resolved)
}

// Finish completes the bar and moves to a fresh line.
func (p *progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(os.Stderr)
	p.bar = nil
}
