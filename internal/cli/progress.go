package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/docblock/internal/extraction"
)

// CLIProgressReporter implements extraction.ProgressReporter with a progress
// bar. Sources finish on worker goroutines, so updates are serialized.
type CLIProgressReporter struct {
	w     io.Writer
	quiet bool

	mu             sync.Mutex
	bar            *progressbar.ProgressBar
	totalSources   int
	processedFiles int
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to w.
func NewCLIProgressReporter(w io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		w:     w,
		quiet: quiet,
	}
}

func (c *CLIProgressReporter) OnExtractStart(totalSources int) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalSources = totalSources
	c.processedFiles = 0
	c.bar = progressbar.NewOptions(totalSources,
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.w)
		}),
	)
}

func (c *CLIProgressReporter) OnSourceDone(sourceID string, documents int) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		c.processedFiles++
		c.bar.Add(1)
	}
}

func (c *CLIProgressReporter) OnExtractComplete(stats extraction.Stats) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}

	fmt.Fprintf(c.w, "✓ Extraction complete: %s documents from %s files in %.1fs\n",
		formatNumber(stats.Documents), formatNumber(stats.Sources), stats.Duration.Seconds())
	fmt.Fprintf(c.w, "  Comment blocks: %s\n", formatNumber(stats.Blocks))
	fmt.Fprintf(c.w, "  Warnings:       %s\n", formatNumber(stats.Warnings))
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
