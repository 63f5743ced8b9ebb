package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// ProgressBar creates and manages progress bars
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a new progress bar writing to stderr
func NewProgressBar(count int) *ProgressBar {
	return NewProgressBarTo(os.Stderr, count)
}

// NewProgressBarTo creates a new progress bar writing to w
func NewProgressBarTo(w io.Writer, count int) *ProgressBar {
	bar := progressbar.NewOptions(count,
		progressbar.OptionSetDescription(
			color.CyanString("Running cases: ")+
				color.GreenString("[passed: 0")+
				" | "+
				color.RedString("failed: 0]"),
		),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(w),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// Update updates the progress bar with completed, passed and failed counts.
// Skipped, warned and unimplemented cases count as passed.
func (p *ProgressBar) Update(completed, passCount, failCount int) {
	p.bar.Set(completed)
	p.bar.Describe(
		color.CyanString("Running cases: ") +
			color.GreenString("[passed: %d", passCount) +
			" | " +
			color.RedString("failed: %d]", failCount),
	)
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() {
	p.bar.Finish()
}

