// Package progressbar implements functionality of printing a training
// progress bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	fillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// ProgressBar implements a progress bar that must be manually managed.
// That is, Display must be called whenever an updated progress bar
// should be printed.
type ProgressBar struct {
	out             io.Writer
	width           float64
	maxProgress     float64
	currentProgress float64
	description     string
	bar             strings.Builder
	startTime       time.Time
}

// NewProgressBar returns a new ProgressBar that is width characters wide and
// reaches 100% after max calls to Increment
func NewProgressBar(out io.Writer, width, max int) *ProgressBar {
	if max <= 0 {
		max = 1
	}
	return &ProgressBar{
		out:         out,
		width:       float64(width),
		maxProgress: float64(max),
		startTime:   time.Now(),
	}
}

// Increment increments the internal progress counter
func (p *ProgressBar) Increment() {
	if p.currentProgress < p.maxProgress {
		p.currentProgress++
	}
}

// Describe sets the text printed after the bar, e.g. the latest
// training statistics
func (p *ProgressBar) Describe(format string, args ...interface{}) {
	p.description = fmt.Sprintf(format, args...)
}

// Progress returns the fraction of completed increments
func (p *ProgressBar) Progress() float64 {
	return p.currentProgress / p.maxProgress
}

// String returns the bar without terminal control sequences
func (p *ProgressBar) String() string {
	p.bar.Reset()
	p.bar.WriteString("|")

	filled := int(p.Progress() * p.width)
	p.bar.WriteString(fillStyle.Render(strings.Repeat("█", filled)))
	p.bar.WriteString(strings.Repeat(" ", int(p.width)-filled))

	p.bar.WriteString(fmt.Sprintf("| [%.2f%% | elapsed: %v]",
		p.Progress()*100, time.Since(p.startTime).Truncate(time.Second)))
	if p.description != "" {
		p.bar.WriteString(" " + labelStyle.Render(p.description))
	}
	return p.bar.String()
}

// Display prints the progress bar over the previous one
func (p *ProgressBar) Display() {
	fmt.Fprintf(p.out, "\n\033[1A\033[K%v", p.String())
}

// Close moves the cursor past the bar
func (p *ProgressBar) Close() {
	fmt.Fprintln(p.out)
}
