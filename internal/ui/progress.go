// Package ui renders the live mirror progress line and the end-of-run
// summary for terminal output.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arving/kbmirror/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("75")).
			Padding(0, 1)
)

// Progress renders a single carriage-return updated status line, one update
// per processed node. Failure diagnostics are emitted as full lines so they
// survive the live line being overwritten.
type Progress struct {
	w         io.Writer
	total     int
	processed int
	failed    int
	lineWidth int
}

// NewProgress creates a progress indicator for a pass over total nodes.
func NewProgress(w io.Writer, total int) *Progress {
	return &Progress{w: w, total: total}
}

// Header prints the book banner before the pass starts.
func (p *Progress) Header(name, dest string) {
	content := fmt.Sprintf("%s %s\n%s %s\n%s %d nodes",
		dimStyle.Render("Book:"), titleStyle.Render(name),
		dimStyle.Render("Dest:"), dest,
		dimStyle.Render("Tree:"), p.total,
	)
	fmt.Fprintln(p.w, boxStyle.Render(content))
}

// Step records one processed node and redraws the live line.
func (p *Progress) Step(path string) {
	p.processed++
	p.redraw(p.line(path))
}

// Fail records one failed node: an interrupt-safe diagnostic line is printed
// above the live progress line, and the failure count is carried on the live
// line so processed never reads as succeeded.
func (p *Progress) Fail(path string, err error) {
	p.clear()
	fmt.Fprintf(p.w, "%s %s: %v\n", errorStyle.Render("FAIL"), path, err)
	p.processed++
	p.failed++
	p.redraw(p.line(path))
}

func (p *Progress) line(path string) string {
	if p.failed > 0 {
		return fmt.Sprintf("[%d/%d, %d failed] %s", p.processed, p.total, p.failed, dimStyle.Render(path))
	}
	return fmt.Sprintf("[%d/%d] %s", p.processed, p.total, dimStyle.Render(path))
}

// Finish terminates the live line.
func (p *Progress) Finish() {
	p.clear()
}

func (p *Progress) redraw(line string) {
	pad := ""
	if w := lipgloss.Width(line); w < p.lineWidth {
		pad = strings.Repeat(" ", p.lineWidth-w)
	} else {
		p.lineWidth = lipgloss.Width(line)
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
}

func (p *Progress) clear() {
	if p.lineWidth > 0 {
		fmt.Fprintf(p.w, "\r%s\r", strings.Repeat(" ", p.lineWidth))
		p.lineWidth = 0
	}
}

// Report prints the end-of-run summary box and, when articles failed, the
// enumerated failure list with the re-run instruction.
func Report(w io.Writer, report models.RunReport) {
	status := successStyle.Render("complete")
	if !report.Complete {
		status = errorStyle.Render("incomplete")
	}
	content := fmt.Sprintf("%s %d  %s %d  %s %d  %s %s",
		dimStyle.Render("Articles:"), report.TotalArticles,
		dimStyle.Render("Skipped:"), report.SkippedNodes,
		dimStyle.Render("Failed:"), len(report.FailedArticles),
		dimStyle.Render("Status:"), status,
	)
	fmt.Fprintln(w, boxStyle.Render(content))

	if report.Failed() {
		fmt.Fprintf(w, "%s %d article(s) failed:\n", errorStyle.Render("!"), len(report.FailedArticles))
		for _, e := range report.FailedArticles {
			fmt.Fprintf(w, "  %s\n", e.Path)
		}
		fmt.Fprintln(w, dimStyle.Render("Re-run the same command to retry the failed articles."))
	}
}
