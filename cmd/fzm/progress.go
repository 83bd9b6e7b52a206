package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/fzmanager/fzm/internal/theme"
)

const redrawEvery = 100 * time.Millisecond

// progressLine draws a single-line transfer bar, redrawn in place. Its
// Update method has the shape of client.ProgressFunc.
type progressLine struct {
	w     io.Writer
	bar   progress.Model
	label string
	total int64

	mu   sync.Mutex
	done int64
	last time.Time
}

func newProgressLine(w io.Writer, label string, total int64) *progressLine {
	return &progressLine{
		w:     w,
		bar:   progress.New(progress.WithSolidFill(string(theme.ColorFactorio)), progress.WithWidth(30)),
		label: label,
		total: total,
	}
}

// Update records transferred bytes and redraws at most every redrawEvery.
func (p *progressLine) Update(done int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = done
	if time.Since(p.last) < redrawEvery {
		return
	}
	p.last = time.Now()
	p.draw()
}

// Finish draws the final state and ends the line. err marks a failed
// transfer.
func (p *progressLine) Finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draw()
	if err != nil {
		fmt.Fprintf(p.w, "  %s\n", theme.StyleError.Render("failed: "+err.Error()))
		return
	}
	fmt.Fprintln(p.w, "  done")
}

func (p *progressLine) draw() {
	label := lipgloss.NewStyle().Width(28).Render(truncate(p.label, 28))
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %s", label, formatBytes(p.done))
		return
	}
	pct := min(float64(p.done)/float64(p.total), 1)
	fmt.Fprintf(p.w, "\r%s %s %s / %s", label, p.bar.ViewAs(pct), formatBytes(p.done), formatBytes(p.total))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func formatBytes(n int64) string {
	const unit = 1 << 10
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
