// ConsoleSink prints the run summary and heartbeat to STDOUT.
package sim

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"fanet-sim/internal/metrics"
)

var (
	consoleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	consoleLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	consoleValue   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	consoleUndef   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	consoleDivider = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("────────────────────────────────────────────")
)

// ConsoleSink renders summaries as styled labelled lines.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink creates a ConsoleSink writing to os.Stdout.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{out: os.Stdout}
}

// NewConsoleSinkTo creates a ConsoleSink writing to w.
func NewConsoleSinkTo(w io.Writer) *ConsoleSink {
	return &ConsoleSink{out: w}
}

// WriteStatus prints the current virtual time.
func (c *ConsoleSink) WriteStatus(_ context.Context, at time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "At time: %s s.\n", strconv.FormatFloat(at.Seconds(), 'f', -1, 64))
	return err
}

// WriteSummary prints every labelled figure followed by the per-priority
// delays.
func (c *ConsoleSink) WriteSummary(_ context.Context, s metrics.Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.out, consoleTitle.Render("Network performance")); err != nil {
		return err
	}
	for _, l := range s.Lines() {
		if _, err := fmt.Fprintln(c.out, renderLine(l)); err != nil {
			return err
		}
	}
	for _, p := range s.Priorities {
		l := metrics.Line{
			Label: fmt.Sprintf("Priority %d delay (%d samples):", p.Priority, p.Samples),
			Value: p.Mean.String(),
			Unit:  " " + string(s.DelayUnit),
		}
		if _, err := fmt.Fprintln(c.out, renderLine(l)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(c.out, consoleDivider)
	return err
}

func renderLine(l metrics.Line) string {
	if l.Value == metrics.Undefined.String() {
		return consoleLabel.Render(l.Label) + " " + consoleUndef.Render(l.Value)
	}
	return consoleLabel.Render(l.Label) + " " + consoleValue.Render(l.Value+l.Unit)
}
