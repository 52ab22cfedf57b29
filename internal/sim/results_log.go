package sim

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"time"

	"fanet-sim/internal/metrics"
)

const (
	resultsTimestampLayout = "15-04-05_02-01-2006"
	resultsSeparator       = "--------------------------------------------"
)

// ResultsLogSink appends one block per run to a plain-text results file.
// Existing content is never rewritten.
type ResultsLogSink struct {
	path  string
	runID string
	now   func() time.Time
}

// NewResultsLogSink creates a sink appending to path.
func NewResultsLogSink(path, runID string) *ResultsLogSink {
	return &ResultsLogSink{path: path, runID: runID, now: time.Now}
}

// WriteSummary appends the timestamped block for s.
func (r *ResultsLogSink) WriteSummary(_ context.Context, s metrics.Summary) (err error) {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	w.WriteString(r.now().Format(resultsTimestampLayout) + "\n")
	if r.runID != "" {
		w.WriteString("Run: " + r.runID + "\n")
	}
	for _, l := range s.Lines() {
		w.WriteString(l.String() + "\n")
	}
	w.WriteString(resultsSeparator + "\n")
	return w.Flush()
}
