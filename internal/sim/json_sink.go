package sim

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"fanet-sim/internal/metrics"
)

// JSONSink prints the summary as one JSON document per run.
type JSONSink struct {
	out   io.Writer
	runID string
}

// NewJSONSink creates a JSONSink writing to os.Stdout.
func NewJSONSink(runID string) *JSONSink {
	return &JSONSink{out: os.Stdout, runID: runID}
}

// WriteSummary outputs the summary in JSON format. Undefined figures are null.
func (w *JSONSink) WriteSummary(_ context.Context, s metrics.Summary) error {
	doc := struct {
		RunID string `json:"run_id,omitempty"`
		metrics.Summary
	}{RunID: w.runID, Summary: s}
	return json.NewEncoder(w.out).Encode(doc)
}
