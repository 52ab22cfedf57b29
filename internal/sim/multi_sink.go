package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fanet-sim/internal/metrics"
)

// MultiSink fans out summaries and heartbeats to multiple sinks.
type MultiSink struct {
	sinks []metrics.ReportSink
}

// NewMultiSink creates a MultiSink. Nil sinks are dropped.
func NewMultiSink(sinks ...metrics.ReportSink) *MultiSink {
	ms := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			ms.sinks = append(ms.sinks, s)
		}
	}
	return ms
}

// Sinks returns the member sinks.
func (m *MultiSink) Sinks() []metrics.ReportSink {
	return append([]metrics.ReportSink(nil), m.sinks...)
}

// WriteSummary sends the summary to every sink. A failing sink does not stop
// the others; the failures are joined.
func (m *MultiSink) WriteSummary(ctx context.Context, s metrics.Summary) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.WriteSummary(ctx, s); err != nil {
			errs = append(errs, &metrics.SinkWriteError{Sink: fmt.Sprintf("%T", sink), Err: err})
		}
	}
	return errors.Join(errs...)
}

// WriteStatus forwards the heartbeat to members that implement StatusWriter.
func (m *MultiSink) WriteStatus(ctx context.Context, at time.Duration) error {
	var errs []error
	for _, sink := range m.sinks {
		if sw, ok := sink.(StatusWriter); ok {
			if err := sw.WriteStatus(ctx, at); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
