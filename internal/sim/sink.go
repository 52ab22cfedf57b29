package sim

import (
	"context"
	"time"

	"fanet-sim/internal/metrics"
)

// StatusWriter is implemented by sinks that want the periodic heartbeat.
type StatusWriter interface {
	WriteStatus(ctx context.Context, at time.Duration) error
}

// EventRecorder receives every event applied to the engine, e.g. to keep a
// trace for later replay.
type EventRecorder interface {
	RecordEvent(Event) error
}

// ChartSink renders end-of-run charts.
type ChartSink interface {
	WriteCharts(ctx context.Context, data ChartData) error
}

var (
	_ metrics.ReportSink = (*MultiSink)(nil)
	_ metrics.ReportSink = (*ConsoleSink)(nil)
	_ metrics.ReportSink = (*JSONSink)(nil)
	_ metrics.ReportSink = (*ResultsLogSink)(nil)
	_ metrics.ReportSink = (*GreptimeSink)(nil)
	_ StatusWriter       = (*ConsoleSink)(nil)
	_ StatusWriter       = (*MultiSink)(nil)
	_ EventRecorder      = (*TraceWriter)(nil)
	_ ChartSink          = (*PlotChartSink)(nil)
)
