package main

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fanet-sim/internal/config"
	"fanet-sim/internal/metrics"
	"fanet-sim/internal/observability"
	"fanet-sim/internal/sim"
)

// sinkOptions are the flag-driven report destinations of a run.
type sinkOptions struct {
	printOnly  bool
	jsonOut    bool
	metricsOut string
}

// runSinks is the assembled report fan-out.
type runSinks struct {
	sinks     []metrics.ReportSink
	greptime  *sim.GreptimeSink
	collector *observability.Collector
}

// newSinks sets up report sinks based on flags and env vars. The console and
// the results log are always present; GreptimeDB joins when
// GREPTIMEDB_ENDPOINT is set and printOnly is off.
func newSinks(cfg *config.SimulationConfig, runID string, opts sinkOptions, reg prometheus.Registerer) (*runSinks, error) {
	rs := &runSinks{}
	rs.sinks = append(rs.sinks, sim.NewConsoleSink())
	if opts.jsonOut {
		rs.sinks = append(rs.sinks, sim.NewJSONSink(runID))
	}
	if cfg.Report.ResultsLog != "" {
		rs.sinks = append(rs.sinks, sim.NewResultsLogSink(cfg.Report.ResultsLog, runID))
	}

	collector, err := observability.NewCollector(reg, opts.metricsOut)
	if err != nil {
		return nil, err
	}
	rs.collector = collector
	rs.sinks = append(rs.sinks, collector)

	if opts.printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		return rs, nil
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	gs, err := sim.NewGreptimeSink(os.Getenv("GREPTIMEDB_ENDPOINT"), database, runID, time.Now(), nil)
	if err != nil {
		return nil, err
	}
	rs.greptime = gs
	rs.sinks = append(rs.sinks, gs)
	return rs, nil
}

// attach wires the engine-backed sources into sinks built before the
// simulator existed.
func (rs *runSinks) attach(s *sim.Simulator) {
	if rs.greptime != nil {
		rs.greptime.SetSeriesSource(s.Engine())
	}
}
