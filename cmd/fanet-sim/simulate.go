package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"fanet-sim/internal/admin"
	"fanet-sim/internal/config"
	"fanet-sim/internal/logging"
	"fanet-sim/internal/sim"
)

var (
	simPrintOnly  bool
	simConfigPath string
	simSchemaPath string
	simTraceFile  string
	simAdminAddr  string
	simMetricsOut string
	simJSON       bool
	simCharts     bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one simulation",
	Long:  "simulate runs the network for the configured virtual duration and reports the performance summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("charts") {
			cfg.Charts.Enabled = simCharts
		}

		runID := os.Getenv("RUN_ID")
		if runID == "" {
			runID = uuid.NewString()
		}

		reg := prometheus.NewRegistry()
		rs, err := newSinks(cfg, runID, sinkOptions{printOnly: simPrintOnly, jsonOut: simJSON, metricsOut: simMetricsOut}, reg)
		if err != nil {
			return err
		}

		opts := []sim.Option{
			sim.WithCharts(sim.NewPlotChartSink(cfg.Charts.Dir, cfg.Charts.Bins)),
		}
		var trace *sim.TraceWriter
		if simTraceFile != "" {
			trace, err = sim.NewTraceWriter(simTraceFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := trace.Close(); err != nil {
					slog.Warn("closing trace", "err", err)
				}
			}()
			opts = append(opts, sim.WithTrace(trace))
		}

		simulator, err := sim.NewSimulator(cfg, rs.sinks, opts...)
		if err != nil {
			return err
		}
		rs.attach(simulator)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, slog.Default().With("run_id", runID))

		if simAdminAddr != "" {
			srv := admin.NewServer(simulator, rs.collector.Handler())
			go func() {
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					logging.FromContext(ctx).Error("admin server failed", "err", err)
				}
			}()
		}

		if err := simulator.Run(ctx); err != nil {
			return err
		}
		if trace != nil {
			logging.FromContext(ctx).Info("trace written", "path", simTraceFile, "events", trace.Count())
		}
		if simAdminAddr != "" {
			logging.FromContext(ctx).Info("run complete; admin server stays up until interrupted", "addr", simAdminAddr)
			<-ctx.Done()
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Report to STDOUT and the results log only, skipping GreptimeDB")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().StringVar(&simTraceFile, "log-file", "", "Path to export the event trace (JSONL)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", "", "Serve live figures on this address (e.g. :8080)")
	simulateCmd.Flags().StringVar(&simMetricsOut, "metrics-out", "", "Write Prometheus textfile metrics to this path")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "Also print the summary as JSON")
	simulateCmd.Flags().BoolVar(&simCharts, "charts", false, "Override charts.enabled from the config")
}
