package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"fanet-sim/internal/metrics"
	"fanet-sim/internal/sim"
)

var (
	replayInput      string
	replayUnit       string
	replayResultsLog string
	replayJSON       bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Recompute a summary from an event trace",
	Long:  "replay feeds a JSONL event trace into a fresh metrics engine and reports the resulting summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		unit, err := metrics.ParseDelayUnit(replayUnit)
		if err != nil {
			return err
		}
		eng := metrics.NewEngine(unit, slog.Default())
		n, err := sim.ReplayTraceFile(replayInput, eng)
		if err != nil {
			return err
		}
		slog.Info("replayed trace", "path", replayInput, "events", n)

		sinks := []metrics.ReportSink{sim.NewConsoleSink()}
		if replayJSON {
			sinks = append(sinks, sim.NewJSONSink("replay"))
		}
		if replayResultsLog != "" {
			sinks = append(sinks, sim.NewResultsLogSink(replayResultsLog, "replay"))
		}
		return eng.EmitSummary(cmd.Context(), sinks...)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to event trace file")
	replayCmd.Flags().StringVar(&replayUnit, "delay-unit", "ms", "Display unit for delays (us, ms, s)")
	replayCmd.Flags().StringVar(&replayResultsLog, "results-log", "", "Append the summary to this results log")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Also print the summary as JSON")
	replayCmd.MarkFlagRequired("input")
}
