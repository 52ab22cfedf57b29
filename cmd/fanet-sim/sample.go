package main

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"fanet-sim/internal/config"
	"fanet-sim/internal/packet"
)

var (
	sampleConfigPath string
	sampleSchemaPath string
	sampleCount      int
	sampleSeed       uint64
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw packet profiles from the configured distributions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(sampleConfigPath, sampleSchemaPath)
		if err != nil {
			return err
		}
		seed := cfg.Seed
		if cmd.Flags().Changed("seed") {
			seed = sampleSeed
		}
		sampler, err := packet.NewSampler(cfg.TypeMix(), cfg.PriorityMap(), rand.NewPCG(seed, 1))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		tally := map[packet.Type]int{}
		for i := 0; i < sampleCount; i++ {
			p := sampler.Sample()
			tally[p.Type]++
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
		for _, t := range sampler.Types() {
			slog.Info("sampled profiles", "type", t, "count", tally[t])
		}
		return nil
	},
}

func init() {
	sampleCmd.Flags().StringVar(&sampleConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	sampleCmd.Flags().StringVar(&sampleSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	sampleCmd.Flags().IntVarP(&sampleCount, "count", "n", 10, "Number of profiles to draw")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 0, "Override the configured seed")
}
