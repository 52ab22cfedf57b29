// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"fanet-sim/internal/metrics"
	"fanet-sim/internal/packet"
)

// Nodes describes the node population.
type Nodes struct {
	Count         int     `yaml:"count"`
	Heterogeneous bool    `yaml:"heterogeneous"`
	Speed         float64 `yaml:"speed"`
	SpeedMin      int     `yaml:"speed_min"`
	SpeedMax      int     `yaml:"speed_max"`
	CapacityMin   float64 `yaml:"capacity_min"`
	CapacityMax   float64 `yaml:"capacity_max"`
}

// Traffic configures packet attributes and the synthetic traffic model.
type Traffic struct {
	PacketTypes          map[string]float64 `yaml:"packet_types"`
	Priorities           map[string]int     `yaml:"priorities"`
	GenerationInterval   time.Duration      `yaml:"generation_interval"`
	DeliveryProbability  float64            `yaml:"delivery_probability"`
	MaxHops              int                `yaml:"max_hops"`
	LinkRateBps          float64            `yaml:"link_rate_bps"`
	ControlInterval      time.Duration      `yaml:"control_interval"`
	CollisionProbability float64            `yaml:"collision_probability"`
	MaxBackoff           time.Duration      `yaml:"max_backoff"`
	QueueSampleInterval  time.Duration      `yaml:"queue_sample_interval"`
}

// Report configures the durable results log.
type Report struct {
	ResultsLog string `yaml:"results_log"`
	DelayUnit  string `yaml:"delay_unit"`
}

// Charts gates the chart export.
type Charts struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Bins    int    `yaml:"bins"`
}

// SimulationConfig is the root configuration of a run. The core only reads it.
type SimulationConfig struct {
	Seed           uint64        `yaml:"seed"`
	Duration       time.Duration `yaml:"duration"`
	StatusInterval time.Duration `yaml:"status_interval"`
	Nodes          Nodes         `yaml:"nodes"`
	Traffic        Traffic       `yaml:"traffic"`
	Report         Report        `yaml:"report"`
	Charts         Charts        `yaml:"charts"`
}

// Default returns the configuration of a stock run: ten nodes, five of them
// drones, for 100 s of virtual time.
func Default() *SimulationConfig {
	return &SimulationConfig{
		Seed:           2025,
		Duration:       100 * time.Second,
		StatusInterval: 500 * time.Millisecond,
		Nodes: Nodes{
			Count:       10,
			Speed:       20,
			SpeedMin:    5,
			SpeedMax:    60,
			CapacityMin: 1,
			CapacityMax: 10,
		},
		Traffic: Traffic{
			PacketTypes:          map[string]float64{"text": 0.5, "image": 0.3, "video": 0.2},
			Priorities:           map[string]int{"video": 0, "image": 1, "text": 2},
			GenerationInterval:   2 * time.Second,
			DeliveryProbability:  0.9,
			MaxHops:              4,
			LinkRateBps:          54e6,
			ControlInterval:      time.Second,
			CollisionProbability: 0.05,
			MaxBackoff:           2 * time.Millisecond,
			QueueSampleInterval:  time.Second,
		},
		Report: Report{
			ResultsLog: "results/network_results.txt",
			DelayUnit:  "ms",
		},
		Charts: Charts{
			Dir:  "results/charts",
			Bins: 30,
		},
	}
}

// Load validates a YAML file against a CUE schema and decodes it over the
// defaults. An empty schema path skips the CUE step.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	// maps replace the defaults instead of merging into them
	types, prios := cfg.Traffic.PacketTypes, cfg.Traffic.Priorities
	cfg.Traffic.PacketTypes, cfg.Traffic.Priorities = nil, nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Traffic.PacketTypes == nil {
		cfg.Traffic.PacketTypes = types
	}
	if cfg.Traffic.Priorities == nil {
		cfg.Traffic.Priorities = prios
	}
	if v := os.Getenv("RESULTS_LOG"); v != "" {
		cfg.Report.ResultsLog = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("loaded configuration", "path", configPath, "nodes", cfg.Nodes.Count, "duration", cfg.Duration)
	return cfg, nil
}

// Validate checks the structural rules the schema cannot express.
func (c *SimulationConfig) Validate() error {
	var errs []error
	if c.Duration <= 0 {
		errs = append(errs, errors.New("duration must be positive"))
	}
	if c.StatusInterval <= 0 {
		errs = append(errs, errors.New("status_interval must be positive"))
	}
	if c.Nodes.Count < 0 {
		errs = append(errs, errors.New("nodes.count must not be negative"))
	}
	if c.Nodes.Heterogeneous && c.Nodes.SpeedMin > c.Nodes.SpeedMax {
		errs = append(errs, fmt.Errorf("nodes.speed_min %d exceeds speed_max %d", c.Nodes.SpeedMin, c.Nodes.SpeedMax))
	}
	if c.Nodes.CapacityMin > c.Nodes.CapacityMax {
		errs = append(errs, fmt.Errorf("nodes.capacity_min %v exceeds capacity_max %v", c.Nodes.CapacityMin, c.Nodes.CapacityMax))
	}
	if c.Traffic.GenerationInterval <= 0 || c.Traffic.ControlInterval <= 0 || c.Traffic.QueueSampleInterval <= 0 {
		errs = append(errs, errors.New("traffic intervals must be positive"))
	}
	if c.Traffic.MaxHops < 1 {
		errs = append(errs, errors.New("traffic.max_hops must be at least 1"))
	}
	if c.Traffic.LinkRateBps <= 0 {
		errs = append(errs, errors.New("traffic.link_rate_bps must be positive"))
	}
	for name, p := range map[string]float64{
		"delivery_probability":  c.Traffic.DeliveryProbability,
		"collision_probability": c.Traffic.CollisionProbability,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("traffic.%s %v outside [0,1]", name, p))
		}
	}
	if _, err := metrics.ParseDelayUnit(c.Report.DelayUnit); err != nil {
		errs = append(errs, err)
	}
	if c.Charts.Enabled && c.Charts.Dir == "" {
		errs = append(errs, errors.New("charts.dir required when charts are enabled"))
	}
	return errors.Join(errs...)
}

// TypeMix returns the packet type weights sorted by label, so the sampler sees
// the same order on every run.
func (c *SimulationConfig) TypeMix() []packet.TypeWeight {
	labels := make([]string, 0, len(c.Traffic.PacketTypes))
	for l := range c.Traffic.PacketTypes {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	mix := make([]packet.TypeWeight, len(labels))
	for i, l := range labels {
		mix[i] = packet.TypeWeight{Type: packet.Type(l), Weight: c.Traffic.PacketTypes[l]}
	}
	return mix
}

// PriorityMap returns the type to priority mapping.
func (c *SimulationConfig) PriorityMap() map[packet.Type]int {
	out := make(map[packet.Type]int, len(c.Traffic.Priorities))
	for l, p := range c.Traffic.Priorities {
		out[packet.Type(l)] = p
	}
	return out
}

// DelayUnit returns the parsed display unit; Validate has already checked it.
func (c *SimulationConfig) DelayUnit() metrics.DelayUnit {
	u, _ := metrics.ParseDelayUnit(c.Report.DelayUnit)
	return u
}
