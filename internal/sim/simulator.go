// Simulator orchestrating nodes, traffic and the end-of-run report
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"fanet-sim/internal/config"
	"fanet-sim/internal/logging"
	"fanet-sim/internal/metrics"
	"fanet-sim/internal/packet"
	"fanet-sim/internal/sched"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("simulator already ran")

// Option customises a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger used for the heartbeat and run errors. Without
// it the simulator uses the logger carried by the context passed to Run.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

// WithCharts sets the chart sink invoked at the end of the run when charts
// are enabled in the config.
func WithCharts(c ChartSink) Option {
	return func(s *Simulator) { s.charts = c }
}

// WithTrace records every applied event.
func WithTrace(r EventRecorder) Option {
	return func(s *Simulator) { s.trace = r }
}

// Simulator drives one run: it owns the scheduler, the metrics engine, the
// node population and the traffic model.
type Simulator struct {
	cfg     *config.SimulationConfig
	log     *slog.Logger
	engine  *metrics.Engine
	sched   *sched.Scheduler
	nodes   []Node
	traffic *Traffic

	out    *MultiSink
	charts ChartSink
	trace  EventRecorder

	mu        sync.Mutex
	ran       bool
	finished  int
	abort     context.CancelCauseFunc
	traceErrs int
	late      int
}

// NewSimulator builds the node population and traffic model from cfg. Every
// random stream is derived from cfg.Seed.
func NewSimulator(cfg *config.SimulationConfig, sinks []metrics.ReportSink, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Simulator{
		cfg:   cfg,
		sched: sched.New(),
		out:   NewMultiSink(sinks...),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = metrics.NewEngine(cfg.DelayUnit(), s.log)

	sampler, err := packet.NewSampler(cfg.TypeMix(), cfg.PriorityMap(), rand.NewPCG(cfg.Seed, 1))
	if err != nil {
		return nil, err
	}
	s.nodes = BuildNodes(NodeSpec{
		Count:         cfg.Nodes.Count,
		Heterogeneous: cfg.Nodes.Heterogeneous,
		Speed:         cfg.Nodes.Speed,
		SpeedMin:      cfg.Nodes.SpeedMin,
		SpeedMax:      cfg.Nodes.SpeedMax,
		CapacityMin:   cfg.Nodes.CapacityMin,
		CapacityMax:   cfg.Nodes.CapacityMax,
	}, rand.New(rand.NewPCG(cfg.Seed, 2)))
	s.traffic = NewTraffic(cfg.Traffic, s.nodes, sampler, rand.New(rand.NewPCG(cfg.Seed, 3)))
	return s, nil
}

// Engine returns the run's metrics engine. It is safe for concurrent reads.
func (s *Simulator) Engine() *metrics.Engine { return s.engine }

// Nodes returns a copy of the node population.
func (s *Simulator) Nodes() []Node { return append([]Node(nil), s.nodes...) }

// Run executes the whole run in virtual time and returns when the clock
// reaches the configured duration. The summary is emitted one tick before
// the end. A duplicate packet id aborts the run and is returned.
func (s *Simulator) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return ErrAlreadyRun
	}
	s.ran = true
	s.mu.Unlock()

	if s.log != nil {
		ctx = logging.NewContext(ctx, s.log)
	} else {
		s.log = logging.FromContext(ctx)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	s.abort = cancel

	s.log.Info("starting simulator",
		"nodes", len(s.nodes),
		"drones", len(Drones(s.nodes)),
		"duration", s.cfg.Duration,
		"seed", s.cfg.Seed)

	s.sched.ScheduleOnce(0, func() { s.heartbeat(ctx) })
	s.sched.SchedulePeriodic(s.cfg.StatusInterval, func() { s.heartbeat(ctx) })
	s.traffic.Start(s.sched, s.record)
	s.sched.ScheduleOnce(s.cfg.Duration-sched.Tick, func() { s.finish(ctx) })

	if err := s.sched.RunUntil(ctx, s.cfg.Duration); err != nil {
		return context.Cause(ctx)
	}
	s.log.Info("simulation finished", "at", s.sched.Now(), "generated", s.traffic.Generated(), "after_summary", s.late, "pending", s.sched.Pending())
	return nil
}

// record applies ev to the engine and the trace. Duplicate ids abort the run.
// Events arriving after the summary was emitted are dropped, so the engine and
// the trace always agree with the reported summary.
func (s *Simulator) record(ev Event) error {
	if s.finished > 0 {
		s.late++
		return nil
	}
	if err := Apply(s.engine, ev); err != nil {
		if errors.Is(err, metrics.ErrDuplicateID) {
			s.log.Error("aborting run", "at", ev.At, "err", err)
			s.abort(err)
			return err
		}
		if !errors.Is(err, metrics.ErrUnknownPacket) {
			s.log.Warn("event rejected", "kind", ev.Kind, "err", err)
		}
		return err
	}
	if s.trace != nil {
		if err := s.trace.RecordEvent(ev); err != nil {
			s.traceErrs++
			if s.traceErrs == 1 {
				s.log.Warn("trace write failed", "err", err)
			}
		}
	}
	return nil
}

func (s *Simulator) heartbeat(ctx context.Context) {
	log := logging.FromContext(ctx)
	at := s.sched.Now()
	log.Info("current simulated time", "seconds", at.Seconds())
	if err := s.out.WriteStatus(ctx, at); err != nil {
		log.Warn("status write failed", "err", err)
	}
}

// finish emits the summary and the charts. It runs once per simulator.
func (s *Simulator) finish(ctx context.Context) {
	if s.finished > 0 {
		return
	}
	s.finished++
	// sink failures are logged by the engine
	_ = s.engine.EmitSummary(ctx, s.out.Sinks()...)

	if !s.cfg.Charts.Enabled || s.charts == nil {
		return
	}
	data := BuildChartData(s.engine.Generated(), s.nodes)
	if err := s.charts.WriteCharts(ctx, data); err != nil {
		logging.FromContext(ctx).Warn("chart export failed", "err", err)
	}
}

// Finished reports how many times the terminal action ran.
func (s *Simulator) Finished() int { return s.finished }

// Now returns the virtual clock. Call it only from the Run goroutine or
// after Run returned.
func (s *Simulator) Now() time.Duration { return s.sched.Now() }
