package sim

import (
	"math/rand/v2"
	"time"

	"fanet-sim/internal/config"
	"fanet-sim/internal/packet"
	"fanet-sim/internal/sched"
)

// Ad hoc counters maintained by the traffic model.
const (
	CounterRetransmits = "retransmits"
	CounterDropped     = "dropped"
)

// EmitFunc receives every event the traffic model produces. A non-nil error
// stops the source that produced the event.
type EmitFunc func(Event) error

// Traffic is a synthetic stand-in for the radio, MAC and routing layers. It
// generates data packets at every node, walks each one over a random number of
// hops with per-hop transmission time, MAC backoff and collisions, and reports
// the resulting facts as events.
type Traffic struct {
	cfg     config.Traffic
	nodes   []Node
	sampler *packet.Sampler
	rng     *rand.Rand

	sched  *sched.Scheduler
	emit   EmitFunc
	nextID uint64
	queues []int
	gens   []sched.Handle
}

// NewTraffic creates a traffic model over nodes.
func NewTraffic(cfg config.Traffic, nodes []Node, sampler *packet.Sampler, rng *rand.Rand) *Traffic {
	return &Traffic{
		cfg:     cfg,
		nodes:   nodes,
		sampler: sampler,
		rng:     rng,
		queues:  make([]int, len(nodes)),
	}
}

// Start registers the traffic sources on s. Node generators are staggered
// across the first generation interval.
func (t *Traffic) Start(s *sched.Scheduler, emit EmitFunc) {
	t.sched = s
	t.emit = emit
	t.gens = make([]sched.Handle, len(t.nodes))
	for i := range t.nodes {
		node := t.nodes[i]
		offset := time.Duration(t.rng.Int64N(int64(t.cfg.GenerationInterval)))
		t.gens[i] = s.ScheduleOnce(offset, func() {
			if !t.generate(node) {
				return
			}
			t.gens[node.ID] = s.SchedulePeriodic(t.cfg.GenerationInterval, func() {
				if !t.generate(node) {
					s.Cancel(t.gens[node.ID])
				}
			})
		})
	}
	s.SchedulePeriodic(t.cfg.ControlInterval, t.beacon)
	s.SchedulePeriodic(t.cfg.QueueSampleInterval, t.sampleQueues)
}

// Generated returns the number of packets handed out so far.
func (t *Traffic) Generated() uint64 { return t.nextID }

// generate creates one packet at node and schedules its outcome. It reports
// false when the generation event was rejected.
func (t *Traffic) generate(node Node) bool {
	now := t.sched.Now()
	t.nextID++
	rec := t.sampler.Sample().Record(t.nextID, now)
	if err := t.emit(Event{Kind: EventGenerated, At: now, Packet: &rec, NodeID: node.ID}); err != nil {
		return false
	}
	t.queues[node.ID]++

	hops := 1 + t.rng.IntN(t.cfg.MaxHops)
	bits := rec.SizeMB * 8e6
	perHop := time.Duration(bits / t.cfg.LinkRateBps * float64(time.Second))

	var total time.Duration
	for h := 0; h < hops; h++ {
		for {
			backoff := t.backoff()
			_ = t.emit(Event{Kind: EventMACDelay, At: now, Delay: backoff, NodeID: node.ID})
			total += backoff + perHop
			if t.rng.Float64() >= t.cfg.CollisionProbability {
				break
			}
			_ = t.emit(Event{Kind: EventCollision, At: now, Count: 1, NodeID: node.ID})
			_ = t.emit(Event{Kind: EventCounter, At: now, Key: CounterRetransmits, Count: 1})
		}
	}
	total = max(total.Round(sched.Tick), sched.Tick)

	delivered := t.rng.Float64() < t.cfg.DeliveryProbability
	t.sched.ScheduleOnce(total, func() {
		at := t.sched.Now()
		t.queues[node.ID]--
		if !delivered {
			_ = t.emit(Event{Kind: EventCounter, At: at, Key: CounterDropped, Count: 1})
			return
		}
		_ = t.emit(Event{
			Kind:       EventArrived,
			At:         at,
			PacketID:   rec.ID,
			Hops:       hops,
			Throughput: bits / total.Seconds(),
		})
		_ = t.emit(Event{Kind: EventPriorityDelay, At: at, Priority: rec.Priority, Delay: at - rec.GeneratedAt})
	})
	return true
}

func (t *Traffic) backoff() time.Duration {
	if t.cfg.MaxBackoff <= 0 {
		return 0
	}
	return time.Duration(t.rng.Int64N(int64(t.cfg.MaxBackoff) + 1)).Round(sched.Tick)
}

// beacon sends one routing control packet from every drone.
func (t *Traffic) beacon() {
	now := t.sched.Now()
	for _, d := range Drones(t.nodes) {
		_ = t.emit(Event{Kind: EventControl, At: now, Count: 1, NodeID: d.ID})
	}
}

func (t *Traffic) sampleQueues() {
	now := t.sched.Now()
	for i, n := range t.nodes {
		_ = t.emit(Event{Kind: EventQueueLength, At: now, NodeID: n.ID, Length: t.queues[i]})
	}
}
