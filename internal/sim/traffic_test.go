package sim

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"fanet-sim/internal/config"
	"fanet-sim/internal/metrics"
	"fanet-sim/internal/packet"
	"fanet-sim/internal/sched"
)

func runTraffic(t *testing.T, tc config.Traffic, n int, until time.Duration) (*metrics.Engine, map[EventKind]int) {
	t.Helper()
	cfg := config.Default()
	sampler, err := packet.NewSampler(cfg.TypeMix(), cfg.PriorityMap(), rand.NewPCG(5, 5))
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	nodes := BuildNodes(testSpec(n), rand.New(rand.NewPCG(6, 6)))
	tr := NewTraffic(tc, nodes, sampler, rand.New(rand.NewPCG(7, 7)))

	eng := newTestEngine()
	kinds := map[EventKind]int{}
	s := sched.New()
	tr.Start(s, func(ev Event) error {
		kinds[ev.Kind]++
		return Apply(eng, ev)
	})
	if err := s.RunUntil(context.Background(), until); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if uint64(eng.ComputeSummary().Generated) != tr.Generated() {
		t.Fatalf("engine saw %d packets, traffic generated %d", eng.ComputeSummary().Generated, tr.Generated())
	}
	return eng, kinds
}

func TestTrafficLosslessRun(t *testing.T) {
	tc := config.Default().Traffic
	tc.GenerationInterval = time.Second
	tc.DeliveryProbability = 1
	tc.CollisionProbability = 0
	tc.MaxHops = 3

	eng, kinds := runTraffic(t, tc, 3, 10*time.Second)
	s := eng.ComputeSummary()
	if s.Generated < 30 || s.Generated > 33 {
		t.Fatalf("generated %d packets, want about 30", s.Generated)
	}
	if s.Delivered > s.Generated {
		t.Fatalf("delivered %d of %d", s.Delivered, s.Generated)
	}
	// only packets still in flight at the end may be missing
	delivered := map[uint64]bool{}
	for _, d := range eng.Deliveries() {
		delivered[d.PacketID] = true
	}
	for _, rec := range eng.Generated() {
		if rec.GeneratedAt <= 5*time.Second && !delivered[rec.ID] {
			t.Fatalf("packet %d generated at %v never arrived", rec.ID, rec.GeneratedAt)
		}
	}
	if s.Collisions != 0 || eng.Value(CounterRetransmits, 0) != 0 {
		t.Fatalf("unexpected collisions %d", s.Collisions)
	}
	if s.ControlPackets != 30 {
		t.Fatalf("control packets = %d, want 3 drones x 10 beacons", s.ControlPackets)
	}
	if s.QueueSamples != 30 {
		t.Fatalf("queue samples = %d, want 30", s.QueueSamples)
	}
	for _, d := range eng.Deliveries() {
		if d.Hops < 1 || d.Hops > 3 {
			t.Fatalf("packet %d took %d hops", d.PacketID, d.Hops)
		}
		if d.Throughput <= 0 {
			t.Fatalf("packet %d throughput %v", d.PacketID, d.Throughput)
		}
	}
	if kinds[EventPriorityDelay] != s.Delivered {
		t.Fatalf("%d priority samples for %d deliveries", kinds[EventPriorityDelay], s.Delivered)
	}
}

func TestTrafficCollisionsAndDrops(t *testing.T) {
	tc := config.Default().Traffic
	tc.GenerationInterval = 100 * time.Millisecond
	tc.DeliveryProbability = 0.5
	tc.CollisionProbability = 0.5

	eng, kinds := runTraffic(t, tc, 6, 5*time.Second)
	s := eng.ComputeSummary()
	if s.Collisions == 0 {
		t.Fatalf("expected collisions")
	}
	if got := eng.Value(CounterRetransmits, 0); got != s.Collisions {
		t.Fatalf("retransmits %d != collisions %d", got, s.Collisions)
	}
	if eng.Value(CounterDropped, 0) == 0 {
		t.Fatalf("expected dropped packets")
	}
	if kinds[EventMACDelay] < s.Generated {
		t.Fatalf("%d MAC samples for %d packets", kinds[EventMACDelay], s.Generated)
	}
	if pdr, _ := s.PDR.Float64(); pdr < 0 || pdr > 100 {
		t.Fatalf("PDR = %v", pdr)
	}
}
