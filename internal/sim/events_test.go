package sim

import (
	"errors"
	"testing"
	"time"

	"fanet-sim/internal/logging"
	"fanet-sim/internal/metrics"
	"fanet-sim/internal/packet"
)

func newTestEngine() *metrics.Engine {
	return metrics.NewEngine(metrics.UnitMilliseconds, logging.Discard())
}

func TestApplyRoutesEvents(t *testing.T) {
	eng := newTestEngine()
	rec := packet.Record{ID: 1, Type: packet.TypeText, SizeMB: 0.1, Priority: 2}
	events := []Event{
		{Kind: EventGenerated, Packet: &rec},
		{Kind: EventArrived, At: 4 * time.Millisecond, PacketID: 1, Hops: 2, Throughput: 8000},
		{Kind: EventControl, Count: 3},
		{Kind: EventCollision, Count: 1},
		{Kind: EventMACDelay, Delay: time.Millisecond},
		{Kind: EventQueueLength, NodeID: 2, Length: 5},
		{Kind: EventPriorityDelay, Priority: 2, Delay: 4 * time.Millisecond},
		{Kind: EventCounter, Key: "retransmits", Count: 5},
	}
	for _, ev := range events {
		if err := Apply(eng, ev); err != nil {
			t.Fatalf("Apply(%s): %v", ev.Kind, err)
		}
	}
	s := eng.ComputeSummary()
	if s.Generated != 1 || s.Delivered != 1 || s.ControlPackets != 3 || s.Collisions != 1 || s.QueueSamples != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if v, _ := s.AvgE2EDelay.Float64(); v != 4 {
		t.Fatalf("delay = %v, want 4", v)
	}
	if eng.Value("retransmits", 0) != 5 {
		t.Fatalf("retransmits = %d", eng.Value("retransmits", 0))
	}
}

func TestApplyErrors(t *testing.T) {
	eng := newTestEngine()
	if err := Apply(eng, Event{Kind: "teleport"}); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("err = %v, want ErrUnknownEvent", err)
	}
	if err := Apply(eng, Event{Kind: EventGenerated}); err == nil {
		t.Fatalf("expected error for generated event without packet")
	}
	if err := Apply(eng, Event{Kind: EventCounter, Count: 1}); err == nil {
		t.Fatalf("expected error for counter event without key")
	}
	if err := Apply(eng, Event{Kind: EventArrived, PacketID: 9}); !errors.Is(err, metrics.ErrUnknownPacket) {
		t.Fatalf("err = %v, want ErrUnknownPacket", err)
	}
	if err := Apply(eng, Event{Kind: EventCounter, Key: metrics.KeyGenerated, Count: 4}); !errors.Is(err, metrics.ErrReservedCounter) {
		t.Fatalf("err = %v, want ErrReservedCounter", err)
	}
	if got := eng.Value(metrics.KeyGenerated, 0); got != 0 {
		t.Fatalf("generated counter = %d, want 0", got)
	}
}
