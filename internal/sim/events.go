package sim

import (
	"errors"
	"fmt"
	"time"

	"fanet-sim/internal/metrics"
	"fanet-sim/internal/packet"
)

// ErrUnknownEvent is returned by Apply for an event kind it cannot route.
var ErrUnknownEvent = errors.New("unknown event kind")

// EventKind names a collaborator event fed into the metrics engine.
type EventKind string

const (
	EventGenerated     EventKind = "packet_generated"
	EventArrived       EventKind = "packet_arrived"
	EventControl       EventKind = "control_packet"
	EventCollision     EventKind = "collision"
	EventMACDelay      EventKind = "mac_delay"
	EventQueueLength   EventKind = "queue_length"
	EventPriorityDelay EventKind = "priority_delay"
	EventCounter       EventKind = "counter"
)

// Event is one fact reported by a network layer. Only the fields relevant to
// Kind are set. Events are the unit of the JSONL trace.
type Event struct {
	Kind       EventKind      `json:"kind"`
	At         time.Duration  `json:"at"`
	Packet     *packet.Record `json:"packet,omitempty"`
	PacketID   uint64         `json:"packet_id,omitempty"`
	Hops       int            `json:"hops,omitempty"`
	Throughput float64        `json:"throughput_bps,omitempty"`
	Count      int            `json:"count,omitempty"`
	Delay      time.Duration  `json:"delay,omitempty"`
	NodeID     int            `json:"node_id,omitempty"`
	Length     int            `json:"length,omitempty"`
	Priority   int            `json:"priority,omitempty"`
	Key        string         `json:"key,omitempty"`
}

// Apply routes ev to the matching engine operation.
func Apply(eng *metrics.Engine, ev Event) error {
	switch ev.Kind {
	case EventGenerated:
		if ev.Packet == nil {
			return fmt.Errorf("%s event at %v without packet", ev.Kind, ev.At)
		}
		return eng.RegisterGenerated(*ev.Packet)
	case EventArrived:
		return eng.RegisterArrived(ev.PacketID, ev.At, ev.Hops, ev.Throughput)
	case EventControl:
		eng.RecordControlPacket(ev.Count)
	case EventCollision:
		eng.RecordCollision(ev.Count)
	case EventMACDelay:
		eng.RecordMACDelay(ev.Delay)
	case EventQueueLength:
		eng.RecordQueueLength(ev.NodeID, ev.At, ev.Length)
	case EventPriorityDelay:
		eng.RecordPriorityDelay(ev.Priority, ev.Delay)
	case EventCounter:
		if ev.Key == "" {
			return fmt.Errorf("%s event at %v without key", ev.Kind, ev.At)
		}
		if ev.Key == metrics.KeyGenerated {
			return fmt.Errorf("%s event at %v: %w %q", ev.Kind, ev.At, metrics.ErrReservedCounter, ev.Key)
		}
		eng.Count(ev.Key, int64(ev.Count))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	return nil
}
