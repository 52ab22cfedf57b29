// Package metrics aggregates network performance figures for one simulation run.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"fanet-sim/internal/packet"
)

// Delivery is the arrival fact for one data packet.
type Delivery struct {
	PacketID   uint64        `json:"packet_id"`
	ArrivedAt  time.Duration `json:"arrived_at"`
	Hops       int           `json:"hops"`
	Throughput float64       `json:"throughput_bps"`
}

// QueueSample is one observation of a node's transmit queue.
type QueueSample struct {
	NodeID int           `json:"node_id"`
	At     time.Duration `json:"at"`
	Length int           `json:"length"`
}

// ReportSink receives the computed summary at the end of a run.
type ReportSink interface {
	WriteSummary(ctx context.Context, s Summary) error
}

// Engine is the single source of truth for the derived performance figures of
// a run. The simulator is its only writer; readers such as the admin server
// may call it from other goroutines.
type Engine struct {
	mu  sync.RWMutex
	log *slog.Logger

	unit     DelayUnit
	counters *Counters

	records    []packet.Record
	generated  map[uint64]int // id -> index in records
	deliveries []Delivery
	delivered  map[uint64]struct{}

	macDelays      []time.Duration
	queueLog       []QueueSample
	priorityDelays map[int][]time.Duration
}

// NewEngine creates an empty engine. A nil logger uses slog.Default.
func NewEngine(unit DelayUnit, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if unit == "" {
		unit = UnitMilliseconds
	}
	return &Engine{
		log:            log,
		unit:           unit,
		counters:       NewCounters(),
		generated:      make(map[uint64]int),
		delivered:      make(map[uint64]struct{}),
		priorityDelays: make(map[int][]time.Duration),
	}
}

// RegisterGenerated records a newly generated data packet.
func (e *Engine) RegisterGenerated(rec packet.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.generated[rec.ID]; ok {
		return &DuplicateIDError{ID: rec.ID}
	}
	e.generated[rec.ID] = len(e.records)
	e.records = append(e.records, rec)
	e.counters.Count(KeyGenerated, 1)
	return nil
}

// RegisterArrived records the delivery of a generated packet. Arrivals for
// unknown ids are logged and ignored; a second arrival for the same id keeps
// the first fact.
func (e *Engine) RegisterArrived(id uint64, at time.Duration, hops int, throughput float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.generated[id]; !ok {
		err := &UnknownPacketError{ID: id}
		e.log.Warn("ignoring arrival", "packet_id", id, "err", err)
		return err
	}
	if _, ok := e.delivered[id]; ok {
		return nil
	}
	e.delivered[id] = struct{}{}
	e.deliveries = append(e.deliveries, Delivery{PacketID: id, ArrivedAt: at, Hops: hops, Throughput: throughput})
	return nil
}

// RecordControlPacket counts n routing control packets.
func (e *Engine) RecordControlPacket(n int) {
	e.Count(KeyControlPackets, int64(n))
}

// RecordCollision counts n collisions.
func (e *Engine) RecordCollision(n int) {
	e.Count(KeyCollisions, int64(n))
}

// RecordMACDelay appends one MAC access delay sample.
func (e *Engine) RecordMACDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.macDelays = append(e.macDelays, d)
}

// RecordQueueLength appends a queue snapshot for a node.
func (e *Engine) RecordQueueLength(nodeID int, at time.Duration, length int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queueLog = append(e.queueLog, QueueSample{NodeID: nodeID, At: at, Length: length})
}

// RecordPriorityDelay appends a delay sample to the bucket of priority.
// Negative priorities are accepted as their own buckets.
func (e *Engine) RecordPriorityDelay(priority int, delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.priorityDelays[priority] = append(e.priorityDelays[priority], delay)
}

// Count adjusts a counter by delta and returns the new value. The generated
// counter only moves through RegisterGenerated; writes to it are logged and
// ignored so it always equals the reported generated total.
func (e *Engine) Count(key string, delta int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if key == KeyGenerated {
		e.log.Warn("ignoring counter write", "key", key, "delta", delta, "err", ErrReservedCounter)
		return e.counters.Value(key, 0)
	}
	return e.counters.Count(key, delta)
}

// Value reads a counter, returning def for an ad hoc key never counted.
func (e *Engine) Value(key string, def int64) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.counters.Value(key, def)
}

// Counters returns a copy of every counter.
func (e *Engine) Counters() map[string]int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.counters.Snapshot()
}

// Generated returns the generated packets in generation order.
func (e *Engine) Generated() []packet.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]packet.Record, len(e.records))
	copy(out, e.records)
	return out
}

// Deliveries returns the delivery facts in arrival order.
func (e *Engine) Deliveries() []Delivery {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Delivery, len(e.deliveries))
	copy(out, e.deliveries)
	return out
}

// QueueSamples returns the queue-length log in insertion order.
func (e *Engine) QueueSamples() []QueueSample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]QueueSample, len(e.queueLog))
	copy(out, e.queueLog)
	return out
}

// ComputeSummary derives the run figures. It only reads engine state, so
// repeated calls without new events return identical summaries.
func (e *Engine) ComputeSummary() Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	generated := len(e.records)
	delivered := len(e.deliveries)
	control := e.counters.Value(KeyControlPackets, 0)

	s := Summary{
		Generated:      generated,
		Delivered:      delivered,
		DelayUnit:      e.unit,
		Collisions:     e.counters.Value(KeyCollisions, 0),
		ControlPackets: control,
		QueueSamples:   len(e.queueLog),
		Counters:       e.counters.Snapshot(),
	}
	if generated > 0 {
		s.PDR = Defined(float64(delivered) * 100 / float64(generated))
	}
	if delivered > 0 {
		s.RoutingLoad = Defined(float64(control) / float64(delivered))
	}

	delays := make([]float64, 0, delivered)
	throughput := make([]float64, 0, delivered)
	hops := make([]float64, 0, delivered)
	for _, d := range e.deliveries {
		rec := e.records[e.generated[d.PacketID]]
		delays = append(delays, e.unit.Scale(d.ArrivedAt-rec.GeneratedAt))
		throughput = append(throughput, d.Throughput/1e3)
		hops = append(hops, float64(d.Hops))
	}
	s.AvgE2EDelay = mean(delays)
	s.AvgThroughputKbps = mean(throughput)
	s.AvgHopCount = mean(hops)

	mac := make([]float64, len(e.macDelays))
	for i, d := range e.macDelays {
		mac[i] = UnitMilliseconds.Scale(d)
	}
	s.AvgMACDelayMs = mean(mac)

	s.Priorities = e.priorityStats()
	return s
}

// PriorityDelayStats returns the sample count and mean delay of every
// priority bucket, sorted by priority.
func (e *Engine) PriorityDelayStats() []PriorityDelay {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.priorityStats()
}

func (e *Engine) priorityStats() []PriorityDelay {
	prios := make([]int, 0, len(e.priorityDelays))
	for p := range e.priorityDelays {
		prios = append(prios, p)
	}
	sort.Ints(prios)
	var out []PriorityDelay
	for _, p := range prios {
		ds := e.priorityDelays[p]
		xs := make([]float64, len(ds))
		for i, d := range ds {
			xs[i] = e.unit.Scale(d)
		}
		out = append(out, PriorityDelay{Priority: p, Samples: len(ds), Mean: mean(xs)})
	}
	return out
}

// EmitSummary computes the summary and writes it to every sink. A failing
// sink is logged and skipped; the joined failures are returned.
func (e *Engine) EmitSummary(ctx context.Context, sinks ...ReportSink) error {
	s := e.ComputeSummary()
	var errs []error
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		if err := sink.WriteSummary(ctx, s); err != nil {
			werr := &SinkWriteError{Sink: fmt.Sprintf("%T", sink), Err: err}
			e.log.Warn("report write failed", "sink", werr.Sink, "err", err)
			errs = append(errs, werr)
		}
	}
	return errors.Join(errs...)
}

func mean(xs []float64) Value {
	if len(xs) == 0 {
		return Undefined
	}
	return Defined(stat.Mean(xs, nil))
}
