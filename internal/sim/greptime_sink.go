package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"fanet-sim/internal/metrics"
)

const (
	defaultGreptimePort = 4001
	summaryTable        = "fanet_run_summary"
	queueTable          = "fanet_queue_length"
	deliveryTable       = "fanet_delivery"
)

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// SeriesSource exposes the per-event logs of a run.
type SeriesSource interface {
	QueueSamples() []metrics.QueueSample
	Deliveries() []metrics.Delivery
}

// GreptimeSink writes the run summary, the queue-length series and the
// delivery series to GreptimeDB via the ingester client.
type GreptimeSink struct {
	client greptimeClient
	runID  string
	start  time.Time
	series SeriesSource
	now    func() time.Time
}

// NewGreptimeSink connects to endpoint ("host" or "host:port"). Series rows
// are stamped relative to start. series may be nil to skip them.
func NewGreptimeSink(endpoint, database, runID string, start time.Time, series SeriesSource) (*GreptimeSink, error) {
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime endpoint %q: %w", endpoint, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeSink{client: client, runID: runID, start: start, series: series, now: time.Now}, nil
}

// SetSeriesSource attaches the run logs once the engine exists.
func (w *GreptimeSink) SetSeriesSource(src SeriesSource) { w.series = src }

// WriteSummary inserts one summary row and, when a series source is set, the
// queue-length and delivery series.
func (w *GreptimeSink) WriteSummary(ctx context.Context, s metrics.Summary) error {
	tables := []*table.Table{}
	tbl, err := w.summaryTable(s)
	if err != nil {
		return err
	}
	tables = append(tables, tbl)

	var samples []metrics.QueueSample
	var deliveries []metrics.Delivery
	if w.series != nil {
		samples = w.series.QueueSamples()
		deliveries = w.series.Deliveries()
	}
	if len(samples) > 0 {
		qt, err := w.queueTable(samples)
		if err != nil {
			return err
		}
		tables = append(tables, qt)
	}
	if len(deliveries) > 0 {
		dt, err := w.deliveryTable(deliveries)
		if err != nil {
			return err
		}
		tables = append(tables, dt)
	}

	if _, err := w.client.Write(ctx, tables...); err != nil {
		return err
	}
	slog.Debug("wrote run to greptimedb", "run_id", w.runID, "queue_rows", len(samples), "delivery_rows", len(deliveries))
	return nil
}

func (w *GreptimeSink) summaryTable(s metrics.Summary) (*table.Table, error) {
	tbl, err := table.New(summaryTable)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return nil, err
	}
	for _, col := range []string{"generated", "delivered", "collisions", "control_packets"} {
		if err := tbl.AddFieldColumn(col, types.INT64); err != nil {
			return nil, err
		}
	}
	for _, col := range []string{"pdr_percent", "avg_e2e_delay_ms", "routing_load", "avg_throughput_kbps", "avg_hop_count", "avg_mac_delay_ms"} {
		if err := tbl.AddFieldColumn(col, types.FLOAT64); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}

	// delays are stored in ms whatever the display unit
	delay := s.AvgE2EDelay
	if v, ok := delay.Float64(); ok && s.DelayUnit != metrics.UnitMilliseconds {
		delay = metrics.Defined(v * msPer(s.DelayUnit))
	}
	err = tbl.AddRow(
		w.runID,
		int64(s.Generated),
		int64(s.Delivered),
		s.Collisions,
		s.ControlPackets,
		nullable(s.PDR),
		nullable(delay),
		nullable(s.RoutingLoad),
		nullable(s.AvgThroughputKbps),
		nullable(s.AvgHopCount),
		nullable(s.AvgMACDelayMs),
		w.now(),
	)
	return tbl, err
}

func (w *GreptimeSink) queueTable(samples []metrics.QueueSample) (*table.Table, error) {
	tbl, err := table.New(queueTable)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("node_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("length", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, q := range samples {
		if err := tbl.AddRow(w.runID, strconv.Itoa(q.NodeID), int64(q.Length), w.start.Add(q.At)); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func (w *GreptimeSink) deliveryTable(deliveries []metrics.Delivery) (*table.Table, error) {
	tbl, err := table.New(deliveryTable)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("packet_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("hops", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("throughput_kbps", types.FLOAT64); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, d := range deliveries {
		id := strconv.FormatUint(d.PacketID, 10)
		if err := tbl.AddRow(w.runID, id, int64(d.Hops), d.Throughput/1e3, w.start.Add(d.ArrivedAt)); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// nullable maps undefined figures to a NULL cell.
func nullable(v metrics.Value) any {
	if f, ok := v.Float64(); ok {
		return f
	}
	return nil
}

func msPer(u metrics.DelayUnit) float64 {
	switch u {
	case metrics.UnitMicroseconds:
		return 1e-3
	case metrics.UnitSeconds:
		return 1e3
	}
	return 1
}
