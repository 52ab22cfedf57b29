// Package observability exports run figures as Prometheus metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fanet-sim/internal/metrics"
)

// Collector mirrors the latest run summary into Prometheus gauges. It is a
// metrics.ReportSink; when a textfile path is set every summary is also
// written in the node-exporter textfile format.
type Collector struct {
	gatherer prometheus.Gatherer
	textfile string

	Packets       *prometheus.GaugeVec // state: generated, delivered
	Collisions    prometheus.Gauge
	Control       prometheus.Gauge
	Figures       *prometheus.GaugeVec // figure
	PriorityDelay *prometheus.GaugeVec // priority
	Counters      *prometheus.GaugeVec // key
}

// NewCollector registers the run metrics against reg, defaulting to the
// global registry when nil.
func NewCollector(reg prometheus.Registerer, textfile string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	packets, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fanet_data_packets",
		Help: "Data packets of the last run, labeled by state.",
	}, []string{"state"}), "fanet_data_packets")
	if err != nil {
		return nil, err
	}
	collisions, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fanet_collisions",
		Help: "Collisions counted during the last run.",
	}), "fanet_collisions")
	if err != nil {
		return nil, err
	}
	control, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fanet_control_packets",
		Help: "Routing control packets sent during the last run.",
	}), "fanet_control_packets")
	if err != nil {
		return nil, err
	}
	figures, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fanet_run_figure",
		Help: "Derived performance figures of the last run. Undefined figures are absent.",
	}, []string{"figure"}), "fanet_run_figure")
	if err != nil {
		return nil, err
	}
	prio, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fanet_priority_delay_mean",
		Help: "Mean end-to-end delay per packet priority, in the configured delay unit.",
	}, []string{"priority"}), "fanet_priority_delay_mean")
	if err != nil {
		return nil, err
	}
	counters, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fanet_counter",
		Help: "Named counters of the last run.",
	}, []string{"key"}), "fanet_counter")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		textfile:      textfile,
		Packets:       packets,
		Collisions:    collisions,
		Control:       control,
		Figures:       figures,
		PriorityDelay: prio,
		Counters:      counters,
	}, nil
}

// WriteSummary publishes s and, if configured, writes the textfile.
func (c *Collector) WriteSummary(_ context.Context, s metrics.Summary) error {
	c.Packets.WithLabelValues("generated").Set(float64(s.Generated))
	c.Packets.WithLabelValues("delivered").Set(float64(s.Delivered))
	c.Collisions.Set(float64(s.Collisions))
	c.Control.Set(float64(s.ControlPackets))

	c.Figures.Reset()
	for name, v := range map[string]metrics.Value{
		"pdr_percent":         s.PDR,
		"avg_e2e_delay":       s.AvgE2EDelay,
		"routing_load":        s.RoutingLoad,
		"avg_throughput_kbps": s.AvgThroughputKbps,
		"avg_hop_count":       s.AvgHopCount,
		"avg_mac_delay_ms":    s.AvgMACDelayMs,
	} {
		if f, ok := v.Float64(); ok {
			c.Figures.WithLabelValues(name).Set(f)
		}
	}

	c.PriorityDelay.Reset()
	for _, p := range s.Priorities {
		if f, ok := p.Mean.Float64(); ok {
			c.PriorityDelay.WithLabelValues(strconv.Itoa(p.Priority)).Set(f)
		}
	}

	c.Counters.Reset()
	for k, v := range s.Counters {
		c.Counters.WithLabelValues(k).Set(float64(v))
	}

	if c.textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(c.textfile, c.gatherer)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
