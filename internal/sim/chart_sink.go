package sim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"fanet-sim/internal/packet"
)

// Chart file names written by PlotChartSink.
const (
	ChartPacketSizes      = "packet_sizes.png"
	ChartPacketTypes      = "packet_types.png"
	ChartPacketPriorities = "packet_priorities.png"
	ChartNodeCapacity     = "node_capacity.png"
)

const defaultBins = 30

// Count is one bar of a categorical chart.
type Count struct {
	Label string
	N     int
}

// ChartData is the end-of-run dataset behind the charts.
type ChartData struct {
	SizesMB    []float64
	Types      []Count // sorted by label
	Priorities []Count // sorted by priority
	Capacities []float64
}

// Empty reports whether a source dataset is missing: no packets were sampled
// or there are no nodes. Such a run gets no charts at all.
func (d ChartData) Empty() bool {
	return len(d.SizesMB) == 0 || len(d.Capacities) == 0
}

// BuildChartData collects packet attributes and node capacities.
func BuildChartData(records []packet.Record, nodes []Node) ChartData {
	var d ChartData
	types := map[packet.Type]int{}
	prios := map[int]int{}
	for _, r := range records {
		d.SizesMB = append(d.SizesMB, r.SizeMB)
		types[r.Type]++
		prios[r.Priority]++
	}
	for _, n := range nodes {
		d.Capacities = append(d.Capacities, n.ComputeCapacity)
	}

	labels := make([]string, 0, len(types))
	for t := range types {
		labels = append(labels, string(t))
	}
	sort.Strings(labels)
	for _, l := range labels {
		d.Types = append(d.Types, Count{Label: l, N: types[packet.Type(l)]})
	}

	keys := make([]int, 0, len(prios))
	for p := range prios {
		keys = append(keys, p)
	}
	sort.Ints(keys)
	for _, p := range keys {
		d.Priorities = append(d.Priorities, Count{Label: strconv.Itoa(p), N: prios[p]})
	}
	return d
}

// PlotChartSink renders ChartData as PNG files in a directory.
type PlotChartSink struct {
	dir  string
	bins int
}

// NewPlotChartSink creates a chart sink writing into dir. Non-positive bins
// use the default.
func NewPlotChartSink(dir string, bins int) *PlotChartSink {
	if bins <= 0 {
		bins = defaultBins
	}
	return &PlotChartSink{dir: dir, bins: bins}
}

// WriteCharts writes the four chart files. Empty data writes nothing and
// creates no directory.
func (c *PlotChartSink) WriteCharts(ctx context.Context, d ChartData) error {
	if d.Empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return errors.Join(
		c.histogram(ChartPacketSizes, "Packet sizes", "size (MB)", d.SizesMB),
		c.bars(ChartPacketTypes, "Packet types", "type", d.Types),
		c.bars(ChartPacketPriorities, "Packet priorities", "priority", d.Priorities),
		c.histogram(ChartNodeCapacity, "Node compute capacity", "capacity", d.Capacities),
	)
}

func (c *PlotChartSink) histogram(file, title, xLabel string, xs []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "count"
	h, err := plotter.NewHist(plotter.Values(xs), c.bins)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	p.Add(h)
	return c.save(p, file)
}

func (c *PlotChartSink) bars(file, title, xLabel string, counts []Count) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "count"
	vals := make(plotter.Values, len(counts))
	names := make([]string, len(counts))
	for i, c := range counts {
		vals[i] = float64(c.N)
		names[i] = c.Label
	}
	b, err := plotter.NewBarChart(vals, vg.Points(20))
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	p.Add(b)
	p.NominalX(names...)
	return c.save(p, file)
}

func (c *PlotChartSink) save(p *plot.Plot, file string) error {
	if err := p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(c.dir, file)); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	return nil
}
