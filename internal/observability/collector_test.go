package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"fanet-sim/internal/metrics"
	"fanet-sim/internal/packet"
)

func scenarioSummary(t *testing.T) metrics.Summary {
	t.Helper()
	eng := metrics.NewEngine(metrics.UnitMilliseconds, nil)
	for id := uint64(1); id <= 100; id++ {
		if err := eng.RegisterGenerated(packet.Record{ID: id, Type: packet.TypeVideo}); err != nil {
			t.Fatal(err)
		}
	}
	for id := uint64(1); id <= 80; id++ {
		if err := eng.RegisterArrived(id, time.Millisecond, 1, 1000); err != nil {
			t.Fatal(err)
		}
	}
	eng.RecordControlPacket(40)
	eng.RecordPriorityDelay(0, 3*time.Millisecond)
	eng.Count("retransmits", 5)
	return eng.ComputeSummary()
}

func TestCollectorPublishesSummary(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, "")
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	if err := c.WriteSummary(context.Background(), scenarioSummary(t)); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}

	if got := testutil.ToFloat64(c.Packets.WithLabelValues("generated")); got != 100 {
		t.Fatalf("generated = %v", got)
	}
	if got := testutil.ToFloat64(c.Figures.WithLabelValues("pdr_percent")); got != 80 {
		t.Fatalf("pdr = %v", got)
	}
	if got := testutil.ToFloat64(c.Figures.WithLabelValues("routing_load")); got != 0.5 {
		t.Fatalf("routing load = %v", got)
	}
	if got := testutil.ToFloat64(c.PriorityDelay.WithLabelValues("0")); got != 3 {
		t.Fatalf("priority 0 delay = %v", got)
	}
	if got := testutil.ToFloat64(c.Counters.WithLabelValues("retransmits")); got != 5 {
		t.Fatalf("retransmits = %v", got)
	}
}

func TestCollectorOmitsUndefinedFigures(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, "")
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	_ = c.WriteSummary(context.Background(), scenarioSummary(t))
	empty := metrics.NewEngine(metrics.UnitMilliseconds, nil).ComputeSummary()
	if err := c.WriteSummary(context.Background(), empty); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if n := testutil.CollectAndCount(c.Figures); n != 0 {
		t.Fatalf("%d figures published for an empty run", n)
	}
}

func TestCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewCollector(reg, "")
	if err != nil {
		t.Fatalf("first NewCollector: %v", err)
	}
	b, err := NewCollector(reg, "")
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	if a.Figures != b.Figures {
		t.Fatalf("expected the registered vector to be reused")
	}
}

func TestCollectorHandlerAndTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	path := filepath.Join(t.TempDir(), "fanet.prom")
	c, err := NewCollector(reg, path)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	if err := c.WriteSummary(context.Background(), scenarioSummary(t)); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("textfile: %v", err)
	}
	if !strings.Contains(string(data), `fanet_run_figure{figure="pdr_percent"} 80`) {
		t.Fatalf("textfile missing pdr:\n%s", data)
	}

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "fanet_control_packets 40") {
		t.Fatalf("metrics body missing control packets:\n%s", body)
	}
}
