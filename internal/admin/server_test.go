package admin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fanet-sim/internal/logging"
	"fanet-sim/internal/metrics"
	"fanet-sim/internal/packet"
	"fanet-sim/internal/sim"
)

type fakeSource struct {
	eng   *metrics.Engine
	nodes []sim.Node
}

func (f *fakeSource) Engine() *metrics.Engine { return f.eng }
func (f *fakeSource) Nodes() []sim.Node       { return f.nodes }

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	eng := metrics.NewEngine(metrics.UnitMilliseconds, logging.Discard())
	for id := uint64(1); id <= 4; id++ {
		if err := eng.RegisterGenerated(packet.Record{ID: id, Type: packet.TypeText}); err != nil {
			t.Fatal(err)
		}
	}
	_ = eng.RegisterArrived(1, time.Millisecond, 1, 1000)
	_ = eng.RegisterArrived(2, time.Millisecond, 1, 1000)
	eng.Count("retransmits", 5)
	eng.RecordPriorityDelay(2, 4*time.Millisecond)
	eng.RecordPriorityDelay(0, time.Millisecond)
	return &fakeSource{
		eng:   eng,
		nodes: []sim.Node{{ID: 0, Role: sim.RoleSensor, Speed: 20}, {ID: 1, Role: sim.RoleDrone, Speed: 20}},
	}
}

func TestHandleSummary(t *testing.T) {
	srv := NewServer(newFakeSource(t), nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/summary", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["pdr_percent"] != float64(50) {
		t.Errorf("pdr_percent = %v, want 50", got["pdr_percent"])
	}
	if got["routing_load"] != float64(0) {
		t.Errorf("routing_load = %v, want 0", got["routing_load"])
	}
	if got["avg_mac_delay_ms"] != nil {
		t.Errorf("avg_mac_delay_ms = %v, want null", got["avg_mac_delay_ms"])
	}
}

func TestHandleCountersAndNodes(t *testing.T) {
	srv := NewServer(newFakeSource(t), nil)
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/counters", nil))
	var counters map[string]int64
	if err := json.NewDecoder(w.Body).Decode(&counters); err != nil {
		t.Fatalf("decode counters: %v", err)
	}
	if counters["generated"] != 4 || counters["retransmits"] != 5 {
		t.Errorf("unexpected counters %v", counters)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nodes", nil))
	var nodes []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&nodes); err != nil {
		t.Fatalf("decode nodes: %v", err)
	}
	if len(nodes) != 2 || nodes[1]["role"] != "mobile relay" {
		t.Errorf("unexpected nodes %v", nodes)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/priorities", nil))
	var prios []metrics.PriorityDelay
	if err := json.NewDecoder(w.Body).Decode(&prios); err != nil {
		t.Fatalf("decode priorities: %v", err)
	}
	if len(prios) != 2 || prios[0].Priority != 0 || prios[1].Samples != 1 {
		t.Errorf("unexpected priorities %+v", prios)
	}
	if v, ok := prios[1].Mean.Float64(); !ok || v != 4 {
		t.Errorf("priority 2 mean = %v, want 4", prios[1].Mean)
	}
}

func TestHandleIndexAndMetrics(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fanet_collisions 0\n"))
	})
	h := NewServer(newFakeSource(t), metricsHandler).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()
	for _, want := range []string{"Packet delivery ratio is:", "50%", "mobile relay", "undefined"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "fanet_collisions") {
		t.Errorf("metrics handler not mounted")
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown path status %d", w.Code)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("no loopback listener: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(newFakeSource(t), nil).Start(ctx, addr) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/counters")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
