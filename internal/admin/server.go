// Package admin serves live run figures over HTTP while a simulation runs.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"fanet-sim/internal/logging"
	"fanet-sim/internal/metrics"
	"fanet-sim/internal/sim"
)

// Source is the running simulation as seen by the server.
type Source interface {
	Engine() *metrics.Engine
	Nodes() []sim.Node
}

type Server struct {
	src     Source
	metrics http.Handler
	tpl     *template.Template
}

//go:embed templates/index.html
var content embed.FS

// NewServer creates a server over src. metricsHandler is mounted at /metrics
// when non-nil.
func NewServer(src Source, metricsHandler http.Handler) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{src: src, metrics: metricsHandler, tpl: tpl}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /counters", s.handleCounters)
	mux.HandleFunc("GET /nodes", s.handleNodes)
	mux.HandleFunc("GET /priorities", s.handlePriorities)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logging.FromContext(ctx).Info("admin server listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Lines []metrics.Line
		Nodes []sim.Node
	}{
		Lines: s.src.Engine().ComputeSummary().Lines(),
		Nodes: s.src.Nodes(),
	}
	if err := s.tpl.Execute(w, data); err != nil {
		slog.Warn("render index", "err", err)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.src.Engine().ComputeSummary())
}

func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.src.Engine().Counters())
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.src.Nodes())
}

func (s *Server) handlePriorities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.src.Engine().PriorityDelayStats())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "err", err)
	}
}
