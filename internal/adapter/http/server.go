package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/grid-status-aggregator/internal/domain"
)

// SnapshotReader is the read-only accessor to the current grid snapshot.
type SnapshotReader interface {
	Snapshot() domain.Snapshot
}

// Server exposes health, readiness, metrics, and snapshot HTTP endpoints.
type Server struct {
	httpServer *http.Server
	snapshots  SnapshotReader
	sources    []domain.SourceID
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /snapshot, and /sources routes. sources lists the polled sources in display order.
func NewServer(addr string, ready sharedobs.ReadinessChecker, snapshots SnapshotReader, sources []domain.SourceID, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		snapshots: snapshots,
		sources:   sources,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /sources", s.handleSources)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// snapshotView adds the display strings to the raw snapshot.
type snapshotView struct {
	StatusLabel      string `json:"status_label"`
	Severity         int    `json:"severity"`
	ForecastHeadline string `json:"forecast_headline"`
	domain.Snapshot
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshots.Snapshot()
	writeJSON(w, http.StatusOK, snapshotView{
		StatusLabel:      snap.StatusLabel(),
		Severity:         snap.Severity(),
		ForecastHeadline: snap.Forecast.Headline(),
		Snapshot:         snap,
	})
}

type sourceView struct {
	Source domain.SourceID `json:"source"`
	State  string          `json:"state"`
	domain.SourceHealth
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshots.Snapshot()
	out := make([]sourceView, 0, len(s.sources))
	for _, id := range s.sources {
		st := snap.Sources[id]
		out = append(out, sourceView{Source: id, State: sourceState(st), SourceHealth: st})
	}
	writeJSON(w, http.StatusOK, out)
}

// sourceState summarizes a source as ok, stale (last poll failed after an
// earlier success), failing (never succeeded), or no_data (never polled).
func sourceState(st domain.SourceHealth) string {
	switch {
	case st.LastSuccess == nil && st.LastErrorAt == nil:
		return "no_data"
	case st.LastSuccess == nil:
		return "failing"
	case st.ConsecutiveFailures > 0:
		return "stale"
	default:
		return "ok"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
