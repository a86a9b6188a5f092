// Package server exposes the HTTP and websocket surface: upload and chunk
// intake, result read-back, session discovery, health, metrics, and the
// streaming socket protocol.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otherjamesbrown/confab/config"
	"github.com/otherjamesbrown/confab/pkg/buildinfo"
	"github.com/otherjamesbrown/confab/pkg/coordinator"
	"github.com/otherjamesbrown/confab/pkg/events"
	"github.com/otherjamesbrown/confab/pkg/ingest"
	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/observability"
	"github.com/otherjamesbrown/confab/pkg/session"
)

// Server wires the handlers over the store, coordinator, and event hub.
type Server struct {
	cfg       *config.ServerConfig
	store     *session.Store
	coord     *coordinator.Coordinator
	hub       *events.Hub
	validator *ingest.Validator
	saver     *ingest.Saver

	logger   logging.Logger
	metrics  *observability.Metrics
	registry prometheus.Gatherer

	httpServer *http.Server
}

// New creates the server. registry may be nil to serve the default
// Prometheus gatherer on /metrics.
func New(cfg *config.ServerConfig, store *session.Store, coord *coordinator.Coordinator,
	hub *events.Hub, validator *ingest.Validator, saver *ingest.Saver,
	logger logging.Logger, metrics *observability.Metrics, registry prometheus.Gatherer) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if registry == nil {
		registry = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:       cfg,
		store:     store,
		coord:     coord,
		hub:       hub,
		validator: validator,
		saver:     saver,
		logger:    logger.With(logging.F("component", "server")),
		metrics:   metrics,
		registry:  registry,
	}
}

// Routes builds the request multiplexer. Exposed for tests.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/chunk", s.handleChunk)
	mux.HandleFunc("GET /api/results/latest", s.handleLatestResults)
	mux.HandleFunc("GET /api/results/{session_id}", s.handleResults)
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/status/{session_id}", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /version", buildinfo.Handler("confab"))
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return mux
}

// ListenAndServe runs the server until the listener fails or Shutdown is
// called. It always returns a non-nil error; http.ErrServerClosed means a
// clean shutdown.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", logging.F("address", s.cfg.ListenAddress))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
