// Package server assembles the Poltergeist HTTP surface: the MCP endpoint,
// the informational root route, health probes and the Prometheus metrics
// endpoint, all behind the tracing middleware.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/poltergeist-ai/poltergeist/internal/config"
	"github.com/poltergeist-ai/poltergeist/internal/health"
	"github.com/poltergeist-ai/poltergeist/internal/observe"
	"github.com/poltergeist-ai/poltergeist/internal/tools"
)

const shutdownTimeout = 10 * time.Second

// Server wires the MCP server and the surrounding HTTP routes together.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	version string
	httpSrv *http.Server
	mcpSrv  *mcp.Server
}

// New builds the server. Each entry of toolsets is registered with the MCP
// server in order; metrics may be nil in tests.
func New(cfg *config.Config, log *slog.Logger, m *observe.Metrics, version string, toolsets ...[]tools.Tool) *Server {
	mcpSrv := mcp.NewServer(&mcp.Implementation{
		Name:    "poltergeist",
		Title:   "Poltergeist Shopping Tools",
		Version: version,
	}, nil)
	for _, ts := range toolsets {
		tools.Register(mcpSrv, m, ts...)
	}

	s := &Server{cfg: cfg, log: log, version: version, mcpSrv: mcpSrv}
	s.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(m)(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// routes builds the route table around the MCP handler.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	h := health.New(
		health.CredentialChecker("search", s.cfg.HasSearchCredentials),
		health.CredentialChecker("commerce", s.cfg.HasCommerceCredentials),
		health.CredentialChecker("datastore", s.cfg.HasDatastoreCredentials),
	)
	h.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpSrv
	}, nil)
	mux.Handle(s.cfg.Server.MCPPath, mcpHandler)
	mux.Handle(s.cfg.Server.MCPPath+"/", mcpHandler)

	return mux
}

// handleRoot serves the informational root document.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message":  "Poltergeist Server is alive!",
		"version":  s.version,
		"mcp_path": s.cfg.Server.MCPPath,
	})
}

// Handler exposes the fully assembled HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("listening", "addr", s.cfg.Server.ListenAddr, "mcp_path", s.cfg.Server.MCPPath)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
