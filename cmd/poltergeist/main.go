// Command poltergeist is the main entry point for the Poltergeist shopping
// tool server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poltergeist-ai/poltergeist/internal/config"
	"github.com/poltergeist-ai/poltergeist/internal/observe"
	"github.com/poltergeist-ai/poltergeist/internal/server"
	"github.com/poltergeist-ai/poltergeist/internal/tools/cart"
	"github.com/poltergeist-ai/poltergeist/internal/tools/catalog"
	"github.com/poltergeist-ai/poltergeist/internal/tools/checkout"
	"github.com/poltergeist-ai/poltergeist/internal/tools/research"
	"github.com/poltergeist-ai/poltergeist/internal/tools/spending"
	"github.com/poltergeist-ai/poltergeist/internal/tools/status"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poltergeist: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("poltergeist starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"mcp_path", cfg.Server.MCPPath,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	printCredentialSummary(cfg)

	// ── Server ────────────────────────────────────────────────────────────────
	// Each toolset talks to its upstream through an instrumented client so
	// provider request and error counts land on the standard instruments.
	searchHTTP := observe.ProviderHTTPClient("firecrawl", metrics)
	commerceHTTP := observe.ProviderHTTPClient("rye", metrics)
	datastoreHTTP := observe.ProviderHTTPClient("supabase", metrics)

	srv := server.New(cfg, logger, metrics, version,
		status.Tools(),
		research.New(cfg, research.WithHTTPClient(searchHTTP)).Tools(),
		catalog.New(cfg, catalog.WithHTTPClient(commerceHTTP)).Tools(),
		cart.New(cfg, cart.WithHTTPClient(commerceHTTP)).Tools(),
		checkout.New(cfg,
			checkout.WithCommerceHTTPClient(commerceHTTP),
			checkout.WithDatastoreHTTPClient(datastoreHTTP),
		).Tools(),
		spending.New(cfg, spending.WithHTTPClient(datastoreHTTP)).Tools(),
	)

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// printCredentialSummary logs which provider credentials the process found.
// The server runs with partial credentials; individual tools report
// config_missing failures when invoked without theirs.
func printCredentialSummary(cfg *config.Config) {
	slog.Info("provider credentials",
		"search", cfg.HasSearchCredentials(),
		"commerce", cfg.HasCommerceCredentials(),
		"datastore", cfg.HasDatastoreCredentials(),
	)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
