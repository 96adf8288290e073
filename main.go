package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/marioleme/gitfolio/internal/config"
	"github.com/marioleme/gitfolio/internal/contact"
	"github.com/marioleme/gitfolio/internal/ghstats"
	"github.com/marioleme/gitfolio/internal/server"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg := config.Default()
	var configFile string
	flag.StringVar(&configFile, "config", "gitfolio.yaml", "Path to YAML config file")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Freshness window for cached GitHub data")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gitfolio [flags]\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := cfg.LoadFile(configFile, true); err != nil {
		log.Fatal(err)
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, &cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("starting gitfolio",
		"addr", cfg.Addr,
		"cache_ttl", cfg.CacheTTL,
		"authenticated", cfg.GitHubToken != "",
	)

	stats := ghstats.NewService(cfg.GitHubToken, cfg.CacheTTL)

	var relay contact.Relay
	switch {
	case cfg.EmailTestMode:
		slog.Info("contact relay in test mode, messages will be logged only")
		relay = contact.DryRunRelay{}
	case cfg.RelayConfigured():
		relay = contact.NewHTTPRelay(cfg.RelayEndpoint, cfg.RelayServiceID, cfg.RelayTemplateID, cfg.RelayPublicKey)
	default:
		slog.Warn("contact relay credentials missing, falling back to test mode")
		relay = contact.DryRunRelay{}
	}

	srv := server.New(stats, relay)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
