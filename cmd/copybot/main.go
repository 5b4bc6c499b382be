// Package main runs the copy-trading bot:
// - Source (continuous): Data-API poller or CLOB websocket stream
// - Copier: strategy engine per tracked trader → executor → broker
// - HTTP: /health and Prometheus /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"polycopy/internal/config"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	configPath := flag.String("config", envOr("COPYBOT_CONFIG", "config.yaml"), "Path to YAML configuration")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", envOr("LOG_FORMAT", "text"), "Log format (text, json)")
	storageBackend := flag.String("storage", os.Getenv("STORAGE_BACKEND"), "Override storage backend (memory, postgres)")
	paperMode := flag.Bool("paper", false, "Force paper trading regardless of config")

	flag.Parse()

	logger := newLogger(*logLevel, *logFormat)
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("load config failed", "path", *configPath, "err", err)
		os.Exit(1)
	}
	if *storageBackend != "" {
		cfg.Storage.Backend = *storageBackend
	}
	if *paperMode {
		cfg.Executor.Mode = config.ExecutorPaper
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("copybot stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// run builds the bot and blocks until ctx is cancelled or a component fails.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	b, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	b.healthCheck(ctx)

	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           b.httpHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return b.source.Run(gctx)
	})

	logger.Info("copybot started",
		"mode", cfg.Executor.Mode,
		"source", cfg.Source.Mode,
		"storage", cfg.Storage.Backend,
		"targets", len(b.router.Targets()),
	)

	return g.Wait()
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadEnvFile loads KEY=VALUE pairs from .env without overriding the
// environment.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
