// cmd/proxyd/main.go
// Package main implements the entry point for the campus content proxy.
// It initializes all components and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuskit/campus-proxy-go/internal/cache"
	"github.com/campuskit/campus-proxy-go/internal/config"
	"github.com/campuskit/campus-proxy-go/internal/metrics"
	"github.com/campuskit/campus-proxy-go/internal/server"
	"github.com/campuskit/campus-proxy-go/internal/telemetry"
	"github.com/campuskit/campus-proxy-go/internal/upstream"
)

// main initializes all components, starts the HTTP server, and handles
// graceful shutdown.
func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging for the application
	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	_, err = telemetry.InitTracer("campus-proxy")
	if err != nil {
		logger.Error("failed to initialize OpenTelemetry tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.ShutdownTracer(ctx)
	}()

	// Initialize the upstream response cache (Redis or no-op)
	var store cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		redisStore := cache.NewRedis(cfg.RedisAddr)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisStore.Ping(ctx); err != nil {
			// The cache is an optimization; run uncached rather than fail.
			logger.Warn("redis unreachable, continuing without cache", "error", err)
		} else {
			store = redisStore
			defer redisStore.Close()
		}
		cancel()
	}

	// Initialize the upstream CMS client
	up := upstream.New(cfg.UpstreamURL, store, metrics.NewMetrics())

	// Create HTTP mux with all handlers and middleware
	mux := server.NewMux(up, server.Options{
		MediaBaseURL:       cfg.MediaBaseURL,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create HTTP server with timeout configuration
	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start server in a separate goroutine
	go func() {
		logger.Info("server starting", "addr", addr, "env", cfg.Env, "upstream", cfg.UpstreamURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Handle graceful shutdown
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
