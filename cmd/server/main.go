// Command server runs the telemetry ingestion pipeline.
//
// # Usage
//
//	server [-debug] [-version]
//
// # Configuration
//
// Apart from those two flags, the server is configured through the
// environment variables enumerated in spec.md 6 (the metrics listener
// address comes from METRICS_ADDR); see internal/config for defaults.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foundry-iot/telemetry-ingest/internal/config"
	"github.com/foundry-iot/telemetry-ingest/internal/runtime"
)

func main() {
	var (
		debug   = flag.Bool("debug", false, "enable debug logging")
		version = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println("telemetry-ingest v0.1.0")
		os.Exit(0)
	}

	env := config.FromEnviron()

	logLevel := slog.LevelInfo
	_ = logLevel.UnmarshalText([]byte(env.LogLevel))
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	rt, err := runtime.New(ctx, env, logger)
	cancel()
	if err != nil {
		logger.Error("runtime initialization failed", "error", err)
		os.Exit(1)
	}
	logger.Info("runtime initialized", "region", env.Region, "environment", env.Environment)

	rt.Start(context.Background())

	httpServer := &http.Server{
		Addr:         ":8080",
		Handler:      rt.Server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:    env.MetricsAddr,
		Handler: rt.Metrics.Handler(),
	}

	go func() {
		logger.Info("starting ingestion server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ingestion server error", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		logger.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ingestion server shutdown error", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}

	rt.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}
