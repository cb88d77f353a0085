package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/PratikDhanave/abtest-service/internal/config"
	"github.com/PratikDhanave/abtest-service/internal/httpserver"
	"github.com/PratikDhanave/abtest-service/internal/store"
	"github.com/PratikDhanave/abtest-service/internal/telemetry"
)

// main boots the service: config → logger → tracing → DB → schema → HTTP server.
func main() {
	// Load runtime config from environment (DATABASE_URL, HTTP_ADDR, ...).
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("tracer shutdown failed", "error", err)
		}
	}()

	arms, err := config.LoadArms(cfg.ArmsPath)
	if err != nil {
		return err
	}

	// Postgres when DATABASE_URL is set, otherwise the embedded SQLite file.
	db, err := store.Open(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	// Ensure required tables/indexes exist so a fresh database works out of the box.
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := httpserver.NewRouter(httpserver.Deps{
		Store:       db,
		Arms:        arms,
		ServiceName: cfg.ServiceName,
		Registry:    registry,
	})

	return httpserver.Run(ctx, cfg.HTTPAddr, router, cfg.ShutdownTimeout)
}
