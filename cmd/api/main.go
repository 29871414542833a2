package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"docanchor/internal/backend"
	"docanchor/internal/config"
	"docanchor/internal/database"
	"docanchor/internal/database/migration"
	handlers "docanchor/internal/http/handler"
	"docanchor/internal/http/middleware"
	"docanchor/internal/ledger"
	"docanchor/internal/otel"
	"docanchor/internal/repository/postgres"
	"docanchor/internal/service"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	// Initialize OpenTelemetry tracing (OTLP exporter, disabled via env)
	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Bind ledger and blob store backends from the configured modes.
	// Remote variants get a startup health probe; a failed probe logs and
	// the process continues.
	backends, err := backend.Select(cfg)
	if err != nil {
		log.Fatalf("failed to select backends: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	// Count ledger operations alongside the HTTP metrics.
	instrumentedLedger, err := ledger.Instrument(backends.Ledger, reg)
	if err != nil {
		log.Fatalf("failed to register ledger metrics: %v", err)
	}

	// Initialize repositories and services
	docRepo := postgres.NewDocumentPostgres(db)
	anchorSvc := service.NewAnchorService(docRepo, instrumentedLedger, backends.Blob, cfg.Anchor.MaxBatchSize)
	integritySvc := service.NewIntegrityService(docRepo, instrumentedLedger, backends.Blob, cfg.Anchor.CheckConcurrency)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())

	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMW.Handler())

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, anchorSvc, integritySvc, backends, reg, cfg.Anchor.Production)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
