package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fileshare/internal/chat"
	"fileshare/internal/config"
	"fileshare/internal/database"
	"fileshare/internal/database/migration"
	"fileshare/internal/eventbus"
	"fileshare/internal/filestore"
	handlers "fileshare/internal/http/handler"
	"fileshare/internal/http/middleware"
	"fileshare/internal/metrics"
	"fileshare/internal/otel"
	"fileshare/internal/repository"
	"fileshare/internal/repository/postgres"
	"fileshare/internal/service"
	"fileshare/internal/sharelink"
	"fileshare/internal/stats"
	"fileshare/internal/storage"
	"fileshare/internal/ws"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// PostgreSQL is optional: without DB_HOST all state is memory-only.
	var db *sql.DB
	var repo repository.FileRepository
	if cfg.Database.Host != "" {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := migration.EnsureMigrated(ctx, db); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		repo = postgres.NewFilePostgres(db)
	}

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Core state: event bus, file tree, share links, chat.
	bus := eventbus.New()
	store := filestore.New(bus, repo)
	if err := store.Load(ctx); err != nil {
		log.Fatalf("failed to load file metadata: %v", err)
	}

	links := sharelink.New(store)
	store.SetRevoker(links)

	room := chat.NewRoom(bus, store)
	agg := stats.New(store)
	svc := service.NewTransferService(objStore, store, links, room)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to initialize prometheus middleware: %v", err)
	}
	m, err := metrics.New(reg)
	if err != nil {
		log.Fatalf("failed to initialize metrics: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Upload.MaxSizeBytes),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, db, cfg, svc, store, agg, m)

	wsHandler := ws.NewHandler(room, bus, cfg.Chat.HistoryReplay, m)
	app.Use("/ws", wsHandler.Upgrade())
	app.Get("/ws", wsHandler.Serve())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Expired share tokens are swept in the background until shutdown.
	sweepStop := make(chan struct{})
	go links.SweepEvery(cfg.Share.SweepInterval, sweepStop)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		close(sweepStop)
		_ = app.Shutdown()
	}()

	addr := cfg.AppHost + ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
