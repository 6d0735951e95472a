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
	"path/filepath"
	"syscall"

	"github.com/iconidentify/ultragrab/internal/api"
	"github.com/iconidentify/ultragrab/internal/api/handler"
	"github.com/iconidentify/ultragrab/internal/config"
	"github.com/iconidentify/ultragrab/internal/extractor"
	"github.com/iconidentify/ultragrab/internal/metrics"
	"github.com/iconidentify/ultragrab/internal/relay"
	"github.com/iconidentify/ultragrab/internal/repository"
	"github.com/iconidentify/ultragrab/internal/service"
	"github.com/iconidentify/ultragrab/internal/worker"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ultragrab %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ultragrab",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	provider, err := extractor.New(cfg.Extractor, logger)
	if err != nil {
		logger.Error("failed to create extractor", "error", err)
		os.Exit(1)
	}

	rl := relay.New(cfg.Relay, m)
	rl.SetLogger(logger)

	// Optional download history
	var (
		historyRepo repository.HistoryRepository
		pruner      *worker.Pruner
	)
	if cfg.History.Enabled() {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0755); err != nil {
			logger.Error("failed to create history directory", "error", err)
			os.Exit(1)
		}
		repo, err := repository.NewSQLiteHistoryRepository(context.Background(), cfg.History.Path)
		if err != nil {
			logger.Error("failed to open history database", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		historyRepo = repo

		pruner = worker.NewPruner(worker.Config{
			Interval:  cfg.History.PruneInterval,
			Retention: cfg.History.Retention,
		}, repo, m, logger)
		pruner.Start()
	}

	// Initialize services
	historySvc := service.NewHistoryService(historyRepo, logger)
	mediaSvc := service.NewMediaService(provider, rl, historySvc, m, cfg.Extractor, logger)

	// Initialize handlers
	mediaHandler := handler.NewMediaHandler(mediaSvc, logger)
	historyHandler := handler.NewHistoryHandler(historySvc, logger)
	healthHandler := handler.NewHealthHandler(historySvc, rl, cfg.History.Path, provider.Name())
	uiHandler := handler.NewUIHandler()

	// Setup router
	router := api.NewRouter(mediaHandler, historyHandler, healthHandler, uiHandler, m, cfg.Server.CORSOrigins, logger)

	// No WriteTimeout: a download lasts as long as the origin keeps sending.
	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server",
			"addr", srv.Addr,
			"backend", provider.Name(),
			"fallback", cfg.Relay.FallbackEnabled(),
			"history", historySvc.Enabled(),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting new requests; in-flight downloads get the shutdown timeout.
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if pruner != nil {
		if err := pruner.Stop(cfg.Server.ShutdownTimeout); err != nil {
			logger.Error("history pruner shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
