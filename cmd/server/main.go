package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackmichael/space-feeds/internal/cache"
	"github.com/blackmichael/space-feeds/internal/config"
	"github.com/blackmichael/space-feeds/internal/domain"
	"github.com/blackmichael/space-feeds/internal/httpserver"
	"github.com/blackmichael/space-feeds/internal/nasa"
	"github.com/blackmichael/space-feeds/internal/postgres"
	"github.com/blackmichael/space-feeds/internal/realtime"
	"github.com/blackmichael/space-feeds/internal/sqlite"
)

type closableStore interface {
	domain.Store
	io.Closer
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Info("connected to database", "postgres", cfg.UsesPostgres())

	responses, err := cache.Open(cfg.CachePath, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("open response cache: %w", err)
	}
	defer responses.Close()

	client := nasa.NewClient(nasa.Options{
		APIURL:    cfg.NASAAPIURL,
		ImagesURL: cfg.NASAImagesURL,
		APIKey:    cfg.NASAAPIKey,
		RateLimit: cfg.NASARateLimit,
		RateBurst: cfg.NASARateBurst,
		Cache:     responses,
	}, logger)

	hub := realtime.NewHub(logger)
	defer hub.Close()

	feedService, err := domain.NewFeedService(
		domain.DefaultLanes(),
		domain.Sources{Library: client, PictureOfDay: client, NearEarth: client},
		store,
		domain.Options{
			Location:    cfg.Location(),
			CallTimeout: cfg.NASACallTimeout,
			Notifier:    hub,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("create feed service: %w", err)
	}

	seed := feedService.Seed()
	logger.Info("daily seed ready", "date", seed.Date, "day_key", seed.DayKey)

	// Start background cache pruning
	go responses.StartPruneJob(ctx, cfg.CachePruneInterval, logger)

	// Start the HTTP server
	server := httpserver.NewServer(cfg, feedService, hub, logger)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port, "timezone", cfg.Location().String())

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (closableStore, error) {
	if cfg.UsesPostgres() {
		return postgres.NewRepository(ctx, cfg.DatabaseURL)
	}
	return sqlite.Open(ctx, cfg.DatabaseURL)
}
