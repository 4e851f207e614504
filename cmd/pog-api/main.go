// Package main provides the planogram API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/suncare-ops/pog-engine/cmd/pog-api/handlers"
	"github.com/suncare-ops/pog-engine/internal/appstate"
	"github.com/suncare-ops/pog-engine/internal/cache"
	"github.com/suncare-ops/pog-engine/internal/catalog"
	"github.com/suncare-ops/pog-engine/internal/config"
	"github.com/suncare-ops/pog-engine/internal/layout"
	"github.com/suncare-ops/pog-engine/internal/observability"
	"github.com/suncare-ops/pog-engine/internal/pdfview"
	"github.com/suncare-ops/pog-engine/internal/storage"
)

func main() {
	// A missing .env is fine; environment overrides are optional.
	_ = godotenv.Load()

	cfgPath := os.Getenv("POG_CONFIG")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.New(observability.Config{
		Level:   cfg.Observability.LogLevel,
		Format:  cfg.Observability.LogFormat,
		Service: "pog-api",
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("data_dir", cfg.Data.Dir).
		Str("cache", cfg.Cache.Driver).
		Msg("starting planogram API")

	var cacheClient cache.Client
	switch cfg.Cache.Driver {
	case "redis":
		cacheClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			logger.Error().Err(err).Msg("redis unavailable, falling back to memory cache")
			cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
		}
	default:
		cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}
	defer cacheClient.Close()

	var source catalog.Source = catalog.NewLoader(cfg.Data.Dir, cfg.Data.StoresFile)
	if cfg.Data.Source == "store" {
		store, err := storage.Open(context.Background(), storage.Config{
			Driver:          cfg.Storage.Driver,
			SQLitePath:      cfg.Storage.SQLite.Path,
			PostgresDSN:     cfg.Storage.Postgres.DSN,
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error().Err(err).Msg("failed to open planogram store")
			os.Exit(1)
		}
		defer store.Close()
		source = storage.NewSource(store, cfg.Server.ReadTimeout)
	}

	layoutEngine := layout.NewEngine(layout.Config{
		DefaultWidthIn:   cfg.Layout.DefaultWidthIn,
		DefaultHeightIn:  cfg.Layout.DefaultHeightIn,
		BasePxPerIn:      cfg.Layout.BasePxPerIn,
		GapPx:            cfg.Layout.GapPx,
		EndcapPadRight:   cfg.Layout.EndcapPadRight,
		EndcapZoom:       cfg.Layout.EndcapZoom,
		StackOverrides:   cfg.Layout.StackOverrides,
		ShelfScaleBoosts: cfg.Layout.ShelfScaleBoosts,
	})
	pdfController := pdfview.NewController(pdfview.NewFitzEngine(), pdfview.Config{
		MinScale:    cfg.Viewer.MinScale,
		MaxScale:    cfg.Viewer.MaxScale,
		ZoomStep:    cfg.Viewer.ZoomStep,
		ThumbScale:  cfg.Viewer.ThumbScale,
		ExtractWait: cfg.Viewer.ExtractWait,
	}, logger)
	defer pdfController.Close()

	state := appstate.New(appstate.Options{
		Loader:   source,
		Layout:   layoutEngine,
		Cache:    cacheClient,
		PDF:      pdfController,
		Logger:   logger,
		CacheTTL: cfg.Cache.TTL,
	})

	router := handlers.NewRouter(logger, cfg, state, source)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("http server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	logger.Info().Msg("server stopped")
}
