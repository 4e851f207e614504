package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/suncare-ops/pog-engine/cmd/pog-api/handlers"
	"github.com/suncare-ops/pog-engine/cmd/pog-cli/ui"
	"github.com/suncare-ops/pog-engine/internal/appstate"
	"github.com/suncare-ops/pog-engine/internal/cache"
	"github.com/suncare-ops/pog-engine/internal/catalog"
	"github.com/suncare-ops/pog-engine/internal/layout"
	"github.com/suncare-ops/pog-engine/internal/observability"
	"github.com/suncare-ops/pog-engine/internal/pdfview"
	"github.com/suncare-ops/pog-engine/internal/storage"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the planogram API server",
	Long: `Start the HTTP API in-process. Equivalent to running pog-api, with the
same routes and configuration; useful for local development alongside the
other commands.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	// The server always logs at the configured level, unlike the one-shot
	// commands which stay quiet without --verbose.
	logger := observability.New(observability.Config{
		Level:   cfg.Observability.LogLevel,
		Format:  "console",
		Service: "pog-cli",
	})

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
			ui.Warn("Redis unavailable, using memory cache: %v", err)
			cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
		}
	default:
		cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}
	defer cacheClient.Close()

	var source catalog.Source = catalog.NewLoader(cfg.Data.Dir, cfg.Data.StoresFile)
	if cfg.Data.Source == "store" {
		store, err := storage.Open(cmd.Context(), storage.Config{
			Driver:          cfg.Storage.Driver,
			SQLitePath:      cfg.Storage.SQLite.Path,
			PostgresDSN:     cfg.Storage.Postgres.DSN,
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("open planogram store: %w", err)
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

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handlers.NewRouter(logger, cfg, state, source),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()
	ui.Success("API listening on %s", addr)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		ui.Message("Received %s, shutting down", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		srv.Close()
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	ui.Success("Server stopped")
	return nil
}
