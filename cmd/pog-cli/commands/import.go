package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/suncare-ops/pog-engine/cmd/pog-cli/ui"
	"github.com/suncare-ops/pog-engine/internal/catalog"
	"github.com/suncare-ops/pog-engine/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the planogram data files into the planogram store",
	Long: `Read the store registry and every planogram type it references from
the data directory, then replace the planogram store's contents with them.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, storage.Config{
		Driver:          cfg.Storage.Driver,
		SQLitePath:      cfg.Storage.SQLite.Path,
		PostgresDSN:     cfg.Storage.Postgres.DSN,
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	loader := catalog.NewLoader(cfg.Data.Dir, cfg.Data.StoresFile)
	reg, err := loader.Stores()
	if err != nil {
		return err
	}
	if err := store.SaveStores(ctx, reg); err != nil {
		return err
	}
	ui.Success("imported %d stores", len(reg))

	// Each planogram type appears once regardless of how many stores map
	// to it.
	types := map[string]bool{}
	for _, pogType := range reg {
		types[pogType] = true
	}

	bar := ui.NewProgressBar(int64(len(types)), "importing planograms")
	for pogType := range types {
		pg, err := loader.Planogram(pogType)
		if err != nil {
			bar.Finish()
			return err
		}
		if err := store.SavePlanogram(ctx, pg); err != nil {
			bar.Finish()
			return err
		}
		bar.Add(1)
	}
	bar.Finish()

	ui.Success("imported %d planograms into %s store", len(types), cfg.Storage.Driver)
	return nil
}
