package commands

import (
	"github.com/rs/zerolog"

	"github.com/suncare-ops/pog-engine/internal/appstate"
	"github.com/suncare-ops/pog-engine/internal/catalog"
	"github.com/suncare-ops/pog-engine/internal/config"
	"github.com/suncare-ops/pog-engine/internal/layout"
	"github.com/suncare-ops/pog-engine/internal/pdfview"
)

// newState builds application state for one-shot CLI commands. No lookup
// cache; every command resolves against freshly loaded data.
func newState(cfg *config.Config, logger zerolog.Logger) *appstate.State {
	loader := catalog.NewLoader(cfg.Data.Dir, cfg.Data.StoresFile)
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

	return appstate.New(appstate.Options{
		Loader: loader,
		Layout: layoutEngine,
		PDF:    pdfController,
		Logger: logger,
	})
}
