package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/suncare-ops/pog-engine/cmd/pog-api/middleware"
	"github.com/suncare-ops/pog-engine/internal/appstate"
	"github.com/suncare-ops/pog-engine/internal/catalog"
	"github.com/suncare-ops/pog-engine/internal/config"
)

// NewRouter creates the API router with all routes configured.
func NewRouter(logger zerolog.Logger, cfg *config.Config, state *appstate.State, source catalog.Source) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.ReadTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"pog-engine"}`))
	})

	planogramHandler := NewPlanogramHandler(logger, state, source)
	viewerHandler := NewViewerHandler(logger, state, cfg.Data.PDFDir)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stores", planogramHandler.ListStores)
		r.Post("/stores/{storeID}/select", planogramHandler.SelectStore)
		r.Get("/planogram", planogramHandler.Planogram)
		r.Put("/side/{n}", planogramHandler.SetSide)
		r.Put("/filter/{name}", planogramHandler.SetFilter)
		r.Get("/resolve", planogramHandler.Resolve)
		r.Get("/search", planogramHandler.Search)
		r.Get("/scan", planogramHandler.Scan)
		r.Get("/layout", planogramHandler.Layout)
		r.Get("/minipog/{upc}", planogramHandler.MiniPOG)

		r.Route("/pdf", func(r chi.Router) {
			r.Post("/open", viewerHandler.Open)
			r.Post("/close", viewerHandler.Close)
			r.Get("/state", viewerHandler.State)
			r.Post("/viewport", viewerHandler.SetViewport)
			r.Post("/render", viewerHandler.Render)
			r.Post("/page/{n}", viewerHandler.Page)
			r.Post("/zoom/{op}", viewerHandler.Zoom)
			r.Post("/search", viewerHandler.Search)
			r.Post("/search/{dir}", viewerHandler.SearchNav)
			r.Get("/highlights", viewerHandler.Highlights)
			r.Get("/thumb/{n}", viewerHandler.Thumb)
		})
	})

	return r
}
