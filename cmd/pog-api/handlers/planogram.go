package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/suncare-ops/pog-engine/internal/appstate"
	"github.com/suncare-ops/pog-engine/internal/catalog"
	"github.com/suncare-ops/pog-engine/internal/layout"
)

// PlanogramHandler serves store selection, product lookup, and shelf layout.
type PlanogramHandler struct {
	logger zerolog.Logger
	state  *appstate.State
	loader catalog.Source
}

// NewPlanogramHandler creates a planogram handler.
func NewPlanogramHandler(logger zerolog.Logger, state *appstate.State, loader catalog.Source) *PlanogramHandler {
	return &PlanogramHandler{logger: logger, state: state, loader: loader}
}

// StoreDTO is one store registry entry.
type StoreDTO struct {
	StoreID string `json:"storeId"`
	POGType string `json:"pogType"`
}

// ListStores handles GET /stores.
func (h *PlanogramHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	reg, err := h.loader.Stores()
	if err != nil {
		h.logger.Error().Err(err).Msg("loading store registry")
		writeError(w, http.StatusInternalServerError, "store registry unavailable", err.Error())
		return
	}
	out := make([]StoreDTO, 0, len(reg))
	for id, pogType := range reg {
		out = append(out, StoreDTO{StoreID: id, POGType: pogType})
	}
	writeJSON(w, http.StatusOK, out)
}

// SelectStoreResponse describes the planogram activated for a store.
type SelectStoreResponse struct {
	StoreID   string `json:"storeId"`
	POGType   string `json:"pogType"`
	Name      string `json:"name"`
	Subtitle  string `json:"subtitle,omitempty"`
	POGNumber string `json:"pogNumber,omitempty"`
	Shelves   int    `json:"shelves"`
	Sides     int    `json:"sides"`
	Products  int    `json:"products"`
}

// SelectStore handles POST /stores/{storeID}/select.
func (h *PlanogramHandler) SelectStore(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	pg, err := h.state.SelectStore(r.Context(), storeID)
	if err != nil {
		writeError(w, http.StatusNotFound, "store not found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SelectStoreResponse{
		StoreID:   storeID,
		POGType:   pg.ID,
		Name:      pg.Name,
		Subtitle:  pg.Subtitle,
		POGNumber: pg.POGNumber,
		Shelves:   pg.Shelves,
		Sides:     pg.Sides,
		Products:  len(pg.Products),
	})
}

// Planogram handles GET /planogram, returning the active planogram in full.
func (h *PlanogramHandler) Planogram(w http.ResponseWriter, r *http.Request) {
	c := h.state.Catalog()
	if c == nil {
		writeError(w, http.StatusConflict, "no store selected", "")
		return
	}
	writeJSON(w, http.StatusOK, c.Planogram())
}

// SetSide handles PUT /side/{n}.
func (h *PlanogramHandler) SetSide(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "side must be a number", "")
		return
	}
	if err := h.state.SetSide(n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"side": n})
}

// SetFilter handles PUT /filter/{name}.
func (h *PlanogramHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	f := layout.Filter(chi.URLParam(r, "name"))
	if err := h.state.SetFilter(f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"filter": string(f)})
}

// Resolve handles GET /resolve?q=, the typed-search lookup.
func (h *PlanogramHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required", "")
		return
	}
	res, err := h.state.Resolve(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusConflict, "lookup unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Search handles GET /search?q=, returning every ranked fuzzy candidate
// instead of Resolve's collapsed result.
func (h *PlanogramHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required", "")
		return
	}
	candidates, err := h.state.Search(q)
	if err != nil {
		writeError(w, http.StatusConflict, "lookup unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

// Scan handles GET /scan?code=, the camera-decode lookup.
func (h *PlanogramHandler) Scan(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required", "")
		return
	}
	res, err := h.state.ResolveScan(code)
	if err != nil {
		writeError(w, http.StatusConflict, "lookup unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Layout handles GET /layout?width=, rendering the current side and filter
// at the given content width in pixels.
func (h *PlanogramHandler) Layout(w http.ResponseWriter, r *http.Request) {
	width, err := strconv.ParseFloat(r.URL.Query().Get("width"), 64)
	if err != nil || width <= 0 {
		writeError(w, http.StatusBadRequest, "width must be a positive number", "")
		return
	}
	out, err := h.state.Layout(width)
	if err != nil {
		writeError(w, http.StatusConflict, "layout unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// MiniPOG handles GET /minipog/{upc}, the product-detail overview.
func (h *PlanogramHandler) MiniPOG(w http.ResponseWriter, r *http.Request) {
	upc := chi.URLParam(r, "upc")
	shelves, err := h.state.MiniPOG(upc)
	if err != nil {
		writeError(w, http.StatusNotFound, "product not found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, shelves)
}
