package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/suncare-ops/pog-engine/internal/appstate"
	"github.com/suncare-ops/pog-engine/internal/pdfview"
)

// ViewerHandler serves the PDF session operations: open, page navigation,
// zoom, search, and thumbnails.
type ViewerHandler struct {
	logger zerolog.Logger
	state  *appstate.State
	pdfDir string
}

// NewViewerHandler creates a viewer handler reading documents from pdfDir.
func NewViewerHandler(logger zerolog.Logger, state *appstate.State, pdfDir string) *ViewerHandler {
	return &ViewerHandler{logger: logger, state: state, pdfDir: pdfDir}
}

// OpenRequest is the body for POST /pdf/open.
type OpenRequest struct {
	POGType      string  `json:"pogType,omitempty"` // defaults to the active planogram's type
	Search       string  `json:"search,omitempty"`
	ContentWidth float64 `json:"contentWidth"`
}

// OpenResponse describes the opened session.
type OpenResponse struct {
	SessionID  string `json:"sessionId"`
	Status     string `json:"status"`
	TotalPages int    `json:"totalPages"`
	Page       int    `json:"page"`
}

// RenderDTO is a committed page render. Raster is a base64-encoded PNG sized
// rasterWidth x rasterHeight.
type RenderDTO struct {
	PageNum      int                 `json:"pageNum"`
	Width        float64             `json:"width"`
	Height       float64             `json:"height"`
	RasterWidth  int                 `json:"rasterWidth"`
	RasterHeight int                 `json:"rasterHeight"`
	ZoomPercent  int                 `json:"zoomPercent"`
	Raster       string              `json:"raster"`
	Highlights   []pdfview.Highlight `json:"highlights,omitempty"`
	ScrollTop    *float64            `json:"scrollTop,omitempty"`
}

// SearchStateDTO reports the match counter shown next to the search box.
type SearchStateDTO struct {
	Query      string `json:"query"`
	Total      int    `json:"total"`
	CurrentIdx int    `json:"currentIdx"`
	Extracting bool   `json:"extracting"`
	Label      string `json:"label"`
}

// Open handles POST /pdf/open.
func (h *ViewerHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	pogType := req.POGType
	if pogType == "" {
		pogType = h.state.POGType()
	}
	if pogType == "" {
		writeError(w, http.StatusConflict, "no store selected", "select a store or pass pogType")
		return
	}

	path := filepath.Join(h.pdfDir, pogType+".pdf")
	s, err := h.state.PDF().Open(path, req.Search, req.ContentWidth)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "failed to load pdf", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, OpenResponse{
		SessionID:  s.ID.String(),
		Status:     string(s.Status()),
		TotalPages: s.TotalPages(),
		Page:       s.CurrentPage(),
	})
}

// Close handles POST /pdf/close.
func (h *ViewerHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.state.PDF().Close()
	w.WriteHeader(http.StatusNoContent)
}

// State handles GET /pdf/state.
func (h *ViewerHandler) State(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId":   s.ID.String(),
		"status":      string(s.Status()),
		"page":        s.CurrentPage(),
		"totalPages":  s.TotalPages(),
		"zoomPercent": s.ZoomPercent(),
		"search":      toSearchStateDTO(s.Search()),
	})
}

// ViewportRequest is the body for POST /pdf/viewport.
type ViewportRequest struct {
	ContentWidth     float64 `json:"contentWidth"`
	ContentHeight    float64 `json:"contentHeight"`
	DevicePixelRatio float64 `json:"devicePixelRatio"`
	ScrollTop        float64 `json:"scrollTop"`
}

// SetViewport handles POST /pdf/viewport, recording the client's content
// area geometry ahead of the next render.
func (h *ViewerHandler) SetViewport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	var req ViewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	s.SetViewport(req.ContentWidth, req.ContentHeight, req.DevicePixelRatio)
	s.SetScroll(req.ScrollTop)
	w.WriteHeader(http.StatusNoContent)
}

// Page handles POST /pdf/page/{n}.
func (h *ViewerHandler) Page(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a number", "")
		return
	}
	render, err := s.GoToPage(n)
	h.writeRender(w, render, err)
}

// Render handles POST /pdf/render, re-rendering the current page (after a
// viewport change).
func (h *ViewerHandler) Render(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	render, err := s.RenderPage(s.CurrentPage())
	h.writeRender(w, render, err)
}

// Zoom handles POST /pdf/zoom/{op} where op is in, out, or fit.
func (h *ViewerHandler) Zoom(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	var (
		render *pdfview.PageRender
		err    error
	)
	switch chi.URLParam(r, "op") {
	case "in":
		render, err = s.ZoomIn()
	case "out":
		render, err = s.ZoomOut()
	case "fit":
		render, err = s.FitWidth()
	default:
		writeError(w, http.StatusBadRequest, "unknown zoom op", "expected in, out, or fit")
		return
	}
	h.writeRender(w, render, err)
}

// SearchRequest is the body for POST /pdf/search.
type SearchRequest struct {
	Query string `json:"query"`
}

// Search handles POST /pdf/search. The first match's page render, if a
// navigation happened, is delivered through the render endpoints; the
// response carries the match counter.
func (h *ViewerHandler) Search(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	st, err := s.PerformSearch(req.Query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSearchStateDTO(st))
}

// SearchNav handles POST /pdf/search/{dir} where dir is next or prev.
func (h *ViewerHandler) SearchNav(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	var (
		render *pdfview.PageRender
		err    error
	)
	switch chi.URLParam(r, "dir") {
	case "next":
		render, err = s.NextMatch()
	case "prev":
		render, err = s.PrevMatch()
	default:
		writeError(w, http.StatusBadRequest, "unknown direction", "expected next or prev")
		return
	}
	if err != nil {
		h.writeRender(w, render, err)
		return
	}
	if render == nil {
		// Same page; the client only needs refreshed highlights.
		hl, scrollTop, hlErr := s.Highlights()
		if hlErr != nil {
			writeError(w, http.StatusInternalServerError, "highlights failed", hlErr.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"search":     toSearchStateDTO(s.Search()),
			"highlights": hl,
			"scrollTop":  scrollTop,
		})
		return
	}
	h.writeRender(w, render, nil)
}

// Highlights handles GET /pdf/highlights for the current page.
func (h *ViewerHandler) Highlights(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	hl, scrollTop, err := s.Highlights()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "highlights failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"highlights": hl,
		"scrollTop":  scrollTop,
	})
}

// Thumb handles GET /pdf/thumb/{n}, returning the page thumbnail as PNG. A
// thumbnail already rendered this session returns 204.
func (h *ViewerHandler) Thumb(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a number", "")
		return
	}
	img, err := s.RenderThumb(n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "thumbnail failed", err.Error())
		return
	}
	if img == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		h.logger.Warn().Err(err).Int("page", n).Msg("encoding thumbnail")
	}
}

func (h *ViewerHandler) session(w http.ResponseWriter) (*pdfview.Session, bool) {
	s := h.state.PDF().Session()
	if s == nil {
		writeError(w, http.StatusConflict, "no open pdf session", "")
		return nil, false
	}
	return s, true
}

// writeRender serializes a render outcome. A nil render with nil error is a
// no-op (page already current) and returns 204; a superseded render returns
// 409 so the client keeps the newer result.
func (h *ViewerHandler) writeRender(w http.ResponseWriter, render *pdfview.PageRender, err error) {
	if err != nil {
		switch {
		case errors.Is(err, pdfview.ErrRenderCancelled):
			writeError(w, http.StatusConflict, "render superseded", "")
		case errors.Is(err, pdfview.ErrClosed):
			writeError(w, http.StatusConflict, "session closed", "")
		default:
			writeError(w, http.StatusInternalServerError, "render failed", err.Error())
		}
		return
	}
	if render == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, render.Raster); err != nil {
		writeError(w, http.StatusInternalServerError, "encode failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RenderDTO{
		PageNum:      render.PageNum,
		Width:        render.Viewport.Width,
		Height:       render.Viewport.Height,
		RasterWidth:  render.RasterWidth,
		RasterHeight: render.RasterHeight,
		ZoomPercent:  render.ZoomPercent,
		Raster:       base64.StdEncoding.EncodeToString(buf.Bytes()),
		Highlights:   render.Highlights,
		ScrollTop:    render.ScrollTop,
	})
}

func toSearchStateDTO(st pdfview.SearchState) SearchStateDTO {
	return SearchStateDTO{
		Query:      st.Query,
		Total:      st.Total,
		CurrentIdx: st.CurrentIdx,
		Extracting: st.Extracting,
		Label:      st.Label(),
	}
}
