package pdfview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session status values.
type Status string

// Session lifecycle states.
const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
	StatusClosed  Status = "closed"
)

// Config holds viewer tuning. Zero values are replaced by defaults.
type Config struct {
	MinScale    float64
	MaxScale    float64
	ZoomStep    float64
	ThumbScale  float64
	ExtractWait time.Duration
}

// DefaultConfig returns the stock viewer settings.
func DefaultConfig() Config {
	return Config{
		MinScale:    0.25,
		MaxScale:    5.0,
		ZoomStep:    1.25,
		ThumbScale:  0.3,
		ExtractWait: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MinScale <= 0 {
		c.MinScale = def.MinScale
	}
	if c.MaxScale <= 0 {
		c.MaxScale = def.MaxScale
	}
	if c.ZoomStep <= 1 {
		c.ZoomStep = def.ZoomStep
	}
	if c.ThumbScale <= 0 {
		c.ThumbScale = def.ThumbScale
	}
	if c.ExtractWait <= 0 {
		c.ExtractWait = def.ExtractWait
	}
	return c
}

// contentPadding is the horizontal padding of the content area subtracted
// from the measured width when deriving the fit-to-width base scale.
const contentPadding = 16

// PageRender is the outcome of one committed page render: the raster sized
// for the device pixel ratio plus the highlight overlay in viewport
// coordinates.
type PageRender struct {
	PageNum          int
	Viewport         Viewport
	Raster           image.Image
	DevicePixelRatio float64
	RasterWidth      int // viewport width x dpr, floored
	RasterHeight     int
	ZoomPercent      int
	Highlights       []Highlight
	// ScrollTop is a suggested content scroll offset, set only when the
	// active match lies outside the visible region.
	ScrollTop *float64
}

// Session owns one open PDF document's state. All mutation goes through its
// methods; at most one render is in flight at any time, and a new request
// cancels the previous one.
type Session struct {
	ID  uuid.UUID
	cfg Config
	log zerolog.Logger

	doc        Document
	totalPages int

	lifeCtx    context.Context
	lifeCancel context.CancelFunc

	// OnRender, when set, receives renders triggered internally (seeded
	// search, match navigation). Set before the first render.
	OnRender func(*PageRender)

	mu            sync.Mutex
	status        Status
	currentPage   int
	scale         float64 // 0 means fit-to-width
	baseScale     float64
	dpr           float64
	contentWidth  float64
	contentHeight float64
	scrollTop     float64

	renderGen    uint64
	renderCancel context.CancelFunc

	index         map[int]PageText
	extractDone   chan struct{}
	searchResults []Match
	currentIdx    int
	lastQuery     string

	thumbsRendered map[int]bool
}

// Controller opens and owns the single live PDF session. Opening a new
// document fully closes the prior session first.
type Controller struct {
	engine Engine
	cfg    Config
	log    zerolog.Logger

	mu      sync.Mutex
	session *Session
}

// NewController creates a session controller over the given engine.
func NewController(engine Engine, cfg Config, log zerolog.Logger) *Controller {
	return &Controller{engine: engine, cfg: cfg.withDefaults(), log: log}
}

// Open opens a PDF document and returns the new session in the Ready state
// with page 1 current and fit-to-width zoom. Text extraction starts in the
// background; a non-empty searchTerm is searched automatically once
// extraction completes (bounded by the configured wait). A load failure
// leaves the controller without a session and can be retried.
func (c *Controller) Open(path, searchTerm string, contentWidth float64) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.session.Close()
		c.session = nil
	}

	doc, err := c.engine.Open(path)
	if err != nil {
		c.log.Error().Err(err).Str("path", path).Msg("failed to load pdf")
		return nil, fmt.Errorf("load pdf: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:             uuid.New(),
		cfg:            c.cfg,
		log:            c.log.With().Str("pdf", path).Logger(),
		doc:            doc,
		totalPages:     doc.NumPages(),
		lifeCtx:        ctx,
		lifeCancel:     cancel,
		status:         StatusReady,
		currentPage:    1,
		scale:          0,
		dpr:            1,
		contentWidth:   contentWidth,
		currentIdx:     -1,
		index:          make(map[int]PageText),
		extractDone:    make(chan struct{}),
		thumbsRendered: make(map[int]bool),
	}
	c.session = s

	go s.extractAllText()
	if searchTerm != "" {
		go s.searchWhenIndexed(searchTerm)
	}

	c.log.Info().Str("path", path).Int("pages", s.totalPages).Msg("pdf session opened")
	return s, nil
}

// Session returns the live session, or nil.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Close closes the live session if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
}

// Close tears the session down: cancels any in-flight render, stops text
// extraction, and releases the document handle. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return
	}
	s.status = StatusClosed
	if s.renderCancel != nil {
		s.renderCancel()
		s.renderCancel = nil
	}
	s.mu.Unlock()

	s.lifeCancel()
	if err := s.doc.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing pdf document")
	}
	s.log.Info().Msg("pdf session closed")
}

// Status returns the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// TotalPages returns the document's page count.
func (s *Session) TotalPages() int {
	return s.totalPages
}

// CurrentPage returns the current page number.
func (s *Session) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPage
}

// SetViewport records the content area's pixel size and device pixel ratio.
// The next render picks the new fit-to-width baseline up.
func (s *Session) SetViewport(contentWidth, contentHeight, dpr float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentWidth = contentWidth
	s.contentHeight = contentHeight
	if dpr > 0 {
		s.dpr = dpr
	}
}

// SetScroll records the content area's vertical scroll offset, used to
// decide whether the active match needs scrolling into view.
func (s *Session) SetScroll(top float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollTop = top
}

// GoToPage clamps n to the page range and renders it. A request for the
// current page is a no-op returning nil.
func (s *Session) GoToPage(n int) (*PageRender, error) {
	if n < 1 {
		n = 1
	}
	if n > s.totalPages {
		n = s.totalPages
	}
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if n == s.currentPage && s.baseScale != 0 {
		// Already rendered at this page; nothing to do.
		s.mu.Unlock()
		return nil, nil
	}
	s.mu.Unlock()
	return s.RenderPage(n)
}

// SetScale sets an absolute zoom scale, clamped to the configured range,
// and re-renders the current page.
func (s *Session) SetScale(scale float64) (*PageRender, error) {
	s.mu.Lock()
	s.scale = clamp(scale, s.cfg.MinScale, s.cfg.MaxScale)
	page := s.currentPage
	s.mu.Unlock()
	return s.RenderPage(page)
}

// ZoomIn multiplies the effective scale by the zoom step.
func (s *Session) ZoomIn() (*PageRender, error) {
	return s.SetScale(s.effectiveScale() * s.cfg.ZoomStep)
}

// ZoomOut divides the effective scale by the zoom step.
func (s *Session) ZoomOut() (*PageRender, error) {
	return s.SetScale(s.effectiveScale() / s.cfg.ZoomStep)
}

// FitWidth restores fit-to-width zoom and re-renders.
func (s *Session) FitWidth() (*PageRender, error) {
	s.mu.Lock()
	s.scale = 0
	page := s.currentPage
	s.mu.Unlock()
	return s.RenderPage(page)
}

// ZoomPercent reports the zoom relative to the fit-to-width baseline.
func (s *Session) ZoomPercent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseScale == 0 {
		return 100
	}
	eff := s.scale
	if eff == 0 {
		eff = s.baseScale
	}
	return int(math.Round(eff / s.baseScale * 100))
}

func (s *Session) effectiveScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scale != 0 {
		return s.scale
	}
	if s.baseScale != 0 {
		return s.baseScale
	}
	return 1
}

// RenderPage renders the given page at the current zoom. A render already
// in flight is cancelled first; if this render is itself superseded before
// completion its result is discarded and ErrRenderCancelled is returned.
func (s *Session) RenderPage(n int) (*PageRender, error) {
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.renderCancel != nil {
		s.renderCancel()
	}
	ctx, cancel := context.WithCancel(s.lifeCtx)
	s.renderCancel = cancel
	s.renderGen++
	gen := s.renderGen
	contentWidth := s.contentWidth
	scale := s.scale
	dpr := s.dpr
	s.mu.Unlock()

	page, err := s.doc.Page(n)
	if err != nil {
		return nil, fmt.Errorf("get page %d: %w", n, err)
	}

	unscaled := page.Viewport(1)
	baseScale := 1.0
	if unscaled.PageWidth > 0 && contentWidth > contentPadding {
		baseScale = (contentWidth - contentPadding) / unscaled.PageWidth
	}
	if scale == 0 {
		scale = baseScale
	}

	viewport := page.Viewport(scale)
	raster, err := page.Render(ctx, viewport)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrRenderCancelled
		}
		s.log.Error().Err(err).Int("page", n).Msg("page render failed")
		return nil, fmt.Errorf("render page %d: %w", n, err)
	}

	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if gen != s.renderGen {
		// A newer request superseded this one while it was drawing.
		s.mu.Unlock()
		return nil, ErrRenderCancelled
	}
	s.renderCancel = nil
	s.currentPage = n
	s.baseScale = baseScale
	s.scale = scale
	s.scrollTop = 0

	render := &PageRender{
		PageNum:          n,
		Viewport:         viewport,
		Raster:           raster,
		DevicePixelRatio: dpr,
		RasterWidth:      int(math.Round(viewport.Width * dpr)),
		RasterHeight:     int(math.Round(viewport.Height * dpr)),
	}
	if s.baseScale != 0 {
		render.ZoomPercent = int(math.Round(scale / baseScale * 100))
	} else {
		render.ZoomPercent = 100
	}
	render.Highlights, render.ScrollTop = s.highlightsLocked(n, viewport)
	s.mu.Unlock()

	if s.OnRender != nil {
		s.OnRender(render)
	}
	return render, nil
}

// RenderThumb renders a fixed-scale thumbnail for a page, once per page per
// session. Returns nil when the page's thumbnail was already rendered.
func (s *Session) RenderThumb(n int) (image.Image, error) {
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.thumbsRendered[n] {
		s.mu.Unlock()
		return nil, nil
	}
	s.thumbsRendered[n] = true
	s.mu.Unlock()

	page, err := s.doc.Page(n)
	if err != nil {
		return nil, fmt.Errorf("get page %d: %w", n, err)
	}
	img, err := page.Render(s.lifeCtx, page.Viewport(s.cfg.ThumbScale))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrRenderCancelled
		}
		return nil, fmt.Errorf("render thumbnail %d: %w", n, err)
	}
	return img, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
