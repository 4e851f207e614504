package pdfview

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
)

const fitzNativeDPI = 72

// Nominal geometry for synthesized text items. MuPDF's plain-text API
// carries no glyph geometry, so line items are laid out on a top-down grid
// with an estimated advance width; the highlight floors in search.go keep
// them visible either way.
const (
	fitzFontSize   = 12.0
	fitzLineHeight = 14.0
	fitzMarginPt   = 36.0
	fitzGlyphRatio = 0.5 // advance width per glyph as a fraction of font size
)

// FitzEngine adapts go-fitz (MuPDF) to the Engine interface.
type FitzEngine struct{}

// NewFitzEngine creates the MuPDF-backed engine.
func NewFitzEngine() *FitzEngine {
	return &FitzEngine{}
}

// Open opens a PDF document from disk.
func (e *FitzEngine) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, fmt.Errorf("pdf has no pages: %s", path)
	}
	return &fitzDocument{doc: doc}, nil
}

// fitzDocument guards the underlying fitz handle, which is not safe for
// concurrent use.
type fitzDocument struct {
	mu  sync.Mutex
	doc *fitz.Document
}

func (d *fitzDocument) NumPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

func (d *fitzDocument) Page(n int) (Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 1 || n > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, d.doc.NumPage())
	}
	bound, err := d.doc.Bound(n - 1)
	if err != nil {
		return nil, fmt.Errorf("page %d bounds: %w", n, err)
	}
	return &fitzPage{
		doc:    d,
		num:    n,
		width:  float64(bound.Dx()),
		height: float64(bound.Dy()),
	}, nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}

type fitzPage struct {
	doc    *fitzDocument
	num    int
	width  float64 // native points
	height float64
}

func (p *fitzPage) Viewport(scale float64) Viewport {
	return Viewport{
		Width:      p.width * scale,
		Height:     p.height * scale,
		Scale:      scale,
		PageWidth:  p.width,
		PageHeight: p.height,
	}
}

func (p *fitzPage) Render(ctx context.Context, viewport Viewport) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.doc.mu.Lock()
	img, err := p.doc.doc.ImageDPI(p.num-1, fitzNativeDPI*viewport.Scale)
	p.doc.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", p.num, err)
	}

	// MuPDF cannot be interrupted mid-raster; honor a cancellation that
	// arrived while we were drawing instead of applying a stale result.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

func (p *fitzPage) TextContent(ctx context.Context) ([]TextItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.doc.mu.Lock()
	text, err := p.doc.doc.Text(p.num - 1)
	p.doc.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("extract page %d text: %w", p.num, err)
	}

	var items []TextItem
	y := p.height - fitzMarginPt
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			y -= fitzLineHeight
			continue
		}
		items = append(items, TextItem{
			Str:       line,
			Transform: [6]float64{fitzFontSize, 0, 0, fitzFontSize, fitzMarginPt, y},
			Width:     float64(len(line)) * fitzFontSize * fitzGlyphRatio,
		})
		y -= fitzLineHeight
	}
	return items, nil
}
