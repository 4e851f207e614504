package pdfview

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// fakeEngine serves a canned document so session behavior can be tested
// without MuPDF.
type fakeEngine struct {
	doc *fakeDocument
	err error
}

func (e *fakeEngine) Open(path string) (Document, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.doc, nil
}

type fakeDocument struct {
	pages  int
	width  float64
	height float64
	text   map[int][]TextItem

	// renderStarted, when set, receives the page number as each render
	// begins. renderRelease, when set, blocks renders until closed so a
	// test can cancel them mid-flight.
	renderStarted chan int
	renderRelease chan struct{}

	mu      sync.Mutex
	closed  bool
	renders []int
}

func newFakeDocument(pages int, text map[int][]TextItem) *fakeDocument {
	return &fakeDocument{pages: pages, width: 612, height: 792, text: text}
}

func (d *fakeDocument) NumPages() int { return d.pages }

func (d *fakeDocument) Page(n int) (Page, error) {
	if n < 1 || n > d.pages {
		return nil, fmt.Errorf("page %d out of range", n)
	}
	return &fakePage{doc: d, num: n}, nil
}

func (d *fakeDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDocument) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *fakeDocument) renderCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.renders)
}

type fakePage struct {
	doc *fakeDocument
	num int
}

func (p *fakePage) Viewport(scale float64) Viewport {
	return Viewport{
		Width:      p.doc.width * scale,
		Height:     p.doc.height * scale,
		Scale:      scale,
		PageWidth:  p.doc.width,
		PageHeight: p.doc.height,
	}
}

func (p *fakePage) Render(ctx context.Context, viewport Viewport) (image.Image, error) {
	d := p.doc
	if d.renderStarted != nil {
		d.renderStarted <- p.num
	}
	if d.renderRelease != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-d.renderRelease:
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	d.mu.Lock()
	d.renders = append(d.renders, p.num)
	d.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, int(viewport.Width), int(viewport.Height))), nil
}

func (p *fakePage) TextContent(ctx context.Context) ([]TextItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.doc.text[p.num], nil
}

// textItem builds a TextItem anchored at (x, y) in text space.
func textItem(str string, x, y, fontSize, width float64) TextItem {
	return TextItem{
		Str:       str,
		Transform: [6]float64{fontSize, 0, 0, fontSize, x, y},
		Width:     width,
	}
}
