// Package pdfview implements the PDF session controller and the search and
// highlight engine. Actual page rasterization and text extraction are
// delegated to an external PDF engine behind the interfaces in this file;
// the production adapter is backed by MuPDF (go-fitz) and tests substitute
// a fake.
package pdfview

import (
	"context"
	"errors"
	"image"
)

// Sentinel errors.
var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("pdf session closed")
	// ErrRenderCancelled marks a render superseded by a newer request.
	// It is never surfaced as a failure.
	ErrRenderCancelled = errors.New("render cancelled")
)

// TextItem is one extracted text run: its string, the 6-element text-space
// transform matrix [a b c d e f], and the measured text width in text space.
type TextItem struct {
	Str       string
	Transform [6]float64
	Width     float64
}

// Viewport maps page text space (origin bottom-left) to viewport pixel
// coordinates (origin top-left) at a given scale.
type Viewport struct {
	Width      float64 // pixels
	Height     float64 // pixels
	Scale      float64
	PageWidth  float64 // native page width at scale 1
	PageHeight float64 // native page height at scale 1
}

// ConvertToViewportPoint converts a text-space point to viewport pixels.
func (v Viewport) ConvertToViewportPoint(x, y float64) (float64, float64) {
	return x * v.Scale, (v.PageHeight - y) * v.Scale
}

// Page is one page handle supplied by the external engine.
type Page interface {
	// Viewport returns the page viewport at the given scale.
	Viewport(scale float64) Viewport
	// Render rasterizes the page into an image sized to the viewport.
	// A cancelled context aborts the render with the context's error.
	Render(ctx context.Context, viewport Viewport) (image.Image, error)
	// TextContent extracts the page's text items.
	TextContent(ctx context.Context) ([]TextItem, error)
}

// Document is an open PDF document handle.
type Document interface {
	NumPages() int
	// Page returns the 1-based page handle.
	Page(n int) (Page, error)
	Close() error
}

// Engine opens PDF documents.
type Engine interface {
	Open(path string) (Document, error)
}
