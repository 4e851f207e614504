// Package layout computes the shelf render model: per-shelf proportional
// card geometry derived from product physical dimensions and the rendering
// surface's pixel width. The engine is pure; callers re-run Render on every
// resize, filter change, and side change.
package layout

import (
	"fmt"
	"math"
	"sort"

	"github.com/suncare-ops/pog-engine/internal/catalog"
)

// Filter selects which products are visible. Filtered-out cards stay in the
// layout and keep their width so toggling never reflows surrounding items.
type Filter string

// Supported filters.
const (
	FilterAll Filter = "all"
	FilterNew Filter = "new"
	FilterSRP Filter = "srp"
)

// Valid reports whether f is a known filter value.
func (f Filter) Valid() bool {
	return f == FilterAll || f == FilterNew || f == FilterSRP
}

// Config holds the layout constants and override tables. See
// config.LayoutConfig for the file representation.
type Config struct {
	DefaultWidthIn  float64
	DefaultHeightIn float64
	BasePxPerIn     float64
	GapPx           float64
	EndcapPadRight  float64
	EndcapZoom      float64

	StackOverrides   map[string]int
	ShelfScaleBoosts map[string]float64
}

// Card is one product slot on a shelf row with its computed geometry.
type Card struct {
	Product    catalog.Product `json:"product"`
	Hidden     bool            `json:"hidden"`
	WidthIn    float64         `json:"widthIn"`  // single facing
	HeightIn   float64         `json:"heightIn"` // stacked height
	Stack      int             `json:"stack"`
	ImageUnits int             `json:"imageUnits"` // facings x stack
	Boost      float64         `json:"boost,omitempty"`
	WidthPx    float64         `json:"widthPx"`
	HeightPx   float64         `json:"heightPx"`
}

// Shelf is one rendered shelf row.
type Shelf struct {
	Number       int     `json:"number"`
	Label        string  `json:"label,omitempty"` // TOP, BOTTOM, or empty
	Cards        []Card  `json:"cards"`
	VisibleCount int     `json:"visibleCount"`
	Facings      int     `json:"facings"` // visible facings only
	AllFacings   int     `json:"allFacings"`
	WidthIn      float64 `json:"widthIn"`
	Scale        float64 `json:"scale"` // pixels per inch
}

// Layout is the full render model for one side, top shelf first.
type Layout struct {
	Side         int     `json:"side"`
	Filter       Filter  `json:"filter"`
	ContentWidth float64 `json:"contentWidth"`
	Endcap       bool    `json:"endcap"`
	EndcapScale  float64 `json:"endcapScale,omitempty"`
	Shelves      []Shelf `json:"shelves"`
}

// Engine computes shelf layouts.
type Engine struct {
	cfg Config
}

// NewEngine creates a layout engine with the given constants and overrides.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// StackCount returns the vertical stack count for a UPC, default 1.
func (e *Engine) StackCount(upc string) int {
	if n, ok := e.cfg.StackOverrides[upc]; ok && n > 0 {
		return n
	}
	return 1
}

// Boost returns the manual scale multiplier for a (side, shelf) pair, or 0
// when none is configured.
func (e *Engine) Boost(side, shelf int) float64 {
	return e.cfg.ShelfScaleBoosts[fmt.Sprintf("%d-%d", side, shelf)]
}

// Render computes the layout for one side at the given content width (the
// measured container width minus its horizontal padding). Shelves iterate
// from the top shelf number down to 1.
func (e *Engine) Render(c *catalog.Catalog, side int, filter Filter, contentWidth float64) Layout {
	pg := c.Planogram()
	sideProducts := c.Side(side)

	out := Layout{
		Side:         side,
		Filter:       filter,
		ContentWidth: contentWidth,
		Endcap:       pg.IsEndcap(),
	}

	type shelfAccum struct {
		number   int
		products []catalog.Product
	}

	var shelves []shelfAccum
	var maxShelfWidthIn float64
	var widestItemCount int

	for s := pg.Shelves; s >= 1; s-- {
		var prods []catalog.Product
		for _, p := range sideProducts {
			if p.Shelf == s {
				prods = append(prods, p)
			}
		}
		sort.Slice(prods, func(i, j int) bool { return prods[i].Position < prods[j].Position })

		var widthIn float64
		for _, p := range prods {
			widthIn += p.WidthInches(e.cfg.DefaultWidthIn) * float64(p.Facings)
		}
		if widthIn > maxShelfWidthIn {
			maxShelfWidthIn = widthIn
			widestItemCount = len(prods)
		}
		shelves = append(shelves, shelfAccum{number: s, products: prods})
	}

	// Endcap mode shares one scale derived from the widest shelf so
	// narrower shelves keep true relative sizing.
	var endcapScale float64
	if out.Endcap && maxShelfWidthIn > 0 {
		widestGaps := gapTotal(widestItemCount, e.cfg.GapPx)
		endcapScale = (contentWidth - e.cfg.EndcapPadRight - widestGaps) / maxShelfWidthIn * e.cfg.EndcapZoom
		out.EndcapScale = endcapScale
	}

	for _, sa := range shelves {
		shelf := e.buildShelf(sa.number, pg.Shelves, side, sa.products, filter, contentWidth, out.Endcap, endcapScale)
		out.Shelves = append(out.Shelves, shelf)
	}
	return out
}

func (e *Engine) buildShelf(number, topShelf, side int, prods []catalog.Product, filter Filter, contentWidth float64, endcap bool, endcapScale float64) Shelf {
	shelf := Shelf{Number: number}
	if number == topShelf {
		shelf.Label = "TOP"
	} else if number == 1 {
		shelf.Label = "BOTTOM"
	}

	var widthIn float64
	for _, p := range prods {
		shelf.AllFacings += p.Facings
		widthIn += p.WidthInches(e.cfg.DefaultWidthIn) * float64(p.Facings)
	}
	shelf.WidthIn = widthIn

	var scale float64
	if endcap {
		scale = endcapScale
		if scale == 0 {
			scale = e.cfg.BasePxPerIn
		}
	} else {
		gaps := gapTotal(len(prods), e.cfg.GapPx)
		if widthIn > 0 {
			scale = (contentWidth - gaps) / widthIn
		} else {
			scale = e.cfg.BasePxPerIn
		}
	}
	shelf.Scale = scale

	boost := e.Boost(side, number)

	for _, p := range prods {
		hidden := false
		switch filter {
		case FilterNew:
			hidden = !p.IsNew
		case FilterSRP:
			hidden = !p.SRP
		}
		if !hidden {
			shelf.VisibleCount++
			shelf.Facings += p.Facings
		}

		stack := e.StackCount(p.UPC)
		w := p.WidthInches(e.cfg.DefaultWidthIn)
		h := p.HeightInches(e.cfg.DefaultHeightIn) * float64(stack)

		card := Card{
			Product:    p,
			Hidden:     hidden,
			WidthIn:    w,
			HeightIn:   h,
			Stack:      stack,
			ImageUnits: p.Facings * stack,
		}

		cardScale := scale
		if boost > 0 && stack == 1 {
			card.Boost = boost
			cardScale = scale * boost
		}
		card.WidthPx = round2(w * float64(p.Facings) * cardScale)
		card.HeightPx = round2(h * cardScale)
		shelf.Cards = append(shelf.Cards, card)
	}

	return shelf
}

func gapTotal(items int, gapPx float64) float64 {
	if items <= 1 {
		return 0
	}
	return float64(items-1) * gapPx
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
