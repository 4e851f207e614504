package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suncare-ops/pog-engine/internal/catalog"
)

func f(v float64) *float64 { return &v }

func testConfig() Config {
	return Config{
		DefaultWidthIn:  2.5,
		DefaultHeightIn: 6.0,
		BasePxPerIn:     7.2,
		GapPx:           4,
		EndcapPadRight:  24,
		EndcapZoom:      2.0,
	}
}

func palletCatalog() *catalog.Catalog {
	return catalog.New(&catalog.Planogram{
		ID:      catalog.TypePallet,
		Shelves: 2,
		Sides:   1,
		Products: []catalog.Product{
			{UPC: "100", Name: "Lotion", Segment: 1, Shelf: 2, Position: 1, Facings: 2, WidthIn: f(4), HeightIn: f(7), IsNew: true},
			{UPC: "200", Name: "Spray", Segment: 1, Shelf: 2, Position: 2, Facings: 1, WidthIn: f(2), HeightIn: f(8), SRP: true},
			{UPC: "300", Name: "Stick", Segment: 1, Shelf: 1, Position: 1, Facings: 3, WidthIn: f(1.5), HeightIn: f(4)},
		},
	})
}

func TestRenderShelfOrderAndLabels(t *testing.T) {
	e := NewEngine(testConfig())

	out := e.Render(palletCatalog(), 1, FilterAll, 400)
	require.Len(t, out.Shelves, 2)
	assert.Equal(t, 2, out.Shelves[0].Number, "top shelf comes first")
	assert.Equal(t, "TOP", out.Shelves[0].Label)
	assert.Equal(t, 1, out.Shelves[1].Number)
	assert.Equal(t, "BOTTOM", out.Shelves[1].Label)
	assert.False(t, out.Endcap)
}

func TestRenderCardsFillContentWidth(t *testing.T) {
	e := NewEngine(testConfig())

	out := e.Render(palletCatalog(), 1, FilterAll, 400)
	top := out.Shelves[0]

	// Shelf inches: 4x2 + 2x1 = 10. One gap between two cards.
	assert.InDelta(t, 10, top.WidthIn, 1e-9)
	wantScale := (400.0 - 4) / 10
	assert.InDelta(t, wantScale, top.Scale, 1e-9)

	var px float64
	for _, card := range top.Cards {
		px += card.WidthPx
	}
	assert.InDelta(t, 400, px+4, 0.02, "cards plus gaps fill the content width")
}

func TestRenderDefaultDimensions(t *testing.T) {
	e := NewEngine(testConfig())
	c := catalog.New(&catalog.Planogram{
		ID:      catalog.TypePallet,
		Shelves: 1,
		Sides:   1,
		Products: []catalog.Product{
			{UPC: "100", Segment: 1, Shelf: 1, Position: 1, Facings: 2},
		},
	})

	out := e.Render(c, 1, FilterAll, 400)
	card := out.Shelves[0].Cards[0]
	assert.InDelta(t, 2.5, card.WidthIn, 1e-9)
	assert.InDelta(t, 6.0, card.HeightIn, 1e-9)
}

func TestRenderEmptyShelfUsesBaseScale(t *testing.T) {
	e := NewEngine(testConfig())
	c := catalog.New(&catalog.Planogram{
		ID:      catalog.TypePallet,
		Shelves: 2,
		Sides:   1,
		Products: []catalog.Product{
			{UPC: "100", Segment: 1, Shelf: 2, Position: 1, Facings: 1, WidthIn: f(3)},
		},
	})

	out := e.Render(c, 1, FilterAll, 400)
	empty := out.Shelves[1]
	assert.Equal(t, 1, empty.Number)
	assert.InDelta(t, 7.2, empty.Scale, 1e-9)
	assert.Empty(t, empty.Cards)
}

func TestRenderSingleWideItemShelf(t *testing.T) {
	e := NewEngine(testConfig())
	c := catalog.New(&catalog.Planogram{
		ID:      catalog.TypePallet,
		Shelves: 1,
		Sides:   1,
		Products: []catalog.Product{
			{UPC: "100", Segment: 1, Shelf: 1, Position: 1, Facings: 1, WidthIn: f(48)},
		},
	})

	// A single item wider than the container still scales proportionally;
	// there is no minimum floor below the zero-width fallback.
	out := e.Render(c, 1, FilterAll, 240)
	shelf := out.Shelves[0]
	assert.InDelta(t, 48, shelf.WidthIn, 1e-9)
	assert.InDelta(t, 240.0/48, shelf.Scale, 1e-9)
	assert.InDelta(t, 240, shelf.Cards[0].WidthPx, 1e-9)
}

func TestRenderFilterHidesWithoutReflow(t *testing.T) {
	e := NewEngine(testConfig())
	c := palletCatalog()

	all := e.Render(c, 1, FilterAll, 400)
	srp := e.Render(c, 1, FilterSRP, 400)

	// Scale is independent of the filter: hidden cards keep their space.
	assert.InDelta(t, all.Shelves[0].Scale, srp.Shelves[0].Scale, 1e-9)

	top := srp.Shelves[0]
	assert.Equal(t, 1, top.VisibleCount)
	assert.Equal(t, 1, top.Facings)
	assert.Equal(t, 3, top.AllFacings)
	assert.True(t, top.Cards[0].Hidden)
	assert.False(t, top.Cards[1].Hidden)
	assert.Equal(t, all.Shelves[0].Cards[0].WidthPx, top.Cards[0].WidthPx)

	newOut := e.Render(c, 1, FilterNew, 400)
	assert.False(t, newOut.Shelves[0].Cards[0].Hidden)
	assert.True(t, newOut.Shelves[0].Cards[1].Hidden)
}

func TestRenderStackOverride(t *testing.T) {
	cfg := testConfig()
	cfg.StackOverrides = map[string]int{"200": 3}
	e := NewEngine(cfg)

	out := e.Render(palletCatalog(), 1, FilterAll, 400)
	stacked := out.Shelves[0].Cards[1]
	require.Equal(t, "200", stacked.Product.UPC)
	assert.Equal(t, 3, stacked.Stack)
	assert.InDelta(t, 24, stacked.HeightIn, 1e-9, "stacked height is per-unit height x stack")
	assert.Equal(t, 3, stacked.ImageUnits)
}

func TestRenderBoostSkipsStackedCards(t *testing.T) {
	cfg := testConfig()
	cfg.ShelfScaleBoosts = map[string]float64{"1-2": 1.2}
	cfg.StackOverrides = map[string]int{"200": 2}
	e := NewEngine(cfg)

	out := e.Render(palletCatalog(), 1, FilterAll, 400)
	top := out.Shelves[0]
	scale := top.Scale

	boosted := top.Cards[0]
	assert.InDelta(t, 1.2, boosted.Boost, 1e-9)
	assert.InDelta(t, round2(4*2*scale*1.2), boosted.WidthPx, 1e-9)

	stacked := top.Cards[1]
	assert.Zero(t, stacked.Boost)
	assert.InDelta(t, round2(2*scale), stacked.WidthPx, 1e-9)
}

func endcapCatalog() *catalog.Catalog {
	return catalog.New(&catalog.Planogram{
		ID:      catalog.TypeEndcap,
		Shelves: 2,
		Sides:   1,
		Products: []catalog.Product{
			// Widest shelf: 2 items, 3x2 + 4x1 = 10 in.
			{UPC: "100", Segment: 1, Shelf: 2, Position: 1, Facings: 2, WidthIn: f(3)},
			{UPC: "200", Segment: 1, Shelf: 2, Position: 2, Facings: 1, WidthIn: f(4)},
			{UPC: "300", Segment: 1, Shelf: 1, Position: 1, Facings: 1, WidthIn: f(5)},
		},
	})
}

func TestRenderEndcapSharedScale(t *testing.T) {
	e := NewEngine(testConfig())

	out := e.Render(endcapCatalog(), 1, FilterAll, 400)
	require.True(t, out.Endcap)

	// (400 - 24 right pad - 4 gap on the widest shelf) / 10 in, doubled.
	wantScale := (400.0 - 24 - 4) / 10 * 2.0
	assert.InDelta(t, wantScale, out.EndcapScale, 1e-9)

	// Every shelf shares the endcap scale so relative widths stay true.
	for _, shelf := range out.Shelves {
		assert.InDelta(t, wantScale, shelf.Scale, 1e-9)
	}

	// The narrow shelf's single 5 in card renders at 5 x scale.
	narrow := out.Shelves[1]
	assert.InDelta(t, round2(5*wantScale), narrow.Cards[0].WidthPx, 1e-9)
}

func TestMiniPOG(t *testing.T) {
	e := NewEngine(testConfig())
	c := palletCatalog()
	target, ok := c.FindByUPC("200")
	require.True(t, ok)

	shelves := e.MiniPOG(c, target)
	require.Len(t, shelves, 2)
	assert.Equal(t, 2, shelves[0].Number, "top shelf first")

	top := shelves[0]
	require.Len(t, top.Items, 2)
	assert.Equal(t, "100", top.Items[0].UPC)
	assert.Equal(t, 2, top.Items[0].Weight)
	assert.False(t, top.Items[0].Target)
	assert.True(t, top.Items[1].Target)

	bottom := shelves[1]
	require.Len(t, bottom.Items, 1)
	assert.Equal(t, 3, bottom.Items[0].Weight)
}
