package layout

import "github.com/suncare-ops/pog-engine/internal/catalog"

// MiniItem is one slot in the product-detail mini layout. Weight is the
// flex proportion (the product's facings); Target marks the product whose
// detail view is open.
type MiniItem struct {
	UPC    string `json:"upc"`
	Weight int    `json:"weight"`
	Target bool   `json:"target"`
}

// MiniShelf is one row of the mini layout.
type MiniShelf struct {
	Number int        `json:"number"`
	Items  []MiniItem `json:"items"`
}

// MiniPOG builds the facings-proportional mini layout for the side holding
// the given product, top shelf first.
func (e *Engine) MiniPOG(c *catalog.Catalog, target catalog.Product) []MiniShelf {
	pg := c.Planogram()
	shelves := make([]MiniShelf, 0, pg.Shelves)
	for s := pg.Shelves; s >= 1; s-- {
		shelf := MiniShelf{Number: s}
		for _, p := range c.ShelfProducts(target.Segment, s) {
			shelf.Items = append(shelf.Items, MiniItem{
				UPC:    p.UPC,
				Weight: p.Facings,
				Target: p.UPC == target.UPC,
			})
		}
		shelves = append(shelves, shelf)
	}
	return shelves
}
