package catalog

import "sort"

// Catalog is the read-only product view over the active planogram that the
// matching and layout engines consume.
type Catalog struct {
	planogram *Planogram
}

// New wraps a loaded planogram in a catalog.
func New(pg *Planogram) *Catalog {
	return &Catalog{planogram: pg}
}

// Planogram returns the underlying planogram.
func (c *Catalog) Planogram() *Planogram {
	return c.planogram
}

// Products returns all products on the planogram.
func (c *Catalog) Products() []Product {
	return c.planogram.Products
}

// Removed returns the removed-products side table.
func (c *Catalog) Removed() []RemovedProduct {
	return c.planogram.RemovedProducts
}

// Redirects returns the old-UPC to new-UPC table.
func (c *Catalog) Redirects() map[string]string {
	return c.planogram.UPCRedirects
}

// FindByUPC returns the product whose stored UPC equals upc exactly, without
// normalization. Redirect targets come from the data files verbatim, so this
// is also the resolution step for them.
func (c *Catalog) FindByUPC(upc string) (Product, bool) {
	for _, p := range c.planogram.Products {
		if p.UPC == upc {
			return p, true
		}
	}
	return Product{}, false
}

// Side returns the products on the given side, unordered.
func (c *Catalog) Side(side int) []Product {
	var out []Product
	for _, p := range c.planogram.Products {
		if p.Segment == side {
			out = append(out, p)
		}
	}
	return out
}

// ShelfProducts returns the products on one shelf of one side, ordered by
// ascending position.
func (c *Catalog) ShelfProducts(side, shelf int) []Product {
	var out []Product
	for _, p := range c.planogram.Products {
		if p.Segment == side && p.Shelf == shelf {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// RemovedAsProducts adapts the removed-products table to product records so
// the fuzzy matcher can run the same pass over it. Placement fields are zero.
func (c *Catalog) RemovedAsProducts() []Product {
	out := make([]Product, 0, len(c.planogram.RemovedProducts))
	for _, r := range c.planogram.RemovedProducts {
		out = append(out, Product{UPC: r.UPC, Name: r.Name})
	}
	return out
}
