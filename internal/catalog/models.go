// Package catalog holds the planogram data model: products, the UPC redirect
// table, and the removed-products side table. A catalog is loaded wholesale
// when a store is selected and is read-only afterwards.
package catalog

import "math"

// Planogram fixture types.
const (
	TypePallet = "pallet"
	TypeEndcap = "endcap"
)

// Product is one placed product on the planogram. UPC is the external
// identifier and may carry leading zeros; placement is (segment, shelf,
// position).
type Product struct {
	UPC      string   `json:"upc"`
	Name     string   `json:"name"`
	Segment  int      `json:"segment"`
	Shelf    int      `json:"shelf"`
	Position int      `json:"position"`
	Facings  int      `json:"facings"`
	WidthIn  *float64 `json:"widthIn,omitempty"`
	HeightIn *float64 `json:"heightIn,omitempty"`
	IsNew    bool     `json:"isNew,omitempty"`
	SRP      bool     `json:"srp,omitempty"`
}

// WidthInches returns the product's physical width, falling back to the
// supplied default when the dimension is missing or not finite.
func (p Product) WidthInches(def float64) float64 {
	if p.WidthIn != nil && isFinite(*p.WidthIn) {
		return *p.WidthIn
	}
	return def
}

// HeightInches returns the product's physical height, falling back to the
// supplied default when the dimension is missing or not finite.
func (p Product) HeightInches(def float64) float64 {
	if p.HeightIn != nil && isFinite(*p.HeightIn) {
		return *p.HeightIn
	}
	return def
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RemovedProduct is an entry in the removed-products side table: a product
// that was taken off the planogram but may still be scanned on the floor.
type RemovedProduct struct {
	UPC  string `json:"upc"`
	Name string `json:"name"`
}

// Planogram is one store fixture's full dataset. Exactly one planogram is
// active at a time; loading a new store replaces it and all derived products
// in full.
type Planogram struct {
	ID              string            `json:"id"` // pallet or endcap
	Name            string            `json:"name"`
	Subtitle        string            `json:"subtitle"`
	POGNumber       string            `json:"pogNumber"`
	TotalProducts   int               `json:"totalProducts"`
	Shelves         int               `json:"shelves"`
	Sides           int               `json:"sides"`
	Products        []Product         `json:"products"`
	UPCRedirects    map[string]string `json:"upcRedirects,omitempty"`
	RemovedProducts []RemovedProduct  `json:"removedProducts,omitempty"`
}

// IsEndcap reports whether the fixture uses the endcap layout mode.
func (pg *Planogram) IsEndcap() bool {
	return pg.ID == TypeEndcap
}

// StoreRegistry maps a store number to the planogram type it receives.
type StoreRegistry map[string]string
