package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Source provides planogram data to the application. Implemented by the
// JSON Loader and by the planogram store.
type Source interface {
	Stores() (StoreRegistry, error)
	Planogram(pogType string) (*Planogram, error)
	ForStore(storeID string) (*Planogram, error)
}

// Loader reads the generated planogram data files from disk. The core never
// fetches data itself; callers hand the loaded planogram to the application
// state.
type Loader struct {
	dir        string
	storesFile string
}

// NewLoader creates a loader rooted at the given data directory.
func NewLoader(dir, storesFile string) *Loader {
	if storesFile == "" {
		storesFile = "stores.json"
	}
	return &Loader{dir: dir, storesFile: storesFile}
}

// Stores reads the store registry (store number to planogram type).
func (l *Loader) Stores() (StoreRegistry, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, l.storesFile))
	if err != nil {
		return nil, fmt.Errorf("read store registry: %w", err)
	}
	var reg StoreRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse store registry: %w", err)
	}
	return reg, nil
}

// Planogram reads the data file for one planogram type (pallet or endcap).
func (l *Loader) Planogram(pogType string) (*Planogram, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, pogType+".json"))
	if err != nil {
		return nil, fmt.Errorf("read planogram %s: %w", pogType, err)
	}
	var pg Planogram
	if err := json.Unmarshal(data, &pg); err != nil {
		return nil, fmt.Errorf("parse planogram %s: %w", pogType, err)
	}
	if err := validate(&pg); err != nil {
		return nil, fmt.Errorf("planogram %s: %w", pogType, err)
	}
	return &pg, nil
}

// ForStore resolves a store number through the registry and loads its
// planogram.
func (l *Loader) ForStore(storeID string) (*Planogram, error) {
	reg, err := l.Stores()
	if err != nil {
		return nil, err
	}
	pogType, ok := reg[storeID]
	if !ok {
		return nil, fmt.Errorf("store %s not in registry", storeID)
	}
	return l.Planogram(pogType)
}

func validate(pg *Planogram) error {
	if pg.ID != TypePallet && pg.ID != TypeEndcap {
		return fmt.Errorf("unknown planogram type %q", pg.ID)
	}
	if pg.Shelves < 1 {
		return fmt.Errorf("shelf count must be at least 1, got %d", pg.Shelves)
	}
	if pg.Sides < 1 {
		return fmt.Errorf("side count must be at least 1, got %d", pg.Sides)
	}
	for i, p := range pg.Products {
		if p.UPC == "" {
			return fmt.Errorf("product %d has no UPC", i)
		}
		if p.Segment < 1 || p.Segment > pg.Sides {
			return fmt.Errorf("product %s: side %d out of range 1..%d", p.UPC, p.Segment, pg.Sides)
		}
		if p.Shelf < 1 || p.Shelf > pg.Shelves {
			return fmt.Errorf("product %s: shelf %d out of range 1..%d", p.UPC, p.Shelf, pg.Shelves)
		}
		if p.Facings < 1 {
			return fmt.Errorf("product %s: facings must be at least 1, got %d", p.UPC, p.Facings)
		}
	}
	return nil
}
