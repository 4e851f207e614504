package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/suncare-ops/pog-engine/internal/catalog"
)

// Source serves planogram data out of the store instead of the flat JSON
// files. Satisfies catalog.Source so the application state can use either
// interchangeably.
type Source struct {
	store   *Store
	timeout time.Duration
}

// NewSource wraps a store as a catalog data source. A non-positive timeout
// defaults to 10 seconds per query.
func NewSource(store *Store, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Source{store: store, timeout: timeout}
}

func (s *Source) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Stores returns the imported store registry.
func (s *Source) Stores() (catalog.StoreRegistry, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.store.Stores(ctx)
}

// Planogram loads one planogram type.
func (s *Source) Planogram(pogType string) (*catalog.Planogram, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.store.LoadPlanogram(ctx, pogType)
}

// ForStore resolves a store number through the registry and loads its
// planogram.
func (s *Source) ForStore(storeID string) (*catalog.Planogram, error) {
	reg, err := s.Stores()
	if err != nil {
		return nil, err
	}
	pogType, ok := reg[storeID]
	if !ok {
		return nil, fmt.Errorf("store %s not in registry", storeID)
	}
	return s.Planogram(pogType)
}
