// Package appstate owns the mutable application state: the selected store,
// its active planogram, the current side and filter, and the live PDF
// session. All reads and writes go through its methods so the HTTP handlers
// and the CLI share one consistency model.
package appstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/suncare-ops/pog-engine/internal/cache"
	"github.com/suncare-ops/pog-engine/internal/catalog"
	"github.com/suncare-ops/pog-engine/internal/layout"
	"github.com/suncare-ops/pog-engine/internal/matching"
	"github.com/suncare-ops/pog-engine/internal/pdfview"
)

// State is the application state. Selecting a store replaces the planogram
// wholesale; there is no partial reload.
type State struct {
	loader catalog.Source
	layout *layout.Engine
	cache  cache.Client
	pdf    *pdfview.Controller
	log    zerolog.Logger

	cacheTTL time.Duration

	mu      sync.RWMutex
	storeID string
	pogType string
	catalog *catalog.Catalog
	matcher *matching.Matcher
	side    int
	filter  layout.Filter
}

// Options configures a new State.
type Options struct {
	Loader   catalog.Source
	Layout   *layout.Engine
	Cache    cache.Client
	PDF      *pdfview.Controller
	Logger   zerolog.Logger
	CacheTTL time.Duration
}

// New creates the application state. No store is selected initially.
func New(opts Options) *State {
	return &State{
		loader:   opts.Loader,
		layout:   opts.Layout,
		cache:    opts.Cache,
		pdf:      opts.PDF,
		log:      opts.Logger,
		cacheTTL: opts.CacheTTL,
		side:     1,
		filter:   layout.FilterAll,
	}
}

// SelectStore loads the planogram for a store number and makes it active.
// The side resets to 1, the filter resets to all, and cached lookups for the
// previous planogram are flushed.
func (s *State) SelectStore(ctx context.Context, storeID string) (*catalog.Planogram, error) {
	reg, err := s.loader.Stores()
	if err != nil {
		return nil, err
	}
	pogType, ok := reg[storeID]
	if !ok {
		return nil, fmt.Errorf("store %s not in registry", storeID)
	}
	pg, err := s.loader.Planogram(pogType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.storeID = storeID
	s.pogType = pogType
	s.catalog = catalog.New(pg)
	s.matcher = matching.New(s.catalog)
	s.side = 1
	s.filter = layout.FilterAll
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Flush(ctx); err != nil {
			s.log.Warn().Err(err).Msg("flushing lookup cache")
		}
	}
	s.log.Info().Str("store", storeID).Str("pog", pogType).
		Int("products", len(pg.Products)).Msg("store selected")
	return pg, nil
}

// StoreID returns the selected store number, empty when none.
func (s *State) StoreID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storeID
}

// POGType returns the active planogram type, empty when none.
func (s *State) POGType() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pogType
}

// Catalog returns the active catalog, or nil when no store is selected.
func (s *State) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Side returns the current side number.
func (s *State) Side() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.side
}

// SetSide switches the active side. Out-of-range sides are rejected.
func (s *State) SetSide(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog == nil {
		return fmt.Errorf("no store selected")
	}
	if sides := s.catalog.Planogram().Sides; n < 1 || n > sides {
		return fmt.Errorf("side %d out of range 1..%d", n, sides)
	}
	s.side = n
	return nil
}

// Filter returns the current product filter.
func (s *State) Filter() layout.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetFilter switches the active filter.
func (s *State) SetFilter(f layout.Filter) error {
	if !f.Valid() {
		return fmt.Errorf("unknown filter %q", f)
	}
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	return nil
}

// Resolve looks a raw query up against the active catalog, consulting the
// lookup cache first. Cache failures degrade to a direct lookup.
func (s *State) Resolve(ctx context.Context, raw string) (matching.Result, error) {
	s.mu.RLock()
	m := s.matcher
	storeID := s.storeID
	s.mu.RUnlock()
	if m == nil {
		return matching.Result{}, fmt.Errorf("no store selected")
	}

	key := cache.ResolveKey(storeID, raw)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var res matching.Result
			if err := json.Unmarshal(data, &res); err == nil {
				return res, nil
			}
		}
	}

	res := m.Resolve(raw)

	if s.cache != nil {
		if data, err := json.Marshal(res); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				s.log.Debug().Err(err).Str("key", key).Msg("caching lookup result")
			}
		}
	}
	return res, nil
}

// Search returns every fuzzy candidate for a query, ranked by score then
// planogram position. Unlike Resolve it never collapses to a single product.
func (s *State) Search(query string) ([]catalog.Product, error) {
	s.mu.RLock()
	c := s.catalog
	s.mu.RUnlock()
	if c == nil {
		return nil, fmt.Errorf("no store selected")
	}
	return matching.FindAllFuzzy(query, c.Products()), nil
}

// ResolveScan looks a scanned barcode up against the active catalog.
func (s *State) ResolveScan(decoded string) (matching.Result, error) {
	s.mu.RLock()
	m := s.matcher
	s.mu.RUnlock()
	if m == nil {
		return matching.Result{}, fmt.Errorf("no store selected")
	}
	return m.ResolveScan(decoded), nil
}

// Layout renders the current side at the given content width using the
// current filter.
func (s *State) Layout(contentWidth float64) (layout.Layout, error) {
	s.mu.RLock()
	c := s.catalog
	side := s.side
	filter := s.filter
	s.mu.RUnlock()
	if c == nil {
		return layout.Layout{}, fmt.Errorf("no store selected")
	}
	return s.layout.Render(c, side, filter, contentWidth), nil
}

// MiniPOG computes the miniature overview locating the target product.
func (s *State) MiniPOG(targetUPC string) ([]layout.MiniShelf, error) {
	s.mu.RLock()
	c := s.catalog
	s.mu.RUnlock()
	if c == nil {
		return nil, fmt.Errorf("no store selected")
	}
	target, ok := c.FindByUPC(targetUPC)
	if !ok {
		return nil, fmt.Errorf("product %s not on planogram", targetUPC)
	}
	return s.layout.MiniPOG(c, target), nil
}

// PDF returns the session controller for the document viewer.
func (s *State) PDF() *pdfview.Controller {
	return s.pdf
}
