package appstate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suncare-ops/pog-engine/internal/cache"
	"github.com/suncare-ops/pog-engine/internal/catalog"
	"github.com/suncare-ops/pog-engine/internal/layout"
	"github.com/suncare-ops/pog-engine/internal/matching"
	"github.com/suncare-ops/pog-engine/internal/observability"
)

const palletJSON = `{
	"id": "pallet",
	"name": "Sun Care Pallet",
	"shelves": 2,
	"sides": 2,
	"products": [
		{"upc": "100", "name": "Lotion SPF 30", "segment": 1, "shelf": 2, "position": 1, "facings": 2},
		{"upc": "200", "name": "Spray SPF 50", "segment": 2, "shelf": 1, "position": 1, "facings": 1}
	]
}`

func newTestState(t *testing.T, c cache.Client) *State {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stores.json"),
		[]byte(`{"1001": "pallet"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pallet.json"),
		[]byte(palletJSON), 0o644))

	return New(Options{
		Loader: catalog.NewLoader(dir, ""),
		Layout: layout.NewEngine(layout.Config{
			DefaultWidthIn:  2.5,
			DefaultHeightIn: 6.0,
			BasePxPerIn:     7.2,
			GapPx:           4,
		}),
		Cache:    c,
		Logger:   observability.Nop(),
		CacheTTL: time.Minute,
	})
}

func TestSelectStoreResetsViewState(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, nil)

	_, err := s.SelectStore(ctx, "1001")
	require.NoError(t, err)
	require.NoError(t, s.SetSide(2))
	require.NoError(t, s.SetFilter(layout.FilterNew))

	pg, err := s.SelectStore(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "Sun Care Pallet", pg.Name)
	assert.Equal(t, 1, s.Side(), "side resets on load")
	assert.Equal(t, layout.FilterAll, s.Filter(), "filter resets on load")
	assert.Equal(t, "1001", s.StoreID())
	assert.Equal(t, "pallet", s.POGType())
}

func TestSelectStoreUnknown(t *testing.T) {
	s := newTestState(t, nil)
	_, err := s.SelectStore(context.Background(), "9999")
	assert.ErrorContains(t, err, "not in registry")
}

func TestSetSideValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, nil)

	assert.Error(t, s.SetSide(1), "no store selected yet")

	_, err := s.SelectStore(ctx, "1001")
	require.NoError(t, err)
	assert.NoError(t, s.SetSide(2))
	assert.Error(t, s.SetSide(0))
	assert.Error(t, s.SetSide(3))
}

func TestSetFilterValidation(t *testing.T) {
	s := newTestState(t, nil)
	assert.NoError(t, s.SetFilter(layout.FilterSRP))
	assert.Error(t, s.SetFilter(layout.Filter("bogus")))
}

func TestResolveUsesCache(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryClient(10)
	s := newTestState(t, mem)

	_, err := s.SelectStore(ctx, "1001")
	require.NoError(t, err)

	res, err := s.Resolve(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, matching.KindProduct, res.Kind)

	key := cache.ResolveKey("1001", "100")
	_, err = mem.Get(ctx, key)
	assert.NoError(t, err, "result was cached")

	// Cached result round-trips identically.
	again, err := s.Resolve(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestSelectStoreFlushesCache(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryClient(10)
	s := newTestState(t, mem)

	_, err := s.SelectStore(ctx, "1001")
	require.NoError(t, err)
	_, err = s.Resolve(ctx, "100")
	require.NoError(t, err)

	_, err = s.SelectStore(ctx, "1001")
	require.NoError(t, err)

	_, err = mem.Get(ctx, cache.ResolveKey("1001", "100"))
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestLayoutAndMiniPOG(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, nil)

	_, err := s.Layout(400)
	assert.Error(t, err, "layout requires a selected store")

	_, err = s.SelectStore(ctx, "1001")
	require.NoError(t, err)

	out, err := s.Layout(400)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Side)
	assert.Len(t, out.Shelves, 2)

	shelves, err := s.MiniPOG("200")
	require.NoError(t, err)
	assert.Len(t, shelves, 2)

	_, err = s.MiniPOG("999")
	assert.ErrorContains(t, err, "not on planogram")
}

func TestSearchListsCandidates(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, nil)

	_, err := s.Search("lotion")
	assert.Error(t, err, "search requires a selected store")

	_, err = s.SelectStore(ctx, "1001")
	require.NoError(t, err)

	candidates, err := s.Search("lotion")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "100", candidates[0].UPC)

	candidates, err = s.Search("spf")
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	candidates, err = s.Search("zz")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
