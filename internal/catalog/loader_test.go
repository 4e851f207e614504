package catalog

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const palletJSON = `{
	"id": "pallet",
	"name": "Sun Care Pallet",
	"subtitle": "Spring Set",
	"pogNumber": "P-1234",
	"totalProducts": 3,
	"shelves": 2,
	"sides": 2,
	"products": [
		{"upc": "100", "name": "Lotion", "segment": 1, "shelf": 2, "position": 1, "facings": 2, "widthIn": 4.0},
		{"upc": "200", "name": "Spray", "segment": 1, "shelf": 2, "position": 2, "facings": 1},
		{"upc": "300", "name": "Stick", "segment": 2, "shelf": 1, "position": 1, "facings": 3}
	],
	"upcRedirects": {"099": "100"},
	"removedProducts": [{"upc": "400", "name": "Old Oil"}]
}`

func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stores.json"),
		[]byte(`{"1001": "pallet", "1002": "endcap"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pallet.json"),
		[]byte(palletJSON), 0o644))
	return dir
}

func TestLoaderStores(t *testing.T) {
	l := NewLoader(writeDataDir(t), "")

	reg, err := l.Stores()
	require.NoError(t, err)
	assert.Equal(t, StoreRegistry{"1001": "pallet", "1002": "endcap"}, reg)
}

func TestLoaderPlanogram(t *testing.T) {
	l := NewLoader(writeDataDir(t), "")

	pg, err := l.Planogram("pallet")
	require.NoError(t, err)
	assert.Equal(t, "Sun Care Pallet", pg.Name)
	assert.Equal(t, "P-1234", pg.POGNumber)
	assert.Equal(t, 2, pg.Shelves)
	assert.Len(t, pg.Products, 3)
	assert.Equal(t, "100", pg.UPCRedirects["099"])
	require.Len(t, pg.RemovedProducts, 1)

	require.NotNil(t, pg.Products[0].WidthIn)
	assert.InDelta(t, 4.0, *pg.Products[0].WidthIn, 1e-9)
	assert.Nil(t, pg.Products[1].WidthIn)
}

func TestLoaderForStore(t *testing.T) {
	l := NewLoader(writeDataDir(t), "")

	pg, err := l.ForStore("1001")
	require.NoError(t, err)
	assert.Equal(t, TypePallet, pg.ID)

	_, err = l.ForStore("9999")
	assert.ErrorContains(t, err, "not in registry")
}

func TestLoaderValidation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{
		"id": "shelfwall", "shelves": 2, "sides": 1, "products": []
	}`), 0o644))
	l := NewLoader(dir, "")
	_, err := l.Planogram("bad")
	assert.ErrorContains(t, err, "unknown planogram type")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "badside.json"), []byte(`{
		"id": "pallet", "shelves": 2, "sides": 1,
		"products": [{"upc": "1", "name": "x", "segment": 3, "shelf": 1, "position": 1, "facings": 1}]
	}`), 0o644))
	_, err = l.Planogram("badside")
	assert.ErrorContains(t, err, "side 3 out of range")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "badfacings.json"), []byte(`{
		"id": "pallet", "shelves": 1, "sides": 1,
		"products": [{"upc": "1", "name": "x", "segment": 1, "shelf": 1, "position": 1, "facings": 0}]
	}`), 0o644))
	_, err = l.Planogram("badfacings")
	assert.ErrorContains(t, err, "facings must be at least 1")
}

func TestCatalogQueries(t *testing.T) {
	l := NewLoader(writeDataDir(t), "")
	pg, err := l.Planogram("pallet")
	require.NoError(t, err)
	c := New(pg)

	p, ok := c.FindByUPC("200")
	require.True(t, ok)
	assert.Equal(t, "Spray", p.Name)

	// Raw equality only; normalization happens in the matcher.
	_, ok = c.FindByUPC("0200")
	assert.False(t, ok)

	side1 := c.Side(1)
	assert.Len(t, side1, 2)
	side2 := c.Side(2)
	assert.Len(t, side2, 1)

	shelf := c.ShelfProducts(1, 2)
	require.Len(t, shelf, 2)
	assert.Equal(t, "100", shelf[0].UPC)
	assert.Equal(t, "200", shelf[1].UPC)

	removed := c.RemovedAsProducts()
	require.Len(t, removed, 1)
	assert.Equal(t, "400", removed[0].UPC)
	assert.Equal(t, "Old Oil", removed[0].Name)
}

func TestProductDimensionFallbacks(t *testing.T) {
	inf := math.Inf(1)
	p := Product{}
	assert.InDelta(t, 2.5, p.WidthInches(2.5), 1e-9)
	assert.InDelta(t, 6.0, p.HeightInches(6.0), 1e-9)

	w := 3.25
	p.WidthIn = &w
	assert.InDelta(t, 3.25, p.WidthInches(2.5), 1e-9)

	p.WidthIn = &inf
	assert.InDelta(t, 2.5, p.WidthInches(2.5), 1e-9, "non-finite widths fall back")
}
