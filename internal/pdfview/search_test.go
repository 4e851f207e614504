package pdfview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchableDoc() *fakeDocument {
	return newFakeDocument(2, map[int][]TextItem{
		1: {
			textItem("Banana Boat Sport SPF 50", 100, 700, 12, 140),
			textItem("Coppertone Kids SPF 50", 100, 680, 12, 130),
		},
		2: {
			textItem("Banana Boat After Sun", 100, 700, 12, 120),
		},
	})
}

func openIndexed(t *testing.T, doc *fakeDocument) *Session {
	t.Helper()
	c := newTestController(doc)
	s, err := c.Open("pallet.pdf", "", 800)
	require.NoError(t, err)
	s.WaitForIndex(time.Second)
	require.Equal(t, doc.pages, s.IndexedPages())
	return s
}

func TestBuildPageText(t *testing.T) {
	pt := buildPageText([]TextItem{
		textItem("sun", 0, 0, 12, 20),
		{Str: ""},
		textItem("screen", 0, 0, 12, 40),
	})

	assert.Equal(t, "sun\nscreen", pt.FullText)
	require.Len(t, pt.Offsets, 2)
	assert.Equal(t, ItemOffset{Idx: 0, Start: 0, End: 3}, pt.Offsets[0])
	assert.Equal(t, ItemOffset{Idx: 1, Start: 4, End: 10}, pt.Offsets[1])
}

func TestSearchStateLabel(t *testing.T) {
	tests := []struct {
		name  string
		state SearchState
		want  string
	}{
		{"no query", SearchState{}, ""},
		{"extracting", SearchState{Query: "spf", Extracting: true}, "Extracting..."},
		{"no matches", SearchState{Query: "spf"}, "No matches"},
		{"counter", SearchState{Query: "spf", Total: 7, CurrentIdx: 2}, "3 / 7"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.state.Label())
		})
	}
}

func TestPerformSearch(t *testing.T) {
	s := openIndexed(t, searchableDoc())

	st, err := s.PerformSearch("banana")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 0, st.CurrentIdx)
	assert.False(t, st.Extracting)
	assert.Equal(t, "1 / 2", st.Label())

	// First match is on the current page, so no navigation render happened.
	assert.Equal(t, 1, s.CurrentPage())

	matches := s.Matches()
	require.Len(t, matches, 2)
	assert.Equal(t, 1, matches[0].PageNum)
	assert.Equal(t, 2, matches[1].PageNum)
	assert.Equal(t, []int{0}, matches[0].Items)
}

func TestPerformSearchCaseInsensitive(t *testing.T) {
	s := openIndexed(t, searchableDoc())

	st, err := s.PerformSearch("BANANA boat")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
}

func TestPerformSearchOverlapping(t *testing.T) {
	doc := newFakeDocument(1, map[int][]TextItem{
		1: {textItem("aaaa", 100, 700, 12, 30)},
	})
	s := openIndexed(t, doc)

	st, err := s.PerformSearch("aa")
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
}

func TestPerformSearchOffsetsSurviveNonASCIILowering(t *testing.T) {
	doc := newFakeDocument(1, map[int][]TextItem{
		1: {
			textItem("İzmir", 100, 700, 12, 50),
			textItem("Banana", 100, 680, 12, 60),
		},
	})
	s := openIndexed(t, doc)

	// "İ" grows by a byte when lowered; match offsets must still index
	// the original page text.
	st, err := s.PerformSearch("anana")
	require.NoError(t, err)
	require.Equal(t, 1, st.Total)

	m := s.Matches()[0]
	s.mu.Lock()
	text := s.index[1].FullText
	s.mu.Unlock()
	assert.Equal(t, "anana", text[m.Start:m.End])
	assert.Equal(t, []int{1}, m.Items)
}

func TestPerformSearchEmptyClears(t *testing.T) {
	s := openIndexed(t, searchableDoc())

	_, err := s.PerformSearch("banana")
	require.NoError(t, err)

	st, err := s.PerformSearch("")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Total)
	assert.Equal(t, -1, st.CurrentIdx)
	assert.Equal(t, "", st.Label())
	assert.Empty(t, s.Matches())
}

func TestMatchNavigationWraps(t *testing.T) {
	doc := searchableDoc()
	s := openIndexed(t, doc)

	_, err := s.PerformSearch("banana")
	require.NoError(t, err)

	// Match 1 is on page 2: navigating renders exactly one page.
	before := doc.renderCount()
	render, err := s.NextMatch()
	require.NoError(t, err)
	require.NotNil(t, render)
	assert.Equal(t, 2, render.PageNum)
	assert.Equal(t, before+1, doc.renderCount())
	assert.Equal(t, 1, s.Search().CurrentIdx)

	// Wraps back to match 0 on page 1.
	render, err = s.NextMatch()
	require.NoError(t, err)
	require.NotNil(t, render)
	assert.Equal(t, 1, render.PageNum)
	assert.Equal(t, 0, s.Search().CurrentIdx)

	// Stepping back wraps to the last match.
	render, err = s.PrevMatch()
	require.NoError(t, err)
	require.NotNil(t, render)
	assert.Equal(t, 2, render.PageNum)
	assert.Equal(t, 1, s.Search().CurrentIdx)
}

func TestNavigateMatchSamePageSkipsRender(t *testing.T) {
	doc := newFakeDocument(1, map[int][]TextItem{
		1: {
			textItem("spf 30", 100, 700, 12, 40),
			textItem("spf 50", 100, 680, 12, 40),
		},
	})
	s := openIndexed(t, doc)

	_, err := s.PerformSearch("spf")
	require.NoError(t, err)

	before := doc.renderCount()
	render, err := s.NextMatch()
	require.NoError(t, err)
	assert.Nil(t, render)
	assert.Equal(t, before, doc.renderCount())
	assert.Equal(t, 1, s.Search().CurrentIdx)
}

func TestSeededSearch(t *testing.T) {
	doc := searchableDoc()
	c := newTestController(doc)
	s, err := c.Open("pallet.pdf", "banana", 800)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Search().Total == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "banana", s.Search().Query)
	assert.Equal(t, 0, s.Search().CurrentIdx)
}

func TestHighlightsGeometry(t *testing.T) {
	doc := newFakeDocument(1, map[int][]TextItem{
		1: {textItem("Banana", 100, 700, 12, 60)},
	})
	s := openIndexed(t, doc)

	_, err := s.SetScale(1)
	require.NoError(t, err)
	_, err = s.PerformSearch("banana")
	require.NoError(t, err)

	hl, scrollTop, err := s.Highlights()
	require.NoError(t, err)
	require.Len(t, hl, 1)
	assert.Nil(t, scrollTop)

	// Text space anchor (100, 700) on a 792 pt page at scale 1: the
	// baseline sits at y 92, so the 12 pt tall rect starts at 80.
	assert.InDelta(t, 100, hl[0].Left, 1e-9)
	assert.InDelta(t, 80, hl[0].Top, 1e-9)
	assert.InDelta(t, 60, hl[0].Width, 1e-9)
	assert.InDelta(t, 12, hl[0].Height, 1e-9)
	assert.True(t, hl[0].Active)
}

func TestHighlightsDuringFitRenderUseBaseline(t *testing.T) {
	doc := newFakeDocument(1, map[int][]TextItem{
		1: {textItem("Banana", 100, 700, 12, 60)},
	})
	s := openIndexed(t, doc)

	_, err := s.GoToPage(1)
	require.NoError(t, err)
	_, err = s.PerformSearch("banana")
	require.NoError(t, err)

	// FitWidth restores the scale-0 sentinel before its render commits.
	// Highlights fetched in that window must use the committed baseline,
	// not native scale.
	s.mu.Lock()
	s.scale = 0
	base := s.baseScale
	s.mu.Unlock()
	require.InDelta(t, 784.0/612, base, 1e-9)

	hl, _, err := s.Highlights()
	require.NoError(t, err)
	require.Len(t, hl, 1)
	assert.InDelta(t, 100*base, hl[0].Left, 1e-9)
	assert.InDelta(t, 80*base, hl[0].Top, 1e-9)
	assert.InDelta(t, 60*base, hl[0].Width, 1e-9)
	assert.InDelta(t, 12*base, hl[0].Height, 1e-9)
}

func TestHighlightsMinimumSize(t *testing.T) {
	doc := newFakeDocument(1, map[int][]TextItem{
		1: {textItem("x", 50, 400, 2, 3)},
	})
	s := openIndexed(t, doc)

	_, err := s.SetScale(1)
	require.NoError(t, err)
	_, err = s.PerformSearch("x")
	require.NoError(t, err)

	hl, _, err := s.Highlights()
	require.NoError(t, err)
	require.Len(t, hl, 1)
	assert.Equal(t, 20.0, hl[0].Width)
	assert.Equal(t, 10.0, hl[0].Height)
}

func TestHighlightsScrollSuggestion(t *testing.T) {
	doc := newFakeDocument(1, map[int][]TextItem{
		1: {textItem("Banana", 100, 700, 12, 60)},
	})
	s := openIndexed(t, doc)

	s.SetViewport(800, 300, 1)
	_, err := s.SetScale(1)
	require.NoError(t, err)
	_, err = s.PerformSearch("banana")
	require.NoError(t, err)

	// Rect top 80 is inside [0, 300]: no suggestion.
	_, scrollTop, err := s.Highlights()
	require.NoError(t, err)
	assert.Nil(t, scrollTop)

	// Scrolled past the match: suggest a third of the view above it.
	s.SetScroll(500)
	_, scrollTop, err = s.Highlights()
	require.NoError(t, err)
	require.NotNil(t, scrollTop)
	assert.InDelta(t, 80-300.0/3, *scrollTop, 1e-9)
}
