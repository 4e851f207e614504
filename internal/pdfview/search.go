package pdfview

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ItemOffset records one text item's [Start,End) character span within its
// page's concatenated text.
type ItemOffset struct {
	Idx   int
	Start int
	End   int
}

// PageText is one page's searchable text index: the filtered items, their
// concatenation (joined with a single newline), and the per-item offsets.
type PageText struct {
	Items    []TextItem
	FullText string
	Offsets  []ItemOffset
}

// Match is one search hit: its page, character span within the page text,
// and the indices of the text items the span intersects.
type Match struct {
	PageNum int
	Start   int
	End     int
	Items   []int
}

// Highlight is one overlay rectangle in viewport pixel coordinates.
type Highlight struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Active bool    `json:"active"`
}

// SearchState summarizes the current search.
type SearchState struct {
	Query      string `json:"query"`
	Total      int    `json:"total"`
	CurrentIdx int    `json:"currentIdx"` // -1 when no match selected
	Extracting bool   `json:"extracting"` // index incomplete at search time
}

// Label returns the search counter text.
func (st SearchState) Label() string {
	if st.Query == "" {
		return ""
	}
	if st.Total == 0 {
		if st.Extracting {
			return "Extracting..."
		}
		return "No matches"
	}
	return strconv.Itoa(st.CurrentIdx+1) + " / " + strconv.Itoa(st.Total)
}

// buildPageText indexes one page's items. Offsets account for the 1-char
// separator so the concatenation can be split back into the exact items.
func buildPageText(items []TextItem) PageText {
	kept := make([]TextItem, 0, len(items))
	for _, it := range items {
		if it.Str != "" {
			kept = append(kept, it)
		}
	}

	var sb strings.Builder
	offsets := make([]ItemOffset, len(kept))
	offset := 0
	for i, it := range kept {
		if i > 0 {
			sb.WriteByte('\n')
		}
		offsets[i] = ItemOffset{Idx: i, Start: offset, End: offset + len(it.Str)}
		sb.WriteString(it.Str)
		offset += len(it.Str) + 1
	}
	return PageText{Items: kept, FullText: sb.String(), Offsets: offsets}
}

// extractAllText indexes every page in the background. The loop observes
// session liveness before each page and stops when the session closes.
func (s *Session) extractAllText() {
	defer close(s.extractDone)
	for n := 1; n <= s.totalPages; n++ {
		select {
		case <-s.lifeCtx.Done():
			return
		default:
		}

		page, err := s.doc.Page(n)
		if err != nil {
			s.log.Warn().Err(err).Int("page", n).Msg("text extraction: page unavailable")
			continue
		}
		items, err := page.TextContent(s.lifeCtx)
		if err != nil {
			if s.lifeCtx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Int("page", n).Msg("text extraction failed")
			continue
		}

		s.mu.Lock()
		if s.status == StatusClosed {
			s.mu.Unlock()
			return
		}
		s.index[n] = buildPageText(items)
		s.mu.Unlock()
	}
}

// IndexedPages reports how many pages have been indexed so far.
func (s *Session) IndexedPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// WaitForIndex blocks until text extraction completes, the timeout elapses,
// or the session closes.
func (s *Session) WaitForIndex(timeout time.Duration) {
	select {
	case <-s.extractDone:
	case <-time.After(timeout):
	case <-s.lifeCtx.Done():
	}
}

// searchWhenIndexed runs the pre-seeded search once extraction completes,
// bounded by the configured wait.
func (s *Session) searchWhenIndexed(term string) {
	s.WaitForIndex(s.cfg.ExtractWait)
	if s.Status() == StatusClosed {
		return
	}
	if _, err := s.PerformSearch(term); err != nil && err != ErrRenderCancelled {
		s.log.Warn().Err(err).Str("term", term).Msg("seeded search failed")
	}
}

// PerformSearch runs a case-insensitive substring search over every indexed
// page. Occurrences are found by advancing one character past each hit
// start, which deliberately detects adjacent and overlapping occurrences.
// When matches exist the first one is navigated to, rendering its page if
// it is not current. An empty query clears the search.
func (s *Session) PerformSearch(query string) (SearchState, error) {
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return SearchState{}, ErrClosed
	}

	s.lastQuery = query
	if query == "" {
		s.searchResults = nil
		s.currentIdx = -1
		s.mu.Unlock()
		return SearchState{CurrentIdx: -1}, nil
	}

	lower := strings.ToLower(query)
	var results []Match
	for pageNum := 1; pageNum <= s.totalPages; pageNum++ {
		data, ok := s.index[pageNum]
		if !ok {
			continue
		}
		// Match offsets index the original text, so the lowered copy must
		// keep byte positions. Planogram text is ASCII; on the rare page
		// where lowering changes byte length (e.g. U+0130) the scan
		// degrades to case-sensitive instead of drifting.
		lowerText := strings.ToLower(data.FullText)
		if len(lowerText) != len(data.FullText) {
			lowerText = data.FullText
		}
		pos := 0
		for {
			i := strings.Index(lowerText[pos:], lower)
			if i < 0 {
				break
			}
			start := pos + i
			end := start + len(lower)
			var items []int
			for _, io := range data.Offsets {
				if io.Start < end && io.End > start {
					items = append(items, io.Idx)
				}
			}
			results = append(results, Match{PageNum: pageNum, Start: start, End: end, Items: items})
			pos = start + 1
		}
	}

	s.searchResults = results
	if len(results) > 0 {
		s.currentIdx = 0
	} else {
		s.currentIdx = -1
	}
	extracting := len(s.index) < s.totalPages
	state := SearchState{Query: query, Total: len(results), CurrentIdx: s.currentIdx, Extracting: extracting}
	s.mu.Unlock()

	if len(results) > 0 {
		if _, err := s.NavigateMatch(0); err != nil && err != ErrRenderCancelled {
			return state, err
		}
	}
	return state, nil
}

// ClearSearch drops the search state, as when the search bar closes.
func (s *Session) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = ""
	s.searchResults = nil
	s.currentIdx = -1
}

// Search returns the current search state.
func (s *Session) Search() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SearchState{
		Query:      s.lastQuery,
		Total:      len(s.searchResults),
		CurrentIdx: s.currentIdx,
		Extracting: len(s.index) < s.totalPages,
	}
}

// Matches returns a copy of the current result list in document order.
func (s *Session) Matches() []Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Match, len(s.searchResults))
	copy(out, s.searchResults)
	return out
}

// NavigateMatch makes the given match current. A match on another page
// triggers exactly one render of that page before highlights apply; a match
// on the current page only recomputes the highlight layer.
func (s *Session) NavigateMatch(idx int) (*PageRender, error) {
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if idx < 0 || idx >= len(s.searchResults) {
		s.mu.Unlock()
		return nil, nil
	}
	s.currentIdx = idx
	match := s.searchResults[idx]
	samePage := match.PageNum == s.currentPage
	s.mu.Unlock()

	if !samePage {
		return s.RenderPage(match.PageNum)
	}
	return nil, nil
}

// NextMatch advances to the next match, wrapping around.
func (s *Session) NextMatch() (*PageRender, error) {
	s.mu.Lock()
	n := len(s.searchResults)
	idx := s.currentIdx
	s.mu.Unlock()
	if n == 0 {
		return nil, nil
	}
	return s.NavigateMatch((idx + 1) % n)
}

// PrevMatch steps back to the previous match, wrapping around.
func (s *Session) PrevMatch() (*PageRender, error) {
	s.mu.Lock()
	n := len(s.searchResults)
	idx := s.currentIdx
	s.mu.Unlock()
	if n == 0 {
		return nil, nil
	}
	return s.NavigateMatch((idx - 1 + n) % n)
}

// Highlights computes the overlay rectangles for the current page at the
// current zoom, plus a scroll suggestion when the active match is outside
// the visible region.
func (s *Session) Highlights() ([]Highlight, *float64, error) {
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return nil, nil, ErrClosed
	}
	page := s.currentPage
	scale := s.scale
	baseScale := s.baseScale
	s.mu.Unlock()

	// Scale 0 means fit-to-width; before the first render commits a
	// baseline, native scale is all that is left.
	if scale == 0 {
		scale = baseScale
	}
	if scale == 0 {
		scale = 1
	}
	p, err := s.doc.Page(page)
	if err != nil {
		return nil, nil, err
	}
	viewport := p.Viewport(scale)

	s.mu.Lock()
	defer s.mu.Unlock()
	hl, scroll := s.highlightsLocked(page, viewport)
	return hl, scroll, nil
}

// highlightsLocked builds the highlight layer for a page. Caller holds mu.
func (s *Session) highlightsLocked(pageNum int, viewport Viewport) ([]Highlight, *float64) {
	if len(s.searchResults) == 0 {
		return nil, nil
	}
	data, ok := s.index[pageNum]
	if !ok {
		return nil, nil
	}

	var highlights []Highlight
	var scrollTo *float64
	for i, match := range s.searchResults {
		if match.PageNum != pageNum {
			continue
		}
		active := i == s.currentIdx
		for _, idx := range match.Items {
			if idx < 0 || idx >= len(data.Items) {
				continue
			}
			rect := itemRect(data.Items[idx], viewport)
			rect.Active = active
			highlights = append(highlights, rect)

			if active && s.contentHeight > 0 {
				if rect.Top < s.scrollTop || rect.Top > s.scrollTop+s.contentHeight {
					target := rect.Top - s.contentHeight/3
					scrollTo = &target
				}
			}
		}
	}
	return highlights, scrollTo
}

// itemRect converts a text item's anchor and measured width to a viewport
// rectangle. Font size is recovered from the transform's scale component;
// the 20x10 px floors keep degenerate items visible and clickable.
func itemRect(item TextItem, viewport Viewport) Highlight {
	left, bottom := viewport.ConvertToViewportPoint(item.Transform[4], item.Transform[5])
	fontSize := math.Hypot(item.Transform[0], item.Transform[1])
	height := fontSize * viewport.Scale
	width := item.Width * viewport.Scale
	return Highlight{
		Left:   left,
		Top:    bottom - height,
		Width:  math.Max(width, 20),
		Height: math.Max(height, 10),
	}
}
