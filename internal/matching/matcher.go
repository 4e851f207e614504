// Package matching implements UPC normalization and exact, redirect-aware,
// and fuzzy product lookup over a catalog snapshot. All functions are pure:
// absence is an empty result, never an error.
package matching

import (
	"sort"
	"strings"

	"github.com/suncare-ops/pog-engine/internal/catalog"
)

// Result kinds returned by Resolve.
const (
	KindNone       = "none"       // nothing matched anywhere
	KindProduct    = "product"    // a single live product
	KindCandidates = "candidates" // several fuzzy candidates, ranked
	KindRemoved    = "removed"    // matched the removed-products table only
)

// Redirect records that an input UPC was superseded by the returned
// product's UPC, or the reverse.
type Redirect struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Result is the outcome of resolving a raw input string.
type Result struct {
	Kind       string                  `json:"kind"`
	Product    *catalog.Product        `json:"product,omitempty"`
	Candidates []catalog.Product       `json:"candidates,omitempty"`
	Removed    *catalog.RemovedProduct `json:"removed,omitempty"`
	Redirect   *Redirect               `json:"redirect,omitempty"`
}

// Normalize strips leading zeros from a UPC string. Idempotent.
func Normalize(upc string) string {
	return strings.TrimLeft(upc, "0")
}

// Candidates holds the comparison variants derived from one raw input: the
// normalized code and its check-digit-dropped form, which tolerates scanners
// that omit or mis-read the trailing check digit.
type Candidates struct {
	Clean   string
	NoCheck string
}

// CandidatesFor derives the comparison variants for a raw input.
func CandidatesFor(raw string) Candidates {
	clean := Normalize(raw)
	noCheck := clean
	if len(clean) > 1 {
		noCheck = clean[:len(clean)-1]
	}
	return Candidates{Clean: clean, NoCheck: noCheck}
}

// Contains reports whether upc equals either variant.
func (c Candidates) Contains(upc string) bool {
	return upc == c.Clean || upc == c.NoCheck
}

// Matcher resolves raw input strings against the active catalog.
type Matcher struct {
	catalog *catalog.Catalog
}

// New creates a matcher over a catalog snapshot.
func New(c *catalog.Catalog) *Matcher {
	return &Matcher{catalog: c}
}

// Resolve looks up a raw user input (typed search or scanned barcode):
// direct UPC equality first, then the redirect table, then the fuzzy pass,
// and finally the removed-products table. A direct hit whose UPC appears as
// a redirect target is annotated with the superseded code.
func (m *Matcher) Resolve(raw string) Result {
	if p, ok := m.catalog.FindByUPC(raw); ok {
		res := Result{Kind: KindProduct, Product: &p}
		if r := m.ReverseRedirect(p.UPC); r != nil {
			res.Redirect = r
		}
		return res
	}

	cands := CandidatesFor(raw)
	for _, old := range sortedKeys(m.catalog.Redirects()) {
		if !cands.Contains(Normalize(old)) {
			continue
		}
		newUPC := m.catalog.Redirects()[old]
		if p, ok := m.catalog.FindByUPC(newUPC); ok {
			return Result{
				Kind:     KindProduct,
				Product:  &p,
				Redirect: &Redirect{Old: raw, New: newUPC},
			}
		}
		// Redirect target not in the catalog: degrade to the fuzzy pass.
	}

	matches := FindAllFuzzy(raw, m.catalog.Products())
	switch {
	case len(matches) == 1:
		p := matches[0]
		return Result{Kind: KindProduct, Product: &p}
	case len(matches) > 1:
		return Result{Kind: KindCandidates, Candidates: matches}
	}

	if removed := FindAllFuzzy(raw, m.catalog.RemovedAsProducts()); len(removed) > 0 {
		r := catalog.RemovedProduct{UPC: removed[0].UPC, Name: removed[0].Name}
		return Result{Kind: KindRemoved, Removed: &r}
	}

	return Result{Kind: KindNone}
}

// ResolveScan handles a camera decode result: direct lookup, then the
// scanner-tolerant single-match pass, then the removed table.
func (m *Matcher) ResolveScan(decoded string) Result {
	if p, ok := m.catalog.FindByUPC(decoded); ok {
		res := Result{Kind: KindProduct, Product: &p}
		if r := m.ReverseRedirect(p.UPC); r != nil {
			res.Redirect = r
		}
		return res
	}
	if p, ok := FindByFuzzy(decoded, m.catalog.Products()); ok {
		return Result{Kind: KindProduct, Product: &p}
	}
	if r, ok := FindByFuzzy(decoded, m.catalog.RemovedAsProducts()); ok {
		removed := catalog.RemovedProduct{UPC: r.UPC, Name: r.Name}
		return Result{Kind: KindRemoved, Removed: &removed}
	}
	return Result{Kind: KindNone}
}

// ReverseRedirect reports whether the given live product UPC is the target
// of a redirect entry, returning the normalized pair when it is.
func (m *Matcher) ReverseRedirect(productUPC string) *Redirect {
	clean := Normalize(productUPC)
	for _, old := range sortedKeys(m.catalog.Redirects()) {
		if Normalize(m.catalog.Redirects()[old]) == clean {
			return &Redirect{Old: Normalize(old), New: clean}
		}
	}
	return nil
}

// FindByFuzzy is the scanner-specific single-match pass: exact or
// check-digit-dropped equality, or a one-character length difference with
// prefix containment when the stored UPC is longer than 8 digits. Returns
// the first match in catalog order.
func FindByFuzzy(raw string, items []catalog.Product) (catalog.Product, bool) {
	cands := CandidatesFor(raw)
	for _, p := range items {
		pUPC := Normalize(p.UPC)
		if cands.Contains(pUPC) {
			return p, true
		}
		if len(pUPC) > 8 &&
			(strings.HasPrefix(pUPC, cands.Clean) || strings.HasPrefix(cands.Clean, pUPC)) {
			if diff := len(pUPC) - len(cands.Clean); diff == 1 || diff == -1 {
				return p, true
			}
		}
	}
	return catalog.Product{}, false
}

// FindAllFuzzy scores every item against the query and returns matches
// ranked best first. Numeric queries shorter than 4 digits and other
// queries shorter than 3 characters return nothing; that is a noise floor,
// not an error. Ties are broken by ascending shelf position.
func FindAllFuzzy(query string, items []catalog.Product) []catalog.Product {
	raw := strings.ToLower(strings.TrimSpace(query))
	if raw == "" {
		return nil
	}
	numeric := isNumeric(raw)
	if numeric && len(raw) < 4 {
		return nil
	}
	if !numeric && len(raw) < 3 {
		return nil
	}

	qNorm := Normalize(raw)
	noCheck := qNorm
	if len(qNorm) > 1 {
		noCheck = qNorm[:len(qNorm)-1]
	}

	type scored struct {
		product catalog.Product
		score   int
	}
	var results []scored
	for _, p := range items {
		pUPC := Normalize(p.UPC)
		pUPCFull := strings.ToLower(p.UPC)
		pName := strings.ToLower(p.Name)

		var score int
		switch {
		case pUPC == qNorm:
			score = 100
		case strings.HasSuffix(pUPC, qNorm):
			score = 90
		case strings.HasPrefix(pUPC, qNorm):
			score = 80
		case strings.Contains(pUPC, raw) || strings.Contains(pUPCFull, raw):
			score = 70
		case strings.Contains(pName, raw):
			score = 50
		case len(raw) >= 4 && (strings.HasSuffix(pUPC, noCheck) || strings.Contains(pUPC, noCheck)):
			score = 40
		}
		if score > 0 {
			results = append(results, scored{product: p, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].product.Position < results[j].product.Position
	})

	out := make([]catalog.Product, 0, len(results))
	for _, r := range results {
		out = append(out, r.product)
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
