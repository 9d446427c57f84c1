// Package match resolves noisy OCR item names to catalog aliases.
//
// Two strategies share the Matcher interface: ScriptMatcher compares the
// structure of Chinese characters (strokes and components) and suits
// hand-written orders; EditMatcher uses edit distance and cross-checks the
// product id printed on the same row. Both are built once per catalog and are
// read-only afterwards.
package match

import "sort"

// Messages attached to results.
const (
	ErrMissingName     = "missing product name"
	ErrNoCandidate     = "no catalog candidate"
	ErrIDNotFound      = "product id not found"
	ErrIDNameMismatch  = "product id and name do not match"
	editCandidateLimit = 5
)

// Catalog is the view of the product catalog the matchers need.
type Catalog interface {
	Names() []string
	IDsForName(name string) []string
	Has(id string) bool
}

// Query is a name to resolve plus, for printed rows, the product id read from
// the same row.
type Query struct {
	Name      string
	ProductID string
}

// Candidate is a ranked alias.
type Candidate struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Result is the best match. A failed match carries Errors and a zero score;
// it is never reported as a Go error.
type Result struct {
	Name       string      `json:"name"`
	ProductID  string      `json:"product_id,omitempty"`
	Score      float64     `json:"score"`
	Errors     []string    `json:"errors,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Matcher ranks catalog aliases for a query.
type Matcher interface {
	Match(q Query) Result
}

// uniqueNames keeps the first occurrence of each name.
func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// rank sorts candidates by descending score, keeping enumeration order on ties.
func rank(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Score > c[j].Score })
}
