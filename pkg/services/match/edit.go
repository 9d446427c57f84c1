package match

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity is the normalized edit similarity 1 - distance/longer length.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	longer := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longer {
		longer = n
	}
	if longer == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longer)
}

// EditMatcher ranks aliases by edit similarity and confirms the choice against
// the product id printed on the row.
type EditMatcher struct {
	catalog Catalog
	names   []string
}

// NewEditMatcher indexes the catalog alias names.
func NewEditMatcher(c Catalog) *EditMatcher {
	return &EditMatcher{catalog: c, names: uniqueNames(c.Names())}
}

// Rank returns the best candidates for name, at most five.
func (m *EditMatcher) Rank(name string) []Candidate {
	out := make([]Candidate, 0, len(m.names))
	for _, n := range m.names {
		out = append(out, Candidate{Name: n, Score: Similarity(name, n)})
	}
	rank(out)
	return topN(out, editCandidateLimit)
}

// Match picks the first ranked candidate mapped to q.ProductID.
func (m *EditMatcher) Match(q Query) Result {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return Result{ProductID: q.ProductID, Errors: []string{ErrMissingName}}
	}
	ranked := m.Rank(name)
	if len(ranked) == 0 {
		return Result{ProductID: q.ProductID, Errors: []string{ErrNoCandidate}}
	}
	best := ranked[0]
	res := Result{Name: best.Name, Score: best.Score, Candidates: ranked}

	id := strings.TrimSpace(q.ProductID)
	if id != "" && !m.catalog.Has(id) {
		res.Errors = append(res.Errors, ErrIDNotFound)
		id = ""
	}
	if id == "" {
		if ids := m.catalog.IDsForName(best.Name); len(ids) > 0 {
			res.ProductID = ids[0]
		}
		return res
	}

	res.ProductID = id
	for _, c := range ranked {
		for _, cid := range m.catalog.IDsForName(c.Name) {
			if cid == id {
				res.Name, res.Score = c.Name, c.Score
				return res
			}
		}
	}
	res.Score = 0
	res.Errors = append(res.Errors, ErrIDNameMismatch)
	return res
}
