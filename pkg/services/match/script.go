package match

import (
	"math"
	"strings"
)

const gramSize = 3

// Combine merges the stroke and radical similarities. The stronger signal
// counts fully and the weaker adds a tenth, capped at 1.
func Combine(a, b float64) float64 {
	return math.Min(1, combined(a, b))
}

// combined is the uncapped merge used for ranking, so an alias that agrees on
// both metrics beats one that only shares a stroke sequence.
func combined(a, b float64) float64 {
	return math.Max(a, b) + math.Min(a, b)/10
}

// ScriptMatcher ranks aliases by stroke-sequence and component similarity.
type ScriptMatcher struct {
	names   []string
	stroke  *vectorizer
	radical *vectorizer
}

// NewScriptMatcher fits both metrics on the catalog alias names.
func NewScriptMatcher(c Catalog, dicts Dictionaries) *ScriptMatcher {
	names := c.Names()
	return &ScriptMatcher{
		names:   names,
		stroke:  newVectorizer(names, dicts.Stroke, gramSize),
		radical: newVectorizer(names, dicts.Radical, gramSize),
	}
}

// Rank scores every alias against name, best first. Scores are capped at 1
// only after ordering.
func (m *ScriptMatcher) Rank(name string) []Candidate {
	stroke := maxPerName(m.names, m.stroke.similarities(name))
	radical := maxPerName(m.names, m.radical.similarities(name))
	order := uniqueNames(m.names)
	out := make([]Candidate, 0, len(order))
	for _, n := range order {
		out = append(out, Candidate{Name: n, Score: combined(stroke[n], radical[n])})
	}
	rank(out)
	for i := range out {
		out[i].Score = math.Min(1, out[i].Score)
	}
	return out
}

// maxPerName keeps the best score of a name fitted more than once.
func maxPerName(names []string, scores []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, n := range names {
		if s, ok := out[n]; !ok || scores[i] > s {
			out[n] = scores[i]
		}
	}
	return out
}

// Match returns the top alias. The product id is left for the caller, which
// knows the unit written on the order.
func (m *ScriptMatcher) Match(q Query) Result {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return Result{Errors: []string{ErrMissingName}}
	}
	ranked := m.Rank(name)
	if len(ranked) == 0 {
		return Result{Errors: []string{ErrNoCandidate}}
	}
	return Result{Name: ranked[0].Name, Score: ranked[0].Score, Candidates: topN(ranked, editCandidateLimit)}
}

func topN(c []Candidate, n int) []Candidate {
	if len(c) > n {
		c = c[:n]
	}
	return append([]Candidate(nil), c...)
}
