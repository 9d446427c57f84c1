package match

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize folds full-width forms and compatibility characters and collapses
// whitespace so OCR output and catalog names compare on equal terms.
func Normalize(s string) string {
	s = norm.NFKC.String(width.Fold.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// ngrams cuts a decomposed sequence into n-grams. A sequence shorter than n is
// a single gram.
func ngrams(seq []rune, n int) []string {
	if len(seq) == 0 {
		return nil
	}
	if len(seq) < n {
		return []string{string(seq)}
	}
	out := make([]string, 0, len(seq)-n+1)
	for i := 0; i+n <= len(seq); i++ {
		out = append(out, string(seq[i:i+n]))
	}
	return out
}

type sparse map[int]float64

// vectorizer is a TF-IDF model over decomposition n-grams, fitted once on the
// catalog names.
type vectorizer struct {
	dict  Dictionary
	n     int
	vocab map[string]int
	idf   []float64
	docs  []sparse
}

func newVectorizer(names []string, dict Dictionary, n int) *vectorizer {
	v := &vectorizer{dict: dict, n: n, vocab: make(map[string]int)}
	grams := make([][]string, len(names))
	var df []int
	for i, name := range names {
		grams[i] = v.grams(name)
		seen := make(map[int]bool)
		for _, g := range grams[i] {
			id, ok := v.vocab[g]
			if !ok {
				id = len(v.vocab)
				v.vocab[g] = id
				df = append(df, 0)
			}
			if !seen[id] {
				seen[id] = true
				df[id]++
			}
		}
	}
	total := float64(len(names))
	v.idf = make([]float64, len(df))
	for id, f := range df {
		v.idf[id] = math.Log((1+total)/(1+float64(f))) + 1
	}
	v.docs = make([]sparse, len(names))
	for i, g := range grams {
		v.docs[i] = v.weigh(g)
	}
	return v
}

func (v *vectorizer) grams(s string) []string {
	return ngrams(v.dict.Decompose(Normalize(s)), v.n)
}

// weigh builds an L2-normalized TF-IDF vector. Grams outside the vocabulary are
// dropped.
func (v *vectorizer) weigh(grams []string) sparse {
	vec := make(sparse)
	for _, g := range grams {
		if id, ok := v.vocab[g]; ok {
			vec[id]++
		}
	}
	var sum float64
	for id, tf := range vec {
		w := tf * v.idf[id]
		vec[id] = w
		sum += w * w
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for id := range vec {
		vec[id] /= norm
	}
	return vec
}

// similarities returns the cosine similarity of query against every fitted
// name, in fit order.
func (v *vectorizer) similarities(query string) []float64 {
	q := v.weigh(v.grams(query))
	out := make([]float64, len(v.docs))
	for i, d := range v.docs {
		var dot float64
		for id, w := range q {
			dot += w * d[id]
		}
		out[i] = math.Min(1, math.Max(0, dot))
	}
	return out
}
