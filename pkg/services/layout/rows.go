package layout

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"orderscan/pkg/models"
)

// ClusterOptions are the pixel thresholds used to group tokens.
type ClusterOptions struct {
	RowGap          float64
	ColumnTolerance float64
}

// ClusterOptions returns the template's thresholds.
func (t Template) ClusterOptions() ClusterOptions {
	return ClusterOptions{RowGap: t.RowGap, ColumnTolerance: t.ColumnTolerance}
}

// Cell is a token placed in a row. Column is empty for an unresolved token.
type Cell struct {
	Token  models.Token
	Column models.Column
}

// Bound reports whether the token was matched to a column anchor.
func (c Cell) Bound() bool { return c.Column != "" }

// Row is a group of tokens sharing a baseline, ordered left to right.
type Row struct {
	Cells    []Cell
	Warnings []string
}

// Special reports whether the row is trailer content rather than a line item.
func (r Row) Special() bool { return len(r.Cells) <= 2 }

// Text joins every token of the row, bound or not.
func (r Row) Text() string {
	parts := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		parts[i] = strings.TrimSpace(c.Token.Text)
	}
	return strings.Join(parts, " ")
}

// Box is the union of all token boxes.
func (r Row) Box() models.Box {
	var b models.Box
	for _, c := range r.Cells {
		b = b.Union(c.Token.Box)
	}
	return b
}

// OCRScore is the lowest score among tokens bound to the product id, name and
// quantity columns, or among all tokens when none of those are bound.
func (r Row) OCRScore() float64 {
	identity, all := math.Inf(1), math.Inf(1)
	for _, c := range r.Cells {
		all = math.Min(all, c.Token.Score)
		if c.Column.IdentityRelevant() {
			identity = math.Min(identity, c.Token.Score)
		}
	}
	switch {
	case !math.IsInf(identity, 1):
		return identity
	case !math.IsInf(all, 1):
		return all
	}
	return 0
}

// Fill copies the row onto an item record: bound text into its column, the
// full text, box, OCR score and positional warnings.
func (r Row) Fill(it *models.ItemRecord) {
	for _, c := range r.Cells {
		if c.Bound() {
			it.Set(c.Column, c.Token.Text)
		}
	}
	it.OCRText = r.Text()
	it.Box = r.Box()
	it.OCRScore = r.OCRScore()
	for _, w := range r.Warnings {
		it.AddWarning(w)
	}
}

// Cluster groups tokens into rows. Tokens are ordered by position first, so the
// result does not depend on the order the OCR engine returned them in.
func Cluster(tokens []models.Token, anchors []models.ColumnAnchor, opts ClusterOptions) []Row {
	if len(tokens) == 0 {
		return nil
	}
	sorted := append([]models.Token(nil), tokens...)
	sort.SliceStable(sorted, func(i, j int) bool { return tokenLess(sorted[i], sorted[j]) })

	var groups [][]models.Token
	current := []models.Token{sorted[0]}
	for _, tok := range sorted[1:] {
		if math.Abs(tok.Box.Top-current[len(current)-1].Box.Top) > opts.RowGap {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, tok)
	}
	groups = append(groups, current)

	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return g[i].Box.Left < g[j].Box.Left })
		rows = append(rows, bind(g, anchors, opts.ColumnTolerance))
	}
	return rows
}

func bind(tokens []models.Token, anchors []models.ColumnAnchor, tolerance float64) Row {
	row := Row{Cells: make([]Cell, 0, len(tokens))}
	for _, tok := range tokens {
		col, ok := nearest(tok.Box.Left, anchors, tolerance)
		if !ok {
			row.Warnings = append(row.Warnings, fmt.Sprintf("token %q at x=%g matches no column", tok.Text, tok.Box.Left))
		}
		row.Cells = append(row.Cells, Cell{Token: tok, Column: col})
	}
	return row
}

// nearest returns the anchor closest to x. The first anchor wins a tie.
func nearest(x float64, anchors []models.ColumnAnchor, tolerance float64) (models.Column, bool) {
	best, dist := -1, math.Inf(1)
	for i, a := range anchors {
		if d := math.Abs(x - a.X); d < dist {
			best, dist = i, d
		}
	}
	if best < 0 || dist > tolerance {
		return "", false
	}
	return anchors[best].Column, true
}

func tokenLess(a, b models.Token) bool {
	switch {
	case a.Box.Top != b.Box.Top:
		return a.Box.Top < b.Box.Top
	case a.Box.Left != b.Box.Left:
		return a.Box.Left < b.Box.Left
	case a.Text != b.Text:
		return a.Text < b.Text
	case a.Score != b.Score:
		return a.Score < b.Score
	case a.Box.Right != b.Box.Right:
		return a.Box.Right < b.Box.Right
	}
	return a.Box.Bottom < b.Box.Bottom
}
