package layout

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Messages produced while splitting a hand-written line.
const (
	WarnSuspiciousQuantity = "suspicious quantity format"
	WarnCompoundQuantity   = "compound quantity+unit likely"
	ErrQuantitySegment     = "cannot parse quantity/unit segment"
	ErrUnmatchedFormat     = "unmatched format"
)

var (
	linePattern = regexp.MustCompile(`^\s*(?P<item>[\p{Han}A-Za-z]+?)\s*(?:(?P<quantity>[0-9×xX*+]+(?:\s+[0-9×xX*+]+)*)\s*(?P<unit>\p{Han}+)?)?\s*$`)
	itemPattern = regexp.MustCompile(`^\s*([\p{Han}A-Za-z]+)(.*)$`)
	qtyPattern  = regexp.MustCompile(`^([0-9×xX*+]+)(\p{Han}*)`)

	mergedDigits = regexp.MustCompile(`\d+[×xX*+]\d{4,}`)
	compound     = regexp.MustCompile(`\d\p{Han}+\d`)
)

// LineItem is one hand-written order line split into its parts.
type LineItem struct {
	Item     string
	Quantity string
	Unit     string
	Warnings []string
	Errors   []string
}

// SplitRow parses "item quantity unit" from a single OCR line. A line that
// does not fit the full pattern falls back to reading a leading item name and
// a quantity/unit prefix of the rest.
func SplitRow(text string) LineItem {
	text = NormalizeText(text)
	var li LineItem
	if m := linePattern.FindStringSubmatch(text); m != nil {
		li.Item = m[linePattern.SubexpIndex("item")]
		li.Quantity = m[linePattern.SubexpIndex("quantity")]
		li.Unit = m[linePattern.SubexpIndex("unit")]
		if mergedDigits.MatchString(li.Quantity) {
			li.Warnings = append(li.Warnings, WarnSuspiciousQuantity)
		}
		if compound.MatchString(text) {
			li.Warnings = append(li.Warnings, WarnCompoundQuantity)
		}
		return li
	}
	m := itemPattern.FindStringSubmatch(text)
	if m == nil {
		li.Errors = append(li.Errors, ErrUnmatchedFormat)
		return li
	}
	li.Item = m[1]
	q := qtyPattern.FindStringSubmatch(strings.TrimSpace(m[2]))
	if q == nil {
		li.Errors = append(li.Errors, ErrQuantitySegment)
		return li
	}
	li.Quantity, li.Unit = q[1], q[2]
	if compound.MatchString(text) {
		li.Warnings = append(li.Warnings, WarnCompoundQuantity)
	}
	return li
}

// NormalizeText folds full-width letters, digits and operators to ASCII and
// trims the result.
func NormalizeText(s string) string {
	return strings.TrimSpace(norm.NFKC.String(width.Fold.String(s)))
}
