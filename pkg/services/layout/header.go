package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"orderscan/pkg/models"
)

// ErrHeader is wrapped by every header parse failure. The page cannot be read
// as a table once it occurs.
var ErrHeader = errors.New("header parse failure")

// HeaderError reports the token that broke the header scan.
type HeaderError struct {
	Index  int
	Text   string
	Reason string
}

func (e *HeaderError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrHeader, e.Reason)
	}
	return fmt.Sprintf("%s: token %d %q: %s", ErrHeader, e.Index, e.Text, e.Reason)
}

func (e *HeaderError) Unwrap() error { return ErrHeader }

// Header is the metadata block and column layout of a printed order.
type Header struct {
	CustomerName string                `json:"customer_name"`
	OrderDate    string                `json:"order_date"`
	Anchors      []models.ColumnAnchor `json:"anchors"`
	// End is the index of the first token after the column titles.
	End int `json:"end"`
}

// ParseHeader scans first-page tokens in reading order. Metadata is collected
// until a terminator keyword; from there every token on the title line, or
// containing a title keyword, must be exactly one registered title.
func ParseHeader(tokens []models.Token, tpl Template) (Header, error) {
	var h Header
	term := -1
	for i, tok := range tokens {
		text := strings.TrimSpace(tok.Text)
		if containsAny(text, tpl.Terminators) {
			term = i
			break
		}
		switch {
		case containsAny(text, tpl.CustomerKeys):
			h.CustomerName = valueAfter(text, tpl.CustomerKeys)
		case containsAny(text, tpl.DateKeys):
			h.OrderDate = valueAfter(text, tpl.DateKeys)
		}
	}
	if term < 0 {
		return h, &HeaderError{Index: -1, Reason: "no column title row found"}
	}

	titleTop := tokens[term].Box.Top
	seen := make(map[models.Column]bool)
	i := term
	for ; i < len(tokens); i++ {
		tok := tokens[i]
		text := strings.TrimSpace(tok.Text)
		onTitleLine := math.Abs(tok.Box.Top-titleTop) <= tpl.RowGap
		if !onTitleLine && !tpl.mentionsTitle(text) {
			break
		}
		col, ok := tpl.column(text)
		if !ok {
			return h, &HeaderError{Index: i, Text: tok.Text, Reason: "unknown column title"}
		}
		if seen[col] {
			return h, &HeaderError{Index: i, Text: tok.Text, Reason: "duplicate column title"}
		}
		seen[col] = true
		h.Anchors = append(h.Anchors, models.ColumnAnchor{Column: col, X: tok.Box.Left})
	}
	h.End = i
	if !seen[models.ColumnProductName] {
		return h, &HeaderError{Index: -1, Reason: fmt.Sprintf("no %s column", models.ColumnProductName)}
	}
	return h, nil
}
