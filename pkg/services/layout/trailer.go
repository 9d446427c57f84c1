package layout

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// Trailer holds the order-level values printed below the item table.
type Trailer struct {
	Total    decimal.Decimal
	Tax      decimal.Decimal
	HasTotal bool
	HasTax   bool
	Status   string
}

// ParseTrailer reads special rows by keyword. The first matching row wins for
// each field.
func ParseTrailer(rows []string, tpl Template) Trailer {
	var t Trailer
	for _, text := range rows {
		switch {
		case containsAny(text, tpl.TotalKeys):
			if !t.HasTotal {
				t.Total, t.HasTotal = firstAmount(text)
			}
		case containsAny(text, tpl.TaxKeys):
			if !t.HasTax {
				t.Tax, t.HasTax = firstAmount(text)
			}
		case containsAny(text, tpl.StatusKeys):
			if t.Status == "" {
				t.Status = valueAfter(text, tpl.StatusKeys)
			}
		}
	}
	return t
}

func firstAmount(text string) (decimal.Decimal, bool) {
	m := amountPattern.FindString(text)
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
