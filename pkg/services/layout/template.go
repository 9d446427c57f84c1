// Package layout rebuilds the table structure of an order page from
// positioned OCR tokens: header metadata and column anchors, rows grouped by
// vertical position, and tokens bound to columns by horizontal position.
package layout

import (
	"errors"
	"fmt"
	"strings"

	"orderscan/pkg/models"
)

// Title maps a column-title keyword printed on the form to its column.
type Title struct {
	Keyword string        `yaml:"keyword" json:"keyword"`
	Column  models.Column `yaml:"column" json:"column"`
}

// Template describes the fixed layout of a printed order form.
type Template struct {
	// Terminators end the metadata block; the first one is also the first
	// column title.
	Terminators  []string `yaml:"terminators" json:"terminators"`
	CustomerKeys []string `yaml:"customer_keys" json:"customer_keys"`
	DateKeys     []string `yaml:"date_keys" json:"date_keys"`
	Titles       []Title  `yaml:"titles" json:"titles"`

	TotalKeys  []string `yaml:"total_keys" json:"total_keys"`
	TaxKeys    []string `yaml:"tax_keys" json:"tax_keys"`
	StatusKeys []string `yaml:"status_keys" json:"status_keys"`

	RowGap          float64 `yaml:"row_gap" json:"row_gap"`
	ColumnTolerance float64 `yaml:"column_tolerance" json:"column_tolerance"`
}

// Default thresholds in pixels.
const (
	DefaultRowGap          = 15
	DefaultColumnTolerance = 10
)

// DefaultTemplate is the customer order form the service was built for.
func DefaultTemplate() Template {
	return Template{
		Terminators:  []string{"項次"},
		CustomerKeys: []string{"客戶代號", "請款對象"},
		DateKeys:     []string{"訂單日期"},
		Titles: []Title{
			{Keyword: "項次", Column: models.ColumnIndex},
			{Keyword: "品號", Column: models.ColumnProductID},
			{Keyword: "品名", Column: models.ColumnProductName},
			{Keyword: "數量", Column: models.ColumnQuantity},
			{Keyword: "單位", Column: models.ColumnUnit},
			{Keyword: "單價", Column: models.ColumnPrice},
			{Keyword: "小計", Column: models.ColumnTotalPrice},
		},
		TotalKeys:       []string{"總金額", "合計", "總計"},
		TaxKeys:         []string{"稅額", "營業稅"},
		StatusKeys:      []string{"狀態"},
		RowGap:          DefaultRowGap,
		ColumnTolerance: DefaultColumnTolerance,
	}
}

// Validate checks that every title names a known column, no column is listed
// twice, and a product name column exists.
func (t Template) Validate() error {
	if len(t.Terminators) == 0 {
		return errors.New("template: no terminator keyword")
	}
	if t.RowGap <= 0 || t.ColumnTolerance <= 0 {
		return fmt.Errorf("template: thresholds must be positive (row_gap=%g, column_tolerance=%g)", t.RowGap, t.ColumnTolerance)
	}
	seen := make(map[models.Column]bool, len(t.Titles))
	keywords := make(map[string]bool, len(t.Titles))
	for _, title := range t.Titles {
		if strings.TrimSpace(title.Keyword) == "" {
			return errors.New("template: empty title keyword")
		}
		col, err := models.ParseColumn(string(title.Column))
		if err != nil {
			return fmt.Errorf("template title %q: %w", title.Keyword, err)
		}
		if seen[col] || keywords[title.Keyword] {
			return fmt.Errorf("template title %q: duplicate", title.Keyword)
		}
		seen[col] = true
		keywords[title.Keyword] = true
	}
	if !seen[models.ColumnProductName] {
		return fmt.Errorf("template: no %s column", models.ColumnProductName)
	}
	return nil
}

func (t Template) column(keyword string) (models.Column, bool) {
	for _, title := range t.Titles {
		if title.Keyword == keyword {
			return title.Column, true
		}
	}
	return "", false
}

func (t Template) mentionsTitle(text string) bool {
	for _, title := range t.Titles {
		if strings.Contains(text, title.Keyword) {
			return true
		}
	}
	return false
}

func containsAny(text string, keys []string) bool {
	for _, k := range keys {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// valueAfter returns the text after the first ASCII or full-width colon. Without
// a colon it returns what follows the first matching key.
func valueAfter(text string, keys []string) string {
	if i := strings.IndexAny(text, ":："); i >= 0 {
		return strings.TrimSpace(text[i+len(separatorAt(text, i)):])
	}
	for _, k := range keys {
		if _, rest, ok := strings.Cut(text, k); ok && k != "" {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(text)
}

func separatorAt(text string, i int) string {
	if strings.HasPrefix(text[i:], "：") {
		return "："
	}
	return ":"
}
