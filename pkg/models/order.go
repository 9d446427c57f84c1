package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DocumentType selects how an order document is read.
type DocumentType string

const (
	// DocumentHandwriting is a photographed hand-written order, one item per line.
	DocumentHandwriting DocumentType = "handwriting"
	// DocumentPrint is a printed multi-page order form with a header and a table.
	DocumentPrint DocumentType = "print"
)

// ParseDocumentType validates a document type name.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(s))) {
	case DocumentHandwriting:
		return DocumentHandwriting, nil
	case DocumentPrint:
		return DocumentPrint, nil
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

// Column is the semantic name of an order table column.
type Column string

const (
	ColumnIndex       Column = "index"
	ColumnProductID   Column = "product_id"
	ColumnProductName Column = "product_name"
	ColumnQuantity    Column = "quantity"
	ColumnUnit        Column = "unit"
	ColumnPrice       Column = "price"
	ColumnTotalPrice  Column = "total_price"
)

var knownColumns = []Column{
	ColumnIndex, ColumnProductID, ColumnProductName, ColumnQuantity,
	ColumnUnit, ColumnPrice, ColumnTotalPrice,
}

// ParseColumn returns the column with the given name, rejecting names outside
// the fixed enumeration.
func ParseColumn(name string) (Column, error) {
	for _, c := range knownColumns {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown column %q", name)
}

// IdentityRelevant reports whether the column participates in the row's
// identity and therefore in its OCR confidence.
func (c Column) IdentityRelevant() bool {
	return c == ColumnProductID || c == ColumnProductName || c == ColumnQuantity
}

// ColumnAnchor is the horizontal pixel position of a table column, taken from
// the left edge of its title on the first page.
type ColumnAnchor struct {
	Column Column  `json:"column"`
	X      float64 `json:"x"`
}

// State classifies an item for review.
type State string

const (
	StateNormal  State = "normal"
	StateWarning State = "warning"
	StateError   State = "error"
)

// RowKind distinguishes catalog line items from trailer rows.
type RowKind string

const (
	RowItem    RowKind = "item"
	RowSpecial RowKind = "special"
)

// ItemRecord is one reconstructed order row.
type ItemRecord struct {
	Kind        RowKind  `json:"kind"`
	Index       string   `json:"index,omitempty"`
	ProductID   string   `json:"product_id"`
	MatchedName string   `json:"matched_name"`
	OriginInput string   `json:"origin_input"`
	Quantity    string   `json:"quantity"`
	Unit        string   `json:"unit"`
	Price       string   `json:"price,omitempty"`
	TotalPrice  string   `json:"total_price,omitempty"`
	MatchScore  float64  `json:"match_score"`
	OCRScore    float64  `json:"ocr_score"`
	OCRText     string   `json:"ocr_text"`
	Box         Box      `json:"box"`
	PageIndex   int      `json:"page_index"`
	Warnings    []string `json:"warnings,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	OCRWarning  string   `json:"ocr_warning,omitempty"`
	OCRError    string   `json:"ocr_error,omitempty"`
	FinalText   string   `json:"final_text"`
}

// Set stores text into the attribute named by column. Text for a column that is
// already filled is appended with a space.
func (it *ItemRecord) Set(column Column, text string) {
	var field *string
	switch column {
	case ColumnIndex:
		field = &it.Index
	case ColumnProductID:
		field = &it.ProductID
	case ColumnProductName:
		field = &it.OriginInput
	case ColumnQuantity:
		field = &it.Quantity
	case ColumnUnit:
		field = &it.Unit
	case ColumnPrice:
		field = &it.Price
	case ColumnTotalPrice:
		field = &it.TotalPrice
	default:
		return
	}
	text = strings.TrimSpace(text)
	if *field == "" {
		*field = text
		return
	}
	if text != "" {
		*field += " " + text
	}
}

// AddWarning appends a warning unless the same text is already present.
func (it *ItemRecord) AddWarning(msg string) {
	if !contains(it.Warnings, msg) {
		it.Warnings = append(it.Warnings, msg)
	}
}

// AddError appends an error unless the same text is already present.
func (it *ItemRecord) AddError(msg string) {
	if !contains(it.Errors, msg) {
		it.Errors = append(it.Errors, msg)
	}
}

// RemoveWarning drops a warning, used when an error supersedes it.
func (it *ItemRecord) RemoveWarning(msg string) {
	out := it.Warnings[:0]
	for _, w := range it.Warnings {
		if w != msg {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		out = nil
	}
	it.Warnings = out
}

// State classifies the match side of the item.
func (it ItemRecord) State() State {
	switch {
	case len(it.Errors) > 0:
		return StateError
	case len(it.Warnings) > 0:
		return StateWarning
	}
	return StateNormal
}

// OCRState classifies the recognition side of the item.
func (it ItemRecord) OCRState() State {
	switch {
	case it.OCRError != "":
		return StateError
	case it.OCRWarning != "":
		return StateWarning
	}
	return StateNormal
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Order is a reconstructed purchase order.
type Order struct {
	ID           string          `json:"id"`
	DocumentType DocumentType    `json:"document_type"`
	CustomerName string          `json:"customer_name"`
	OrderDate    string          `json:"order_date"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	Items        []ItemRecord    `json:"items"`
	Trailer      []ItemRecord    `json:"trailer,omitempty"`
}

// ItemsOnPage returns the items and trailer rows recognized on the given page.
func (o *Order) ItemsOnPage(page int) []ItemRecord {
	var out []ItemRecord
	for _, it := range o.Items {
		if it.PageIndex == page {
			out = append(out, it)
		}
	}
	for _, it := range o.Trailer {
		if it.PageIndex == page {
			out = append(out, it)
		}
	}
	return out
}

// ItemOutput is the persisted per-item contract.
type ItemOutput struct {
	ProductID   *string `json:"product_id"`
	MatchedName string  `json:"matched_name"`
	OriginInput string  `json:"origin_input"`
	Quantity    string  `json:"quantity"`
	MatchScore  float64 `json:"match_score"`
}

// Output is the minimal order contract handed to downstream storage.
type Output struct {
	CustomerName *string      `json:"customer_name"`
	OrderDate    *string      `json:"order_date"`
	Status       *string      `json:"status"`
	Items        []ItemOutput `json:"items"`
}

// Output projects the order onto the persisted contract. Empty strings become
// null.
func (o *Order) Output() Output {
	out := Output{
		CustomerName: nullable(o.CustomerName),
		OrderDate:    nullable(o.OrderDate),
		Status:       nullable(o.Status),
		Items:        make([]ItemOutput, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, ItemOutput{
			ProductID:   nullable(it.ProductID),
			MatchedName: it.MatchedName,
			OriginInput: it.OriginInput,
			Quantity:    it.Quantity,
			MatchScore:  it.MatchScore,
		})
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
