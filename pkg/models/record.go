package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderRecord is the stored form of a reconstructed order
type OrderRecord struct {
	gorm.Model
	UUID         string `gorm:"uniqueIndex;type:varchar(64);not null"`
	DocumentType string `gorm:"type:varchar(16)"`
	CustomerName string
	OrderDate    string
	Status       string          `gorm:"type:varchar(32);index"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric(14,2)"`
	TaxAmount    decimal.Decimal `gorm:"type:numeric(14,2)"`
	Items        []ItemRow       `gorm:"constraint:OnDelete:CASCADE"`
}

// ItemRow is one stored order line
type ItemRow struct {
	gorm.Model
	OrderRecordID uint `gorm:"index"`
	Position      int
	Kind          string `gorm:"type:varchar(16)"`
	ProductID     string `gorm:"index"`
	MatchedName   string
	OriginInput   string
	Quantity      string
	Unit          string
	Price         string
	TotalPrice    string
	MatchScore    float64
	OCRScore      float64
	OCRText       string
	PageIndex     int
	Box           datatypes.JSON
	Warnings      datatypes.JSON
	Errors        datatypes.JSON
	OCRWarning    string
	OCRError      string
	FinalText     string
}

// NewOrderRecord converts an order into its stored form.
func NewOrderRecord(o *Order) OrderRecord {
	rec := OrderRecord{
		UUID:         o.ID,
		DocumentType: string(o.DocumentType),
		CustomerName: o.CustomerName,
		OrderDate:    o.OrderDate,
		Status:       o.Status,
		TotalAmount:  o.TotalAmount,
		TaxAmount:    o.TaxAmount,
	}
	pos := 0
	for _, group := range [][]ItemRecord{o.Items, o.Trailer} {
		for _, it := range group {
			rec.Items = append(rec.Items, newItemRow(pos, it))
			pos++
		}
	}
	return rec
}

func newItemRow(pos int, it ItemRecord) ItemRow {
	return ItemRow{
		Position:    pos,
		Kind:        string(it.Kind),
		ProductID:   it.ProductID,
		MatchedName: it.MatchedName,
		OriginInput: it.OriginInput,
		Quantity:    it.Quantity,
		Unit:        it.Unit,
		Price:       it.Price,
		TotalPrice:  it.TotalPrice,
		MatchScore:  it.MatchScore,
		OCRScore:    it.OCRScore,
		OCRText:     it.OCRText,
		PageIndex:   it.PageIndex,
		Box:         mustJSON(it.Box),
		Warnings:    mustJSON(it.Warnings),
		Errors:      mustJSON(it.Errors),
		OCRWarning:  it.OCRWarning,
		OCRError:    it.OCRError,
		FinalText:   it.FinalText,
	}
}

// Order converts the stored form back into an order. Items must be ordered by
// Position.
func (r OrderRecord) Order() *Order {
	o := &Order{
		ID:           r.UUID,
		DocumentType: DocumentType(r.DocumentType),
		CustomerName: r.CustomerName,
		OrderDate:    r.OrderDate,
		Status:       r.Status,
		TotalAmount:  r.TotalAmount,
		TaxAmount:    r.TaxAmount,
	}
	for _, row := range r.Items {
		it := row.itemRecord()
		if it.Kind == RowSpecial {
			o.Trailer = append(o.Trailer, it)
			continue
		}
		o.Items = append(o.Items, it)
	}
	return o
}

func (row ItemRow) itemRecord() ItemRecord {
	it := ItemRecord{
		Kind:        RowKind(row.Kind),
		ProductID:   row.ProductID,
		MatchedName: row.MatchedName,
		OriginInput: row.OriginInput,
		Quantity:    row.Quantity,
		Unit:        row.Unit,
		Price:       row.Price,
		TotalPrice:  row.TotalPrice,
		MatchScore:  row.MatchScore,
		OCRScore:    row.OCRScore,
		OCRText:     row.OCRText,
		PageIndex:   row.PageIndex,
		OCRWarning:  row.OCRWarning,
		OCRError:    row.OCRError,
		FinalText:   row.FinalText,
	}
	// Columns written by newItemRow always hold valid JSON.
	_ = json.Unmarshal(row.Box, &it.Box)
	_ = json.Unmarshal(row.Warnings, &it.Warnings)
	_ = json.Unmarshal(row.Errors, &it.Errors)
	return it
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}
