package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// Box is an axis-aligned rectangle in pixel space with the origin at the top-left
// corner of the page image.
type Box struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// IsZero reports whether the box has never been set.
func (b Box) IsZero() bool { return b == Box{} }

// Union returns the smallest box containing both b and o. A zero box is ignored.
func (b Box) Union(o Box) Box {
	if b.IsZero() {
		return o
	}
	if o.IsZero() {
		return b
	}
	return Box{
		Left:   math.Min(b.Left, o.Left),
		Top:    math.Min(b.Top, o.Top),
		Right:  math.Max(b.Right, o.Right),
		Bottom: math.Max(b.Bottom, o.Bottom),
	}
}

// MarshalJSON encodes the box as [left, top, right, bottom], the layout OCR
// engines emit.
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.Left, b.Top, b.Right, b.Bottom})
}

// UnmarshalJSON accepts the four-number array form.
func (b *Box) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode box: %w", err)
	}
	if len(v) != 4 {
		return fmt.Errorf("decode box: want 4 coordinates, got %d", len(v))
	}
	*b = Box{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}
	return nil
}

// Token is a single piece of recognized text with its position from OCR.
type Token struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Box   Box     `json:"box"`
}

// Page holds the tokens recognized on one page image, in the order the OCR
// engine returned them.
type Page struct {
	Index  int     `json:"index"`
	Tokens []Token `json:"tokens"`
}
