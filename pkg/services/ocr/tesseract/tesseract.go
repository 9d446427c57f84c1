//go:build tesseract

// Package tesseract recognizes order pages with a local Tesseract install.
// It needs cgo and the tesseract headers, so it only builds with the
// "tesseract" tag.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"orderscan/pkg/models"
)

// DefaultLanguages are the trained data sets used for order forms.
var DefaultLanguages = []string{"chi_tra", "eng"}

// Recognizer wraps a Tesseract client per call; gosseract clients are not
// safe for concurrent use.
type Recognizer struct {
	Languages []string
}

// New returns a recognizer for the given languages, or DefaultLanguages.
func New(languages ...string) *Recognizer {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Recognizer{Languages: languages}
}

// Recognize returns one token per text line with Tesseract's confidence
// scaled to [0,1].
func (r *Recognizer) Recognize(ctx context.Context, imagePath string) (models.Page, error) {
	if err := ctx.Err(); err != nil {
		return models.Page{}, err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.Languages...); err != nil {
		return models.Page{}, fmt.Errorf("tesseract languages: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return models.Page{}, fmt.Errorf("tesseract image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return models.Page{}, fmt.Errorf("tesseract: %w", err)
	}

	page := models.Page{Tokens: make([]models.Token, 0, len(boxes))}
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		page.Tokens = append(page.Tokens, models.Token{
			Text:  text,
			Score: b.Confidence / 100,
			Box: models.Box{
				Left:   float64(b.Box.Min.X),
				Top:    float64(b.Box.Min.Y),
				Right:  float64(b.Box.Max.X),
				Bottom: float64(b.Box.Max.Y),
			},
		})
	}
	return page, nil
}
