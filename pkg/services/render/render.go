// Package render draws the side-by-side review image: the source page, the
// recognized text and the matched text, each item colored by its state.
package render

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"

	"orderscan/pkg/models"
)

// State colors.
var (
	ColorNormal  = color.RGBA{0, 255, 0, 255}
	ColorWarning = color.RGBA{180, 180, 0, 255}
	ColorError   = color.RGBA{255, 0, 0, 255}
)

// StateColor returns the text color for a review state.
func StateColor(s models.State) color.Color {
	switch s {
	case models.StateError:
		return ColorError
	case models.StateWarning:
		return ColorWarning
	}
	return ColorNormal
}

const (
	maxFontSize = 50
	minFontSize = 6
)

// Renderer draws review images. A Renderer without a font uses a fixed
// bitmap face that cannot draw Chinese glyphs.
type Renderer struct {
	font *opentype.Font
	// MaxWidth bounds the width of the output; 0 keeps the full size.
	MaxWidth int
}

// New loads a TrueType/OpenType font or collection. An empty path uses the
// built-in face.
func New(fontPath string) (*Renderer, error) {
	if fontPath == "" {
		return &Renderer{}, nil
	}
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := parseFont(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fontPath, err)
	}
	return &Renderer{font: f}, nil
}

func parseFont(data []byte) (*opentype.Font, error) {
	if f, err := opentype.Parse(data); err == nil {
		return f, nil
	}
	c, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return c.Font(0)
}

// Render returns the three panels of one page side by side.
func (r *Renderer) Render(src image.Image, items []models.ItemRecord) (image.Image, error) {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("render: empty source image")
	}
	ocrPanel := blank(w, h)
	matchPanel := blank(w, h)
	for _, it := range items {
		if it.Box.IsZero() {
			continue
		}
		if err := r.drawInBox(ocrPanel, it.OCRText, it.Box, StateColor(it.OCRState())); err != nil {
			return nil, err
		}
		text := it.FinalText
		if text == "" {
			text = it.OCRText
		}
		if err := r.drawInBox(matchPanel, text, it.Box, StateColor(it.State())); err != nil {
			return nil, err
		}
	}

	out := imaging.New(w*3, h, color.White)
	out = imaging.Paste(out, src, image.Pt(0, 0))
	out = imaging.Paste(out, ocrPanel.Image(), image.Pt(w, 0))
	out = imaging.Paste(out, matchPanel.Image(), image.Pt(w*2, 0))
	if r.MaxWidth > 0 && out.Bounds().Dx() > r.MaxWidth {
		return imaging.Resize(out, r.MaxWidth, 0, imaging.Lanczos), nil
	}
	return out, nil
}

// RenderFile renders the page image at srcPath and saves the result; the
// output format follows the extension of outPath.
func (r *Renderer) RenderFile(srcPath string, items []models.ItemRecord, outPath string) error {
	src, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open page image: %w", err)
	}
	img, err := r.Render(src, items)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, outPath); err != nil {
		return fmt.Errorf("save review image: %w", err)
	}
	return nil
}

func blank(w, h int) *gg.Context {
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()
	return dc
}

// drawInBox centers text in box, shrinking the font until it fits.
func (r *Renderer) drawInBox(dc *gg.Context, text string, box models.Box, c color.Color) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	face, err := r.fit(dc, text, box)
	if err != nil {
		return err
	}
	defer face.Close()
	dc.SetFontFace(face)
	dc.SetColor(c)
	dc.DrawStringAnchored(text, (box.Left+box.Right)/2, (box.Top+box.Bottom)/2, 0.5, 0.5)
	return nil
}

func (r *Renderer) fit(dc *gg.Context, text string, box models.Box) (font.Face, error) {
	if r.font == nil {
		return basicfont.Face7x13, nil
	}
	for size := maxFontSize; ; size-- {
		face, err := opentype.NewFace(r.font, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil, fmt.Errorf("font face: %w", err)
		}
		if size <= minFontSize {
			return face, nil
		}
		dc.SetFontFace(face)
		tw, th := dc.MeasureString(text)
		if tw <= box.Width() && th <= box.Height() {
			return face, nil
		}
		face.Close()
	}
}
