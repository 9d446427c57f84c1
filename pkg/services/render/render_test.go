package render

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderscan/pkg/models"
)

func items() []models.ItemRecord {
	return []models.ItemRecord{{
		Box:        models.Box{Left: 10, Top: 10, Right: 90, Bottom: 40},
		OCRText:    "ABC",
		FinalText:  "A001 | ABC",
		Errors:     []string{"match score < 0.65"},
		OCRWarning: "",
	}}
}

func hasColor(img image.Image, rect image.Rectangle, want color.RGBA) bool {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if uint8(r>>8) == want.R && uint8(g>>8) == want.G && uint8(b>>8) == want.B {
				return true
			}
		}
	}
	return false
}

func TestRenderPanels(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	src := imaging.New(100, 50, color.Black)

	out, err := r.Render(src, items())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 50), out.Bounds())

	red, green, blue, _ := out.At(5, 5).RGBA()
	assert.Zero(t, red+green+blue, "source panel is copied unchanged")
	assert.True(t, hasColor(out, image.Rect(110, 10, 190, 40), ColorNormal), "ocr text drawn in normal color")
	assert.True(t, hasColor(out, image.Rect(210, 10, 290, 40), ColorError), "matched text drawn in error color")
	assert.False(t, hasColor(out, image.Rect(100, 0, 300, 50), ColorWarning))
}

func TestRenderMaxWidth(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	r.MaxWidth = 150

	out, err := r.Render(imaging.New(100, 50, color.Black), items())
	require.NoError(t, err)
	assert.Equal(t, 150, out.Bounds().Dx())
	assert.Equal(t, 25, out.Bounds().Dy())
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "page.png")
	require.NoError(t, imaging.Save(imaging.New(60, 40, color.White), src))

	r, err := New("")
	require.NoError(t, err)
	out := filepath.Join(dir, "review.png")
	require.NoError(t, r.RenderFile(src, items(), out))

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 180, img.Bounds().Dx())
}

func TestNewRejectsMissingFont(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.Error(t, err)
}

func TestStateColor(t *testing.T) {
	assert.Equal(t, ColorNormal, StateColor(models.StateNormal))
	assert.Equal(t, ColorWarning, StateColor(models.StateWarning))
	assert.Equal(t, ColorError, StateColor(models.StateError))
}
