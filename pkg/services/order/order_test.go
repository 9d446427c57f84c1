package order

import (
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderscan/pkg/models"
	"orderscan/pkg/services/catalog"
	"orderscan/pkg/services/layout"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newEngine(t *testing.T, rows ...catalog.Row) *Engine {
	t.Helper()
	e, err := New(catalog.Build(rows, quietLogger()), Options{Logger: quietLogger()})
	require.NoError(t, err)
	return e
}

func tok(text string, left, top float64) models.Token {
	return models.Token{Text: text, Score: 0.95, Box: models.Box{Left: left, Top: top, Right: left + 40, Bottom: top + 20}}
}

func line(top float64, cells ...string) []models.Token {
	lefts := []float64{20, 80, 200, 400, 480, 560, 640}
	out := make([]models.Token, 0, len(cells))
	for i, c := range cells {
		out = append(out, tok(c, lefts[i], top))
	}
	return out
}

func TestAssembleHandwritingEndToEnd(t *testing.T) {
	e := newEngine(t, catalog.Row{ProductID: "A001", Name: "東坡肉", Unit: "KG"})
	doc := Document{
		Type: models.DocumentHandwriting,
		Pages: []models.Page{{Tokens: []models.Token{
			{Text: "東坡肉12×12 42塊", Score: 0.9, Box: models.Box{Left: 10, Top: 10, Right: 300, Bottom: 50}},
		}}},
	}

	o, err := e.Assemble(doc)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	it := o.Items[0]
	assert.Equal(t, "東坡肉", it.OriginInput)
	assert.Equal(t, "12×12 42", it.Quantity)
	assert.Equal(t, "塊", it.Unit)
	assert.Equal(t, "東坡肉", it.MatchedName)
	assert.Equal(t, "A001", it.ProductID)
	assert.InDelta(t, 1.0, it.MatchScore, 1e-9)
	assert.Empty(t, it.Warnings)
	assert.Empty(t, it.Errors)
	assert.Empty(t, it.OCRWarning)
	assert.Equal(t, "A001 | 東坡肉 | 12×12 42 塊", it.FinalText)
	assert.Equal(t, StatusOK, o.Status)
	assert.NotEmpty(t, o.ID)
}

func TestAssembleHandwritingFlagsProblems(t *testing.T) {
	e := newEngine(t,
		catalog.Row{ProductID: "A001", Name: "東坡肉", Unit: "斤"},
		catalog.Row{ProductID: "A002", Name: "青菜", Unit: "盤"},
	)
	low := tok("青菜", 10, 100)
	low.Score = 0.4
	doc := Document{
		Type: models.DocumentHandwriting,
		Pages: []models.Page{{Tokens: []models.Token{
			low,
			tok("東坡肉3斤", 10, 10),
		}}},
	}

	o, err := e.Assemble(doc)
	require.NoError(t, err)
	require.Len(t, o.Items, 2)

	assert.Equal(t, "東坡肉", o.Items[0].MatchedName, "items follow vertical order")
	assert.Equal(t, "A001", o.Items[0].ProductID)
	assert.Equal(t, models.StateNormal, o.Items[0].State())

	veg := o.Items[1]
	assert.Equal(t, "A002", veg.ProductID)
	assert.Contains(t, veg.Errors, ErrMissingQuantity)
	assert.Equal(t, "ocr score < 0.5", veg.OCRError)
	assert.Empty(t, veg.OCRWarning)
	assert.Equal(t, StatusError, o.Status)
}

func printedDocument() Document {
	page0 := []models.Token{
		tok("客戶代號：C001 王記餐廳", 20, 10),
		tok("訂單日期:2024/05/01", 400, 10),
	}
	page0 = append(page0, line(60, "項次", "品號", "品名", "數量", "單位", "單價", "小計")...)
	page0 = append(page0, line(100, "1", "A001", "東坡肉", "3", "斤", "350", "1050")...)
	page0 = append(page0, line(140, "2", "A002", "牛內", "2", "盒")...)

	page1 := line(40, "3", "A003", "滷牛肉", "1", "盒")
	page1 = append(page1,
		tok("總金額:1,400", 560, 100),
		tok("狀態：待確認", 20, 140),
	)
	return Document{
		Type:  models.DocumentPrint,
		Pages: []models.Page{{Index: 0, Tokens: page0}, {Index: 1, Tokens: page1}},
	}
}

func TestAssemblePrint(t *testing.T) {
	e := newEngine(t,
		catalog.Row{ProductID: "A001", Name: "東坡肉", Unit: "斤"},
		catalog.Row{ProductID: "A002", Name: "牛肉", Unit: "盒"},
		catalog.Row{ProductID: "A003", Name: "滷牛肉", Unit: "盒"},
	)

	o, err := e.Assemble(printedDocument())
	require.NoError(t, err)
	assert.Equal(t, "C001 王記餐廳", o.CustomerName)
	assert.Equal(t, "2024/05/01", o.OrderDate)
	assert.Equal(t, "待確認", o.Status)
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(1400)))
	require.Len(t, o.Items, 3)
	require.Len(t, o.Trailer, 2)

	first := o.Items[0]
	assert.Equal(t, "東坡肉", first.MatchedName)
	assert.Equal(t, 1.0, first.MatchScore)
	assert.Equal(t, "A001 | 東坡肉 | 3 斤 | 350 | 1050", first.FinalText)
	assert.Equal(t, models.StateNormal, first.State())

	second := o.Items[1]
	assert.Equal(t, "牛肉", second.MatchedName)
	assert.Equal(t, "A002", second.ProductID)
	assert.InDelta(t, 0.5, second.MatchScore, 1e-9)
	assert.Equal(t, []string{"match score < 0.65"}, second.Errors)
	assert.Empty(t, second.Warnings)

	third := o.Items[2]
	assert.Equal(t, 1, third.PageIndex)
	assert.Equal(t, "滷牛肉", third.MatchedName)
	assert.Equal(t, "A003", third.ProductID)

	assert.Len(t, o.ItemsOnPage(1), 3)
}

func TestAssemblePrintMissingProductID(t *testing.T) {
	e := newEngine(t, catalog.Row{ProductID: "A001", Name: "東坡肉", Unit: "斤"})
	doc := printedDocument()
	doc.Pages = doc.Pages[:1]
	doc.Pages[0].Tokens = append(doc.Pages[0].Tokens[:9], line(100, "1", "", "東坡肉", "3", "斤")...)

	o, err := e.Assemble(doc)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Contains(t, o.Items[0].Errors, ErrMissingProductID)
	assert.Equal(t, "A001", o.Items[0].ProductID, "id falls back to the best candidate")
}

func TestAssemblePrintUnresolvedToken(t *testing.T) {
	e := newEngine(t, catalog.Row{ProductID: "A001", Name: "東坡肉", Unit: "斤"})
	doc := printedDocument()
	doc.Pages = doc.Pages[:1]
	row := line(100, "1", "A001", "東坡肉", "3", "斤", "350", "1050")
	row = append(row, tok("加辣", 300, 100))
	doc.Pages[0].Tokens = append(doc.Pages[0].Tokens[:9], row...)

	o, err := e.Assemble(doc)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	it := o.Items[0]
	assert.Equal(t, []string{`token "加辣" at x=300 matches no column`}, it.Warnings)
	assert.Equal(t, "1 A001 東坡肉 加辣 3 斤 350 1050", it.OCRText)
	assert.Equal(t, "東坡肉", it.OriginInput, "unbound text is not merged into a column")
	assert.Equal(t, models.StateWarning, it.State())
	assert.Equal(t, StatusReview, o.Status)
}

func TestZeroThresholdsDisableTiers(t *testing.T) {
	e, err := New(catalog.Build([]catalog.Row{
		{ProductID: "A001", Name: "東坡肉", Unit: "斤"},
		{ProductID: "A002", Name: "牛肉", Unit: "盒"},
	}, quietLogger()), Options{Thresholds: &Thresholds{}, Logger: quietLogger()})
	require.NoError(t, err)
	doc := printedDocument()
	doc.Pages = doc.Pages[:1]

	o, err := e.Assemble(doc)
	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	second := o.Items[1]
	assert.InDelta(t, 0.5, second.MatchScore, 1e-9)
	assert.Empty(t, second.Errors)
	assert.Empty(t, second.Warnings)
	assert.Equal(t, StatusOK, o.Status)
}

func TestAssemblePrintHeaderFailure(t *testing.T) {
	e := newEngine(t, catalog.Row{ProductID: "A001", Name: "東坡肉", Unit: "斤"})
	doc := printedDocument()
	doc.Pages[0].Tokens[6] = tok("雜項", 480, 60)

	o, err := e.Assemble(doc)
	assert.Nil(t, o)
	assert.ErrorIs(t, err, layout.ErrHeader)
}

func TestThresholds(t *testing.T) {
	tests := []struct {
		name       string
		match, ocr float64
		warnings   []string
		errors     []string
		ocrWarn    string
		ocrErr     string
	}{
		{name: "at warning level", match: 0.80, ocr: 0.75},
		{name: "just below warning", match: 0.7999, ocr: 0.7499, warnings: []string{"match score < 0.8"}, ocrWarn: "ocr score < 0.75"},
		{name: "just below error", match: 0.6499, ocr: 0.4999, errors: []string{"match score < 0.65"}, ocrErr: "ocr score < 0.5"},
		{name: "at error level", match: 0.65, ocr: 0.5, warnings: []string{"match score < 0.8"}, ocrWarn: "ocr score < 0.75"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			it := models.ItemRecord{MatchScore: tc.match, OCRScore: tc.ocr}
			DefaultThresholds().Apply(&it)
			assert.Equal(t, tc.warnings, it.Warnings)
			assert.Equal(t, tc.errors, it.Errors)
			assert.Equal(t, tc.ocrWarn, it.OCRWarning)
			assert.Equal(t, tc.ocrErr, it.OCRError)
		})
	}
}

func TestErrorReplacesWarning(t *testing.T) {
	it := models.ItemRecord{MatchScore: 0.3, Warnings: []string{"match score < 0.8", "suspicious quantity format"}}
	DefaultThresholds().Apply(&it)
	assert.Equal(t, []string{"suspicious quantity format"}, it.Warnings)
	assert.Equal(t, []string{"match score < 0.65"}, it.Errors)
}

func TestFinalText(t *testing.T) {
	assert.Equal(t, "東坡肉 | 3", FinalText(models.ItemRecord{MatchedName: "東坡肉", Quantity: "3"}))
	assert.Empty(t, FinalText(models.ItemRecord{}))
}

func TestNewRejectsBadTemplate(t *testing.T) {
	tpl := layout.DefaultTemplate()
	tpl.Titles = tpl.Titles[:1]
	_, err := New(catalog.Build(nil, quietLogger()), Options{Template: tpl})
	assert.Error(t, err)
}
