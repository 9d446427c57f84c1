// Package order turns the OCR tokens of one document into an Order: it lays
// out the table, resolves every line against the catalog and grades the
// result for human review.
package order

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"orderscan/pkg/models"
	"orderscan/pkg/services/catalog"
	"orderscan/pkg/services/layout"
	"orderscan/pkg/services/match"
)

// Messages attached to items.
const (
	ErrMissingProductID   = "missing product id"
	ErrMissingProductName = match.ErrMissingName
	ErrMissingQuantity    = "missing quantity"
)

// Order statuses set when the trailer carries none.
const (
	StatusOK     = "ok"
	StatusReview = "review"
	StatusError  = "error"
)

// Document is one order to assemble.
type Document struct {
	Type  models.DocumentType
	Pages []models.Page
}

// Options configures an Engine. Zero values take defaults; a nil Thresholds
// uses DefaultThresholds, while a zero level in a given Thresholds turns that
// tier off.
type Options struct {
	Template     layout.Template
	Dictionaries match.Dictionaries
	Thresholds   *Thresholds
	Logger       logrus.FieldLogger
}

// Engine assembles documents against one catalog. It is safe for concurrent
// use: all state is built in New and only read afterwards.
type Engine struct {
	catalog *catalog.Catalog
	script  *match.ScriptMatcher
	edit    *match.EditMatcher
	tpl     layout.Template
	tiers   Thresholds
	log     logrus.FieldLogger
}

// New fits both matchers on the catalog.
func New(c *catalog.Catalog, opts Options) (*Engine, error) {
	if c == nil {
		return nil, fmt.Errorf("order engine: nil catalog")
	}
	if opts.Template.Terminators == nil {
		opts.Template = layout.DefaultTemplate()
	}
	if err := opts.Template.Validate(); err != nil {
		return nil, fmt.Errorf("order engine: %w", err)
	}
	if opts.Dictionaries.Stroke == nil || opts.Dictionaries.Radical == nil {
		opts.Dictionaries = match.SeedDictionaries()
	}
	tiers := DefaultThresholds()
	if opts.Thresholds != nil {
		tiers = *opts.Thresholds
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Engine{
		catalog: c,
		script:  match.NewScriptMatcher(c, opts.Dictionaries),
		edit:    match.NewEditMatcher(c),
		tpl:     opts.Template,
		tiers:   tiers,
		log:     opts.Logger,
	}, nil
}

// Catalog returns the catalog the engine matches against.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Assemble reads one document. Only a header that does not fit the template is
// returned as an error; every other problem is recorded on the items.
func (e *Engine) Assemble(doc Document) (*models.Order, error) {
	o := &models.Order{ID: uuid.NewString(), DocumentType: doc.Type}
	var err error
	switch doc.Type {
	case models.DocumentPrint:
		err = e.assemblePrint(o, doc.Pages)
	case models.DocumentHandwriting:
		e.assembleHandwriting(o, doc.Pages)
	default:
		err = fmt.Errorf("unknown document type %q", doc.Type)
	}
	if err != nil {
		return nil, err
	}
	for i := range o.Items {
		e.finish(&o.Items[i])
	}
	if o.Status == "" {
		o.Status = status(o.Items)
	}
	e.log.WithFields(logrus.Fields{
		"order_id":      o.ID,
		"document_type": o.DocumentType,
		"pages":         len(doc.Pages),
		"items":         len(o.Items),
		"status":        o.Status,
	}).Info("order assembled")
	return o, nil
}

func (e *Engine) assemblePrint(o *models.Order, pages []models.Page) error {
	if len(pages) == 0 {
		return &layout.HeaderError{Index: -1, Reason: "document has no pages"}
	}
	header, err := layout.ParseHeader(pages[0].Tokens, e.tpl)
	if err != nil {
		return fmt.Errorf("page %d: %w", pages[0].Index, err)
	}
	e.log.WithFields(logrus.Fields{
		"customer": header.CustomerName,
		"date":     header.OrderDate,
		"columns":  len(header.Anchors),
	}).Debug("header parsed")
	o.CustomerName = header.CustomerName
	o.OrderDate = header.OrderDate

	var trailer []string
	for i, page := range pages {
		tokens := page.Tokens
		if i == 0 {
			tokens = tokens[header.End:]
		}
		for _, row := range layout.Cluster(tokens, header.Anchors, e.tpl.ClusterOptions()) {
			if row.Special() {
				o.Trailer = append(o.Trailer, models.ItemRecord{
					Kind:      models.RowSpecial,
					OCRText:   row.Text(),
					FinalText: row.Text(),
					Box:       row.Box(),
					OCRScore:  row.OCRScore(),
					PageIndex: page.Index,
				})
				trailer = append(trailer, row.Text())
				continue
			}
			it := models.ItemRecord{Kind: models.RowItem, PageIndex: page.Index}
			row.Fill(&it)
			e.matchPrinted(&it)
			o.Items = append(o.Items, it)
		}
	}

	t := layout.ParseTrailer(trailer, e.tpl)
	if t.HasTotal {
		o.TotalAmount = t.Total
	}
	if t.HasTax {
		o.TaxAmount = t.Tax
	}
	o.Status = t.Status
	return nil
}

func (e *Engine) matchPrinted(it *models.ItemRecord) {
	if it.ProductID == "" {
		it.AddError(ErrMissingProductID)
	}
	res := e.edit.Match(match.Query{Name: it.OriginInput, ProductID: it.ProductID})
	it.MatchedName = res.Name
	it.MatchScore = res.Score
	if res.ProductID != "" {
		it.ProductID = res.ProductID
	}
	for _, msg := range res.Errors {
		it.AddError(msg)
	}
}

func (e *Engine) assembleHandwriting(o *models.Order, pages []models.Page) {
	for _, page := range pages {
		tokens := append([]models.Token(nil), page.Tokens...)
		sort.SliceStable(tokens, func(i, j int) bool {
			if tokens[i].Box.Top != tokens[j].Box.Top {
				return tokens[i].Box.Top < tokens[j].Box.Top
			}
			return tokens[i].Box.Left < tokens[j].Box.Left
		})
		for _, tok := range tokens {
			line := layout.SplitRow(tok.Text)
			it := models.ItemRecord{
				Kind:        models.RowItem,
				OriginInput: line.Item,
				Quantity:    line.Quantity,
				Unit:        line.Unit,
				OCRText:     tok.Text,
				OCRScore:    tok.Score,
				Box:         tok.Box,
				PageIndex:   page.Index,
			}
			for _, w := range line.Warnings {
				it.AddWarning(w)
			}
			for _, msg := range line.Errors {
				it.AddError(msg)
			}
			e.matchWritten(&it)
			o.Items = append(o.Items, it)
		}
	}
}

func (e *Engine) matchWritten(it *models.ItemRecord) {
	res := e.script.Match(match.Query{Name: it.OriginInput})
	for _, msg := range res.Errors {
		it.AddError(msg)
	}
	it.MatchedName = res.Name
	it.MatchScore = res.Score
	if res.Name == "" {
		return
	}
	if id, ok := e.catalog.Lookup(res.Name, catalog.NormalizeUnit(it.Unit)); ok {
		it.ProductID = id
	} else if id, ok := e.catalog.LookupName(res.Name); ok {
		it.ProductID = id
	}
}

// finish applies the checks shared by both document types.
func (e *Engine) finish(it *models.ItemRecord) {
	if strings.TrimSpace(it.OriginInput) == "" {
		it.AddError(ErrMissingProductName)
	}
	if strings.TrimSpace(it.Quantity) == "" {
		it.AddError(ErrMissingQuantity)
	}
	e.tiers.Apply(it)
	it.FinalText = FinalText(*it)
}

// FinalText summarizes the resolved fields of an item for review.
func FinalText(it models.ItemRecord) string {
	var parts []string
	for _, p := range []string{
		it.ProductID,
		it.MatchedName,
		strings.TrimSpace(it.Quantity + " " + it.Unit),
		it.Price,
		it.TotalPrice,
	} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}

func status(items []models.ItemRecord) string {
	s := StatusOK
	for _, it := range items {
		switch {
		case it.State() == models.StateError || it.OCRState() == models.StateError:
			return StatusError
		case it.State() == models.StateWarning || it.OCRState() == models.StateWarning:
			s = StatusReview
		}
	}
	return s
}
