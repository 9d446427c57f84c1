package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"
)

// Columns names the source columns holding product id, name and unit.
type Columns struct {
	ProductID string `json:"product_id" yaml:"product_id"`
	Name      string `json:"name" yaml:"name"`
	Unit      string `json:"unit" yaml:"unit"`
}

// DefaultColumns are the headers of the customer order spreadsheet.
var DefaultColumns = Columns{ProductID: "品號", Name: "品名", Unit: "單位"}

func (c Columns) withDefaults() Columns {
	if c.ProductID == "" {
		c.ProductID = DefaultColumns.ProductID
	}
	if c.Name == "" {
		c.Name = DefaultColumns.Name
	}
	if c.Unit == "" {
		c.Unit = DefaultColumns.Unit
	}
	return c
}

// ErrMissingColumn is returned when a source lacks a required header.
var ErrMissingColumn = errors.New("catalog: missing column")

// Source locates a catalog file.
type Source struct {
	Path string `json:"path" yaml:"path"`
	// Table is read from SQLite sources; empty means DefaultTable.
	Table   string  `json:"table" yaml:"table"`
	Columns Columns `json:"columns" yaml:"columns"`
}

// DefaultTable is the SQLite table read when none is configured.
const DefaultTable = "products"

// Load reads a catalog file, choosing the reader by extension (.csv, .xlsx,
// .db/.sqlite).
func Load(ctx context.Context, src Source, logger logrus.FieldLogger) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".csv":
		return LoadCSV(src.Path, src.Columns, logger)
	case ".xlsx", ".xlsm":
		return LoadXLSX(src.Path, src.Columns, logger)
	case ".db", ".sqlite", ".sqlite3":
		table := src.Table
		if table == "" {
			table = DefaultTable
		}
		return LoadSQLite(ctx, src.Path, table, src.Columns, logger)
	}
	return nil, fmt.Errorf("catalog: unsupported file %q", src.Path)
}

// LoadCSV reads a catalog from a CSV file with a header row.
func LoadCSV(path string, cols Columns, logger logrus.FieldLogger) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		records = append(records, rec)
	}
	rows, err := rowsFromTable(records, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Build(rows, logger), nil
}

// LoadXLSX reads a catalog from the first sheet of a workbook.
func LoadXLSX(path string, cols Columns, logger logrus.FieldLogger) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	rows, err := rowsFromTable(records, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Build(rows, logger), nil
}

// LoadSQLite reads a catalog from a table in a SQLite database.
func LoadSQLite(ctx context.Context, path, table string, cols Columns, logger logrus.FieldLogger) (*Catalog, error) {
	cols = cols.withDefaults()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf(`SELECT COALESCE(CAST(%s AS TEXT), ''), COALESCE(%s, ''), COALESCE(%s, '') FROM %s ORDER BY rowid`,
		quoteIdent(cols.ProductID), quoteIdent(cols.Name), quoteIdent(cols.Unit), quoteIdent(table))
	res, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query catalog table %s: %w", table, err)
	}
	defer res.Close()

	var rows []Row
	for res.Next() {
		var row Row
		if err := res.Scan(&row.ProductID, &row.Name, &row.Unit); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		rows = append(rows, row)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("read catalog table %s: %w", table, err)
	}
	return Build(rows, logger), nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// rowsFromTable maps a header row plus records onto catalog rows.
func rowsFromTable(records [][]string, cols Columns) ([]Row, error) {
	cols = cols.withDefaults()
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	idx := func(name string) (int, error) {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w %q", ErrMissingColumn, name)
	}
	idCol, err := idx(cols.ProductID)
	if err != nil {
		return nil, err
	}
	nameCol, err := idx(cols.Name)
	if err != nil {
		return nil, err
	}
	unitCol, err := idx(cols.Unit)
	if err != nil {
		return nil, err
	}
	cell := func(rec []string, i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, Row{
			ProductID: cell(rec, idCol),
			Name:      cell(rec, nameCol),
			Unit:      cell(rec, unitCol),
		})
	}
	return rows, nil
}
