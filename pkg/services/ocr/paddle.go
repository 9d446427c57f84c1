package ocr

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"orderscan/pkg/models"
)

// paddleResult is the JSON PaddleOCR writes per image.
type paddleResult struct {
	Texts  []string     `json:"rec_texts"`
	Scores []float64    `json:"rec_scores"`
	Boxes  []models.Box `json:"rec_boxes"`
}

// DecodePage reads one PaddleOCR result. The three arrays must be the same
// length.
func DecodePage(r io.Reader, index int) (models.Page, error) {
	var res paddleResult
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return models.Page{}, fmt.Errorf("decode paddle result: %w", err)
	}
	if len(res.Scores) != len(res.Texts) || len(res.Boxes) != len(res.Texts) {
		return models.Page{}, fmt.Errorf("paddle result: %d texts, %d scores, %d boxes",
			len(res.Texts), len(res.Scores), len(res.Boxes))
	}
	page := models.Page{Index: index, Tokens: make([]models.Token, len(res.Texts))}
	for i := range res.Texts {
		page.Tokens[i] = models.Token{Text: res.Texts[i], Score: res.Scores[i], Box: res.Boxes[i]}
	}
	return page, nil
}

// LoadPage reads a PaddleOCR result file.
func LoadPage(path string, index int) (models.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Page{}, fmt.Errorf("open ocr result: %w", err)
	}
	defer f.Close()
	page, err := DecodePage(f, index)
	if err != nil {
		return models.Page{}, fmt.Errorf("%s: %w", path, err)
	}
	return page, nil
}

// LoadDocument reads a document from disk. A file is a single page. A
// directory holds one sub-directory per page, named by page number, each with
// the JSON results for that page; results in one page directory are
// concatenated in file name order.
func LoadDocument(path string) ([]models.Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if !info.IsDir() {
		page, err := LoadPage(path, 0)
		if err != nil {
			return nil, err
		}
		return []models.Page{page}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	var numbers []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 {
		return nil, fmt.Errorf("load document %s: no page directories", path)
	}
	sort.Ints(numbers)

	pages := make([]models.Page, 0, len(numbers))
	for _, n := range numbers {
		page, err := loadPageDir(filepath.Join(path, strconv.Itoa(n)), n)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func loadPageDir(dir string, index int) (models.Page, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return models.Page{}, fmt.Errorf("page %d: %w", index, err)
	}
	sort.Strings(files)
	page := models.Page{Index: index}
	for _, f := range files {
		if strings.HasPrefix(filepath.Base(f), ".") {
			continue
		}
		p, err := LoadPage(f, index)
		if err != nil {
			return models.Page{}, err
		}
		page.Tokens = append(page.Tokens, p.Tokens...)
	}
	return page, nil
}
