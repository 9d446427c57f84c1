package order

import (
	"fmt"

	"orderscan/pkg/models"
)

// Thresholds grade match and OCR confidence. Each axis has a warning level and
// a lower error level; an error replaces the warning of the same axis.
type Thresholds struct {
	MatchWarning float64 `yaml:"match_warning" json:"match_warning"`
	MatchError   float64 `yaml:"match_error" json:"match_error"`
	OCRWarning   float64 `yaml:"ocr_warning" json:"ocr_warning"`
	OCRError     float64 `yaml:"ocr_error" json:"ocr_error"`
}

// DefaultThresholds are the review levels used in production.
func DefaultThresholds() Thresholds {
	return Thresholds{MatchWarning: 0.8, MatchError: 0.65, OCRWarning: 0.75, OCRError: 0.5}
}

func below(level float64) string { return fmt.Sprintf("score < %g", level) }

// Apply grades it in place.
func (t Thresholds) Apply(it *models.ItemRecord) {
	warn, fail := "match "+below(t.MatchWarning), "match "+below(t.MatchError)
	switch {
	case it.MatchScore < t.MatchError:
		it.AddError(fail)
		it.RemoveWarning(warn)
	case it.MatchScore < t.MatchWarning:
		it.AddWarning(warn)
	}

	switch {
	case it.OCRScore < t.OCRError:
		it.OCRError = "ocr " + below(t.OCRError)
		it.OCRWarning = ""
	case it.OCRScore < t.OCRWarning:
		it.OCRWarning = "ocr " + below(t.OCRWarning)
	}
}
