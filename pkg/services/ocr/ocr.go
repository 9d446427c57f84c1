package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"orderscan/pkg/models"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// Recognizer produces positioned tokens for one page image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (models.Page, error)
}

// DefaultLanguage is the OCR language hint for order forms.
const DefaultLanguage = "zh-Hant"

// Service recognizes order pages with Azure Computer Vision.
type Service struct {
	client   *computervision.BaseClient
	language computervision.OcrLanguages
	log      logrus.FieldLogger
}

// NewService creates an Azure OCR service. An empty language uses
// DefaultLanguage.
func NewService(endpoint, apiKey, language string, logger logrus.FieldLogger) *Service {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	if language == "" {
		language = DefaultLanguage
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		client:   &client,
		language: computervision.OcrLanguages(language),
		log:      logger,
	}
}

// EnhanceImageForOCR writes a grayscale, contrast-boosted copy of the image
// next to the system temp files and returns its path. The caller removes it.
// Geometry is untouched so token boxes stay valid for the original.
func EnhanceImageForOCR(imagePath string) (string, error) {
	src, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)

	f, err := os.CreateTemp("", "enhanced-*"+imageExt(imagePath))
	if err != nil {
		return "", fmt.Errorf("create enhanced image: %w", err)
	}
	processed := f.Name()
	f.Close()
	if err := imaging.Save(img, processed); err != nil {
		os.Remove(processed)
		return "", fmt.Errorf("save enhanced image: %w", err)
	}
	return processed, nil
}

func imageExt(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return ext
	}
	return ".png"
}

// Recognize enhances the image, sends it to Azure and returns one token per
// recognized line. The legacy OCR endpoint reports no confidence, so every
// token scores 1.
func (s *Service) Recognize(ctx context.Context, imagePath string) (models.Page, error) {
	processed, err := EnhanceImageForOCR(imagePath)
	if err != nil {
		return models.Page{}, err
	}
	defer os.Remove(processed)

	f, err := os.Open(processed)
	if err != nil {
		return models.Page{}, fmt.Errorf("read enhanced image: %w", err)
	}
	defer f.Close()

	result, err := s.client.RecognizePrintedTextInStream(ctx, true, f, s.language)
	if err != nil {
		return models.Page{}, fmt.Errorf("azure ocr: %w", err)
	}
	tokens := tokensFromOCRResult(result)
	s.log.WithFields(logrus.Fields{"image": filepath.Base(imagePath), "tokens": len(tokens)}).Debug("azure ocr done")
	return models.Page{Tokens: tokens}, nil
}

// tokensFromOCRResult flattens regions into line tokens. Azure boxes are
// "left,top,width,height".
func tokensFromOCRResult(result computervision.OcrResult) []models.Token {
	if result.Regions == nil {
		return nil
	}
	var tokens []models.Token
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			box, ok := parseBoundingBox(line.BoundingBox)
			if !ok || line.Words == nil {
				continue
			}
			var words []string
			for _, w := range *line.Words {
				if w.Text != nil {
					words = append(words, *w.Text)
				}
			}
			text := joinWords(words)
			if text == "" {
				continue
			}
			tokens = append(tokens, models.Token{Text: text, Score: 1, Box: box})
		}
	}
	return tokens
}

func parseBoundingBox(s *string) (models.Box, bool) {
	if s == nil {
		return models.Box{}, false
	}
	parts := strings.Split(*s, ",")
	if len(parts) < 4 {
		return models.Box{}, false
	}
	var v [4]float64
	for i := range v {
		n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return models.Box{}, false
		}
		v[i] = n
	}
	return models.Box{Left: v[0], Top: v[1], Right: v[0] + v[2], Bottom: v[1] + v[3]}, true
}

// joinWords puts a space between words except where two Han characters meet;
// Azure splits Chinese text into single-character words.
func joinWords(words []string) string {
	var b strings.Builder
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if b.Len() > 0 {
			last, _ := utf8.DecodeLastRuneInString(b.String())
			first, _ := utf8.DecodeRuneInString(w)
			if !unicode.Is(unicode.Han, last) || !unicode.Is(unicode.Han, first) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w)
	}
	return b.String()
}
