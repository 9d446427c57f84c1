// Package config loads service settings from an optional YAML file, a .env
// file and the environment, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"orderscan/pkg/services/catalog"
	"orderscan/pkg/services/layout"
	"orderscan/pkg/services/order"
)

// Config is the service configuration.
type Config struct {
	Port        string         `yaml:"port"`
	DatabaseURL string         `yaml:"database_url"`
	LogLevel    string         `yaml:"log_level"`
	Catalog     catalog.Source `yaml:"catalog"`
	Azure       AzureConfig    `yaml:"azure"`
	Render      RenderConfig   `yaml:"render"`

	Dictionaries DictionaryConfig `yaml:"dictionaries"`
	Template     layout.Template  `yaml:"template"`
	Thresholds   order.Thresholds `yaml:"-"`
}

// thresholdFile reads the thresholds block. Pointers tell an explicit 0, which
// turns a tier off, apart from an absent key.
type thresholdFile struct {
	Thresholds struct {
		MatchWarning *float64 `yaml:"match_warning"`
		MatchError   *float64 `yaml:"match_error"`
		OCRWarning   *float64 `yaml:"ocr_warning"`
		OCRError     *float64 `yaml:"ocr_error"`
	} `yaml:"thresholds"`
}

func (f thresholdFile) apply(t *order.Thresholds) {
	for _, v := range []struct {
		src *float64
		dst *float64
	}{
		{f.Thresholds.MatchWarning, &t.MatchWarning},
		{f.Thresholds.MatchError, &t.MatchError},
		{f.Thresholds.OCRWarning, &t.OCRWarning},
		{f.Thresholds.OCRError, &t.OCRError},
	} {
		if v.src != nil {
			*v.dst = *v.src
		}
	}
}

// AzureConfig holds Computer Vision credentials. OCR uploads are disabled when
// the endpoint is empty.
type AzureConfig struct {
	Endpoint string `yaml:"endpoint"`
	Key      string `yaml:"key"`
	Language string `yaml:"language"`
}

// RenderConfig controls review images.
type RenderConfig struct {
	FontPath string `yaml:"font_path"`
	MaxWidth int    `yaml:"max_width"`
	Dir      string `yaml:"dir"`
}

// DictionaryConfig points at replacement decomposition tables. Empty paths use
// the embedded ones.
type DictionaryConfig struct {
	Stroke  string `yaml:"stroke"`
	Radical string `yaml:"radical"`
}

// Load reads .env (if present), then the YAML file at path or $CONFIG_PATH
// (if any), then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg := &Config{Thresholds: order.DefaultThresholds()}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		var tf thresholdFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		tf.apply(&cfg.Thresholds)
	}
	cfg.applyEnv()
	cfg.defaults()
	if err := cfg.Template.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		"PORT":                  &c.Port,
		"DATABASE_URL":          &c.DatabaseURL,
		"LOG_LEVEL":             &c.LogLevel,
		"CATALOG_PATH":          &c.Catalog.Path,
		"AZURE_VISION_ENDPOINT": &c.Azure.Endpoint,
		"AZURE_VISION_KEY":      &c.Azure.Key,
		"FONT_PATH":             &c.Render.FontPath,
		"STROKE_DICT":           &c.Dictionaries.Stroke,
		"RADICAL_DICT":          &c.Dictionaries.Radical,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) defaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Catalog.Table == "" {
		c.Catalog.Table = catalog.DefaultTable
	}
	if c.Catalog.Columns == (catalog.Columns{}) {
		c.Catalog.Columns = catalog.DefaultColumns
	}
	if c.Render.Dir == "" {
		c.Render.Dir = os.TempDir()
	}

	def := layout.DefaultTemplate()
	t := &c.Template
	if len(t.Titles) == 0 {
		t.Titles = def.Titles
	}
	if len(t.Terminators) == 0 {
		t.Terminators = def.Terminators
	}
	if len(t.CustomerKeys) == 0 {
		t.CustomerKeys = def.CustomerKeys
	}
	if len(t.DateKeys) == 0 {
		t.DateKeys = def.DateKeys
	}
	if len(t.TotalKeys) == 0 {
		t.TotalKeys = def.TotalKeys
	}
	if len(t.TaxKeys) == 0 {
		t.TaxKeys = def.TaxKeys
	}
	if len(t.StatusKeys) == 0 {
		t.StatusKeys = def.StatusKeys
	}
	if t.RowGap <= 0 {
		t.RowGap = def.RowGap
	}
	if t.ColumnTolerance <= 0 {
		t.ColumnTolerance = def.ColumnTolerance
	}
}

// Logger builds the process logger at the configured level.
func (c *Config) Logger() (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	l := logrus.New()
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l, nil
}
