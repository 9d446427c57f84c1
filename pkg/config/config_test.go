package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderscan/pkg/models"
	"orderscan/pkg/services/catalog"
	"orderscan/pkg/services/layout"
	"orderscan/pkg/services/order"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "DATABASE_URL", "LOG_LEVEL", "CATALOG_PATH", "CONFIG_PATH",
		"AZURE_VISION_ENDPOINT", "AZURE_VISION_KEY", "FONT_PATH", "STROKE_DICT", "RADICAL_DICT",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "products", cfg.Catalog.Table)
	assert.Equal(t, catalog.DefaultColumns, cfg.Catalog.Columns)
	assert.Equal(t, layout.DefaultTemplate(), cfg.Template)
	assert.Equal(t, order.DefaultThresholds(), cfg.Thresholds)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "9000"
database_url: postgres://file
catalog:
  path: catalog.xlsx
  columns:
    product_id: 代號
template:
  row_gap: 20
  terminators: [序號]
  titles:
    - {keyword: 序號, column: index}
    - {keyword: 名稱, column: product_name}
    - {keyword: 數量, column: quantity}
thresholds:
  match_warning: 0.9
`)
	t.Setenv("PORT", "7000")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port, "environment wins over file")
	assert.Equal(t, "postgres://file", cfg.DatabaseURL)
	assert.Equal(t, "catalog.xlsx", cfg.Catalog.Path)
	assert.Equal(t, "代號", cfg.Catalog.Columns.ProductID)
	assert.Equal(t, 20.0, cfg.Template.RowGap)
	assert.Equal(t, float64(layout.DefaultColumnTolerance), cfg.Template.ColumnTolerance)
	require.Len(t, cfg.Template.Titles, 3)
	assert.Equal(t, models.ColumnProductName, cfg.Template.Titles[1].Column)
	assert.Equal(t, []string{"序號"}, cfg.Template.Terminators)
	assert.Equal(t, layout.DefaultTemplate().TotalKeys, cfg.Template.TotalKeys)
	assert.Equal(t, 0.9, cfg.Thresholds.MatchWarning)
	assert.Equal(t, 0.65, cfg.Thresholds.MatchError)
}

func TestLoadZeroThresholdDisablesTier(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
thresholds:
  match_error: 0
  ocr_warning: 0.6
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Thresholds.MatchError)
	assert.Equal(t, 0.8, cfg.Thresholds.MatchWarning)
	assert.Equal(t, 0.6, cfg.Thresholds.OCRWarning)
	assert.Equal(t, 0.5, cfg.Thresholds.OCRError)
}

func TestLoadRejectsUnknownColumn(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
template:
  titles:
    - {keyword: 品名, column: product_name}
    - {keyword: 備註, column: remark}
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	l, err := cfg.Logger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	cfg.LogLevel = "loud"
	_, err = cfg.Logger()
	assert.Error(t, err)
}
