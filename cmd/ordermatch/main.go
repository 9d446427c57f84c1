// Command ordermatch assembles orders from OCR results on disk and inspects
// product catalogs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"orderscan/pkg/config"
	"orderscan/pkg/services/catalog"
	"orderscan/pkg/services/match"
	"orderscan/pkg/services/order"
)

// extraCommands are registered by optional, build-tagged files.
var extraCommands []func(*options) *cobra.Command

type options struct {
	configPath  string
	catalogPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "ordermatch",
		Short:         "Reconstruct purchase orders from OCR output",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file (default $CONFIG_PATH)")
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "catalog file, overrides the configured path")

	root.AddCommand(newMatchCmd(opts), newCatalogCmd(opts))
	for _, c := range extraCommands {
		root.AddCommand(c(opts))
	}
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// load reads the configuration and catalog. Logs go to stderr so command
// output stays clean.
func (o *options) load(ctx context.Context) (*config.Config, *catalog.Catalog, *logrus.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if o.catalogPath != "" {
		cfg.Catalog.Path = o.catalogPath
	}
	if cfg.Catalog.Path == "" {
		return nil, nil, nil, fmt.Errorf("no catalog: pass --catalog or set CATALOG_PATH")
	}
	log, err := cfg.Logger()
	if err != nil {
		return nil, nil, nil, err
	}
	log.SetOutput(os.Stderr)
	cat, err := catalog.Load(ctx, cfg.Catalog, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, cat, log, nil
}

func (o *options) engine(ctx context.Context) (*order.Engine, *config.Config, *logrus.Logger, error) {
	cfg, cat, log, err := o.load(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	dicts, err := match.LoadDictionaries(cfg.Dictionaries.Stroke, cfg.Dictionaries.Radical)
	if err != nil {
		return nil, nil, nil, err
	}
	e, err := order.New(cat, order.Options{
		Template:     cfg.Template,
		Dictionaries: dicts,
		Thresholds:   &cfg.Thresholds,
		Logger:       log,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return e, cfg, log, nil
}
