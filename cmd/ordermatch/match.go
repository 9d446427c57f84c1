package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"orderscan/pkg/config"
	"orderscan/pkg/models"
	"orderscan/pkg/services/ocr"
	"orderscan/pkg/services/order"
	"orderscan/pkg/services/render"
)

type matchFlags struct {
	docType   string
	out       string
	full      bool
	images    []string
	reviewDir string
}

func newMatchCmd(opts *options) *cobra.Command {
	f := &matchFlags{}
	cmd := &cobra.Command{
		Use:   "match <ocr-result>",
		Short: "Assemble an order from PaddleOCR results",
		Long: "Assemble an order from a PaddleOCR JSON file, or from a directory holding one\n" +
			"numbered sub-directory per page, and print the order as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docType, err := models.ParseDocumentType(f.docType)
			if err != nil {
				return err
			}
			e, cfg, log, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			pages, err := ocr.LoadDocument(args[0])
			if err != nil {
				return err
			}
			o, err := e.Assemble(order.Document{Type: docType, Pages: pages})
			if err != nil {
				return err
			}
			if err := writeOrder(cmd.OutOrStdout(), f, o); err != nil {
				return err
			}
			return renderReviews(cfg, log, f, o, pages)
		},
	}
	cmd.Flags().StringVar(&f.docType, "type", string(models.DocumentPrint), "document type: print or handwriting")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write JSON to this file instead of stdout")
	cmd.Flags().BoolVar(&f.full, "full", false, "write every item field, not just the order output")
	cmd.Flags().StringSliceVar(&f.images, "image", nil, "page image for a review render, one per page in order")
	cmd.Flags().StringVar(&f.reviewDir, "review-dir", ".", "directory for review images")
	return cmd
}

func writeOrder(stdout io.Writer, f *matchFlags, o *models.Order) error {
	var v any = o.Output()
	if f.full {
		v = o
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	data = append(data, '\n')
	if f.out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(f.out, data, 0o644); err != nil {
		return fmt.Errorf("write order: %w", err)
	}
	return nil
}

func renderReviews(cfg *config.Config, log logrus.FieldLogger, f *matchFlags, o *models.Order, pages []models.Page) error {
	if len(f.images) == 0 {
		return nil
	}
	if len(f.images) > len(pages) {
		return fmt.Errorf("%d images for %d pages", len(f.images), len(pages))
	}
	r, err := render.New(cfg.Render.FontPath)
	if err != nil {
		return err
	}
	r.MaxWidth = cfg.Render.MaxWidth
	for i, img := range f.images {
		out := filepath.Join(f.reviewDir, fmt.Sprintf("%s-%d.png", o.ID, pages[i].Index))
		if err := r.RenderFile(img, o.ItemsOnPage(pages[i].Index), out); err != nil {
			return err
		}
		log.WithField("file", out).Info("review image written")
	}
	return nil
}
