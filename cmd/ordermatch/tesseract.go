//go:build tesseract

package main

import (
	"github.com/spf13/cobra"

	"orderscan/pkg/models"
	"orderscan/pkg/services/ocr/tesseract"
	"orderscan/pkg/services/order"
)

func init() {
	extraCommands = append(extraCommands, newOCRCmd)
}

func newOCRCmd(opts *options) *cobra.Command {
	f := &matchFlags{}
	var languages []string
	cmd := &cobra.Command{
		Use:   "ocr <image>...",
		Short: "Recognize page images with Tesseract and assemble an order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docType, err := models.ParseDocumentType(f.docType)
			if err != nil {
				return err
			}
			e, cfg, log, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			rec := tesseract.New(languages...)
			pages := make([]models.Page, 0, len(args))
			for i, img := range args {
				p, err := rec.Recognize(cmd.Context(), img)
				if err != nil {
					return err
				}
				p.Index = i
				pages = append(pages, p)
			}
			o, err := e.Assemble(order.Document{Type: docType, Pages: pages})
			if err != nil {
				return err
			}
			if err := writeOrder(cmd.OutOrStdout(), f, o); err != nil {
				return err
			}
			if f.reviewDir != "" {
				f.images = args
			}
			return renderReviews(cfg, log, f, o, pages)
		},
	}
	cmd.Flags().StringVar(&f.docType, "type", string(models.DocumentPrint), "document type: print or handwriting")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write JSON to this file instead of stdout")
	cmd.Flags().BoolVar(&f.full, "full", false, "write every item field, not just the order output")
	cmd.Flags().StringVar(&f.reviewDir, "review-dir", "", "write review images to this directory")
	cmd.Flags().StringSliceVar(&languages, "lang", nil, "tesseract languages (default chi_tra,eng)")
	return cmd
}
