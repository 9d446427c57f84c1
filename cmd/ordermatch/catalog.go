package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"orderscan/pkg/services/catalog"
)

func newCatalogCmd(opts *options) *cobra.Command {
	var lookup, unit string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Summarize a product catalog and its alias conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cat, _, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if lookup != "" {
				id, ok := cat.LookupName(lookup)
				if unit != "" {
					id, ok = cat.Lookup(lookup, catalog.NormalizeUnit(unit))
				}
				if !ok {
					return fmt.Errorf("%q not in catalog", lookup)
				}
				e, _ := cat.Entry(id)
				fmt.Fprintf(w, "%s\t%s\n", id, names(e.Aliases))
				return nil
			}

			fmt.Fprintf(w, "products: %d\naliases: %d\nconflicts: %d\n", cat.Len(), len(cat.Aliases()), len(cat.Conflicts()))
			for _, c := range cat.Conflicts() {
				fmt.Fprintf(w, "  %s (%s): kept %s, rejected %s\n", c.Alias.Name, c.Alias.Unit, c.Kept, c.Rejected)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lookup, "lookup", "", "print the product id of an alias name")
	cmd.Flags().StringVar(&unit, "unit", "", "restrict --lookup to a unit")
	return cmd
}

// names joins alias names for display.
func names(aliases []catalog.Alias) string {
	out := make([]string, len(aliases))
	for i, a := range aliases {
		out[i] = a.Name
	}
	return strings.Join(out, "/")
}
