package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPROVIDER\tCONTEXT\tIN/M\tOUT/M\tDEFAULT")
			for _, name := range a.catalog.Models() {
				mc, err := a.catalog.Resolve(name)
				if err != nil {
					return err
				}
				def := ""
				if name == a.cfg.DefaultModel {
					def = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s%.2f\t%s%.2f\t%s\n",
					mc.Name, mc.Provider, mc.ContextWindow,
					mc.Currency, mc.PriceInput, mc.Currency, mc.PriceOutput, def)
			}
			w.Flush()
			return nil
		},
	}
}
