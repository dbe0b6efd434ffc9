package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		limit  int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export run history as JSON or CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var w io.Writer = os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "json":
				err = a.repo.ExportJSON(w, limit)
			case "csv":
				err = a.repo.ExportCSV(w, limit)
			default:
				return fmt.Errorf("export: unknown format %q (want json or csv)", format)
			}
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(os.Stderr, "Exported to %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or csv")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum number of runs")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
