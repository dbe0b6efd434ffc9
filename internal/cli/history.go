package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/editorkit/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		pending bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var runs []store.RunSummary
			if pending {
				runs, err = a.repo.GetResumableRuns()
			} else {
				runs, err = a.repo.GetRecentRuns(limit)
			}
			if err != nil {
				return err
			}
			printSummaries(runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	cmd.Flags().BoolVar(&pending, "pending", false, "list only runs still marked pending")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <title-pattern>",
		Short: "Search runs by input title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.repo.SearchByTitle(args[0], limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Printf("No runs match %q.\n", args[0])
				return nil
			}
			printSummaries(runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results")
	return cmd
}

func newShowCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's inputs, outputs, and token usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.repo.GetRunDetails(runID)
			if err != nil {
				return err
			}
			printDetails(d, full)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print full output contents")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.repo.GetStats(days)
			if err != nil {
				return err
			}
			printStats(stats)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 7, "trailing period in days")
	return cmd
}

func printSummaries(runs []store.RunSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tTASK\tMODEL\tSTATUS\tTOKENS\tCOST\tINPUTS")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d/%d\t%s%.4f\t%s\n",
			r.ID, r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Task, r.Model, r.Status,
			r.InputTokens, r.OutputTokens,
			r.Currency, r.TotalCost,
			truncate(r.InputTitles, 50))
	}
	w.Flush()
}

func printDetails(d *store.RunDetails, full bool) {
	fmt.Printf("Run %d  %s\n", d.ID, d.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Task:   %s\nModel:  %s\nStatus: %s\n", d.Task, d.Model, d.Status)
	if d.ThinkingLevel != "" {
		fmt.Printf("Thinking: %s\n", d.ThinkingLevel)
	}
	if d.ErrorMessage != "" {
		fmt.Printf("Error:  %s\n", d.ErrorMessage)
	}

	fmt.Println("\nInputs:")
	for _, in := range d.Inputs {
		fmt.Printf("  [%s] %s", in.Type, in.Title)
		if in.SourcePath != "" {
			fmt.Printf("  (%s)", in.SourcePath)
		}
		fmt.Println()
	}

	for _, out := range d.Outputs {
		content := out.Content
		if !full {
			content = truncate(content, 400)
		}
		fmt.Printf("\nOutput [%s]:\n%s\n", out.OutputType, content)
	}

	if d.Usage != nil {
		fmt.Printf("\nTokens: %d in / %d out, cost %s%.4f, %.1fs\n",
			d.Usage.InputTokens, d.Usage.OutputTokens,
			d.Currency, d.Usage.CostInput+d.Usage.CostOutput,
			d.Usage.ProcessTime)
	}
}

func printStats(s *store.Stats) {
	fmt.Printf("Last %d days: %d runs, %.0f%% success\n\n",
		s.PeriodDays, s.TotalRuns, s.SuccessRate*100)

	if len(s.ByModel) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tRUNS\tTOKENS\tCOST")
		for _, m := range s.ByModel {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.4f\n", m.Model, m.Runs, m.TotalTokens, m.TotalCost)
		}
		w.Flush()
		fmt.Println()
	}
	if len(s.ByTask) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TASK\tRUNS")
		for _, t := range s.ByTask {
			fmt.Fprintf(w, "%s\t%d\n", t.Task, t.Runs)
		}
		w.Flush()
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
