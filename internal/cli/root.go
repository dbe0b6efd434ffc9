// Package cli implements the editorkit command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the root command with all subcommands attached.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "editorkit",
		Short:   "LLM-assisted editorial content pipeline",
		Long: `editorkit turns research papers and news articles into editorial content
(briefs, outlines, translations) using OpenAI-compatible LLM providers, and
keeps a local history of every run.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newBriefCmd(),
		newOutlineCmd(),
		newTranslateCmd(),
		newHistoryCmd(),
		newShowCmd(),
		newSearchCmd(),
		newStatsCmd(),
		newExportCmd(),
		newModelsCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute(version string) {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
