package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/editorkit/internal/document"
	"github.com/yourusername/editorkit/internal/processor"
	"github.com/yourusername/editorkit/internal/task"
	"github.com/yourusername/editorkit/internal/tokenizer"
)

// generateFlags are shared by the brief/outline/translate commands.
type generateFlags struct {
	model     string
	thinking  string
	docType   string
	noStream  bool
	saveFiles bool
	outputDir string
	each      bool
}

func (f *generateFlags) register(cmd *cobra.Command, allowEach bool) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "catalog model name (default from config)")
	cmd.Flags().StringVar(&f.thinking, "thinking", "", "reasoning effort override: low, medium, high")
	cmd.Flags().StringVarP(&f.docType, "type", "t", "paper", "document type: paper or news")
	cmd.Flags().BoolVar(&f.noStream, "no-stream", false, "disable streaming output")
	cmd.Flags().BoolVar(&f.saveFiles, "save-files", false, "also write outputs to the output directory")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "output directory for --save-files")
	if allowEach {
		cmd.Flags().BoolVar(&f.each, "each", false, "process every file as its own run instead of one combined run")
	}
}

func newBriefCmd() *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "brief <file>...",
		Short: "Generate brief news from research papers and articles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), "brief", args, flags)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newOutlineCmd() *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "outline <file>...",
		Short: "Generate a structured research outline with Chinese translation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), "outline", args, flags)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newTranslateCmd() *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "translate <file>...",
		Short: "Translate content to Chinese with bilingual output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), "translate", args, flags)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func runGenerate(ctx context.Context, taskName string, paths []string, flags generateFlags) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	typ, err := document.ParseType(flags.docType)
	if err != nil {
		return err
	}
	docs := make([]document.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := document.LoadMarkdown(path, typ)
		if err != nil {
			return err
		}
		docs = append(docs, *doc)
	}

	stream := !flags.noStream
	client, mc, err := a.newClient(flags.model, flags.thinking, stream)
	if err != nil {
		return err
	}
	guard := tokenizer.NewGuard(mc.Name, mc.ContextWindow, mc.MaxTokens, a.cfg.PromptOverheadTokens)

	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}
	popts := []processor.Option{
		processor.WithRunMetadata(flags.thinking, stream),
		processor.WithNotifier(notifier),
	}
	if flags.saveFiles {
		dir := flags.outputDir
		if dir == "" {
			dir = a.cfg.OutputDir
		}
		popts = append(popts, processor.WithFileSink(processor.NewFileSink(dir)))
	}
	registry := task.DefaultRegistry()
	p := processor.New(a.repo, client, registry, guard, a.cfg.MaxConcurrent, popts...)

	tk := registry.Get(taskName)
	combined := tk != nil && tk.SupportsMultiInput() && !flags.each

	var results []processor.Result
	if combined || len(docs) == 1 {
		results = []processor.Result{p.ProcessDocuments(ctx, docs, taskName)}
	} else {
		results = p.ProcessEach(ctx, docs, taskName)
	}

	failures := 0
	for i, res := range results {
		label := taskName
		if len(results) > 1 {
			label = fmt.Sprintf("%s (%s)", taskName, docs[i].Title)
		}
		if res.Success() {
			fmt.Printf("✓ %s: run %d complete\n", label, res.RunID)
		} else {
			failures++
			if res.RunID != 0 {
				fmt.Printf("✗ %s: run %d failed: %v\n", label, res.RunID, res.Err)
			} else {
				fmt.Printf("✗ %s: %v\n", label, res.Err)
			}
		}
	}

	totals := client.Ledger().Totals()
	if totals.Requests > 0 {
		fmt.Printf("\nTokens: %d in / %d out, cost %s%.4f\n",
			totals.InputTokens, totals.OutputTokens, client.Currency(), totals.TotalCost)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d runs failed", failures, len(results))
	}
	return nil
}
