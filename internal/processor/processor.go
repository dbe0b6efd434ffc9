// Package processor orchestrates generation runs: validation, budget checks,
// run bookkeeping, the model call, and output persistence.
package processor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yourusername/editorkit/internal/document"
	"github.com/yourusername/editorkit/internal/llm"
	"github.com/yourusername/editorkit/internal/notify"
	"github.com/yourusername/editorkit/internal/store"
	"github.com/yourusername/editorkit/internal/task"
	"github.com/yourusername/editorkit/internal/tokenizer"
)

// DefaultMaxConcurrent caps simultaneous in-flight model calls.
const DefaultMaxConcurrent = 5

// Generator is the model client surface the processor needs.
type Generator interface {
	Generate(ctx context.Context, prompt, requestName string) (string, llm.Usage, error)
	ModelName() string
	Currency() string
}

// Result is the outcome of one run. RunID is zero when processing aborted
// before a run row was created.
type Result struct {
	RunID int64
	Err   error
}

// Success reports whether the run completed.
func (r Result) Success() bool { return r.Err == nil }

// Processor drives generation runs over a shared client and repository. Safe
// for concurrent use; the semaphore is the only serialization point.
type Processor struct {
	repo  *store.Repository
	gen   Generator
	tasks *task.Registry
	guard *tokenizer.Guard
	sem   *semaphore.Weighted

	notifier *notify.Notifier
	sink     *FileSink
	thinking string
	stream   bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithNotifier attaches a run-completion notifier.
func WithNotifier(n *notify.Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

// WithFileSink also writes outputs and usage reports to disk.
func WithFileSink(s *FileSink) Option {
	return func(p *Processor) { p.sink = s }
}

// WithRunMetadata records the thinking level and stream flag on run rows.
func WithRunMetadata(thinking string, stream bool) Option {
	return func(p *Processor) {
		p.thinking = thinking
		p.stream = stream
	}
}

// New creates a Processor. maxConcurrent <= 0 selects DefaultMaxConcurrent.
func New(repo *store.Repository, gen Generator, tasks *task.Registry, guard *tokenizer.Guard, maxConcurrent int, opts ...Option) *Processor {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	p := &Processor{
		repo:   repo,
		gen:    gen,
		tasks:  tasks,
		guard:  guard,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		stream: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessDocuments runs one task over a document set. Failures before the run
// row exists return with RunID zero; once the row exists every failure is
// recorded on it and the run is marked failed instead of propagating.
func (p *Processor) ProcessDocuments(ctx context.Context, docs []document.Document, taskName string) Result {
	tk := p.tasks.Get(taskName)
	if tk == nil {
		return Result{Err: fmt.Errorf("processor: unknown task %q (available: %s)",
			taskName, strings.Join(p.tasks.Names(), ", "))}
	}
	if err := tk.Validate(docs); err != nil {
		return Result{Err: err}
	}
	for i := range docs {
		warning, err := document.Validate(&docs[i])
		if err != nil {
			return Result{Err: err}
		}
		if warning != "" {
			log.Printf("processor: %s", warning)
		}
		if err := p.guard.Check(docs[i].Content); err != nil {
			return Result{Err: fmt.Errorf("document %q: %w", docs[i].Title, err)}
		}
	}

	inputIDs := make([]int64, 0, len(docs))
	for _, d := range docs {
		id, err := p.repo.GetOrCreateInput(string(d.Type), d.SourcePath, d.Title, d.Content)
		if err != nil {
			return Result{Err: err}
		}
		inputIDs = append(inputIDs, id)
	}

	runID, err := p.repo.CreateRun(tk.Name(), p.gen.ModelName(), p.thinking, p.stream, p.gen.Currency(), inputIDs)
	if err != nil {
		return Result{Err: err}
	}
	return p.execute(ctx, runID, tk, docs)
}

// ProcessEach runs the task over every document independently and
// concurrently, one run per document. All results are gathered; one
// document's failure never stops the others.
func (p *Processor) ProcessEach(ctx context.Context, docs []document.Document, taskName string) []Result {
	results := make([]Result, len(docs))
	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.ProcessDocuments(ctx, docs[i:i+1], taskName)
		}(i)
	}
	wg.Wait()
	return results
}

// execute covers everything after the run row exists. Panics from task
// implementations are contained here so one bad document cannot take down a
// concurrent batch.
func (p *Processor) execute(ctx context.Context, runID int64, tk task.Task, docs []document.Document) (result Result) {
	result.RunID = runID
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("processor: task %s panicked: %v", tk.Name(), r)
			p.fail(runID, tk, err)
			result.Err = err
		}
	}()

	stem := outputStem(docs, tk, p.gen.ModelName(), time.Now())

	prompt, err := tk.BuildPrompt(docs)
	if err != nil {
		p.fail(runID, tk, err)
		return Result{RunID: runID, Err: err}
	}
	if err := p.guard.Check(prompt); err != nil {
		err = fmt.Errorf("rendered prompt: %w", err)
		p.fail(runID, tk, err)
		return Result{RunID: runID, Err: err}
	}

	// The semaphore bounds in-flight model calls only; validation and
	// persistence run unthrottled.
	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.fail(runID, tk, err)
		return Result{RunID: runID, Err: err}
	}
	text, usage, err := p.gen.Generate(ctx, prompt, tk.Name())
	p.sem.Release(1)
	if err != nil {
		p.fail(runID, tk, err)
		return Result{RunID: runID, Err: err}
	}

	outputs := tk.PostProcess(text, docs)
	header := metadataHeader(docs)
	for _, name := range sortedKeys(outputs) {
		if err := p.repo.AddOutput(runID, name, "text", header+outputs[name]); err != nil {
			p.fail(runID, tk, err)
			return Result{RunID: runID, Err: err}
		}
	}

	if p.sink != nil {
		if _, err := p.sink.WriteOutputs(stem, header, outputs); err != nil {
			log.Printf("processor: write output files: %v", err)
		}
		if err := p.sink.WriteUsageReport(stem, []llm.Usage{usage}, p.gen.Currency()); err != nil {
			log.Printf("processor: write usage report: %v", err)
		}
	}

	// Usage accounting is best-effort: the generation already succeeded.
	if err := p.repo.AddTokenUsage(runID, store.TokenUsage{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostInput:    usage.CostInput,
		CostOutput:   usage.CostOutput,
		ProcessTime:  usage.ProcessTime.Seconds(),
	}); err != nil {
		log.Printf("processor: record token usage for run %d: %v", runID, err)
	}

	if err := p.repo.UpdateRunStatus(runID, store.StatusSuccess, ""); err != nil {
		p.fail(runID, tk, err)
		return Result{RunID: runID, Err: err}
	}
	p.notifier.RunCompleted(runID, tk.Name(), p.gen.ModelName(), usage.TotalCost, p.gen.Currency())
	return Result{RunID: runID}
}

func (p *Processor) fail(runID int64, tk task.Task, cause error) {
	log.Printf("processor: run %d failed: %v", runID, cause)
	if err := p.repo.UpdateRunStatus(runID, store.StatusFailed, cause.Error()); err != nil {
		log.Printf("processor: mark run %d failed: %v", runID, err)
	}
	p.notifier.RunFailed(runID, tk.Name(), p.gen.ModelName(), cause.Error())
}

// metadataHeader lists the titles and sources of all inputs. It is prepended
// to every persisted output.
func metadataHeader(docs []document.Document) string {
	var sb strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&sb, "Title: %s\n", d.Title)
		if d.SourcePath != "" {
			fmt.Fprintf(&sb, "Source: %s\n", d.SourcePath)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// outputStem builds the file stem for a run's outputs:
// <title>[-multi]<suffix>_<model>_<timestamp>.
func outputStem(docs []document.Document, tk task.Task, model string, now time.Time) string {
	title := sanitizeTitle(docs[0].Title)
	if tk.SupportsMultiInput() && len(docs) > 1 {
		title += "-multi"
	}
	return fmt.Sprintf("%s%s_%s_%s", title, tk.OutputSuffix(), model, now.Format("2006-01-02_15-04-05"))
}

// sanitizeTitle keeps filename-safe characters and squashes the rest.
func sanitizeTitle(title string) string {
	var sb strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "untitled"
	}
	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
