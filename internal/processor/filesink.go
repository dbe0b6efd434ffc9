package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourusername/editorkit/internal/llm"
)

// DefaultOutputDir is where generated files land when no directory is
// configured.
const DefaultOutputDir = "llm_generations"

// FileSink writes run outputs and usage reports to a directory.
type FileSink struct {
	dir string
}

// NewFileSink creates a FileSink. An empty dir selects DefaultOutputDir.
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = DefaultOutputDir
	}
	return &FileSink{dir: dir}
}

// Dir returns the sink's target directory.
func (s *FileSink) Dir() string { return s.dir }

// WriteOutputs writes each named output as Markdown under the sink directory.
// The "main" output gets <stem>.md; others get <stem>_<name>.md. Returns the
// written paths.
func (s *FileSink) WriteOutputs(stem, header string, outputs map[string]string) ([]string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("processor.FileSink.WriteOutputs: mkdir: %w", err)
	}
	var paths []string
	for _, name := range sortedKeys(outputs) {
		file := stem + ".md"
		if name != "main" {
			file = stem + "_" + name + ".md"
		}
		path := filepath.Join(s.dir, file)
		if err := os.WriteFile(path, []byte(header+outputs[name]), 0o644); err != nil {
			return paths, fmt.Errorf("processor.FileSink.WriteOutputs: %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteUsageReport writes a plain-text token usage report for one run.
func (s *FileSink) WriteUsageReport(stem string, entries []llm.Usage, currency string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("processor.FileSink.WriteUsageReport: mkdir: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("Token Usage Report\n")
	sb.WriteString("==================\n\n")

	var inTok, outTok int
	var cost float64
	for _, u := range entries {
		fmt.Fprintf(&sb, "%s: input=%d output=%d cost=%s%.6f time=%.2fs\n",
			u.RequestName, u.InputTokens, u.OutputTokens, currency, u.TotalCost,
			u.ProcessTime.Seconds())
		inTok += u.InputTokens
		outTok += u.OutputTokens
		cost += u.TotalCost
	}
	fmt.Fprintf(&sb, "\nTotal: input=%d output=%d cost=%s%.6f\n", inTok, outTok, currency, cost)

	path := filepath.Join(s.dir, "token_usage_"+stem+".txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("processor.FileSink.WriteUsageReport: %w", err)
	}
	return nil
}
