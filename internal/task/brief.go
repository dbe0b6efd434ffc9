package task

import (
	"fmt"

	"github.com/yourusername/editorkit/internal/document"
)

// Brief generates a short news article from one or more sources.
type Brief struct{}

func (Brief) Name() string        { return "brief" }
func (Brief) Description() string { return "Generate brief news from research papers and articles" }

func (Brief) SupportsMultiInput() bool { return true }

func (Brief) Validate(docs []document.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("task brief: at least one document is required")
	}
	return nil
}

func (Brief) BuildPrompt(docs []document.Document) (string, error) {
	return renderTemplate("news_generator.tmpl", struct {
		Documents []document.Document
	}{docs})
}

func (Brief) PostProcess(response string, _ []document.Document) map[string]string {
	return map[string]string{"main": response}
}

func (Brief) OutputSuffix() string { return "_brief" }
