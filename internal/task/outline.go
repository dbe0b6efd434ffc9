package task

import (
	"fmt"

	"github.com/yourusername/editorkit/internal/document"
)

// Outline generates a structured research outline from a single paper.
type Outline struct{}

func (Outline) Name() string { return "outline" }
func (Outline) Description() string {
	return "Generate structured research outline with Chinese translation"
}

func (Outline) SupportsMultiInput() bool { return false }

func (Outline) Validate(docs []document.Document) error {
	if len(docs) != 1 {
		return fmt.Errorf("task outline: exactly one document is required, got %d", len(docs))
	}
	return nil
}

func (Outline) BuildPrompt(docs []document.Document) (string, error) {
	return renderTemplate("research_outliner.tmpl", struct {
		Content string
	}{docs[0].Content})
}

func (Outline) PostProcess(response string, _ []document.Document) map[string]string {
	return map[string]string{"main": response}
}

func (Outline) OutputSuffix() string { return "_outline" }
