package task

import (
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/editorkit/internal/document"
)

// Translate produces a Chinese translation of a single document, plus a
// bilingual version interleaving source and translated lines.
type Translate struct{}

func (Translate) Name() string        { return "translate" }
func (Translate) Description() string { return "Translate content to Chinese with bilingual output" }

func (Translate) SupportsMultiInput() bool { return false }

func (Translate) Validate(docs []document.Document) error {
	if len(docs) != 1 {
		return fmt.Errorf("task translate: exactly one document is required, got %d", len(docs))
	}
	return nil
}

func (Translate) BuildPrompt(docs []document.Document) (string, error) {
	return renderTemplate("translator.tmpl", struct {
		Content string
	}{docs[0].Content})
}

func (Translate) PostProcess(response string, docs []document.Document) map[string]string {
	return map[string]string{
		"main":      response,
		"bilingual": interleave(docs[0].Content, response),
	}
}

func (Translate) OutputSuffix() string { return "_translate" }

// interleave alternates source and translated lines. When the translation has
// fewer lines than the source, interleaving stops at the first uncovered
// source line; the partial result keeps that line so the gap is visible.
func interleave(source, translated string) string {
	src := strings.Split(strings.TrimSpace(source), "\n")
	trans := strings.Split(strings.TrimSpace(translated), "\n")

	lines := make([]string, 0, len(src)*2)
	for i, s := range src {
		lines = append(lines, s)
		if i >= len(trans) {
			log.Printf("task: bilingual line count mismatch at line %d: source has %d lines, translation has %d",
				i, len(src), len(trans))
			break
		}
		lines = append(lines, trans[i])
	}
	return strings.Join(lines, "\n") + "\n"
}
