// Package document defines the converted-document model consumed by tasks
// and the content validation applied before processing.
package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Type classifies a document source.
type Type string

const (
	// TypePaper is a research paper.
	TypePaper Type = "paper"
	// TypeNews is a news article.
	TypeNews Type = "news"
)

// ParseType parses a source type string ("paper" or "news").
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paper":
		return TypePaper, nil
	case "news":
		return TypeNews, nil
	default:
		return "", fmt.Errorf("document.ParseType: invalid source type %q (use 'paper' or 'news')", s)
	}
}

// Document is one converted unit of input content with its metadata.
// Conversion from PDF/DOCX/HTML/URL happens upstream; the pipeline only
// ever sees markdown.
type Document struct {
	Type       Type
	Content    string
	Title      string
	Authors    string
	SourcePath string
	OutputPath string
}

// Converter turns a file path or URL into a Document. Implementations live
// outside this module (PDF/DOCX/HTML extraction); the pipeline depends only
// on this boundary.
type Converter interface {
	Convert(ctx context.Context, pathOrURL string, typ Type) (*Document, error)
}

// LoadMarkdown reads an already-converted markdown file into a Document.
// The title defaults to the file name without extension.
func LoadMarkdown(path string, typ Type) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document.LoadMarkdown: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Document{
		Type:       typ,
		Content:    string(data),
		Title:      name,
		SourcePath: path,
		OutputPath: path,
	}, nil
}
