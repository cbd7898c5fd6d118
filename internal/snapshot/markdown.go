package snapshot

import (
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Converter turns rendered HTML into the markdown stored on history entries.
// The raw HTML is discarded after conversion; only markdown is persisted.
type Converter interface {
	ToMarkdown(html string) (string, error)
}

// MarkdownConverter implements Converter with the html-to-markdown library.
type MarkdownConverter struct{}

// NewMarkdownConverter creates a MarkdownConverter.
func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{}
}

// ToMarkdown converts an HTML document to markdown.
func (c *MarkdownConverter) ToMarkdown(html string) (string, error) {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return md, nil
}
