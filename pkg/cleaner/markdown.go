package cleaner

import (
	"github.com/jmylchreest/extractmd/pkg/markdown"
)

// MarkdownCleaner converts HTML to Markdown with a markdown.Serializer.
// It is typically the last link of a chain, after an extracting cleaner.
type MarkdownCleaner struct {
	serializer markdown.Serializer
}

// NewMarkdown creates a Markdown cleaner. A nil serializer uses the page
// serializer with default options.
func NewMarkdown(s markdown.Serializer) *MarkdownCleaner {
	if s == nil {
		s = markdown.NewPage(markdown.DefaultOptions())
	}
	return &MarkdownCleaner{serializer: s}
}

// Clean converts HTML to normalized Markdown.
func (c *MarkdownCleaner) Clean(html string) (string, error) {
	return markdown.SerializeHTML(c.serializer, html)
}

// Name returns the cleaner type.
func (c *MarkdownCleaner) Name() string {
	return "markdown-" + c.serializer.Name()
}
