// Package markdown serializes HTML subtrees to Markdown.
//
// Serializers are pure: the same node and options always produce the same
// output, and the input tree is never mutated. Callers are expected to hand
// in a cleaned clone (see package cleaner) and to run Normalize on the result.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Options controls which constructs the page serializer emits.
type Options struct {
	// IncludeImages emits ![alt](src) for <img> elements.
	IncludeImages bool `json:"include_images" yaml:"include_images"`

	// IncludeTables renders <table> as a pipe table instead of flattening it.
	IncludeTables bool `json:"include_tables" yaml:"include_tables"`

	// IncludeLinks emits [text](href) for anchors. When false only the text remains.
	IncludeLinks bool `json:"include_links" yaml:"include_links"`

	// StripNav drops nav, header, footer and aside before conversion.
	// Only the universal serializer honours it; the page path handles these
	// through the aggressive cleaning pass.
	StripNav bool `json:"strip_nav" yaml:"strip_nav"`

	// BaseURL is the page URL used to resolve relative links and images.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// DefaultOptions mirrors the defaults of the page extractor.
func DefaultOptions() Options {
	return Options{
		IncludeImages: true,
		IncludeTables: true,
		IncludeLinks:  true,
	}
}

// Serializer converts a DOM subtree to Markdown.
type Serializer interface {
	// Serialize returns the Markdown for n. It never fails; unknown
	// elements fall back to their children.
	Serialize(n *html.Node) string

	// Name identifies the serializer for logging.
	Name() string
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// Normalize collapses runs of three or more newlines to two and trims
// surrounding whitespace.
func Normalize(md string) string {
	return strings.TrimSpace(excessNewlines.ReplaceAllString(md, "\n\n"))
}

// SerializeHTML parses a raw HTML string and serializes its body.
// The result is normalized.
func SerializeHTML(s Serializer, htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	return Normalize(s.Serialize(root.Get(0))), nil
}
