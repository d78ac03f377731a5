package extractmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/extractmd/pkg/markdown"
	"github.com/jmylchreest/extractmd/pkg/selector"
)

// Pipeline names a conversion strategy.
type Pipeline string

const (
	// PipelinePage picks the main region heuristically and serializes it
	// with the page rules.
	PipelinePage Pipeline = "page"
	// PipelineArticle converts every <article> element.
	PipelineArticle Pipeline = "article"
	// PipelineUniversal converts the region with html-to-markdown.
	PipelineUniversal Pipeline = "universal"
)

// Pipelines lists the supported pipelines.
var Pipelines = []Pipeline{PipelinePage, PipelineArticle, PipelineUniversal}

// ParsePipeline converts a string to a Pipeline. The empty string means
// PipelinePage.
func ParsePipeline(s string) (Pipeline, error) {
	switch p := Pipeline(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PipelinePage, nil
	case PipelinePage, PipelineArticle, PipelineUniversal:
		return p, nil
	default:
		return "", fmt.Errorf("unknown pipeline: %s (use page, article, or universal)", s)
	}
}

// Request describes one extraction. Every setting the pipelines consult is
// carried here; nothing is read from ambient state.
type Request struct {
	// URL is fetched unless HTML is set. It is also the base for relative
	// links and the URL shown in the header.
	URL string

	// HTML is used instead of fetching when non-empty.
	HTML string

	// Title overrides the document title in the header and file name.
	Title string

	Pipeline Pipeline

	// Mode and CustomSelector choose the content region. The page pipeline
	// only consults them when OnlyMainSection is false.
	Mode           selector.Mode
	CustomSelector string

	// Markdown holds the serializer options. An empty BaseURL defaults to URL.
	Markdown markdown.Options

	// OnlyMainSection makes the page pipeline prefer the readability
	// extractor, then the heuristic selector. When false the page pipeline
	// converts the body (or the region chosen by Mode).
	OnlyMainSection bool

	// Aggressive applies the aggressive cleaning pass in the page pipeline.
	Aggressive bool

	IncludeTitle bool
	IncludeURL   bool

	// OnlyLongest keeps only the longest article when several are found.
	OnlyLongest bool

	// MinContentLength is the minimum cleaned text length of the selected
	// region. Zero uses the pipeline default; a negative value disables the
	// check.
	MinContentLength int

	// ForceDownload marks the result for download regardless of size.
	ForceDownload bool

	// DownloadIfLarger marks the result for download when the Markdown
	// exceeds this many bytes. Zero disables it.
	DownloadIfLarger int
}

// DefaultRequest returns a page request for url with every content option
// enabled, matching the defaults of the settings store.
func DefaultRequest(url string) Request {
	return Request{
		URL:             url,
		Pipeline:        PipelinePage,
		Markdown:        markdown.Options{IncludeImages: true, IncludeTables: true, IncludeLinks: true, StripNav: true},
		OnlyMainSection: true,
		Aggressive:      true,
		IncludeTitle:    true,
		IncludeURL:      true,
	}
}

func (r Request) minContentLength() int {
	switch {
	case r.MinContentLength < 0:
		return 0
	case r.MinContentLength > 0:
		return r.MinContentLength
	}
	switch r.Pipeline {
	case PipelineUniversal:
		return selector.UniversalMinContentLength
	case PipelineArticle:
		return 1
	default:
		return selector.DefaultMinContentLength
	}
}

// Result is the outcome of one extraction.
type Result struct {
	URL      string   `json:"url" yaml:"url"`
	Title    string   `json:"title" yaml:"title"`
	Pipeline Pipeline `json:"pipeline" yaml:"pipeline"`
	Markdown string   `json:"markdown" yaml:"markdown"`

	// Root describes the selected content region, e.g. "main#content".
	Root       string `json:"root,omitempty" yaml:"root,omitempty"`
	TextLength int    `json:"text_length" yaml:"text_length"`

	// Articles is the number of <article> elements found by the article
	// pipeline.
	Articles int `json:"articles,omitempty" yaml:"articles,omitempty"`

	// Download is set when the caller should write Filename instead of
	// printing the Markdown.
	Download bool   `json:"download" yaml:"download"`
	Filename string `json:"filename" yaml:"filename"`

	FetchedAt       time.Time     `json:"fetched_at,omitempty" yaml:"fetched_at,omitempty"`
	FetchDuration   time.Duration `json:"fetch_duration,omitempty" yaml:"fetch_duration,omitempty"`
	ConvertDuration time.Duration `json:"convert_duration" yaml:"convert_duration"`

	Error        error  `json:"-" yaml:"-"`
	ErrorMessage string `json:"error,omitempty" yaml:"error,omitempty"`
}

// MarkdownBody returns the converted Markdown.
func (r *Result) MarkdownBody() string {
	return r.Markdown
}
