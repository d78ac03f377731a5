package extractmd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/extractmd/internal/logger"
	"github.com/jmylchreest/extractmd/pkg/cleaner"
	"github.com/jmylchreest/extractmd/pkg/markdown"
	"github.com/jmylchreest/extractmd/pkg/selector"
)

// universalFallbackLength is the size below which universal output is
// replaced by the region's plain text.
const universalFallbackLength = 100

// converted is a pipeline's output before the header is added.
type converted struct {
	markdown   string
	root       string
	textLength int
	articles   int
}

// convertPage picks the main region (readability, then the heuristic
// selector), or the body when OnlyMainSection is off, and serializes a
// cleaned clone with the page rules.
func convertPage(doc *goquery.Document, req Request, readability cleaner.Cleaner) (converted, error) {
	opts := selector.Options{
		Aggressive:     req.Aggressive,
		CustomSelector: req.CustomSelector,
		Readability:    readability,
	}

	var root *html.Node
	switch {
	case req.OnlyMainSection:
		root = selector.SelectMain(doc, opts)
	case req.Mode != "":
		root = selector.Select(doc, req.Mode, opts)
	default:
		root = selector.Select(doc, selector.ModeFull, opts)
	}

	cleaned := cleaner.CleanClone(root, req.Aggressive)
	length := markdown.TextLength(cleaned)
	if minLen := req.minContentLength(); length < minLen {
		return converted{}, &NoContentError{Length: length, Min: minLen}
	}

	md := markdown.Normalize(markdown.NewPage(req.Markdown).Serialize(cleaned))
	return converted{
		markdown:   md,
		root:       selector.Describe(root),
		textLength: length,
	}, nil
}

// convertArticles serializes every <article> element in its own goroutine,
// each on its own cleaned clone.
func convertArticles(doc *goquery.Document, req Request) (converted, error) {
	articles := doc.Find("article").Nodes
	minLen := req.minContentLength()
	if len(articles) == 0 {
		return converted{}, &NoContentError{Min: minLen}
	}

	serializer := markdown.NewArticle(req.Markdown.IncludeImages, req.Markdown.BaseURL)
	rendered := make([]string, len(articles))
	lengths := make([]int, len(articles))

	var wg sync.WaitGroup
	for i, article := range articles {
		wg.Add(1)
		go func(i int, n *html.Node) {
			defer wg.Done()
			cleaned := cleaner.CleanClone(n, false)
			lengths[i] = markdown.TextLength(cleaned)
			rendered[i] = serializer.Serialize(cleaned)
		}(i, article)
	}
	wg.Wait()

	// The threshold applies to rendered output so image-only articles count.
	total, renderedLen := 0, 0
	for i, l := range lengths {
		total += l
		renderedLen += utf8.RuneCountInString(strings.TrimSpace(rendered[i]))
	}
	if renderedLen < minLen {
		return converted{}, &NoContentError{Length: renderedLen, Min: minLen}
	}

	out := converted{
		root:       "article",
		textLength: total,
		articles:   len(articles),
	}

	switch {
	case len(rendered) == 1:
		out.markdown = rendered[0]
	case req.OnlyLongest:
		order := make([]int, len(rendered))
		for i := range order {
			order[i] = i
		}
		// Stable so the first of equally long articles wins.
		sort.SliceStable(order, func(a, b int) bool {
			return len(rendered[order[a]]) > len(rendered[order[b]])
		})
		longest := order[0]
		logger.Debug("keeping longest article", "index", longest, "of", len(rendered))
		out.markdown = rendered[longest]
		out.textLength = lengths[longest]
	default:
		sections := make([]string, len(rendered))
		for i, md := range rendered {
			sections[i] = fmt.Sprintf("## Article %d\n\n%s", i+1, md)
		}
		out.markdown = strings.Join(sections, "\n\n---\n\n")
	}

	out.markdown = markdown.Normalize(out.markdown)
	return out, nil
}

// convertUniversal converts the region found by the simple finder with
// html-to-markdown. Output that comes back nearly empty while the region
// holds real text is replaced by that text.
func convertUniversal(doc *goquery.Document, req Request) (converted, error) {
	root := selector.SelectSimple(doc, req.Mode, selector.Options{CustomSelector: req.CustomSelector})

	length := markdown.TextLength(root)
	if minLen := req.minContentLength(); length == 0 || length < minLen {
		return converted{}, &NoContentError{Length: length, Min: minLen}
	}

	md := markdown.Normalize(markdown.NewUniversal(req.Markdown).Serialize(root))
	if utf8.RuneCountInString(md) < universalFallbackLength && length > universalFallbackLength {
		logger.Debug("universal output too short, using plain text",
			"markdown_length", utf8.RuneCountInString(md),
			"text_length", length)
		md = markdown.CollapseWhitespace(markdown.TextContent(root))
	}

	return converted{
		markdown:   md,
		root:       selector.Describe(root),
		textLength: length,
	}, nil
}

// pipelineHeader returns the title/URL block placed above the Markdown, or
// "" when neither is requested. The universal pipeline shows both behind
// IncludeURL.
func pipelineHeader(req Request, title string) string {
	if title == "" {
		title = "Page"
	}

	includeTitle, includeURL := req.IncludeTitle, req.IncludeURL
	if req.Pipeline == PipelineUniversal {
		includeTitle = req.IncludeURL
	}
	if req.URL == "" {
		includeURL = false
	}

	var sb strings.Builder
	if includeTitle {
		fmt.Fprintf(&sb, "# %s\n\n", title)
	}
	if includeURL {
		fmt.Fprintf(&sb, "**URL:** %s\n\n", req.URL)
	}
	if sb.Len() == 0 {
		return ""
	}
	sb.WriteString("---\n\n")
	return sb.String()
}
