// Package selector picks the DOM region most likely to hold a page's real
// content.
//
// The heuristic is layered: explicit semantic containers and a fixed list of
// common content-container selectors are collected as candidates, each is
// scored by the length of its cleaned text, and the longest wins. The body is
// the fallback whenever nothing scores.
package selector

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/jmylchreest/extractmd/internal/logger"
	"github.com/jmylchreest/extractmd/pkg/cleaner"
	"github.com/jmylchreest/extractmd/pkg/markdown"
)

// Mode selects how the content region is chosen.
type Mode string

const (
	// ModeAuto scores candidates and picks the one with the most text.
	ModeAuto Mode = "auto"
	// ModeMain uses the first <main> element.
	ModeMain Mode = "main"
	// ModeFull uses the whole body.
	ModeFull Mode = "full"
	// ModeSelector uses the first match of a caller-supplied selector.
	ModeSelector Mode = "selector"
)

// Modes lists every valid mode.
var Modes = []Mode{ModeAuto, ModeMain, ModeFull, ModeSelector}

// ParseMode converts a string to a Mode. The empty string means ModeAuto.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeAuto, nil
	}
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Modes {
		if m == valid {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown content mode %q (want auto, main, full or selector)", s)
}

// Minimum cleaned text lengths below which a region counts as empty.
const (
	DefaultMinContentLength   = 200
	UniversalMinContentLength = 100
)

// DefaultCandidateSelectors is the ordered list of content-container
// selectors. Order matters: it decides which candidate wins a tie.
var DefaultCandidateSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	"#main",
	".content",
	".post",
	".entry-content",
	".post-content",
	".article-body",
	".article-content",
	".page-content",
	".blog-post",
	".markdown-body",
	".read__content",
	".prose",
	".article",
	".story-body",
	".post-body",
	".entry",
	".content-area",
	".main-content",
	`[data-testid*="content"]`,
	`[class*="article"]`,
	`[class*="post"]`,
	`[class*="entry"]`,
}

// Options configures region selection.
type Options struct {
	// Aggressive applies the aggressive cleaning pass when scoring.
	Aggressive bool

	// CandidateSelectors overrides DefaultCandidateSelectors when non-empty.
	CandidateSelectors []string

	// CustomSelector is used by ModeSelector.
	CustomSelector string

	// Readability is the main-content extractor used by SelectMain. It must
	// return HTML. A nil value disables it.
	Readability cleaner.Cleaner
}

// DefaultOptions returns aggressive scoring over the default candidates.
func DefaultOptions() Options {
	return Options{Aggressive: true}
}

func (o Options) candidateSelectors() []string {
	if len(o.CandidateSelectors) > 0 {
		return o.CandidateSelectors
	}
	return DefaultCandidateSelectors
}

// Candidate is a scored content-region candidate.
type Candidate struct {
	Node     *html.Node `json:"-"`
	Selector string     `json:"selector"`
	Score    int        `json:"score"`
}

// Candidates returns every element matched by selectors, in selector order
// then document order, followed by body and the first section. Each node
// appears once, under the first selector that matched it. Invalid selectors
// are skipped.
func Candidates(doc *goquery.Document, selectors []string) []Candidate {
	seen := make(map[*html.Node]bool)
	var out []Candidate

	add := func(n *html.Node, source string) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, Candidate{Node: n, Selector: source})
	}

	for _, s := range selectors {
		sel, err := cascadia.Compile(s)
		if err != nil {
			logger.Debug("skipping invalid candidate selector", "selector", s, "error", err)
			continue
		}
		doc.FindMatcher(sel).Each(func(_ int, m *goquery.Selection) {
			add(m.Get(0), s)
		})
	}

	add(firstNode(doc.Find("body")), "body")
	add(firstNode(doc.Find("section")), "section")
	return out
}

// Score fills in each candidate's score: the text length of its cleaned
// clone. The input nodes are not modified.
func Score(candidates []Candidate, aggressive bool) []Candidate {
	scored := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = TextLength(cleaner.CleanClone(c.Node, aggressive))
		scored[i] = c
	}
	return scored
}

// Best returns the index of the highest-scoring candidate, or -1 when every
// score is zero. Ties keep the earlier candidate.
func Best(scored []Candidate) int {
	best, bestScore := -1, 0
	for i, c := range scored {
		if c.Score > bestScore {
			best, bestScore = i, c.Score
		}
	}
	return best
}

// Select returns the content root for mode. It never returns nil for a
// parsed document: every mode falls back to the body, or to the document
// root when there is no body.
func Select(doc *goquery.Document, mode Mode, opts Options) *html.Node {
	body := bodyOf(doc)

	switch mode {
	case ModeFull:
		return body
	case ModeMain:
		if n := firstNode(doc.Find("main")); n != nil {
			return n
		}
		return body
	case ModeSelector:
		return selectCustom(doc, opts.CustomSelector, body)
	}

	scored := Score(Candidates(doc, opts.candidateSelectors()), opts.Aggressive)
	if i := Best(scored); i >= 0 {
		logger.Debug("content region selected",
			"selector", scored[i].Selector,
			"score", scored[i].Score,
			"candidates", len(scored))
		return scored[i].Node
	}
	logger.Debug("no candidate has content, using body", "candidates", len(scored))
	return body
}

// SelectSimple is the lighter finder used by the universal pipeline: in auto
// mode it takes the first of main, [role="main"] and article without
// scoring. Other modes behave as in Select.
func SelectSimple(doc *goquery.Document, mode Mode, opts Options) *html.Node {
	if mode != ModeAuto && mode != "" {
		return Select(doc, mode, opts)
	}
	for _, s := range []string{"main", `[role="main"]`, "article"} {
		if n := firstNode(doc.Find(s)); n != nil {
			return n
		}
	}
	return bodyOf(doc)
}

// SelectMain implements the "only main section" strategy. The document is
// handed to opts.Readability; its HTML output is parsed into a fresh tree
// whose body becomes the root. Any failure, including an empty result,
// falls back to Select in auto mode.
func SelectMain(doc *goquery.Document, opts Options) *html.Node {
	if opts.Readability != nil {
		if n, err := readabilityRoot(doc, opts.Readability); err != nil {
			logger.Debug("main-content extraction failed, using heuristic",
				"extractor", opts.Readability.Name(),
				"error", err)
		} else {
			return n
		}
	}
	return Select(doc, ModeAuto, opts)
}

func readabilityRoot(doc *goquery.Document, c cleaner.Cleaner) (*html.Node, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc.Selection.Get(0)); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}

	out, err := c.Clean(buf.String())
	if err != nil {
		return nil, err
	}

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("failed to parse extractor output: %w", err)
	}
	body := firstNode(parsed.Find("body"))
	if body == nil || strings.TrimSpace(markdown.TextContent(body)) == "" {
		return nil, cleaner.ErrNoContent
	}
	return body, nil
}

func selectCustom(doc *goquery.Document, selector string, fallback *html.Node) *html.Node {
	if strings.TrimSpace(selector) == "" {
		return fallback
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		logger.Debug("invalid custom selector, using body", "selector", selector, "error", err)
		return fallback
	}
	if n := firstNode(doc.FindMatcher(sel)); n != nil {
		return n
	}
	return fallback
}

func bodyOf(doc *goquery.Document) *html.Node {
	if body := firstNode(doc.Find("body")); body != nil {
		return body
	}
	return doc.Selection.Get(0)
}

// TextLength returns the character count of the collapsed, trimmed text of n.
func TextLength(n *html.Node) int {
	return markdown.TextLength(n)
}

// Describe renders n as tag#id.class for logs and reports. A document
// node is "document".
func Describe(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.DocumentNode {
		return "document"
	}
	desc := n.Data
	if id := markdown.Attr(n, "id"); id != "" {
		desc += "#" + id
	}
	if class := strings.Fields(markdown.Attr(n, "class")); len(class) > 0 {
		desc += "." + class[0]
	}
	return desc
}

// HasContent reports whether the cleaned text of n reaches min characters.
func HasContent(n *html.Node, min int) bool {
	return TextLength(n) >= min
}

// firstNode returns the first node of s, or nil when s is empty.
func firstNode(s *goquery.Selection) *html.Node {
	if s.Length() == 0 {
		return nil
	}
	return s.Get(0)
}
