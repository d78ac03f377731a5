package markdown

import (
	"bytes"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/extractmd/internal/logger"
)

// Elements the universal serializer never converts.
var universalRemove = []string{
	"script", "style", "noscript", "svg", "iframe", "object", "embed",
	"form", "input", "button", "select", "textarea",
}

var (
	universalImageTags = []string{"img", "picture", "figure"}
	universalNavTags   = []string{"nav", "header", "footer", "aside"}
)

// UniversalSerializer converts a subtree with html-to-markdown instead of
// the hand-written rule table. It is the fallback for sites where neither
// the page nor the article heuristics fit.
type UniversalSerializer struct {
	opts Options
	conv *converter.Converter
}

// NewUniversal creates a library-backed serializer. IncludeImages,
// IncludeLinks, IncludeTables, StripNav and BaseURL are honoured.
func NewUniversal(opts Options) *UniversalSerializer {
	plugins := []converter.Plugin{
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(
			commonmark.WithEmDelimiter("*"),
			commonmark.WithStrongDelimiter("**"),
			commonmark.WithHorizontalRule("---"),
			commonmark.WithBulletListMarker("-"),
			commonmark.WithLinkEmptyContentBehavior(commonmark.LinkBehaviorSkip),
			commonmark.WithLinkEmptyHrefBehavior(commonmark.LinkBehaviorSkip),
		),
	}
	if opts.IncludeTables {
		plugins = append(plugins, table.NewTablePlugin())
	}

	return &UniversalSerializer{
		opts: opts,
		conv: converter.NewConverter(converter.WithPlugins(plugins...)),
	}
}

// Name returns the serializer name.
func (u *UniversalSerializer) Name() string {
	return "universal"
}

// Serialize converts the inner HTML of n. A conversion failure degrades to
// the collapsed text of the subtree.
func (u *UniversalSerializer) Serialize(n *html.Node) string {
	if n == nil {
		return ""
	}

	clone := goquery.NewDocumentFromNode(n).Selection.Clone()
	doc := goquery.NewDocumentFromNode(clone.Get(0))
	u.prune(doc)

	var buf bytes.Buffer
	for c := doc.Selection.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			logger.Debug("universal render failed", "error", err)
			return CollapseWhitespace(TextContent(n))
		}
	}

	var md string
	var err error
	if u.opts.BaseURL != "" {
		md, err = u.conv.ConvertString(buf.String(), converter.WithDomain(u.opts.BaseURL))
	} else {
		md, err = u.conv.ConvertString(buf.String())
	}
	if err != nil {
		logger.Debug("universal conversion failed", "error", err)
		return CollapseWhitespace(TextContent(n))
	}
	return md
}

// prune applies the remove lists and unwraps anchors when links are off.
func (u *UniversalSerializer) prune(doc *goquery.Document) {
	doc.Find(strings.Join(universalRemove, ", ")).Remove()
	if !u.opts.IncludeImages {
		doc.Find(strings.Join(universalImageTags, ", ")).Remove()
	}
	if u.opts.StripNav {
		doc.Find(strings.Join(universalNavTags, ", ")).Remove()
	}
	if !u.opts.IncludeLinks {
		doc.Find("a").Each(func(_ int, s *goquery.Selection) {
			s.ReplaceWithSelection(s.Contents())
		})
	}
}
