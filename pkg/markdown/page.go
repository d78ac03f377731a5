package markdown

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// PageSerializer is the full-featured serializer used for generic pages.
// It emits fenced code, pipe tables, links and images as configured.
type PageSerializer struct {
	opts Options
}

// NewPage creates a page serializer with the given options.
func NewPage(opts Options) *PageSerializer {
	return &PageSerializer{opts: opts}
}

// Name returns the serializer name.
func (p *PageSerializer) Name() string {
	return "page"
}

// Serialize converts n and its subtree to Markdown.
func (p *PageSerializer) Serialize(n *html.Node) string {
	return pageNode(n, p.opts)
}

func pageChildren(n *html.Node, opts Options) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(pageNode(c, opts))
	}
	return sb.String()
}

func pageNode(n *html.Node, opts Options) string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case html.TextNode:
		return n.Data
	case html.ElementNode:
	case html.DocumentNode:
		return pageChildren(n, opts)
	default:
		return ""
	}

	tag := tagName(n)
	if level := headingLevel(tag); level > 0 {
		return strings.Repeat("#", level) + " " + strings.TrimSpace(TextContent(n)) + "\n\n"
	}

	switch tag {
	case "p":
		return strings.TrimSpace(pageChildren(n, opts)) + "\n\n"

	case "ul", "ol":
		return pageList(n, tag == "ol", opts)

	case "li":
		return strings.TrimSpace(pageChildren(n, opts))

	case "strong", "b":
		return "**" + TextContent(n) + "**"

	case "em", "i":
		return "*" + TextContent(n) + "*"

	case "blockquote":
		return "> " + strings.TrimSpace(TextContent(n)) + "\n\n"

	case "hr":
		return "---\n\n"

	case "pre":
		code := firstDescendant(n, "code")
		source := n
		if code != nil {
			source = code
		}
		lang := DetectCodeLanguage(source)
		return "```" + lang + "\n" + TextContent(source) + "\n```\n\n"

	case "code":
		return "`" + TextContent(n) + "`"

	case "a":
		href := Attr(n, "href")
		text := strings.TrimSpace(TextContent(n))
		if !opts.IncludeLinks || href == "" {
			return text
		}
		target := ResolveURL(opts.BaseURL, href)
		if text == "" {
			text = target
		}
		return "[" + text + "](" + target + ")"

	case "img":
		if !opts.IncludeImages {
			return ""
		}
		src := Attr(n, "src")
		if src == "" {
			return ""
		}
		return "![" + Attr(n, "alt") + "](" + ResolveURL(opts.BaseURL, src) + ")\n\n"

	case "table", "thead", "tbody":
		if opts.IncludeTables {
			if table := closest(n, "table"); table != nil {
				return RenderTable(table)
			}
		}
	}

	return pageChildren(n, opts)
}

// pageList emits one "- " or "N. " line per <li> child. Continuation lines
// of an item, such as a nested list, are indented under the marker.
func pageList(n *html.Node, ordered bool, opts Options) string {
	var sb strings.Builder
	sb.WriteString("\n")

	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if tagName(c) != "li" {
			continue
		}
		i++
		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", i)
		}
		sb.WriteString(marker)
		sb.WriteString(indentContinuation(pageNode(c, opts), len(marker)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	return sb.String()
}

// indentContinuation indents every non-empty line after the first by width
// spaces.
func indentContinuation(s string, width int) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	pad := strings.Repeat(" ", width)
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
