package markdown

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ArticleSerializer is the lighter serializer used for <article> elements.
//
// Compared with PageSerializer it has no table or link rules, does not trim
// paragraph, list item or blockquote text, and wraps pre and code in
// unfenced triple backticks. The root element itself is not rendered; its
// children are, and whitespace-only fragments are dropped.
type ArticleSerializer struct {
	render func(*html.Node) string
}

// NewArticle creates an article serializer. Image URLs are resolved against
// baseURL when includeImages is set.
func NewArticle(includeImages bool, baseURL string) *ArticleSerializer {
	var render func(*html.Node) string

	children := func(n *html.Node) string {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			sb.WriteString(render(c))
		}
		return sb.String()
	}

	list := func(n *html.Node, ordered bool) string {
		var sb strings.Builder
		sb.WriteString("\n")
		i := 0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			i++
			if ordered {
				sb.WriteString(strconv.Itoa(i) + ". ")
			} else {
				sb.WriteString("- ")
			}
			sb.WriteString(render(c))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		return sb.String()
	}

	render = func(n *html.Node) string {
		switch n.Type {
		case html.TextNode:
			return n.Data
		case html.ElementNode:
		default:
			return ""
		}

		tag := tagName(n)
		if level := headingLevel(tag); level > 0 {
			return strings.Repeat("#", level) + " " + strings.TrimSpace(TextContent(n)) + "\n\n"
		}

		switch tag {
		case "p":
			return children(n) + "\n\n"
		case "ul":
			return list(n, false)
		case "ol":
			return list(n, true)
		case "li":
			return children(n)
		case "strong", "b":
			return "**" + TextContent(n) + "**"
		case "em", "i":
			return "*" + TextContent(n) + "*"
		case "blockquote":
			return "> " + TextContent(n) + "\n\n"
		case "hr":
			return "---\n\n"
		case "pre", "code":
			return "```" + TextContent(n) + "```"
		case "img":
			if src := Attr(n, "src"); includeImages && src != "" {
				return "![" + Attr(n, "alt") + "](" + ResolveURL(baseURL, src) + ")\n\n"
			}
		}
		return children(n)
	}

	return &ArticleSerializer{render: render}
}

// Name returns the serializer name.
func (a *ArticleSerializer) Name() string {
	return "article"
}

// Serialize renders the children of root, skipping whitespace-only output.
func (a *ArticleSerializer) Serialize(root *html.Node) string {
	if root == nil {
		return ""
	}
	var sb strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		md := a.render(c)
		if strings.TrimSpace(md) != "" {
			sb.WriteString(md)
		}
	}
	return strings.TrimSpace(sb.String())
}
