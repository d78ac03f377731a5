package markdown

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// TextContent returns the concatenated text of n and all its descendants,
// the way the DOM textContent property does.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	collectText(n, &sb)
	return sb.String()
}

func collectText(n *html.Node, sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.ElementNode, html.DocumentNode:
			collectText(c, sb)
		}
	}
}

// CollapseWhitespace replaces every whitespace run with a single space and
// trims the result.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TextLength returns the number of characters in the collapsed text of n.
func TextLength(n *html.Node) int {
	return utf8.RuneCountInString(CollapseWhitespace(TextContent(n)))
}

// Attr returns the value of the named attribute, or "" when absent.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// AttrInt parses a numeric attribute such as colspan. Missing or malformed
// values are coerced to 0.
func AttrInt(n *html.Node, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(Attr(n, key)))
	if err != nil {
		return 0
	}
	return v
}

// tagName returns the lowercased element name, or "" for non-elements.
func tagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// closest walks n and its ancestors and returns the first element named tag.
func closest(n *html.Node, tag string) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if tagName(p) == tag {
			return p
		}
	}
	return nil
}

// firstDescendant returns the first descendant element named tag in
// document order.
func firstDescendant(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if tagName(c) == tag {
			return c
		}
		if found := firstDescendant(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// descendants returns every descendant element whose name is in tags, in
// document order.
func descendants(n *html.Node, tags ...string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			name := tagName(c)
			for _, t := range tags {
				if name == t {
					out = append(out, c)
					break
				}
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// headingLevel returns 1-6 for h1..h6 and 0 otherwise.
func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}
