package markdown

import (
	"regexp"

	"golang.org/x/net/html"
)

var (
	languageClass = regexp.MustCompile(`(?i)language-([\w#+-]+)`)
	langClass     = regexp.MustCompile(`(?i)lang-([\w#+-]+)`)
)

// DetectCodeLanguage reads the fence language from a code or pre element:
// a language-x or lang-x class first, then data-language and data-lang.
func DetectCodeLanguage(n *html.Node) string {
	if n == nil {
		return ""
	}

	classes := Attr(n, "class")
	if m := languageClass.FindStringSubmatch(classes); m != nil {
		return m[1]
	}
	if m := langClass.FindStringSubmatch(classes); m != nil {
		return m[1]
	}
	if lang := Attr(n, "data-language"); lang != "" {
		return lang
	}
	return Attr(n, "data-lang")
}
