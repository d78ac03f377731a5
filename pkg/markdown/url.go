package markdown

import (
	"net/url"
	"regexp"
	"strings"
)

var lastPathSegment = regexp.MustCompile(`/[^/]*$`)

// ResolveURL resolves raw against the page URL base.
//
// Absolute http(s) URLs are returned unchanged. A leading "/" is joined to
// the page origin; anything else is joined to the directory of the page
// path. When base has no usable origin, raw is returned as given.
func ResolveURL(base, raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}

	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	origin := u.Scheme + "://" + u.Host

	if strings.HasPrefix(raw, "/") {
		return origin + raw
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return origin + lastPathSegment.ReplaceAllString(path, "/") + raw
}
