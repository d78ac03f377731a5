// Package cleaner prunes non-content elements from HTML.
//
// Two shapes are provided. Cleaner works on HTML strings and is used at the
// boundary to third-party extractors (Readability, Trafilatura) and for
// chaining. Pruner and CleanClone work on parsed trees and always return a
// pruned deep clone, leaving the input untouched.
package cleaner

import "errors"

// ErrNoContent is returned by extracting cleaners when nothing usable was found.
var ErrNoContent = errors.New("no content extracted")

// Cleaner transforms HTML content into a cleaner form.
type Cleaner interface {
	// Clean transforms the input HTML. The output format depends on the
	// implementation (HTML, Markdown, plain text).
	Clean(html string) (string, error)

	// Name returns the cleaner type for logging/debugging.
	Name() string
}

// OutputFormat selects what extracting cleaners return.
type OutputFormat int

const (
	// OutputHTML returns cleaned HTML (default, for chaining).
	OutputHTML OutputFormat = iota
	// OutputText returns plain text.
	OutputText
)
